// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "livechat"

// =============================================================================
// METRICS
// =============================================================================

// Metrics groups the controller's collectors.
type Metrics struct {
	PagesTotal      *prometheus.CounterVec
	PageDuration    prometheus.Histogram
	AnchorRestores  *prometheus.CounterVec
	TypingSignals   *prometheus.CounterVec
	SendsTotal      *prometheus.CounterVec
	ReadReceipts    prometheus.Counter
	GroupCacheHits  prometheus.Counter
	GroupCacheMiss  prometheus.Counter
	ScrollSnaps     prometheus.Counter
	ActiveChatCount prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered, which tests use to read values directly.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "pages_total",
			Help: "History pages requested, by result",
		}, []string{"result"}),
		PageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "page_duration_seconds",
			Help:    "Time from history request to page applied",
			Buckets: prometheus.DefBuckets,
		}),
		AnchorRestores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "anchor_restores_total",
			Help: "Scroll anchor restores after a prepend, by outcome",
		}, []string{"result"}),
		TypingSignals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "typing_signals_total",
			Help: "Typing indicators sent, by kind",
		}, []string{"kind"}),
		SendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sends_total",
			Help: "Outbound messages and uploads, by kind and result",
		}, []string{"kind", "result"}),
		ReadReceipts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_receipts_total",
			Help: "Mark-all-read calls dispatched",
		}),
		GroupCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "group_cache_hits_total",
			Help: "Transcript groupings served from the memo cache",
		}),
		GroupCacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "group_cache_misses_total",
			Help: "Transcript groupings recomputed",
		}),
		ScrollSnaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "scroll_snaps_total",
			Help: "Bottom snaps caused by growth or outbound messages",
		}),
		ActiveChatCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "open_chats",
			Help: "Chats currently open in a view",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PagesTotal, m.PageDuration, m.AnchorRestores, m.TypingSignals,
			m.SendsTotal, m.ReadReceipts, m.GroupCacheHits, m.GroupCacheMiss,
			m.ScrollSnaps, m.ActiveChatCount,
		)
	}
	return m
}

// PageLoaded records a history request outcome.
func (m *Metrics) PageLoaded(took time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.PagesTotal.WithLabelValues("error").Inc()
		return
	}
	m.PagesTotal.WithLabelValues("ok").Inc()
	m.PageDuration.Observe(took.Seconds())
}

// AnchorRestored records a restore outcome.
func (m *Metrics) AnchorRestored(result string) {
	if m == nil {
		return
	}
	m.AnchorRestores.WithLabelValues(result).Inc()
}

// TypingSignal records a typing indicator.
func (m *Metrics) TypingSignal(isTyping bool) {
	if m == nil {
		return
	}
	kind := "end"
	if isTyping {
		kind = "start"
	}
	m.TypingSignals.WithLabelValues(kind).Inc()
}

// Sent records an outbound message or upload.
func (m *Metrics) Sent(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SendsTotal.WithLabelValues(kind, result).Inc()
}

// ReadReceipt records a mark-all-read call.
func (m *Metrics) ReadReceipt() {
	if m == nil {
		return
	}
	m.ReadReceipts.Inc()
}

// GroupCache records memo cache counter deltas.
func (m *Metrics) GroupCache(hits, misses uint64) {
	if m == nil {
		return
	}
	m.GroupCacheHits.Add(float64(hits))
	m.GroupCacheMiss.Add(float64(misses))
}

// Snap records a bottom snap.
func (m *Metrics) Snap() {
	if m == nil {
		return
	}
	m.ScrollSnaps.Inc()
}

// OpenChats sets the open chat gauge.
func (m *Metrics) OpenChats(n int) {
	if m == nil {
		return
	}
	m.ActiveChatCount.Set(float64(n))
}

// =============================================================================
// HTTP ENDPOINT
// =============================================================================

// Serve exposes g on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("metrics_listen", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
