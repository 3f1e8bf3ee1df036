// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/collab"
	"github.com/jeranaias/livechat-tui/internal/config"
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/pagination"
	"github.com/jeranaias/livechat-tui/internal/scroll"
	"github.com/jeranaias/livechat-tui/internal/session"
	"github.com/jeranaias/livechat-tui/internal/storage"
	"github.com/jeranaias/livechat-tui/internal/telemetry"
	"github.com/jeranaias/livechat-tui/internal/typing"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds the long-lived services both chat clients run on.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *storage.Store
	local    *collab.Local
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	sim      *collab.Simulator
}

// openApp opens the database, seeds it on first use and starts the optional
// metrics endpoint and peer simulator. The caller must Close it.
func openApp(ctx context.Context, e *env) (*app, error) {
	cfg := e.cfg
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   e.logger,
		db:       db,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = telemetry.New(a.registry)

	if err := a.seedIfEmpty(ctx); err != nil {
		db.Close()
		return nil, err
	}

	a.local = collab.NewLocal(db, collab.LocalOptions{
		UserID:   model.ID(cfg.User.ID),
		PageSize: cfg.Storage.PageSize,
		Logger:   e.logger.Named("collab"),
	})

	if addr := cfg.Metrics.Addr; addr != "" {
		go func() {
			if err := telemetry.Serve(ctx, addr, a.registry, e.logger.Named("metrics")); err != nil {
				e.logger.Error("metrics_serve_failed", zap.String("addr", addr), zap.Error(err))
			}
		}()
	}

	if cfg.Simulator.Enabled {
		a.sim = collab.NewSimulator(a.local, collab.SimulatorOptions{
			Interval:   cfg.Simulator.Interval.Duration,
			TypingLead: cfg.Simulator.TypingLead.Duration,
			Logger:     e.logger.Named("simulator"),
		})
		a.sim.Start(ctx)
	}
	return a, nil
}

func (a *app) seedIfEmpty(ctx context.Context) error {
	chats, err := a.db.Chats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	if len(chats) > 0 {
		return nil
	}
	res, err := storage.Seed(ctx, a.db, storage.SeedOptions{
		UserID:   model.ID(a.cfg.User.ID),
		UserName: a.cfg.User.Name,
	})
	if err != nil {
		return fmt.Errorf("seed demo chats: %w", err)
	}
	a.logger.Info("demo_seeded", zap.Int("chats", len(res.Chats)), zap.Int("messages", res.Messages))
	return nil
}

// setActive points the simulator at the chat on screen.
func (a *app) setActive(chatID model.ID) {
	if a.sim != nil {
		a.sim.SetActive(chatID)
	}
}

// Close stops the simulator and releases the database.
func (a *app) Close() {
	if a.sim != nil {
		a.sim.Stop()
	}
	if a.local != nil {
		a.local.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("store_close_failed", zap.Error(err))
	}
}

// sessionOptions maps the config onto controller options.
func sessionOptions(cfg *config.Config, metrics *telemetry.Metrics, logger *zap.Logger) session.Options {
	return session.Options{
		UserID:            model.ID(cfg.User.ID),
		InitialLoadDelay:  cfg.Session.InitialLoadDelay.Duration,
		GroupRetryDelay:   cfg.Session.GroupRetryDelay.Duration,
		EndTypingOnSwitch: cfg.Typing.EndOnSwitch,
		Anchor: scroll.AnchorOptions{
			Tolerance:  cfg.Scroll.AnchorTolerance,
			Retries:    cfg.Scroll.AnchorRetries,
			RetryDelay: cfg.Scroll.AnchorRetryDelay.Duration,
		},
		AutoScroll: scroll.AutoScrollOptions{
			Threshold:           cfg.Scroll.BottomThreshold,
			ThrottleWindow:      cfg.Scroll.ThrottleWindow.Duration,
			PaintDelay:          cfg.Scroll.PaintDelay.Duration,
			SwitchRetries:       cfg.Scroll.SwitchRetries,
			SwitchRetryInterval: cfg.Scroll.SwitchRetryInterval.Duration,
		},
		Pagination: pagination.Options{
			Debounce:      cfg.Pagination.Debounce.Duration,
			TriggerMargin: cfg.Pagination.TriggerMargin,
			TriggerRatio:  cfg.Pagination.TriggerRatio,
			TriggerHeight: cfg.Pagination.TriggerHeight,
		},
		Typing: typing.Options{
			RefreshInterval: cfg.Typing.RefreshInterval.Duration,
			EndDelay:        cfg.Typing.EndDelay.Duration,
		},
		Locale:   cfg.UI.Locale,
		Location: cfg.Location(),
		Metrics:  metrics,
		Logger:   logger,
	}
}
