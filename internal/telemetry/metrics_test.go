// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.PageLoaded(time.Second, nil)
	m.AnchorRestored("restored")
	m.TypingSignal(true)
	m.Sent("text", nil)
	m.ReadReceipt()
	m.GroupCache(1, 2)
	m.Snap()
	m.OpenChats(3)
}

func TestPageLoaded(t *testing.T) {
	m := New(nil)

	m.PageLoaded(100*time.Millisecond, nil)
	m.PageLoaded(0, errors.New("timeout"))
	m.PageLoaded(200*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesTotal.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PageDuration))
}

func TestTypingAndSends(t *testing.T) {
	m := New(nil)

	m.TypingSignal(true)
	m.TypingSignal(false)
	m.TypingSignal(false)
	m.Sent("image", errors.New("too large"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TypingSignals.WithLabelValues("start")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TypingSignals.WithLabelValues("end")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SendsTotal.WithLabelValues("image", "error")))
}

func TestRegistryExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ReadReceipt()

	expected := `
# HELP livechat_read_receipts_total Mark-all-read calls dispatched
# TYPE livechat_read_receipts_total counter
livechat_read_receipts_total 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "livechat_read_receipts_total")
	require.NoError(t, err)
}
