// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/livechat-tui/internal/schedule"
)

var epoch = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

// stuckSurface ignores writes, like a container whose layout keeps resetting.
type stuckSurface struct {
	*MemorySurface
}

func (s stuckSurface) SetScrollTop(int, bool) {
	s.Writes++
}

// =============================================================================
// METRICS
// =============================================================================

func TestMetrics(t *testing.T) {
	m := Metrics{ScrollHeight: 1000, ScrollTop: 300, ClientHeight: 400}
	assert.Equal(t, 300, m.DistanceFromBottom())
	assert.Equal(t, 600, m.MaxScrollTop())

	short := Metrics{ScrollHeight: 100, ClientHeight: 400}
	assert.Equal(t, 0, short.MaxScrollTop())
}

func TestMemorySurface_Clamps(t *testing.T) {
	s := NewMemorySurface(1000, 400)
	s.SetScrollTop(5000, false)
	assert.Equal(t, 600, s.Top)
	s.SetScrollTop(-5, true)
	assert.Equal(t, 0, s.Top)
	assert.Equal(t, 2, s.Writes)
	assert.True(t, s.LastImmediate)
}

// =============================================================================
// ANCHOR MANAGER
// =============================================================================

func TestAnchor_PrependKeepsViewportStill(t *testing.T) {
	tests := []struct {
		name      string
		prepended int
		priorTop  int
	}{
		{"one page", 600, 0},
		{"small", 20, 40},
		{"large", 12000, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop := schedule.NewFakeLoop(epoch)
			surface := NewMemorySurface(2000, 400)
			surface.Top = tt.priorTop
			am := NewAnchorManager(loop, surface, AnchorOptions{})

			anchor := am.Capture()
			surface.Prepend(tt.prepended)

			var result RestoreResult = -1
			am.Restore(anchor, func(r RestoreResult) { result = r })

			assert.Equal(t, Restored, result)
			assert.InDelta(t, tt.priorTop+tt.prepended, surface.Top, DefaultAnchorTolerance)
			assert.True(t, surface.LastImmediate)
			assert.False(t, am.Restoring())
		})
	}
}

func TestAnchor_RetriesUntilLayoutSettles(t *testing.T) {
	loop := schedule.NewFakeLoop(epoch)
	surface := NewMemorySurface(2000, 400)
	surface.Top = 10
	am := NewAnchorManager(loop, surface, AnchorOptions{RetryDelay: 10 * time.Millisecond})

	anchor := am.Capture()
	var result RestoreResult = -1
	am.Restore(anchor, func(r RestoreResult) { result = r })

	// Nothing measured yet
	assert.True(t, am.Restoring())
	assert.Equal(t, 0, surface.Writes)

	// Images above finish loading
	surface.Prepend(800)
	loop.Advance(10 * time.Millisecond)

	assert.Equal(t, Restored, result)
	assert.Equal(t, 810, surface.Top)
}

func TestAnchor_DiscardedWithoutHeightChange(t *testing.T) {
	loop := schedule.NewFakeLoop(epoch)
	surface := NewMemorySurface(2000, 400)
	am := NewAnchorManager(loop, surface, AnchorOptions{RetryDelay: 10 * time.Millisecond})

	var results []RestoreResult
	am.Restore(am.Capture(), func(r RestoreResult) { results = append(results, r) })
	loop.Advance(time.Second)

	assert.Equal(t, []RestoreResult{Discarded}, results)
	assert.Equal(t, 0, surface.Writes)
	assert.Equal(t, 0, loop.PendingTimers())
}

func TestAnchor_BoundedWhenNeverSettling(t *testing.T) {
	loop := schedule.NewFakeLoop(epoch)
	surface := stuckSurface{NewMemorySurface(2000, 400)}
	am := NewAnchorManager(loop, surface, AnchorOptions{RetryDelay: 10 * time.Millisecond})

	anchor := am.Capture()
	surface.Prepend(500)

	var results []RestoreResult
	am.Restore(anchor, func(r RestoreResult) { results = append(results, r) })
	loop.Advance(time.Minute)

	assert.Equal(t, []RestoreResult{Unsettled}, results)
	assert.Equal(t, DefaultAnchorRetries, surface.Writes)
	assert.Equal(t, 0, loop.PendingTimers())
}

func TestAnchor_Cancel(t *testing.T) {
	loop := schedule.NewFakeLoop(epoch)
	surface := NewMemorySurface(2000, 400)
	am := NewAnchorManager(loop, surface, AnchorOptions{})

	var results []RestoreResult
	am.Restore(am.Capture(), func(r RestoreResult) { results = append(results, r) })
	am.Cancel()
	surface.Prepend(300)
	loop.Advance(time.Second)

	assert.Equal(t, []RestoreResult{Cancelled}, results)
	assert.Equal(t, 0, surface.Writes)

	// Cancel when idle is a no-op
	am.Cancel()
	assert.Len(t, results, 1)
}

// =============================================================================
// AUTOSCROLL
// =============================================================================

func newPolicy(t *testing.T) (*schedule.FakeLoop, *MemorySurface, *AutoScroll) {
	t.Helper()
	loop := schedule.NewFakeLoop(epoch)
	surface := NewMemorySurface(4000, 400)
	surface.Top = 3600
	return loop, surface, NewAutoScroll(loop, surface, AutoScrollOptions{})
}

func TestAutoScroll_ThresholdBoundary(t *testing.T) {
	loop, _, p := newPolicy(t)

	p.OnScroll(Metrics{ScrollHeight: 4000, ScrollTop: 3400, ClientHeight: 400})
	assert.True(t, p.AtBottom(), "exactly 200px away is still bottom")
	assert.True(t, p.Enabled())

	loop.Advance(DefaultThrottleWindow)
	p.OnScroll(Metrics{ScrollHeight: 4000, ScrollTop: 3399, ClientHeight: 400})
	assert.False(t, p.AtBottom())
	assert.False(t, p.Enabled())
}

func TestAutoScroll_ThrottleUsesLatestSample(t *testing.T) {
	loop, _, p := newPolicy(t)

	var evaluations []bool
	p.opts.OnEvaluate = func(atBottom bool) { evaluations = append(evaluations, atBottom) }

	p.OnScroll(Metrics{ScrollHeight: 4000, ScrollTop: 0, ClientHeight: 400}) // leading
	p.OnScroll(Metrics{ScrollHeight: 4000, ScrollTop: 100, ClientHeight: 400})
	p.OnScroll(Metrics{ScrollHeight: 4000, ScrollTop: 3600, ClientHeight: 400}) // latest
	assert.Equal(t, []bool{false}, evaluations)

	loop.Advance(DefaultThrottleWindow)
	assert.Equal(t, []bool{false, true}, evaluations)
	assert.True(t, p.Enabled())
}

func TestAutoScroll_LockedViewIgnoresGrowth(t *testing.T) {
	loop, surface, p := newPolicy(t)

	surface.Top = 500
	p.OnScroll(surface.Metrics())
	require.False(t, p.Enabled())

	surface.Append(300)
	assert.False(t, p.Grew())
	loop.Advance(time.Second)
	assert.Equal(t, 500, surface.Top)
	assert.Equal(t, 0, surface.Writes)
}

func TestAutoScroll_GrowthSnapsTwice(t *testing.T) {
	loop, surface, p := newPolicy(t)

	surface.Append(300)
	require.True(t, p.Grew())
	assert.Equal(t, 3900, surface.Top)

	// Late image load before the paint snap
	surface.Append(200)
	loop.Advance(DefaultPaintDelay)
	assert.Equal(t, 4100, surface.Top)
	assert.Equal(t, 2, surface.Writes)
}

func TestAutoScroll_SendOverridesLock(t *testing.T) {
	loop, surface, p := newPolicy(t)

	surface.Top = 0
	p.OnScroll(surface.Metrics())
	require.False(t, p.Enabled())

	// A stale sample waiting in the throttle must not re-lock after the send
	p.OnScroll(surface.Metrics())
	surface.Append(100)
	p.ForceBottom()
	loop.Advance(time.Second)

	assert.True(t, p.Enabled())
	assert.True(t, p.AtBottom())
	assert.Equal(t, surface.Metrics().MaxScrollTop(), surface.Top)
}

func TestAutoScroll_SwitchRetriesAreBounded(t *testing.T) {
	loop, surface, p := newPolicy(t)
	p.Disable()

	p.ResetForSwitch()
	loop.Advance(time.Minute)

	assert.True(t, p.Enabled())
	assert.Equal(t, DefaultSwitchRetries, surface.Writes)
	assert.Equal(t, 0, loop.PendingTimers())
}

func TestAutoScroll_DisableStopsSnaps(t *testing.T) {
	loop, surface, p := newPolicy(t)

	p.ResetForSwitch()
	writes := surface.Writes
	p.Disable()
	surface.Append(1000)
	loop.Advance(time.Second)

	assert.Equal(t, writes, surface.Writes)
	assert.False(t, p.Grew())
}
