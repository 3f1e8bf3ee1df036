// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// THROTTLE
// =============================================================================

// Throttle runs a callback at most once per window. A call inside the window
// schedules a single trailing run at the window's end; further calls before
// then only replace the callback, so the trailing run always acts on the most
// recent sample.
type Throttle struct {
	sched   Scheduler
	window  time.Duration
	limiter *rate.Limiter

	trailing    Handle
	reservation *rate.Reservation
	latest      func()
}

// NewThrottle creates a throttle allowing one run per window.
func NewThrottle(s Scheduler, window time.Duration) *Throttle {
	return &Throttle{
		sched:   s,
		window:  window,
		limiter: rate.NewLimiter(rate.Every(window), 1),
	}
}

// Window returns the throttle window.
func (t *Throttle) Window() time.Duration {
	return t.window
}

// Trigger runs fn now if the window allows, otherwise defers it.
func (t *Throttle) Trigger(fn func()) {
	if t.trailing != nil {
		t.latest = fn
		return
	}

	now := t.sched.Now()
	if t.limiter.AllowN(now, 1) {
		fn()
		return
	}

	t.latest = fn
	t.reservation = t.limiter.ReserveN(now, 1)
	delay := t.reservation.DelayFrom(now)
	t.trailing = t.sched.AfterFunc(delay, func() {
		run := t.latest
		t.trailing = nil
		t.reservation = nil
		t.latest = nil
		if run != nil {
			run()
		}
	})
}

// Cancel drops a pending trailing run and gives its reservation back to the
// limiter.
func (t *Throttle) Cancel() {
	if t.trailing == nil {
		return
	}
	t.trailing.Stop()
	t.trailing = nil
	if t.reservation != nil {
		t.reservation.CancelAt(t.sched.Now())
		t.reservation = nil
	}
	t.latest = nil
}

// Pending reports whether a trailing run is scheduled.
func (t *Throttle) Pending() bool {
	return t.trailing != nil
}
