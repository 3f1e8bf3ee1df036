// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"sync/atomic"
	"time"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Handle cancels a scheduled callback.
type Handle interface {
	// Stop prevents the callback from running. Returns false if it already ran
	// or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks on the event loop after a delay.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Handle
}

// Loop is the event loop the controller runs on.
type Loop interface {
	Scheduler

	// Post queues fn to run on the loop. Safe to call from any goroutine.
	Post(fn func())

	// Go runs work off the loop, then runs done on the loop. done may be nil.
	Go(work func(), done func())
}

// =============================================================================
// SHARED TIMER HANDLE
// =============================================================================

// loopTimer backs AfterFunc for loops driven by real time. The stop flag is
// checked again on the loop, so a timer whose expiry was already queued when
// Stop was called still never runs.
type loopTimer struct {
	timer   *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

func (t *loopTimer) Stop() bool {
	if t.fired.Load() || !t.stopped.CompareAndSwap(false, true) {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

// afterFunc arms a real timer that posts fn through post.
func afterFunc(d time.Duration, post func(func()), fn func()) Handle {
	h := &loopTimer{}
	h.timer = time.AfterFunc(d, func() {
		post(func() {
			if h.stopped.Load() {
				return
			}
			h.fired.Store(true)
			fn()
		})
	})
	return h
}
