// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import "time"

// =============================================================================
// RETRY LOOP
// =============================================================================

// Attempt is one try of a RetryLoop. n counts from 1. Returning true ends
// the loop.
type Attempt func(n int) (done bool)

// RetryLoop runs an attempt immediately and then at a fixed interval until it
// reports done or the attempt budget is spent. It never retries past
// MaxAttempts.
type RetryLoop struct {
	sched       Scheduler
	interval    time.Duration
	maxAttempts int

	handle  Handle
	running bool
	run     uint64
}

// NewRetryLoop creates a retry loop. maxAttempts below 1 is treated as 1.
func NewRetryLoop(s Scheduler, interval time.Duration, maxAttempts int) *RetryLoop {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryLoop{sched: s, interval: interval, maxAttempts: maxAttempts}
}

// MaxAttempts returns the attempt budget.
func (r *RetryLoop) MaxAttempts() int {
	return r.maxAttempts
}

// Start cancels any run in progress and begins a new one. exhausted, if not
// nil, is called when every attempt returned false.
func (r *RetryLoop) Start(attempt Attempt, exhausted func()) {
	r.Cancel()
	r.run++
	r.running = true
	r.step(r.run, 1, attempt, exhausted)
}

func (r *RetryLoop) step(run uint64, n int, attempt Attempt, exhausted func()) {
	r.handle = nil
	if run != r.run || !r.running {
		return
	}
	if attempt(n) {
		r.running = false
		return
	}
	// attempt may have cancelled or restarted the loop
	if run != r.run || !r.running {
		return
	}
	if n >= r.maxAttempts {
		r.running = false
		if exhausted != nil {
			exhausted()
		}
		return
	}
	r.handle = r.sched.AfterFunc(r.interval, func() {
		r.step(run, n+1, attempt, exhausted)
	})
}

// Cancel stops the current run without calling exhausted.
func (r *RetryLoop) Cancel() {
	if r.handle != nil {
		r.handle.Stop()
		r.handle = nil
	}
	r.running = false
}

// Running reports whether a run is in progress.
func (r *RetryLoop) Running() bool {
	return r.running
}
