// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import "time"

// =============================================================================
// DEBOUNCER
// =============================================================================

// Debouncer runs a callback once a delay has elapsed since the latest
// Trigger. Each Trigger cancels the previously armed timer.
//
// Not safe for concurrent use; call it from the loop only.
type Debouncer struct {
	sched  Scheduler
	delay  time.Duration
	handle Handle
}

// NewDebouncer creates a debouncer with a fixed delay.
func NewDebouncer(s Scheduler, delay time.Duration) *Debouncer {
	return &Debouncer{sched: s, delay: delay}
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger (re)arms the timer to run fn after the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.Cancel()
	var h Handle
	h = d.sched.AfterFunc(d.delay, func() {
		if d.handle == h {
			d.handle = nil
		}
		fn()
	})
	d.handle = h
}

// Cancel stops the armed timer. Returns true if one was pending.
func (d *Debouncer) Cancel() bool {
	if d.handle == nil {
		return false
	}
	stopped := d.handle.Stop()
	d.handle = nil
	return stopped
}

// Pending reports whether a timer is armed.
func (d *Debouncer) Pending() bool {
	return d.handle != nil
}
