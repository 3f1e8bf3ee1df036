// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"sort"
	"time"
)

// =============================================================================
// FAKE LOOP (TESTS)
// =============================================================================

// FakeLoop is a deterministic Loop for tests. Time only moves when Advance is
// called; timers fire in due order on the caller's goroutine. Work passed to
// Go runs immediately, but its done callback is held until Flush so tests can
// observe the in-flight window.
//
// FakeLoop is not safe for concurrent use.
type FakeLoop struct {
	now         time.Time
	seq         uint64
	timers      []*fakeTimer
	posted      []func()
	completions []func()
}

type fakeTimer struct {
	due     time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewFakeLoop creates a fake loop whose clock starts at start.
func NewFakeLoop(start time.Time) *FakeLoop {
	return &FakeLoop{now: start}
}

// Now returns the fake clock.
func (l *FakeLoop) Now() time.Time {
	return l.now
}

// AfterFunc registers fn to run once the clock passes now+d.
func (l *FakeLoop) AfterFunc(d time.Duration, fn func()) Handle {
	l.seq++
	t := &fakeTimer{due: l.now.Add(d), seq: l.seq, fn: fn}
	l.timers = append(l.timers, t)
	return t
}

// Post queues fn; it runs on the next Advance or Flush.
func (l *FakeLoop) Post(fn func()) {
	l.posted = append(l.posted, fn)
}

// Go runs work now and holds done until Flush.
func (l *FakeLoop) Go(work func(), done func()) {
	work()
	if done != nil {
		l.completions = append(l.completions, done)
	}
}

// Advance moves the clock forward by d, firing due timers in order.
func (l *FakeLoop) Advance(d time.Duration) {
	target := l.now.Add(d)
	for {
		l.runPosted()
		next := l.nextDue(target)
		if next == nil {
			break
		}
		l.now = next.due
		next.fired = true
		next.fn()
	}
	l.now = target
	l.runPosted()
}

// Flush delivers held completions and posted callbacks until none remain.
// Timers are not advanced.
func (l *FakeLoop) Flush() {
	for len(l.completions) > 0 || len(l.posted) > 0 {
		l.runPosted()
		if len(l.completions) > 0 {
			fn := l.completions[0]
			l.completions = l.completions[1:]
			fn()
		}
	}
}

// InFlight returns the number of held completions.
func (l *FakeLoop) InFlight() int {
	return len(l.completions)
}

// PendingTimers returns the number of armed, unstopped timers.
func (l *FakeLoop) PendingTimers() int {
	n := 0
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (l *FakeLoop) runPosted() {
	for len(l.posted) > 0 {
		fn := l.posted[0]
		l.posted = l.posted[1:]
		fn()
	}
}

// nextDue pops the earliest live timer due at or before target.
func (l *FakeLoop) nextDue(target time.Time) *fakeTimer {
	live := l.timers[:0]
	for _, t := range l.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	l.timers = live

	sort.SliceStable(l.timers, func(i, j int) bool {
		if l.timers[i].due.Equal(l.timers[j].due) {
			return l.timers[i].seq < l.timers[j].seq
		}
		return l.timers[i].due.Before(l.timers[j].due)
	})
	if len(l.timers) == 0 || l.timers[0].due.After(target) {
		return nil
	}
	t := l.timers[0]
	l.timers = l.timers[1:]
	return t
}
