// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// CHANNEL LOOP
// =============================================================================

// ChanLoop is a Loop backed by a goroutine draining a queue. It serves
// clients that have no UI framework loop of their own (the line-mode REPL).
type ChanLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewChanLoop creates a stopped loop. Call Run to start it.
func NewChanLoop() *ChanLoop {
	return &ChanLoop{wake: make(chan struct{}, 1), done: make(chan struct{})}
}

// Run executes queued callbacks until ctx is done. It blocks.
func (l *ChanLoop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.queue = nil
			l.mu.Unlock()
			close(l.done)
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			fn()
		}
	}
}

// Wait blocks until every goroutine started by Go has returned.
func (l *ChanLoop) Wait() {
	l.wg.Wait()
}

// Now returns the wall clock.
func (l *ChanLoop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on the loop after d.
func (l *ChanLoop) AfterFunc(d time.Duration, fn func()) Handle {
	return afterFunc(d, l.Post, fn)
}

// Post queues fn. Posts after the loop stopped are dropped.
func (l *ChanLoop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, fn)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Sync runs fn on the loop and waits for it to finish. It returns false if
// the loop stopped before fn ran.
func (l *ChanLoop) Sync(fn func()) bool {
	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
		return true
	case <-l.done:
		return false
	}
}

// Go runs work in a goroutine and posts done back to the loop.
func (l *ChanLoop) Go(work func(), done func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		work()
		if done != nil {
			l.Post(done)
		}
	}()
}
