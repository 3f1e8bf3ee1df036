// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package schedule

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// BUBBLE TEA LOOP
// =============================================================================

// RunMsg carries a loop callback into a Bubble Tea program. The program's
// Update must call Run when it receives one.
type RunMsg struct {
	fn func()
}

// Run executes the callback.
func (m RunMsg) Run() {
	if m.fn != nil {
		m.fn()
	}
}

// TeaLoop is a Loop whose thread is the Bubble Tea Update loop.
//
// Posted callbacks are forwarded to the program in order by a single pump
// goroutine, so Post never blocks (Program.Send blocks until Update reads the
// message, and Post is often called from inside Update). Callbacks posted
// before Attach are held until a program is attached.
type TeaLoop struct {
	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	closed bool
}

// NewTeaLoop creates a loop that is not yet attached to a program.
func NewTeaLoop() *TeaLoop {
	return &TeaLoop{wake: make(chan struct{}, 1)}
}

// Attach binds the loop to a running program and starts forwarding.
func (l *TeaLoop) Attach(p *tea.Program) {
	l.AttachFunc(p.Send)
}

// AttachFunc binds the loop to an arbitrary message sink.
func (l *TeaLoop) AttachFunc(send func(tea.Msg)) {
	go l.pump(send)
}

// Close stops forwarding. Callbacks still queued are dropped.
func (l *TeaLoop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		l.queue = nil
		close(l.wake)
	}
}

func (l *TeaLoop) pump(send func(tea.Msg)) {
	for range l.wake {
		for {
			l.mu.Lock()
			if l.closed || len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			send(RunMsg{fn: fn})
		}
	}
}

// Now returns the wall clock.
func (l *TeaLoop) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn on the Update loop after d.
func (l *TeaLoop) AfterFunc(d time.Duration, fn func()) Handle {
	return afterFunc(d, l.Post, fn)
}

// Post queues fn as a RunMsg.
func (l *TeaLoop) Post(fn func()) {
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

// Go runs work in a goroutine and posts done back to the loop.
func (l *TeaLoop) Go(work func(), done func()) {
	go func() {
		work()
		if done != nil {
			l.Post(done)
		}
	}()
}
