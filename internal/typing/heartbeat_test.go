// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/schedule"
)

var epoch = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

type signal struct {
	chat   model.ID
	typing bool
	at     time.Duration
}

type recorder struct {
	loop    *schedule.FakeLoop
	signals []signal
	err     error
}

func (r *recorder) SendTypingIndicator(_ context.Context, chatID model.ID, isTyping bool) error {
	r.signals = append(r.signals, signal{chat: chatID, typing: isTyping, at: r.loop.Now().Sub(epoch)})
	return r.err
}

func (r *recorder) count(typing bool) int {
	n := 0
	for _, s := range r.signals {
		if s.typing == typing {
			n++
		}
	}
	return n
}

func newHeartbeat(t *testing.T) (*schedule.FakeLoop, *recorder, *Heartbeat) {
	t.Helper()
	loop := schedule.NewFakeLoop(epoch)
	rec := &recorder{loop: loop}
	h := New(loop, rec, Options{})
	h.SetChat("c1")
	return loop, rec, h
}

func TestHeartbeat_ThrottleStartDebounceEnd(t *testing.T) {
	loop, rec, h := newHeartbeat(t)

	for i := 0; i < 4; i++ {
		h.Keystroke("hello")
		if i < 3 {
			loop.Advance(time.Second)
		}
	}
	assert.Equal(t, Typing, h.State())

	loop.Advance(EndDelay - time.Millisecond)
	assert.Equal(t, 0, rec.count(false))

	loop.Advance(time.Millisecond)
	loop.Advance(time.Minute)

	assert.Equal(t, []signal{
		{chat: "c1", typing: true, at: 0},
		{chat: "c1", typing: false, at: 3*time.Second + EndDelay},
	}, rec.signals)
	assert.Equal(t, Idle, h.State())
}

func TestHeartbeat_RefreshesDuringLongBurst(t *testing.T) {
	loop, rec, h := newHeartbeat(t)

	// One keystroke every 1s for 10s
	for i := 0; i <= 10; i++ {
		h.Keystroke("x")
		loop.Advance(time.Second)
	}

	// t=0 and the first keystroke more than 4s later (t=5), then t=10
	assert.Equal(t, 3, rec.count(true))
	assert.Equal(t, 0, rec.count(false))
}

func TestHeartbeat_ExplicitStop(t *testing.T) {
	loop, rec, h := newHeartbeat(t)

	h.Keystroke("hi")
	loop.Advance(2 * time.Second)
	h.Stop()
	assert.Equal(t, 1, rec.count(false))
	assert.Equal(t, Idle, h.State())

	loop.Advance(time.Minute)
	assert.Equal(t, 1, rec.count(false), "no second typing_end from the cancelled timer")
	assert.Equal(t, 0, loop.PendingTimers())
}

func TestHeartbeat_StopWhenIdleIsSilent(t *testing.T) {
	_, rec, h := newHeartbeat(t)
	h.Stop()
	assert.Empty(t, rec.signals)
}

func TestHeartbeat_ClearedInputStops(t *testing.T) {
	_, rec, h := newHeartbeat(t)

	h.Keystroke("a")
	h.Keystroke("")

	assert.Equal(t, 1, rec.count(true))
	assert.Equal(t, 1, rec.count(false))
}

func TestHeartbeat_NewBurstAnnouncesAgain(t *testing.T) {
	loop, rec, h := newHeartbeat(t)

	h.Keystroke("a")
	loop.Advance(EndDelay)
	h.Keystroke("b")

	assert.Equal(t, 2, rec.count(true))
}

func TestHeartbeat_SwitchCancelsSilently(t *testing.T) {
	loop, rec, h := newHeartbeat(t)

	h.Keystroke("draft")
	h.SetChat("c2")
	loop.Advance(time.Minute)

	assert.Equal(t, []signal{{chat: "c1", typing: true}}, rec.signals)
	assert.Equal(t, Idle, h.State())

	// The new chat gets its own burst
	h.Keystroke("x")
	assert.Equal(t, model.ID("c2"), rec.signals[len(rec.signals)-1].chat)
}

func TestHeartbeat_FailuresAreIgnored(t *testing.T) {
	loop, rec, h := newHeartbeat(t)
	rec.err = errors.New("offline")

	h.Keystroke("a")
	loop.Flush()
	loop.Advance(EndDelay)
	loop.Flush()

	assert.Equal(t, 2, len(rec.signals))
	assert.Equal(t, Idle, h.State())
}

func TestHeartbeat_NoChatNoSignals(t *testing.T) {
	loop := schedule.NewFakeLoop(epoch)
	rec := &recorder{loop: loop}
	h := New(loop, rec, Options{})

	h.Keystroke("a")
	assert.Empty(t, rec.signals)

	h.SetChat("c1")
	h.Close()
	h.Keystroke("a")
	assert.Empty(t, rec.signals)
}
