// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typing announces the local user's typing state to the collaborator.
//
// The start signal is throttled: it goes out on the first keystroke of a burst
// and again only once RefreshInterval has passed since the last announcement.
// The end signal is debounced: it goes out EndDelay after the latest
// keystroke, or immediately on an explicit Stop.
package typing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/schedule"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// RefreshInterval is the minimum gap between two typing_start signals.
	RefreshInterval = 4000 * time.Millisecond

	// EndDelay is the silence after which typing_end is sent.
	EndDelay = 5000 * time.Millisecond
)

// State is the heartbeat state.
type State int

const (
	Idle State = iota
	Typing
)

// String returns the state name.
func (s State) String() string {
	if s == Typing {
		return "typing"
	}
	return "idle"
}

// =============================================================================
// HEARTBEAT
// =============================================================================

// Sender delivers typing indicators. It is best-effort; errors are logged at
// debug level and otherwise ignored.
type Sender interface {
	SendTypingIndicator(ctx context.Context, chatID model.ID, isTyping bool) error
}

// Options configure a Heartbeat. Zero values take the defaults.
type Options struct {
	RefreshInterval time.Duration
	EndDelay        time.Duration

	// OnEmit runs on the loop for every signal sent.
	OnEmit func(chatID model.ID, isTyping bool)

	Logger *zap.Logger
}

// Heartbeat is the typing state machine for the active chat. The end timer
// and the last announcement time are scoped to one chat; SetChat resets
// both.
//
// Not safe for concurrent use; call it from the loop only.
type Heartbeat struct {
	loop   schedule.Loop
	sender Sender
	opts   Options
	logger *zap.Logger

	chat          model.ID
	state         State
	lastAnnounced time.Time
	end           *schedule.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an idle heartbeat with no active chat.
func New(loop schedule.Loop, sender Sender, opts Options) *Heartbeat {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = RefreshInterval
	}
	if opts.EndDelay <= 0 {
		opts.EndDelay = EndDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Heartbeat{
		loop:   loop,
		sender: sender,
		opts:   opts,
		logger: opts.Logger,
		end:    schedule.NewDebouncer(loop, opts.EndDelay),
		ctx:    ctx,
		cancel: cancel,
	}
}

// State returns the current state.
func (h *Heartbeat) State() State {
	return h.state
}

// Chat returns the chat signals are sent for.
func (h *Heartbeat) Chat() model.ID {
	return h.chat
}

// SetChat switches to chatID. A pending end timer is cancelled without
// sending typing_end; call Stop first to announce it.
func (h *Heartbeat) SetChat(chatID model.ID) {
	h.Cancel()
	h.chat = chatID
}

// Keystroke reports the composer content after a key press. Non-empty text
// starts or continues typing; empty text counts as clearing the input.
func (h *Heartbeat) Keystroke(text string) {
	if h.chat.IsZero() {
		return
	}
	if text == "" {
		h.Stop()
		return
	}

	now := h.loop.Now()
	if h.lastAnnounced.IsZero() || now.Sub(h.lastAnnounced) > h.opts.RefreshInterval {
		h.emit(h.chat, true)
		h.lastAnnounced = now
	}
	h.state = Typing

	chat := h.chat
	h.end.Trigger(func() {
		if !chat.Equal(h.chat) || h.state != Typing {
			return
		}
		h.emit(chat, false)
		h.reset()
	})
}

// Stop ends typing now: a message was sent or the input was cleared. It
// sends typing_end when typing and clears the end timer. In Idle it does
// nothing.
func (h *Heartbeat) Stop() {
	if h.state != Typing {
		return
	}
	h.end.Cancel()
	h.emit(h.chat, false)
	h.reset()
}

// Cancel drops the end timer and returns to Idle without sending anything.
func (h *Heartbeat) Cancel() {
	h.end.Cancel()
	h.reset()
}

// Close cancels the heartbeat for good. Signals still being delivered are
// abandoned.
func (h *Heartbeat) Close() {
	h.Cancel()
	h.chat = ""
	h.cancel()
}

func (h *Heartbeat) reset() {
	h.state = Idle
	h.lastAnnounced = time.Time{}
}

func (h *Heartbeat) emit(chatID model.ID, isTyping bool) {
	event := "typing_end"
	if isTyping {
		event = "typing_start"
	}
	h.logger.Debug(event, zap.String("chat_id", chatID.String()))
	if h.opts.OnEmit != nil {
		h.opts.OnEmit(chatID, isTyping)
	}

	ctx := h.ctx
	var err error
	h.loop.Go(func() {
		err = h.sender.SendTypingIndicator(ctx, chatID, isTyping)
	}, func() {
		if err != nil {
			h.logger.Debug("typing_failed",
				zap.String("chat_id", chatID.String()),
				zap.Bool("is_typing", isTyping),
				zap.Error(err))
		}
	})
}
