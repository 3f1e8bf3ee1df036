// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/transcript"
	"github.com/jeranaias/livechat-tui/internal/typing"
)

// =============================================================================
// RENDER STATE
// =============================================================================

// State is everything the view needs to draw the active chat. The view owns
// pixel layout; State only fixes node order and the flags behind the
// optional affordances.
type State struct {
	ChatID model.ID
	Chat   model.Chat
	Nodes  []transcript.Node

	// IsAtBottom drives the "scroll to bottom" affordance.
	IsAtBottom bool
	AutoScroll bool

	// HasMoreMessagesForChat and LoadingMessages drive the history spinner.
	HasMoreMessagesForChat bool
	LoadingMessages        bool

	// PageError is the last history load failure, cleared by the next attempt.
	PageError error

	HasModeratorMessages bool

	// NewBelow counts peer messages that arrived while scrolled up.
	NewBelow int

	// PeersTyping holds display names of members typing now.
	PeersTyping []string

	// ReplyTo is the message the composer replies to.
	ReplyTo *model.Message

	// Typing is the local user's heartbeat state.
	Typing typing.State
}

// Active reports whether a chat is open.
func (s State) Active() bool {
	return !s.ChatID.IsZero()
}

// MessageCount returns the number of message nodes.
func (s State) MessageCount() int {
	return len(s.Nodes) - transcript.CountSeparators(s.Nodes)
}

// Renderer commits a State to the screen. Render must update the scroll
// surface synchronously: the controller measures it right after.
type Renderer interface {
	Render(State)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(State)

// Render implements Renderer.
func (f RenderFunc) Render(s State) {
	f(s)
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies an asynchronous outcome.
type EventKind int

const (
	EventPageLoaded EventKind = iota
	EventPageFailed
	EventSent
	EventSendFailed
	EventUploadFailed
	EventReadReceipt
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventPageLoaded:
		return "page_loaded"
	case EventPageFailed:
		return "page_failed"
	case EventSent:
		return "sent"
	case EventSendFailed:
		return "send_failed"
	case EventUploadFailed:
		return "upload_failed"
	case EventReadReceipt:
		return "read_receipt"
	default:
		return "unknown"
	}
}

// Event reports an asynchronous outcome to the presentation layer. Failed
// sends carry the placeholder id; the caller decides to Retry or Discard.
type Event struct {
	Kind    EventKind
	ChatID  model.ID
	TempID  model.ID
	Message *model.Message
	Err     error
}
