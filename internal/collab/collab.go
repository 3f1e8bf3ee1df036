// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package collab

import (
	"context"
	"errors"

	"github.com/jeranaias/livechat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrChatNotFound is returned for an unknown chat id.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyMessage is returned when sending blank text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("collaborator closed")
)

// =============================================================================
// CONTRACT
// =============================================================================

// Collaborator is the chat service the transcript controller talks to.
// Every blocking call resolves or fails; none hangs past ctx.
type Collaborator interface {
	// LoadMessages fetches the next older page. The collaborator keeps the
	// cursor, so repeated calls walk back through history.
	LoadMessages(ctx context.Context, chatID model.ID) (model.Page, error)

	// HasMoreMessages reports whether older history remains for chatID.
	HasMoreMessages(chatID model.ID) bool

	// SendTypingIndicator is best-effort.
	SendTypingIndicator(ctx context.Context, chatID model.ID, isTyping bool) error

	// SendTextMessage posts text and returns the server copy.
	SendTextMessage(ctx context.Context, chatID model.ID, text string, replyTo model.ID) (model.Message, error)

	// UploadFile posts an attachment and returns the server copy.
	UploadFile(ctx context.Context, chatID model.ID, file model.File, kind model.Kind, replyTo model.ID) (model.Message, error)

	// MarkAllMessagesAsRead records the local user as reader of every
	// message in chatID.
	MarkAllMessagesAsRead(ctx context.Context, chatID model.ID) error
}

// Directory lists chats.
type Directory interface {
	Chats(ctx context.Context) ([]model.Chat, error)
	Chat(ctx context.Context, chatID model.ID) (model.Chat, error)
}

// =============================================================================
// PUSH EVENTS
// =============================================================================

// Event is pushed by the service: a new message, a typing change or a read
// receipt from another member.
type Event struct {
	Message *model.Message
	Typing  *model.TypingEvent
	Read    *ReadEvent
}

// ReadEvent reports that UserID has read everything in ChatID.
type ReadEvent struct {
	ChatID model.ID
	UserID model.ID
}

// Publisher delivers push events. Handlers run on the publisher's goroutine;
// hop onto the event loop before touching controller state.
type Publisher interface {
	Subscribe(fn func(Event)) (unsubscribe func())
}
