// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"strings"

	"github.com/jeranaias/livechat-tui/internal/util"
)

// =============================================================================
// MESSAGE KIND
// =============================================================================

// Kind classifies the payload of a message.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindFile    Kind = "file"
	KindSticker Kind = "sticker"
	KindVoice   Kind = "voice"
	KindSystem  Kind = "system"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsAttachment reports whether the kind carries an uploaded file.
func (k Kind) IsAttachment() bool {
	switch k {
	case KindImage, KindFile, KindSticker, KindVoice:
		return true
	default:
		return false
	}
}

// ParseKind returns the kind named by s, defaulting to KindFile for unknown
// attachment names.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindImage, KindFile, KindSticker, KindVoice, KindSystem:
		return k
	default:
		return KindFile
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Attachment describes an uploaded file referenced by a message.
type Attachment struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type,omitempty"`
	Size     int64  `json:"size"`
}

// Message represents a single message in a chat. Messages are treated as
// immutable values; the only local replacement is an optimistic placeholder
// being reconciled with its server-issued copy.
type Message struct {
	// Identity
	ID        ID        `json:"id"`
	ChatID    ID        `json:"chat_id"`
	SenderID  ID        `json:"sender_id"`
	CreatedAt Timestamp `json:"created_at"`

	// DateKey, when set by the server, overrides the calendar date derived
	// from CreatedAt for separator placement (format 2006-01-02).
	DateKey string `json:"date_key,omitempty"`

	// Content
	Kind       Kind        `json:"kind"`
	Content    string      `json:"content"`
	Attachment *Attachment `json:"attachment,omitempty"`
	ReplyToID  ID          `json:"reply_to_id,omitempty"`

	// Delivery
	ReadBy        []ID `json:"read_by,omitempty"`
	FromModerator bool `json:"from_moderator,omitempty"`

	// Optimistic send state (not persisted)
	Pending bool `json:"-"`
	Failed  bool `json:"-"`
}

// IsReadBy reports whether user has read the message.
func (m Message) IsReadBy(user ID) bool {
	for _, id := range m.ReadBy {
		if id.Equal(user) {
			return true
		}
	}
	return false
}

// WithReader returns a copy of the message with user added to ReadBy.
func (m Message) WithReader(user ID) Message {
	if m.IsReadBy(user) {
		return m
	}
	readers := make([]ID, 0, len(m.ReadBy)+1)
	readers = append(readers, m.ReadBy...)
	m.ReadBy = append(readers, user)
	return m
}

// HasReply reports whether the message replies to another one.
func (m Message) HasReply() bool {
	return !m.ReplyToID.IsZero()
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := m.Content
	if content == "" && m.Attachment != nil {
		content = "[" + string(m.Kind) + "] " + m.Attachment.Name
	}
	content = strings.Join(strings.Fields(content), " ")
	return util.TruncateRunes(content, maxLen)
}
