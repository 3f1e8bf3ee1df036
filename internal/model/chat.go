// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// MEMBER
// =============================================================================

// Role is a member's standing within a chat.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// CanModerate reports whether the role posts moderator messages.
func (r Role) CanModerate() bool {
	return r == RoleModerator || r == RoleAdmin
}

// Member is a participant of a chat.
type Member struct {
	UserID ID     `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role,omitempty"`
}

// DisplayName returns the member name, falling back to the user id.
func (m Member) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.UserID.String()
}

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat holds chat metadata. It is owned by the collaborator; the transcript
// controller only reads it.
type Chat struct {
	ID        ID       `json:"id"`
	Title     string   `json:"title"`
	IsGroup   bool     `json:"is_group"`
	Encrypted bool     `json:"encrypted,omitempty"`
	Members   []Member `json:"members"`

	// ModeratorMessages is the server-side count of moderator messages.
	// Nil means the server did not supply the aggregate.
	ModeratorMessages *int `json:"moderator_messages,omitempty"`

	LastActivity time.Time `json:"last_activity"`
}

// Member looks up a participant by user id.
func (c Chat) Member(user ID) (Member, bool) {
	for _, m := range c.Members {
		if m.UserID.Equal(user) {
			return m, true
		}
	}
	return Member{}, false
}

// SenderName returns the display name for a sender of this chat.
func (c Chat) SenderName(user ID) string {
	if m, ok := c.Member(user); ok {
		return m.DisplayName()
	}
	return user.String()
}

// IsModerator reports whether user moderates the chat.
func (c Chat) IsModerator(user ID) bool {
	m, ok := c.Member(user)
	return ok && m.Role.CanModerate()
}

// Others returns the members other than user.
func (c Chat) Others(user ID) []Member {
	others := make([]Member, 0, len(c.Members))
	for _, m := range c.Members {
		if !m.UserID.Equal(user) {
			others = append(others, m)
		}
	}
	return others
}

// =============================================================================
// PAGE / FILE / TYPING
// =============================================================================

// Page is one batch of older history, oldest first.
type Page struct {
	ChatID   ID        `json:"chat_id"`
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
	Cursor   string    `json:"next_cursor,omitempty"`
}

// File is an attachment selected for upload.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// TypingEvent is a peer's typing announcement pushed by the collaborator.
type TypingEvent struct {
	ChatID   ID
	UserID   ID
	IsTyping bool
	At       time.Time
}
