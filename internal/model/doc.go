// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// This package defines the core domain types shared by the transcript
// controller, the collaborator implementations and the TUI.
//
// # Key Types
//
//   - Message: Single immutable chat message (text or attachment)
//   - ID: Identifier that tolerates numeric and string JSON encodings
//   - Timestamp: Lenient creation time that survives malformed input
//   - Chat: Chat metadata with members (direct or group)
//   - Page: One batch of older history returned by a collaborator
//
// # Identifiers
//
// Server-issued ids may arrive as JSON numbers while optimistic placeholders
// and some payloads carry them as strings. Always compare ids with Equal or
// via Key, never with ==:
//
//	if msg.ReplyToID.Equal(other.ID) {
//	    ...
//	}
package model
