// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chats and messages in SQLite.
//
// Message ids are the integer row ids, so they grow with insertion order and
// double as the pagination key. History is read backwards in pages addressed
// by opaque cursors.
//
// # Key Types
//
//   - Store: chats, members, messages, attachments and read receipts
//   - Cursor: decoded page position (base64 JSON on the wire)
//   - SeedOptions: demo history for `livechat seed`
//
// # Usage
//
//	store, err := storage.Open(path)
//	page, err := store.Page(ctx, chatID, "", 30)
//	older, err := store.Page(ctx, chatID, page.Cursor, 30)
//
// # Storage Location
//
// The database lives at ~/.livechat/livechat.db unless configured otherwise.
package storage
