// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// =============================================================================
// CURSORS
// =============================================================================

const (
	// DefaultPageSize is the number of messages per page when none is given.
	DefaultPageSize = 30

	// MaxPageSize caps a single page.
	MaxPageSize = 500
)

// Cursor is the decoded position of a history walk. Pages move backwards in
// time, so the cursor names the oldest message already returned.
type Cursor struct {
	ChatID   string `json:"chat_id"`
	BeforeID int64  `json:"before_id"`
}

// EncodeCursor returns the opaque base64 form of c.
func EncodeCursor(c Cursor) string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeCursor parses an opaque cursor. The empty cursor is the zero Cursor,
// meaning "start from the newest message".
func DecodeCursor(cursor string) (Cursor, error) {
	var c Cursor
	if cursor == "" {
		return c, nil
	}
	data, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return c, fmt.Errorf("%w: decode base64: %v", ErrInvalidCursor, err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("%w: decode cursor JSON: %v", ErrInvalidCursor, err)
	}
	if c.BeforeID <= 0 {
		return c, fmt.Errorf("%w: before_id %d", ErrInvalidCursor, c.BeforeID)
	}
	return c, nil
}

// clampLimit applies the default and maximum page sizes.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	return min(limit, MaxPageSize)
}
