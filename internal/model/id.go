// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// tempPrefix marks ids minted locally for optimistic placeholders.
const tempPrefix = "tmp-"

// =============================================================================
// ID TYPE
// =============================================================================

// ID identifies a message, chat or user. The zero value means "no id".
type ID string

// IDFromInt returns the ID for a numeric server id.
func IDFromInt(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// NewTempID mints an id for an optimistic placeholder.
func NewTempID() ID {
	return ID(tempPrefix + uuid.NewString())
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// IsTemp reports whether the id was minted locally by NewTempID.
func (id ID) IsTemp() bool {
	return strings.HasPrefix(string(id), tempPrefix)
}

// String returns the raw id text.
func (id ID) String() string {
	return string(id)
}

// Key returns the normalized form used for map lookups and comparisons.
// Integral numbers collapse to their canonical decimal form, so "5", " 5",
// "5.0" and the JSON number 5 all share the key "5".
func (id ID) Key() string {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return ""
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

// Equal compares two ids after normalization.
func (id ID) Equal(other ID) bool {
	return id.Key() == other.Key()
}

// MarshalJSON encodes the id as a JSON string.
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}
