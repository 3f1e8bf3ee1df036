// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// timestampLayouts are tried in order when decoding a string timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Timestamp is a message creation time. Decoding never fails on bad input:
// an unparseable value leaves Time zero and keeps the original text in Raw so
// the transcript can report it as a data-quality issue.
type Timestamp struct {
	time.Time
	Raw string
}

// At wraps a time value.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Valid reports whether the timestamp holds a usable time.
func (t Timestamp) Valid() bool {
	return !t.Time.IsZero()
}

// ParseTimestamp decodes text in any supported layout, or unix seconds /
// milliseconds given as digits.
func ParseTimestamp(s string) Timestamp {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: parsed}
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromUnix(n)
	}
	return Timestamp{Raw: s}
}

// fromUnix treats values past year 2286 in seconds as milliseconds.
func fromUnix(n int64) Timestamp {
	if n > 1e10 || n < -1e10 {
		return Timestamp{Time: time.UnixMilli(n)}
	}
	return Timestamp{Time: time.Unix(n, 0)}
}

// MarshalJSON writes RFC 3339, or the raw text when the value never parsed.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		if t.Raw == "" {
			return []byte("null"), nil
		}
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts strings, unix numbers and null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*t = Timestamp{Raw: string(data)}
			return nil
		}
		*t = ParseTimestamp(s)
		return nil
	}
	if n, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*t = fromUnix(n)
		return nil
	}
	*t = Timestamp{Raw: string(data)}
	return nil
}
