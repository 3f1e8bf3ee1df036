// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sync"

	"github.com/jeranaias/livechat-tui/internal/model"
)

// =============================================================================
// MEMO CACHE
// =============================================================================

// Cache memoizes Group for one view. Re-rendering an unchanged transcript
// (scroll ticks, typing updates, resizes) returns the previous node slice
// instead of walking the list again.
//
// The key is a SHA-256 fingerprint of every message field that reaches the
// render sequence plus the options that change grouping, including the
// current calendar day so that "Today" rolls over at midnight.
//
// Thread-safety: All operations are protected by a mutex.
type Cache struct {
	mu     sync.Mutex
	key    string
	nodes  []Node
	hits   uint64
	misses uint64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Group returns Group(msgs, opts), reusing the previous result when the
// fingerprint is unchanged. The returned slice must not be modified.
func (c *Cache) Group(msgs []model.Message, opts Options) []Node {
	opts = opts.withDefaults()
	key := fingerprint(msgs, opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	if key == c.key && c.nodes != nil {
		c.hits++
		return c.nodes
	}
	c.misses++
	c.nodes = Group(msgs, opts)
	c.key = key
	return c.nodes
}

// Reset drops the memoized result. Counters are kept.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = ""
	c.nodes = nil
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func fingerprint(msgs []model.Message, opts Options) string {
	h := sha256.New()
	writeString(h, opts.CurrentUserID.Key())
	writeBool(h, opts.IsGroup)
	writeBool(h, opts.Encrypted)
	writeString(h, DayOf(opts.Now, opts.Location).Key())
	writeString(h, opts.Location.String())
	writeString(h, opts.Labeler.Tag().String())

	writeInt(h, int64(len(msgs)))
	for _, m := range msgs {
		writeString(h, m.ID.Key())
		writeString(h, m.ChatID.Key())
		writeString(h, m.SenderID.Key())
		writeString(h, m.CreatedAt.Raw)
		writeInt(h, m.CreatedAt.UnixNano())
		writeString(h, m.DateKey)
		writeString(h, string(m.Kind))
		writeString(h, m.Content)
		if m.Attachment != nil {
			writeString(h, m.Attachment.Name)
			writeString(h, m.Attachment.MIMEType)
			writeInt(h, m.Attachment.Size)
		} else {
			writeString(h, "")
		}
		writeString(h, m.ReplyToID.Key())
		writeInt(h, int64(len(m.ReadBy)))
		for _, r := range m.ReadBy {
			writeString(h, r.Key())
		}
		writeBool(h, m.FromModerator)
		writeBool(h, m.Pending)
		writeBool(h, m.Failed)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeString length-prefixes s so adjacent fields cannot run together.
func writeString(h hash.Hash, s string) {
	writeInt(h, int64(len(s)))
	h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	h.Write(buf[:])
}

func writeBool(h hash.Hash, b bool) {
	if b {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}
