// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/model"
)

// =============================================================================
// NODES
// =============================================================================

// NodeKind distinguishes separators from messages.
type NodeKind int

const (
	NodeSeparator NodeKind = iota
	NodeMessage
)

// String returns the kind name.
func (k NodeKind) String() string {
	if k == NodeSeparator {
		return "separator"
	}
	return "message"
}

// Node is one entry of the render sequence.
type Node struct {
	Kind NodeKind

	// Separator fields
	Label  string
	DayKey string

	// Message fields
	Message      model.Message
	ShowAvatar   bool
	ReplyPreview *model.Message

	// ReplyMissing is set when the message replies to an id that is not in
	// the loaded list (for example, an older page that was never fetched).
	ReplyMissing bool
}

// Key returns a stable identity for the node, suitable for render diffing.
func (n Node) Key() string {
	if n.Kind == NodeSeparator {
		return "sep:" + n.DayKey
	}
	return "msg:" + n.Message.ID.Key()
}

// =============================================================================
// GROUPING
// =============================================================================

// Options parameterize Group.
type Options struct {
	// CurrentUserID is the local user; their messages always show an avatar.
	CurrentUserID model.ID

	// IsGroup enables avatar collapsing for consecutive messages of one sender.
	IsGroup bool

	// Encrypted marks an end-to-end encrypted chat. It does not change the
	// grouping but is part of the memoization key.
	Encrypted bool

	// Now decides which day is "Today". Zero means time.Now().
	Now time.Time

	// Location is the zone calendar days are computed in. Nil means time.Local.
	Location *time.Location

	// Labeler renders separator labels. Nil means English.
	Labeler *Labeler

	// Logger receives data-quality warnings. Nil disables them.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Labeler == nil {
		o.Labeler = NewLabeler("en")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Group builds the render sequence for msgs, which must be ordered by
// non-decreasing creation time. It walks the list once; the result has
// len(msgs) message nodes plus one separator per date boundary. Group is pure:
// the same input always yields the same output.
func Group(msgs []model.Message, opts Options) []Node {
	opts = opts.withDefaults()
	today := DayOf(opts.Now, opts.Location)

	byID := make(map[string]int, len(msgs))
	for i, m := range msgs {
		if key := m.ID.Key(); key != "" {
			if _, seen := byID[key]; !seen {
				byID[key] = i
			}
		}
	}

	nodes := make([]Node, 0, len(msgs)+8)
	prevKey := ""
	for i, msg := range msgs {
		if key, label, ok := dayOf(msg, today, opts); ok {
			if key != prevKey {
				nodes = append(nodes, Node{Kind: NodeSeparator, Label: label, DayKey: key})
				prevKey = key
			}
		} else {
			opts.Logger.Warn("transcript_bad_timestamp",
				zap.String("chat_id", msg.ChatID.String()),
				zap.String("message_id", msg.ID.String()),
				zap.String("raw", msg.CreatedAt.Raw))
		}

		node := Node{
			Kind:       NodeMessage,
			Message:    msg,
			ShowAvatar: showAvatar(msgs, i, opts),
		}
		if msg.HasReply() {
			if j, ok := byID[msg.ReplyToID.Key()]; ok {
				target := msgs[j]
				node.ReplyPreview = &target
			} else {
				node.ReplyMissing = true
			}
		}
		nodes = append(nodes, node)
	}
	return nodes
}

// dayOf returns the boundary key and label of msg. An explicit DateKey takes
// precedence over CreatedAt. ok is false when neither yields a date.
func dayOf(msg model.Message, today Day, opts Options) (key, label string, ok bool) {
	if msg.DateKey != "" {
		if day, parsed := ParseDay(msg.DateKey); parsed {
			return day.Key(), opts.Labeler.Label(day, today), true
		}
		// Opaque server key: boundaries still work, the key doubles as label
		return msg.DateKey, msg.DateKey, true
	}
	if !msg.CreatedAt.Valid() {
		return "", "", false
	}
	day := DayOf(msg.CreatedAt.Time, opts.Location)
	return day.Key(), opts.Labeler.Label(day, today), true
}

// showAvatar hides the avatar of a peer's message in a group chat when the
// next message comes from the same sender, so only the last of a run shows.
func showAvatar(msgs []model.Message, i int, opts Options) bool {
	if !opts.IsGroup {
		return true
	}
	msg := msgs[i]
	if msg.SenderID.Equal(opts.CurrentUserID) {
		return true
	}
	if i+1 >= len(msgs) {
		return true
	}
	return !msgs[i+1].SenderID.Equal(msg.SenderID)
}

// CountSeparators returns the number of separator nodes.
func CountSeparators(nodes []Node) int {
	n := 0
	for _, node := range nodes {
		if node.Kind == NodeSeparator {
			n++
		}
	}
	return n
}
