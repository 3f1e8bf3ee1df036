// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/livechat-tui/internal/model"
)

func ids(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID.String()
	}
	return out
}

func TestStore_AppendAndPrependDeduplicate(t *testing.T) {
	s := NewStore("me")

	s.Append("c1", history("c1", 5, 3)...)
	s.Append("c1", history("c1", 7, 2)...) // 7 is a duplicate
	s.Prepend("c1", history("c1", 2, 4))  // 5 is a duplicate

	assert.Equal(t, []string{"2", "3", "4", "5", "6", "7", "8"}, ids(s.Messages("c1")))

	// Mixed id encodings refer to the same message
	s.Append("c1", model.Message{ID: "8.0", ChatID: "c1", Content: "edited"})
	msgs := s.Messages("c1")
	assert.Len(t, msgs, 7)
	assert.Equal(t, "edited", msgs[6].Content)
}

func TestStore_MessagesIsACopy(t *testing.T) {
	s := NewStore("me")
	s.Append("c1", history("c1", 1, 2)...)

	msgs := s.Messages("c1")
	msgs[0].Content = "changed"

	assert.Equal(t, "hello", s.Messages("c1")[0].Content)
}

func TestStore_Reconcile(t *testing.T) {
	s := NewStore("me")
	s.Append("c1", history("c1", 1, 2)...)
	temp := model.Message{ID: model.NewTempID(), ChatID: "c1", SenderID: "me", Pending: true}
	s.Append("c1", temp)

	server := model.Message{ID: "99", ChatID: "c1", SenderID: "me"}
	require.True(t, s.Reconcile("c1", temp.ID, server))
	assert.Equal(t, []string{"1", "2", "99"}, ids(s.Messages("c1")))
	assert.False(t, s.Messages("c1")[2].Pending)

	assert.False(t, s.Reconcile("c1", temp.ID, server), "already reconciled")
}

func TestStore_ReconcileAfterPushDropsPlaceholder(t *testing.T) {
	s := NewStore("me")
	temp := model.Message{ID: model.NewTempID(), ChatID: "c1", SenderID: "me", Pending: true}
	s.Append("c1", temp)

	// Push delivered the server copy before the send call returned
	server := model.Message{ID: "99", ChatID: "c1", SenderID: "me"}
	s.Append("c1", server)
	require.True(t, s.Reconcile("c1", temp.ID, server))

	assert.Equal(t, []string{"99"}, ids(s.Messages("c1")))
}

func TestStore_UnreadAndMarkRead(t *testing.T) {
	s := NewStore("me")
	s.Append("c1", history("c1", 1, 3)...)
	s.Append("c1", model.Message{ID: "4", ChatID: "c1", SenderID: "me"})
	assert.Equal(t, 3, s.Unread("c1"), "own messages never count")

	s.MarkRead("c1")
	assert.Equal(t, 0, s.Unread("c1"))

	s.Append("c1", history("c1", 10, 2)...)
	assert.Equal(t, 2, s.Unread("c1"))
}

func TestStore_ApplyRead(t *testing.T) {
	s := NewStore("me")
	s.Append("c1", model.Message{ID: "1", ChatID: "c1", SenderID: "me"})

	s.ApplyRead("c1", "alice")

	assert.True(t, s.Messages("c1")[0].IsReadBy("alice"))
}

func TestStore_ChatsOrderedByActivity(t *testing.T) {
	s := NewStore("me")
	s.PutChat(model.Chat{ID: "old", LastActivity: epoch.Add(-time.Hour)})
	s.PutChat(model.Chat{ID: "new", LastActivity: epoch})
	s.PutChat(model.Chat{ID: "bumped", LastActivity: epoch.Add(-2 * time.Hour)})
	s.Append("bumped", model.Message{ID: "1", ChatID: "bumped", SenderID: "alice", CreatedAt: model.At(epoch.Add(time.Minute))})
	s.Append("ghost", model.Message{ID: "1", ChatID: "ghost"}) // no metadata, not listed

	var order []string
	for _, sum := range s.Chats() {
		order = append(order, sum.Chat.ID.String())
	}
	assert.Equal(t, []string{"bumped", "new", "old"}, order)
	assert.Equal(t, 1, s.Chats()[0].Unread)
}

func TestStore_PeersTypingExpire(t *testing.T) {
	s := NewStore("me")

	s.SetPeerTyping(model.TypingEvent{ChatID: "c1", UserID: "bob", IsTyping: true}, epoch.Add(5*time.Second))
	s.SetPeerTyping(model.TypingEvent{ChatID: "c1", UserID: "alice", IsTyping: true}, epoch.Add(time.Second))
	s.SetPeerTyping(model.TypingEvent{ChatID: "c1", UserID: "me", IsTyping: true}, epoch.Add(time.Hour))

	assert.Equal(t, []model.ID{"alice", "bob"}, s.PeersTyping("c1", epoch))
	assert.Equal(t, []model.ID{"bob"}, s.PeersTyping("c1", epoch.Add(2*time.Second)))

	s.SetPeerTyping(model.TypingEvent{ChatID: "c1", UserID: "bob", IsTyping: false}, time.Time{})
	assert.Empty(t, s.PeersTyping("c1", epoch))
}

func TestStore_SubscribeAndLifecycle(t *testing.T) {
	s := NewStore("me")
	var changes []Change
	unsubscribe := s.Subscribe(func(_ model.ID, c Change) { changes = append(changes, c) })

	s.Open("c1")
	assert.True(t, s.IsOpen("c1"))
	s.Append("c1", history("c1", 1, 1)...)
	s.MarkRead("c1")
	s.Close("c1")
	assert.False(t, s.IsOpen("c1"))
	assert.Len(t, s.Messages("c1"), 1, "messages stay cached after close")

	unsubscribe()
	s.Append("c1", history("c1", 2, 1)...)

	assert.Equal(t, []Change{ChangeMessages, ChangeRead}, changes)
}
