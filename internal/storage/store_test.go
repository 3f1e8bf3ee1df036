// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/livechat-tui/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var base = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	s.Now = func() time.Time { return base }
	t.Cleanup(func() { s.Close() })
	return s
}

func putGroup(t *testing.T, s *Store) model.Chat {
	t.Helper()
	chat := model.Chat{
		ID:      "g1",
		Title:   "Group",
		IsGroup: true,
		Members: []model.Member{
			{UserID: "me", Name: "Me"},
			{UserID: "alice", Name: "Alice", Role: model.RoleModerator},
		},
	}
	require.NoError(t, s.PutChat(context.Background(), chat))
	return chat
}

func addText(t *testing.T, s *Store, chatID, sender model.ID, text string, at time.Time) model.Message {
	t.Helper()
	msg, err := s.AddMessage(context.Background(), model.Message{
		ChatID: chatID, SenderID: sender, Content: text, CreatedAt: model.At(at),
	}, nil)
	require.NoError(t, err)
	return msg
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestStore_PutChatRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	putGroup(t, s)

	chat, err := s.Chat(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Group", chat.Title)
	assert.True(t, chat.IsGroup)
	require.Len(t, chat.Members, 2)
	assert.Equal(t, model.RoleMember, chat.Members[0].Role, "empty role defaults to member")
	assert.True(t, chat.IsModerator("alice"))
	require.NotNil(t, chat.ModeratorMessages)
	assert.Equal(t, 0, *chat.ModeratorMessages)

	// Replacing keeps a single member list.
	chat.Members = chat.Members[:1]
	require.NoError(t, s.PutChat(ctx, chat))
	chat, err = s.Chat(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, chat.Members, 1)
}

func TestStore_ChatNotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.Chat(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.AddMessage(context.Background(), model.Message{ChatID: "nope", Content: "x"}, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ChatsOrderedByActivity(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.PutChat(ctx, model.Chat{ID: "a"}))
	require.NoError(t, s.PutChat(ctx, model.Chat{ID: "b"}))
	addText(t, s, "a", "x", "old", base.Add(-time.Hour))
	addText(t, s, "b", "x", "new", base)

	chats, err := s.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, model.ID("b"), chats[0].ID)
	assert.Equal(t, base.UnixMilli(), chats[0].LastActivity.UnixMilli())
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestStore_AddMessageAssignsIncreasingIDs(t *testing.T) {
	s := openTest(t)
	putGroup(t, s)

	first := addText(t, s, "g1", "me", "one", base)
	second := addText(t, s, "g1", "alice", "two", base)

	a, _ := idInt(first.ID)
	b, _ := idInt(second.ID)
	assert.Greater(t, b, a)

	// Missing creation time is stamped from Now.
	msg, err := s.AddMessage(context.Background(), model.Message{ChatID: "g1", SenderID: "me", Content: "x"}, nil)
	require.NoError(t, err)
	assert.True(t, msg.CreatedAt.Equal(base))
	assert.Equal(t, model.KindText, msg.Kind)
}

func TestStore_MessageRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	putGroup(t, s)

	parent := addText(t, s, "g1", "alice", "parent", base)
	stored, err := s.AddMessage(ctx, model.Message{
		ChatID:        "g1",
		SenderID:      "alice",
		CreatedAt:     model.At(base),
		DateKey:       "2024-03-01",
		Kind:          model.KindImage,
		ReplyToID:     parent.ID,
		FromModerator: true,
		Attachment:    &model.Attachment{Name: "cat.png", MIMEType: "image/png"},
	}, []byte("png!"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.Attachment.Size, "size falls back to data length")

	got, err := s.Message(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got.DateKey)
	assert.Equal(t, model.KindImage, got.Kind)
	assert.True(t, got.ReplyToID.Equal(parent.ID))
	assert.True(t, got.FromModerator)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "cat.png", got.Attachment.Name)

	data, err := s.AttachmentData(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png!"), data)

	_, err = s.AttachmentData(ctx, parent.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	chat, err := s.Chat(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, *chat.ModeratorMessages)

	_, err = s.Message(ctx, "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// PAGINATION TESTS
// =============================================================================

func TestStore_PageWalksBackwards(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	putGroup(t, s)
	var ids []model.ID
	for i := 0; i < 7; i++ {
		ids = append(ids, addText(t, s, "g1", "alice", "m", base.Add(time.Duration(i)*time.Minute)).ID)
	}

	page, err := s.Page(ctx, "g1", "", 3)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 3)
	assert.Equal(t, ids[4], page.Messages[0].ID, "oldest first")
	assert.Equal(t, ids[6], page.Messages[2].ID)
	assert.NotEmpty(t, page.Cursor)

	page, err = s.Page(ctx, "g1", page.Cursor, 3)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[1], page.Messages[0].ID)

	page, err = s.Page(ctx, "g1", page.Cursor, 3)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.Cursor)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, ids[0], page.Messages[0].ID)
}

func TestStore_PageExactMultipleHasNoMore(t *testing.T) {
	s := openTest(t)
	putGroup(t, s)
	for i := 0; i < 3; i++ {
		addText(t, s, "g1", "alice", "m", base)
	}
	page, err := s.Page(context.Background(), "g1", "", 3)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 3)
	assert.False(t, page.HasMore)
}

func TestStore_PageRejectsBadCursor(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	putGroup(t, s)

	_, err := s.Page(ctx, "g1", "%%%", 3)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	other := EncodeCursor(Cursor{ChatID: "other", BeforeID: 5})
	_, err = s.Page(ctx, "g1", other, 3)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestCursor_RoundTripAndValidation(t *testing.T) {
	c := Cursor{ChatID: "g1", BeforeID: 42}
	got, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	assert.Equal(t, c, got)

	zero, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, zero)

	_, err = DecodeCursor(EncodeCursor(Cursor{ChatID: "g1"}))
	assert.ErrorIs(t, err, ErrInvalidCursor)

	assert.Equal(t, DefaultPageSize, clampLimit(0))
	assert.Equal(t, MaxPageSize, clampLimit(MaxPageSize*2))
}

// =============================================================================
// READ RECEIPT TESTS
// =============================================================================

func TestStore_MarkRead(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	putGroup(t, s)
	mine := addText(t, s, "g1", "me", "mine", base)
	theirs := addText(t, s, "g1", "alice", "theirs", base)

	n, err := s.MarkRead(ctx, "g1", "me")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "own messages are not receipted")

	n, err = s.MarkRead(ctx, "g1", "me")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "idempotent")

	_, err = s.MarkRead(ctx, "g1", "alice")
	require.NoError(t, err)

	got, err := s.Message(ctx, theirs.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReadBy("me"))

	got, err = s.Message(ctx, mine.ID)
	require.NoError(t, err)
	assert.True(t, got.IsReadBy("alice"))
	assert.False(t, got.IsReadBy("me"))
}

// =============================================================================
// SEED / PERSISTENCE TESTS
// =============================================================================

func TestSeed_WritesDemoChatsOnce(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	res, err := Seed(ctx, s, SeedOptions{UserID: "me", Days: 2, PerDay: 4})
	require.NoError(t, err)
	assert.Len(t, res.Chats, 3)
	assert.Equal(t, 3*2*4, res.Messages)

	chat, err := s.Chat(ctx, "team")
	require.NoError(t, err)
	assert.True(t, chat.IsGroup)
	vault, err := s.Chat(ctx, "vault")
	require.NoError(t, err)
	assert.True(t, vault.Encrypted)

	again, err := Seed(ctx, s, SeedOptions{UserID: "me"})
	require.NoError(t, err)
	assert.Empty(t, again.Chats)
	assert.Len(t, again.Skipped, 3)

	_, err = Seed(ctx, s, SeedOptions{})
	assert.Error(t, err)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutChat(context.Background(), model.Chat{ID: "a"}))
	addText(t, s, "a", "x", "hello", base)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	n, err := s.MessageCount(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
