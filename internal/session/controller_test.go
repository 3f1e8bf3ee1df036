// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/livechat-tui/internal/collab"
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/schedule"
	"github.com/jeranaias/livechat-tui/internal/scroll"
	"github.com/jeranaias/livechat-tui/internal/typing"
)

// =============================================================================
// FAKES
// =============================================================================

var epoch = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

const lineHeight = 20

type typingCall struct {
	chat   model.ID
	typing bool
}

type fakeService struct {
	loads    []model.ID
	pages    map[string][]model.Page
	loadErr  error
	hasMore  map[string]bool
	typing   []typingCall
	sends    []model.Message
	sendErr  error
	reads    []model.ID
	uploads  []model.File
	serverID int64
}

func newFakeService() *fakeService {
	return &fakeService{
		pages:    make(map[string][]model.Page),
		hasMore:  make(map[string]bool),
		serverID: 1000,
	}
}

func (f *fakeService) LoadMessages(_ context.Context, chatID model.ID) (model.Page, error) {
	f.loads = append(f.loads, chatID)
	if f.loadErr != nil {
		return model.Page{}, f.loadErr
	}
	queue := f.pages[chatID.Key()]
	if len(queue) == 0 {
		return model.Page{ChatID: chatID}, nil
	}
	page := queue[0]
	f.pages[chatID.Key()] = queue[1:]
	f.hasMore[chatID.Key()] = page.HasMore
	return page, nil
}

func (f *fakeService) HasMoreMessages(chatID model.ID) bool {
	return f.hasMore[chatID.Key()]
}

func (f *fakeService) SendTypingIndicator(_ context.Context, chatID model.ID, isTyping bool) error {
	f.typing = append(f.typing, typingCall{chat: chatID, typing: isTyping})
	return nil
}

func (f *fakeService) SendTextMessage(_ context.Context, chatID model.ID, text string, replyTo model.ID) (model.Message, error) {
	msg := model.Message{ChatID: chatID, SenderID: "me", Kind: model.KindText, Content: text, ReplyToID: replyTo,
		CreatedAt: model.At(epoch)}
	f.sends = append(f.sends, msg)
	if f.sendErr != nil {
		return model.Message{}, f.sendErr
	}
	f.serverID++
	msg.ID = model.IDFromInt(f.serverID)
	return msg, nil
}

func (f *fakeService) UploadFile(_ context.Context, chatID model.ID, file model.File, kind model.Kind, replyTo model.ID) (model.Message, error) {
	f.uploads = append(f.uploads, file)
	if f.sendErr != nil {
		return model.Message{}, f.sendErr
	}
	f.serverID++
	return model.Message{
		ID: model.IDFromInt(f.serverID), ChatID: chatID, SenderID: "me", Kind: kind, ReplyToID: replyTo,
		CreatedAt:  model.At(epoch),
		Attachment: &model.Attachment{Name: file.Name, Size: int64(len(file.Data))},
	}, nil
}

func (f *fakeService) MarkAllMessagesAsRead(_ context.Context, chatID model.ID) error {
	f.reads = append(f.reads, chatID)
	return nil
}

func (f *fakeService) typingCount(isTyping bool) int {
	n := 0
	for _, c := range f.typing {
		if c.typing == isTyping {
			n++
		}
	}
	return n
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	loop    *schedule.FakeLoop
	store   *Store
	svc     *fakeService
	surface *scroll.MemorySurface
	ctrl    *Controller
	events  []Event
	renders int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		loop:    schedule.NewFakeLoop(epoch),
		store:   NewStore("me"),
		svc:     newFakeService(),
		surface: scroll.NewMemorySurface(0, 400),
	}
	render := RenderFunc(func(s State) {
		h.renders++
		h.surface.Height = lineHeight * len(s.Nodes)
		h.surface.Top = min(h.surface.Top, h.surface.Metrics().MaxScrollTop())
	})
	h.ctrl = NewController(h.loop, h.store, h.svc, h.surface, render, Options{
		UserID:   "me",
		Location: time.UTC,
		OnEvent:  func(ev Event) { h.events = append(h.events, ev) },
	})
	t.Cleanup(h.ctrl.Shutdown)
	return h
}

func (h *harness) addChat(id model.ID, group bool, cached int) {
	h.store.PutChat(model.Chat{
		ID:      id,
		Title:   "chat " + id.String(),
		IsGroup: group,
		Members: []model.Member{
			{UserID: "me", Name: "Me"},
			{UserID: "alice", Name: "Alice"},
			{UserID: "bob", Name: "Bob", Role: model.RoleModerator},
		},
	})
	if cached > 0 {
		h.store.Append(id, history(id, 1, cached)...)
	}
}

func (h *harness) eventsOf(kind EventKind) []Event {
	var out []Event
	for _, ev := range h.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// history builds n messages from alice with ids from..from+n-1, one minute
// apart on the same morning.
func history(chatID model.ID, from, n int) []model.Message {
	out := make([]model.Message, n)
	base := time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC)
	for i := range out {
		id := from + i
		out[i] = model.Message{
			ID:        model.IDFromInt(int64(id)),
			ChatID:    chatID,
			SenderID:  "alice",
			CreatedAt: model.At(base.Add(time.Duration(id) * time.Minute)),
			Kind:      model.KindText,
			Content:   "hello",
		}
	}
	return out
}

func peerMessage(chatID model.ID, id int64) *model.Message {
	return &model.Message{
		ID:        model.IDFromInt(id),
		ChatID:    chatID,
		SenderID:  "alice",
		CreatedAt: model.At(epoch),
		Kind:      model.KindText,
		Content:   "ping",
	}
}

// =============================================================================
// INITIAL LOAD
// =============================================================================

func TestOpen_EmptyChatLoadsAfterDebounce(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 0)

	h.ctrl.Open("c1")
	h.loop.Advance(DefaultInitialLoadDelay - time.Millisecond)
	assert.Empty(t, h.svc.loads)

	h.loop.Advance(time.Millisecond)
	assert.Equal(t, []model.ID{"c1"}, h.svc.loads)
	assert.True(t, h.ctrl.State().LoadingMessages)

	h.loop.Flush()
	h.loop.Advance(time.Second)
	assert.Len(t, h.svc.loads, 1, "no group retry for a direct chat")
	assert.False(t, h.ctrl.State().LoadingMessages)
}

func TestOpen_GroupChatRetriesWhileEmpty(t *testing.T) {
	h := newHarness(t)
	h.addChat("g1", true, 0)

	h.ctrl.Open("g1")
	h.loop.Advance(DefaultInitialLoadDelay)
	require.Len(t, h.svc.loads, 1)

	// First page came back empty
	h.loop.Flush()
	h.loop.Advance(DefaultGroupRetryDelay - DefaultInitialLoadDelay)

	assert.Len(t, h.svc.loads, 2)
}

func TestOpen_GroupRetrySkippedOnceFilled(t *testing.T) {
	h := newHarness(t)
	h.addChat("g1", true, 0)
	h.svc.pages["g1"] = []model.Page{{ChatID: "g1", Messages: history("g1", 1, 5)}}

	h.ctrl.Open("g1")
	h.loop.Advance(DefaultInitialLoadDelay)
	h.loop.Flush()
	h.loop.Advance(time.Second)

	assert.Len(t, h.svc.loads, 1)
	assert.Equal(t, 5, h.ctrl.State().MessageCount())
}

func TestOpen_GroupRetryFiresWhileFirstLoadInFlight(t *testing.T) {
	h := newHarness(t)
	h.addChat("g1", true, 0)
	h.svc.pages["g1"] = []model.Page{
		{ChatID: "g1", Messages: history("g1", 1, 3)},
		{ChatID: "g1", Messages: history("g1", 1, 3)},
	}

	h.ctrl.Open("g1")
	h.loop.Advance(DefaultGroupRetryDelay + 10*time.Millisecond)
	require.Equal(t, []model.ID{"g1", "g1"}, h.svc.loads, "retry does not wait for the first request")
	assert.True(t, h.ctrl.State().LoadingMessages)

	h.loop.Flush()
	assert.False(t, h.ctrl.State().LoadingMessages)
	assert.Equal(t, 3, h.ctrl.State().MessageCount(), "overlapping pages are deduplicated")

	h.loop.Advance(time.Second)
	assert.Len(t, h.svc.loads, 2)
}

func TestOpen_RapidSwitchLoadsOnlyFinalChat(t *testing.T) {
	h := newHarness(t)
	h.addChat("a", false, 0)
	h.addChat("b", true, 0)
	h.addChat("c", false, 0)

	h.ctrl.Open("a")
	h.loop.Advance(20 * time.Millisecond)
	h.ctrl.Open("b")
	h.loop.Advance(20 * time.Millisecond)
	h.ctrl.Open("c")
	h.loop.Advance(time.Second)

	assert.Equal(t, []model.ID{"c"}, h.svc.loads)
}

func TestOpen_CachedChatDoesNotLoad(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 10)

	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	assert.Empty(t, h.svc.loads)
	assert.Equal(t, 10, h.ctrl.State().MessageCount())
}

func TestClose_CancelsPendingLoad(t *testing.T) {
	h := newHarness(t)
	h.addChat("g1", true, 0)

	h.ctrl.Open("g1")
	h.ctrl.Close()
	h.loop.Advance(time.Second)

	assert.Empty(t, h.svc.loads)
	assert.False(t, h.ctrl.State().Active())
}

// =============================================================================
// AUTOSCROLL
// =============================================================================

func TestOpen_SnapsToBottom(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 30)

	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	assert.Equal(t, h.surface.Metrics().MaxScrollTop(), h.surface.Top)
	assert.True(t, h.ctrl.State().IsAtBottom)
}

func TestAutoScroll_LockedViewStaysPutSendSnaps(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 30)
	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	// User scrolls to the top
	h.surface.Top = 0
	h.ctrl.OnScroll()
	require.False(t, h.ctrl.State().IsAtBottom)

	h.ctrl.Receive(collab.Event{Message: peerMessage("c1", 500)})
	assert.Equal(t, 0, h.surface.Top, "new message must not move a locked view")
	assert.Equal(t, 1, h.ctrl.State().NewBelow)

	_, err := h.ctrl.Send("on my way")
	require.NoError(t, err)
	assert.Equal(t, h.surface.Metrics().MaxScrollTop(), h.surface.Top, "own send always snaps")
	assert.True(t, h.ctrl.State().IsAtBottom)
	assert.Equal(t, 0, h.ctrl.State().NewBelow)

	h.loop.Advance(time.Second)
	assert.Equal(t, h.surface.Metrics().MaxScrollTop(), h.surface.Top)
}

func TestAutoScroll_FollowsNewMessagesAtBottom(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 30)
	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	h.ctrl.Receive(collab.Event{Message: peerMessage("c1", 500)})
	h.loop.Advance(time.Second)

	assert.Equal(t, h.surface.Metrics().MaxScrollTop(), h.surface.Top)
	assert.Equal(t, 0, h.ctrl.State().NewBelow)
}

func TestJumpToBottom(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 30)
	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	h.surface.Top = 0
	h.ctrl.OnScroll()
	h.ctrl.Receive(collab.Event{Message: peerMessage("c1", 500)})
	require.Equal(t, 1, h.ctrl.State().NewBelow)

	h.ctrl.JumpToBottom()

	assert.Equal(t, h.surface.Metrics().MaxScrollTop(), h.surface.Top)
	assert.Equal(t, 0, h.ctrl.State().NewBelow)
	assert.True(t, h.ctrl.State().AutoScroll)
	assert.Empty(t, h.svc.typing, "jumping does not touch typing state")
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestPagination_PrependKeepsViewportStill(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 0)
	h.store.Append("c1", history("c1", 100, 30)...)
	h.svc.hasMore["c1"] = true
	h.svc.pages["c1"] = []model.Page{{ChatID: "c1", Messages: history("c1", 90, 10), HasMore: true}}
	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	h.surface.Top = 0
	h.ctrl.OnScroll()
	h.loop.Advance(300 * time.Millisecond)
	require.Len(t, h.svc.loads, 1)
	assert.False(t, h.ctrl.State().AutoScroll)

	// Still in view and explicitly asked: single flight holds
	h.surface.Top = 5
	h.ctrl.OnScroll()
	assert.False(t, h.ctrl.LoadOlder())

	h.loop.Flush()
	h.loop.Advance(time.Second)

	assert.Len(t, h.svc.loads, 1)
	assert.Equal(t, 40, h.ctrl.State().MessageCount())
	assert.InDelta(t, 5+10*lineHeight, h.surface.Top, scroll.DefaultAnchorTolerance)
	assert.False(t, h.ctrl.State().IsAtBottom)
	require.Len(t, h.eventsOf(EventPageLoaded), 1)
}

func TestPagination_FailureSurfacesAndReenablesAutoscroll(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 30)
	h.svc.hasMore["c1"] = true
	h.svc.loadErr = errors.New("503")
	h.ctrl.Open("c1")
	h.loop.Advance(time.Second)

	require.True(t, h.ctrl.LoadOlder())
	h.loop.Flush()

	state := h.ctrl.State()
	assert.EqualError(t, state.PageError, "503")
	assert.True(t, state.AutoScroll)
	assert.False(t, state.LoadingMessages)
	require.Len(t, h.eventsOf(EventPageFailed), 1)

	// Cleared by the next attempt
	h.svc.loadErr = nil
	require.True(t, h.ctrl.LoadOlder())
	assert.NoError(t, h.ctrl.State().PageError)
}

func TestPagination_NoMoreHistory(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 30)
	h.ctrl.Open("c1")

	assert.False(t, h.ctrl.LoadOlder())
	assert.False(t, h.ctrl.State().HasMoreMessagesForChat)
}

// =============================================================================
// TYPING
// =============================================================================

func TestTyping_SendStopsImmediately(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 3)
	h.ctrl.Open("c1")

	h.ctrl.Keystroke("h")
	h.loop.Advance(time.Second)
	h.ctrl.Keystroke("hi")
	assert.Equal(t, typing.Typing, h.ctrl.State().Typing)

	_, err := h.ctrl.Send("hi")
	require.NoError(t, err)
	assert.Equal(t, []typingCall{{"c1", true}, {"c1", false}}, h.svc.typing)

	h.loop.Advance(time.Minute)
	assert.Equal(t, 1, h.svc.typingCount(false))
}

func TestTyping_SwitchCancelsWithoutCrossChatSignals(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 3)
	h.addChat("c2", false, 3)
	h.ctrl.Open("c1")

	h.ctrl.Keystroke("draft")
	h.ctrl.Open("c2")
	h.loop.Advance(time.Minute)

	assert.Equal(t, []typingCall{{"c1", true}}, h.svc.typing)
}

func TestTyping_EndOnSwitchOption(t *testing.T) {
	h := newHarness(t)
	h.ctrl.opts.EndTypingOnSwitch = true
	h.addChat("c1", false, 3)
	h.addChat("c2", false, 3)
	h.ctrl.Open("c1")

	h.ctrl.Keystroke("draft")
	h.ctrl.Open("c2")
	h.loop.Advance(time.Minute)

	assert.Equal(t, []typingCall{{"c1", true}, {"c1", false}}, h.svc.typing)
}

func TestTyping_PeersExpire(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", true, 3)
	h.ctrl.Open("c1")

	h.ctrl.Receive(collab.Event{Typing: &model.TypingEvent{ChatID: "c1", UserID: "alice", IsTyping: true}})
	assert.Equal(t, []string{"Alice"}, h.ctrl.State().PeersTyping)

	h.loop.Advance(typing.EndDelay)
	assert.Empty(t, h.ctrl.State().PeersTyping)
}

func TestTyping_PeerMessageClearsIndicator(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", true, 3)
	h.ctrl.Open("c1")

	h.ctrl.Receive(collab.Event{Typing: &model.TypingEvent{ChatID: "c1", UserID: "alice", IsTyping: true}})
	h.ctrl.Receive(collab.Event{Message: peerMessage("c1", 77)})

	assert.Empty(t, h.ctrl.State().PeersTyping)
}

// =============================================================================
// READ RECEIPTS AND FLAGS
// =============================================================================

func TestReadReceipts(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 0)
	h.addChat("c2", false, 0)

	h.ctrl.Open("c1")
	assert.Empty(t, h.svc.reads, "nothing visible yet")

	h.ctrl.Receive(collab.Event{Message: peerMessage("c1", 1)})
	assert.Equal(t, []model.ID{"c1"}, h.svc.reads)

	h.ctrl.Receive(collab.Event{Message: peerMessage("c2", 2)})
	assert.Len(t, h.svc.reads, 1, "inactive chat is not marked read")
	assert.Equal(t, 1, h.store.Unread("c2"))
	assert.Equal(t, 0, h.store.Unread("c1"))
}

func TestModeratorFlag(t *testing.T) {
	zero, three := 0, 3
	tests := []struct {
		name      string
		aggregate *int
		sender    model.ID
		want      bool
	}{
		{"scan finds moderator sender", nil, "bob", true},
		{"scan finds nothing", nil, "alice", false},
		{"aggregate wins over scan", &zero, "bob", false},
		{"aggregate positive", &three, "alice", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.addChat("c1", true, 0)
			chat, _ := h.store.Chat("c1")
			chat.ModeratorMessages = tt.aggregate
			h.store.PutChat(chat)
			msg := peerMessage("c1", 1)
			msg.SenderID = tt.sender
			h.store.Append("c1", *msg)

			h.ctrl.Open("c1")

			assert.Equal(t, tt.want, h.ctrl.State().HasModeratorMessages)
		})
	}
}

func TestReplyResolution(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 0)
	h.store.Append("c1", model.Message{ID: "5", ChatID: "c1", SenderID: "alice", CreatedAt: model.At(epoch), Content: "A"})
	// The server copy of B carries the reply id as a JSON number
	var reply model.Message
	require.NoError(t, json.Unmarshal([]byte(
		`{"id":6,"chat_id":"c1","sender_id":"bob","created_at":"2024-03-10T12:00:00Z","content":"B","reply_to_id":5}`),
		&reply))
	h.store.Append("c1", reply)

	h.ctrl.Open("c1")

	nodes := h.ctrl.State().Nodes
	last := nodes[len(nodes)-1]
	require.NotNil(t, last.ReplyPreview)
	assert.Equal(t, "A", last.ReplyPreview.Content)
}

// =============================================================================
// OUTBOUND
// =============================================================================

func TestSend_OptimisticThenReconciled(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 3)
	h.ctrl.Open("c1")

	tempID, err := h.ctrl.Send("  hello  ")
	require.NoError(t, err)
	assert.True(t, tempID.IsTemp())

	pending, ok := h.store.Message("c1", tempID)
	require.True(t, ok)
	assert.True(t, pending.Pending)
	assert.Equal(t, "hello", pending.Content)

	h.loop.Flush()

	_, ok = h.store.Message("c1", tempID)
	assert.False(t, ok, "placeholder replaced")
	msgs := h.store.Messages("c1")
	assert.Equal(t, model.ID("1001"), msgs[len(msgs)-1].ID)
	assert.False(t, msgs[len(msgs)-1].Pending)
	require.Len(t, h.eventsOf(EventSent), 1)
	assert.Equal(t, tempID, h.eventsOf(EventSent)[0].TempID)
}

func TestSend_FailureRetryAndDiscard(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 3)
	h.ctrl.Open("c1")
	h.svc.sendErr = errors.New("offline")

	tempID, err := h.ctrl.Send("first")
	require.NoError(t, err)
	h.loop.Flush()

	failed := h.eventsOf(EventSendFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, tempID, failed[0].TempID)
	msg, _ := h.store.Message("c1", tempID)
	assert.True(t, msg.Failed)

	h.svc.sendErr = nil
	require.NoError(t, h.ctrl.Retry(tempID))
	h.loop.Flush()
	_, ok := h.store.Message("c1", tempID)
	assert.False(t, ok)
	assert.ErrorIs(t, h.ctrl.Retry(tempID), ErrMessageNotLoaded)

	h.svc.sendErr = errors.New("offline")
	second, _ := h.ctrl.Send("second")
	h.loop.Flush()
	require.NoError(t, h.ctrl.Discard(second))
	_, ok = h.store.Message("c1", second)
	assert.False(t, ok)
}

func TestSend_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.ctrl.Send("hi")
	assert.ErrorIs(t, err, ErrNoActiveChat)

	h.addChat("c1", false, 1)
	h.ctrl.Open("c1")
	_, err = h.ctrl.Send("   ")
	assert.ErrorIs(t, err, collab.ErrEmptyMessage)

	_, err = h.ctrl.Upload(model.File{Name: "a.txt"}, model.KindText)
	assert.ErrorIs(t, err, ErrNotAttachment)
}

func TestUpload_WithReply(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 3)
	h.ctrl.Open("c1")

	require.NoError(t, h.ctrl.SetReplyTo(model.IDFromInt(2)))
	require.NotNil(t, h.ctrl.State().ReplyTo)

	tempID, err := h.ctrl.Upload(model.File{Name: "cat.png", MIMEType: "image/png", Data: []byte{1, 2, 3}}, model.KindImage)
	require.NoError(t, err)
	assert.Nil(t, h.ctrl.State().ReplyTo, "reply consumed by the send")

	pending, ok := h.store.Message("c1", tempID)
	require.True(t, ok)
	assert.Equal(t, model.IDFromInt(2), pending.ReplyToID)
	assert.Equal(t, int64(3), pending.Attachment.Size)

	h.loop.Flush()
	require.Len(t, h.svc.uploads, 1)
	assert.Equal(t, "cat.png", h.svc.uploads[0].Name)

	assert.ErrorIs(t, h.ctrl.SetReplyTo("nope"), ErrMessageNotLoaded)
}

func TestShutdown_IgnoresLateCompletions(t *testing.T) {
	h := newHarness(t)
	h.addChat("c1", false, 3)
	h.ctrl.Open("c1")
	_, err := h.ctrl.Send("bye")
	require.NoError(t, err)

	h.ctrl.Shutdown()
	h.loop.Flush()

	assert.Empty(t, h.eventsOf(EventSent))
}
