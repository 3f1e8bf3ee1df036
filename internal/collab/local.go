// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package collab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/storage"
)

// =============================================================================
// LOCAL SERVICE
// =============================================================================

// LocalOptions configures a Local service.
type LocalOptions struct {
	// UserID is the local user; sends are attributed to it.
	UserID model.ID

	// PageSize is the number of messages per history page.
	// Default: storage.DefaultPageSize
	PageSize int

	Logger *zap.Logger
}

// cursorState tracks how far back a chat's history has been walked.
type cursorState struct {
	next      string
	exhausted bool
}

// Local is a Collaborator, Directory and Publisher backed by a SQLite store.
// It keeps one history cursor per chat for the lifetime of the service.
//
// Thread-safety: All operations are protected by a mutex.
type Local struct {
	store    *storage.Store
	userID   model.ID
	pageSize int
	logger   *zap.Logger

	mu      sync.Mutex
	cursors map[string]*cursorState
	typing  map[string]bool
	subs    map[int]func(Event)
	nextSub int
	closed  bool
}

var (
	_ Collaborator = (*Local)(nil)
	_ Directory    = (*Local)(nil)
	_ Publisher    = (*Local)(nil)
)

// NewLocal wraps store. The store stays owned by the caller.
func NewLocal(store *storage.Store, opts LocalOptions) *Local {
	if opts.PageSize <= 0 {
		opts.PageSize = storage.DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Local{
		store:    store,
		userID:   opts.UserID,
		pageSize: opts.PageSize,
		logger:   opts.Logger,
		cursors:  make(map[string]*cursorState),
		typing:   make(map[string]bool),
		subs:     make(map[int]func(Event)),
	}
}

// UserID returns the local user.
func (l *Local) UserID() model.ID {
	return l.userID
}

// Close stops event delivery and fails later calls with ErrClosed.
func (l *Local) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.subs = make(map[int]func(Event))
}

func (l *Local) checkOpen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return nil
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Chats lists every chat, most recently active first.
func (l *Local) Chats(ctx context.Context) ([]model.Chat, error) {
	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	return l.store.Chats(ctx)
}

// Chat loads one chat.
func (l *Local) Chat(ctx context.Context, chatID model.ID) (model.Chat, error) {
	if err := l.checkOpen(); err != nil {
		return model.Chat{}, err
	}
	chat, err := l.store.Chat(ctx, chatID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Chat{}, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}
	return chat, err
}

// =============================================================================
// HISTORY
// =============================================================================

// LoadMessages returns the next older page of chatID. Once history is
// exhausted it returns an empty page with HasMore false.
func (l *Local) LoadMessages(ctx context.Context, chatID model.ID) (model.Page, error) {
	if _, err := l.Chat(ctx, chatID); err != nil {
		return model.Page{}, err
	}

	l.mu.Lock()
	state := l.cursorFor(chatID)
	if state.exhausted {
		l.mu.Unlock()
		return model.Page{ChatID: chatID}, nil
	}
	cursor := state.next
	l.mu.Unlock()

	page, err := l.store.Page(ctx, chatID, cursor, l.pageSize)
	if err != nil {
		return model.Page{}, fmt.Errorf("load messages of %s: %w", chatID, err)
	}

	l.mu.Lock()
	// A concurrent load already moved the cursor; keep the furthest walk.
	if state.next == cursor {
		state.next = page.Cursor
		state.exhausted = !page.HasMore
	}
	l.mu.Unlock()

	l.logger.Debug("history_page",
		zap.String("chat_id", chatID.String()),
		zap.Int("messages", len(page.Messages)),
		zap.Bool("has_more", page.HasMore))
	return page, nil
}

// HasMoreMessages reports whether older history remains. A chat that was
// never loaded has more until the first page says otherwise.
func (l *Local) HasMoreMessages(chatID model.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	state, ok := l.cursors[chatID.Key()]
	return !ok || !state.exhausted
}

// ResetHistory forgets the cursor for chatID so the next load starts from the
// newest message again.
func (l *Local) ResetHistory(chatID model.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cursors, chatID.Key())
}

func (l *Local) cursorFor(chatID model.ID) *cursorState {
	state, ok := l.cursors[chatID.Key()]
	if !ok {
		state = &cursorState{}
		l.cursors[chatID.Key()] = state
	}
	return state
}

// =============================================================================
// OUTGOING
// =============================================================================

// SendTypingIndicator records the local user's typing state for chatID.
func (l *Local) SendTypingIndicator(ctx context.Context, chatID model.ID, isTyping bool) error {
	if _, err := l.Chat(ctx, chatID); err != nil {
		return err
	}
	l.mu.Lock()
	l.typing[chatID.Key()] = isTyping
	l.mu.Unlock()
	l.logger.Debug("typing_indicator", zap.String("chat_id", chatID.String()), zap.Bool("typing", isTyping))
	return nil
}

// Typing reports the last typing state the local user announced in chatID.
func (l *Local) Typing(chatID model.ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.typing[chatID.Key()]
}

// SendTextMessage stores text as a message from the local user.
func (l *Local) SendTextMessage(ctx context.Context, chatID model.ID, text string, replyTo model.ID) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}
	return l.add(ctx, model.Message{
		ChatID:    chatID,
		SenderID:  l.userID,
		Kind:      model.KindText,
		Content:   text,
		ReplyToID: replyTo,
	}, nil)
}

// UploadFile stores an attachment message from the local user.
func (l *Local) UploadFile(ctx context.Context, chatID model.ID, file model.File, kind model.Kind, replyTo model.ID) (model.Message, error) {
	if !kind.IsAttachment() {
		return model.Message{}, fmt.Errorf("upload: kind %q is not an attachment", kind)
	}
	if file.Name == "" {
		return model.Message{}, errors.New("upload: file name is required")
	}
	return l.add(ctx, model.Message{
		ChatID:    chatID,
		SenderID:  l.userID,
		Kind:      kind,
		ReplyToID: replyTo,
		Attachment: &model.Attachment{
			Name:     file.Name,
			MIMEType: file.MIMEType,
			Size:     int64(len(file.Data)),
		},
	}, file.Data)
}

// MarkAllMessagesAsRead receipts every peer message of chatID for the local
// user.
func (l *Local) MarkAllMessagesAsRead(ctx context.Context, chatID model.ID) error {
	if _, err := l.Chat(ctx, chatID); err != nil {
		return err
	}
	n, err := l.store.MarkRead(ctx, chatID, l.userID)
	if err != nil {
		return err
	}
	l.logger.Debug("marked_read", zap.String("chat_id", chatID.String()), zap.Int64("receipts", n))
	return nil
}

func (l *Local) add(ctx context.Context, msg model.Message, data []byte) (model.Message, error) {
	chat, err := l.Chat(ctx, msg.ChatID)
	if err != nil {
		return model.Message{}, err
	}
	msg.FromModerator = chat.IsModerator(msg.SenderID)
	stored, err := l.store.AddMessage(ctx, msg, data)
	if err != nil {
		return model.Message{}, fmt.Errorf("send to %s: %w", msg.ChatID, err)
	}
	return stored, nil
}

// =============================================================================
// PEER ACTIVITY
// =============================================================================

// Post stores a message from another member and pushes it to subscribers.
func (l *Local) Post(ctx context.Context, chatID, sender model.ID, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, ErrEmptyMessage
	}
	stored, err := l.add(ctx, model.Message{ChatID: chatID, SenderID: sender, Kind: model.KindText, Content: text}, nil)
	if err != nil {
		return model.Message{}, err
	}
	l.publish(Event{Message: &stored})
	return stored, nil
}

// PeerTyping pushes a typing change from another member.
func (l *Local) PeerTyping(ev model.TypingEvent) {
	l.publish(Event{Typing: &ev})
}

// PeerRead receipts chatID for userID and pushes the read event.
func (l *Local) PeerRead(ctx context.Context, chatID, userID model.ID) error {
	if _, err := l.store.MarkRead(ctx, chatID, userID); err != nil {
		return err
	}
	l.publish(Event{Read: &ReadEvent{ChatID: chatID, UserID: userID}})
	return nil
}

// =============================================================================
// PUBLISHER
// =============================================================================

// Subscribe registers fn for push events. Handlers run on the goroutine that
// produced the event, in subscription order.
func (l *Local) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *Local) publish(ev Event) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.subs))
	for id := range l.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, l.subs[id])
	}
	l.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
