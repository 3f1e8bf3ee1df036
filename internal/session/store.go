// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/livechat-tui/internal/model"
)

// =============================================================================
// STORE
// =============================================================================

// Change describes what happened to a chat in the Store.
type Change int

const (
	ChangeMessages Change = iota // messages appended, prepended or replaced
	ChangeChat                   // chat metadata
	ChangeTyping                 // peer typing set
	ChangeRead                   // read state
)

// ChatSummary is one row of the chat list.
type ChatSummary struct {
	Chat   model.Chat
	Unread int
	Last   *model.Message
	Open   bool
}

type chatEntry struct {
	chat     model.Chat
	known    bool
	open     bool
	messages []model.Message
	index    map[string]int
	version  uint64

	// readUpTo is the key of the newest message the local user has read.
	readUpTo string
	peers    map[string]peerTyping
}

type peerTyping struct {
	userID  model.ID
	expires time.Time
}

// Store is the explicit session store shared by the views of one user. It
// holds chat metadata and the loaded slice of each chat's transcript and
// notifies subscribers after each change.
//
// Thread-safety: All operations are protected by a mutex. Subscribers are
// called after the lock is released, on the goroutine that made the change.
type Store struct {
	mu     sync.RWMutex
	userID model.ID
	chats  map[string]*chatEntry

	subMu  sync.Mutex
	subs   map[int]func(model.ID, Change)
	nextID int
}

// NewStore creates an empty store for the local user.
func NewStore(userID model.ID) *Store {
	return &Store{
		userID: userID,
		chats:  make(map[string]*chatEntry),
		subs:   make(map[int]func(model.ID, Change)),
	}
}

// UserID returns the local user.
func (s *Store) UserID() model.ID {
	return s.userID
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(chatID model.ID, change Change)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(chatID model.ID, change Change) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(model.ID, Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(chatID, change)
	}
}

// entry returns the chat entry, creating it. Callers hold mu.
func (s *Store) entry(chatID model.ID) *chatEntry {
	key := chatID.Key()
	e, ok := s.chats[key]
	if !ok {
		e = &chatEntry{
			chat:  model.Chat{ID: chatID},
			index: make(map[string]int),
			peers: make(map[string]peerTyping),
		}
		s.chats[key] = e
	}
	return e
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Open marks chatID as shown by a view.
func (s *Store) Open(chatID model.ID) {
	s.mu.Lock()
	s.entry(chatID).open = true
	s.mu.Unlock()
}

// Close marks chatID as no longer shown. Its messages stay cached.
func (s *Store) Close(chatID model.ID) {
	s.mu.Lock()
	if e, ok := s.chats[chatID.Key()]; ok {
		e.open = false
		e.peers = make(map[string]peerTyping)
	}
	s.mu.Unlock()
}

// IsOpen reports whether a view shows chatID.
func (s *Store) IsOpen(chatID model.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID.Key()]
	return ok && e.open
}

// =============================================================================
// CHATS
// =============================================================================

// PutChat stores chat metadata.
func (s *Store) PutChat(chat model.Chat) {
	s.mu.Lock()
	e := s.entry(chat.ID)
	e.chat = chat
	e.known = true
	s.mu.Unlock()
	s.notify(chat.ID, ChangeChat)
}

// Chat returns chat metadata. ok is false when PutChat was never called.
func (s *Store) Chat(chatID model.ID) (model.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID.Key()]
	if !ok || !e.known {
		return model.Chat{ID: chatID}, false
	}
	return e.chat, true
}

// Chats lists known chats, most recent activity first.
func (s *Store) Chats() []ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ChatSummary, 0, len(s.chats))
	for _, e := range s.chats {
		if !e.known {
			continue
		}
		sum := ChatSummary{Chat: e.chat, Unread: s.unread(e), Open: e.open}
		if n := len(e.messages); n > 0 {
			last := e.messages[n-1]
			sum.Last = &last
		}
		out = append(out, sum)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := activity(out[i]), activity(out[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].Chat.ID.Key() < out[j].Chat.ID.Key()
	})
	return out
}

func activity(s ChatSummary) time.Time {
	t := s.Chat.LastActivity
	if s.Last != nil && s.Last.CreatedAt.Valid() && s.Last.CreatedAt.After(t) {
		t = s.Last.CreatedAt.Time
	}
	return t
}

// =============================================================================
// MESSAGES
// =============================================================================

// Messages returns the loaded transcript of chatID, oldest first. The slice
// is a copy.
func (s *Store) Messages(chatID model.ID) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID.Key()]
	if !ok {
		return nil
	}
	return append([]model.Message(nil), e.messages...)
}

// Version increments on every change to the messages of chatID.
func (s *Store) Version(chatID model.ID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.chats[chatID.Key()]; ok {
		return e.version
	}
	return 0
}

// Message looks up one loaded message.
func (s *Store) Message(chatID, id model.ID) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID.Key()]
	if !ok {
		return model.Message{}, false
	}
	i, ok := e.index[id.Key()]
	if !ok {
		return model.Message{}, false
	}
	return e.messages[i], true
}

// Append adds newer messages at the end. A message whose id is already
// loaded replaces the loaded copy in place.
func (s *Store) Append(chatID model.ID, msgs ...model.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	e := s.entry(chatID)
	for _, m := range msgs {
		if i, ok := e.index[m.ID.Key()]; ok {
			e.messages[i] = m
			continue
		}
		e.messages = append(e.messages, m)
		e.index[m.ID.Key()] = len(e.messages) - 1
		// A message from a peer ends their typing indicator
		delete(e.peers, m.SenderID.Key())
	}
	e.version++
	s.mu.Unlock()
	s.notify(chatID, ChangeMessages)
}

// Prepend adds an older page in front of the loaded messages, skipping ids
// already loaded.
func (s *Store) Prepend(chatID model.ID, older []model.Message) {
	s.mu.Lock()
	e := s.entry(chatID)
	fresh := make([]model.Message, 0, len(older)+len(e.messages))
	seen := make(map[string]bool, len(older))
	for _, m := range older {
		key := m.ID.Key()
		if _, loaded := e.index[key]; loaded || seen[key] {
			continue
		}
		seen[key] = true
		fresh = append(fresh, m)
	}
	added := len(fresh)
	if added > 0 {
		e.messages = append(fresh, e.messages...)
		e.reindex()
	}
	e.version++
	s.mu.Unlock()
	// Notify even for an empty page: loading state changed
	s.notify(chatID, ChangeMessages)
}

// Reconcile swaps an optimistic placeholder for the server copy. If the
// server copy already arrived by push, the placeholder is dropped. Returns
// false when tempID is not loaded.
func (s *Store) Reconcile(chatID, tempID model.ID, msg model.Message) bool {
	s.mu.Lock()
	e := s.entry(chatID)
	i, ok := e.index[tempID.Key()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	msg.Pending, msg.Failed = false, false
	if _, dup := e.index[msg.ID.Key()]; dup {
		e.messages = append(e.messages[:i], e.messages[i+1:]...)
	} else {
		e.messages[i] = msg
	}
	e.reindex()
	e.version++
	s.mu.Unlock()
	s.notify(chatID, ChangeMessages)
	return true
}

// SetDelivery updates the optimistic state of a placeholder.
func (s *Store) SetDelivery(chatID, tempID model.ID, pending, failed bool) bool {
	s.mu.Lock()
	e := s.entry(chatID)
	i, ok := e.index[tempID.Key()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e.messages[i].Pending = pending
	e.messages[i].Failed = failed
	e.version++
	s.mu.Unlock()
	s.notify(chatID, ChangeMessages)
	return true
}

// Remove deletes a message, typically a failed placeholder the user gave up on.
func (s *Store) Remove(chatID, id model.ID) bool {
	s.mu.Lock()
	e := s.entry(chatID)
	i, ok := e.index[id.Key()]
	if !ok {
		s.mu.Unlock()
		return false
	}
	e.messages = append(e.messages[:i], e.messages[i+1:]...)
	e.reindex()
	e.version++
	s.mu.Unlock()
	s.notify(chatID, ChangeMessages)
	return true
}

func (e *chatEntry) reindex() {
	e.index = make(map[string]int, len(e.messages))
	for i, m := range e.messages {
		e.index[m.ID.Key()] = i
	}
}

// =============================================================================
// READ STATE
// =============================================================================

// MarkRead records that the local user has seen everything loaded in chatID.
func (s *Store) MarkRead(chatID model.ID) {
	s.mu.Lock()
	e := s.entry(chatID)
	if n := len(e.messages); n > 0 {
		e.readUpTo = e.messages[n-1].ID.Key()
	}
	s.mu.Unlock()
	s.notify(chatID, ChangeRead)
}

// ApplyRead records a read receipt from another member: userID is added to
// the readers of every loaded message.
func (s *Store) ApplyRead(chatID, userID model.ID) {
	s.mu.Lock()
	e := s.entry(chatID)
	for i := range e.messages {
		e.messages[i] = e.messages[i].WithReader(userID)
	}
	e.version++
	s.mu.Unlock()
	s.notify(chatID, ChangeMessages)
}

// Unread counts peer messages newer than the local user's read mark.
func (s *Store) Unread(chatID model.ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID.Key()]
	if !ok {
		return 0
	}
	return s.unread(e)
}

func (s *Store) unread(e *chatEntry) int {
	start := 0
	if i, ok := e.index[e.readUpTo]; ok && e.readUpTo != "" {
		start = i + 1
	}
	n := 0
	for _, m := range e.messages[start:] {
		if !m.SenderID.Equal(s.userID) && !m.IsReadBy(s.userID) {
			n++
		}
	}
	return n
}

// =============================================================================
// PEER TYPING
// =============================================================================

// SetPeerTyping records a typing event from another member. Typing state
// expires on its own at expires.
func (s *Store) SetPeerTyping(ev model.TypingEvent, expires time.Time) {
	if ev.UserID.Equal(s.userID) {
		return
	}
	s.mu.Lock()
	e := s.entry(ev.ChatID)
	if ev.IsTyping {
		e.peers[ev.UserID.Key()] = peerTyping{userID: ev.UserID, expires: expires}
	} else {
		delete(e.peers, ev.UserID.Key())
	}
	s.mu.Unlock()
	s.notify(ev.ChatID, ChangeTyping)
}

// PeersTyping lists members typing in chatID at now, sorted by id.
func (s *Store) PeersTyping(chatID model.ID, now time.Time) []model.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.chats[chatID.Key()]
	if !ok {
		return nil
	}
	var out []model.ID
	for _, p := range e.peers {
		if now.Before(p.expires) {
			out = append(out, p.userID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
