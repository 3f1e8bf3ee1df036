// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/collab"
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/pagination"
	"github.com/jeranaias/livechat-tui/internal/schedule"
	"github.com/jeranaias/livechat-tui/internal/scroll"
	"github.com/jeranaias/livechat-tui/internal/telemetry"
	"github.com/jeranaias/livechat-tui/internal/transcript"
	"github.com/jeranaias/livechat-tui/internal/typing"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultInitialLoadDelay debounces the first load of an empty chat so
	// rapid switching does not fire a request per chat passed through.
	DefaultInitialLoadDelay = 50 * time.Millisecond

	// DefaultGroupRetryDelay is when a group chat that is still empty gets a
	// second load.
	DefaultGroupRetryDelay = 500 * time.Millisecond
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configure a Controller. Zero values take the defaults of each
// component.
type Options struct {
	// UserID is the local user.
	UserID model.ID

	InitialLoadDelay time.Duration
	GroupRetryDelay  time.Duration

	// EndTypingOnSwitch sends typing_end for the chat being left. By default
	// the pending end timer is cancelled silently.
	EndTypingOnSwitch bool

	Anchor     scroll.AnchorOptions
	AutoScroll scroll.AutoScrollOptions
	Pagination pagination.Options
	Typing     typing.Options

	// Locale and Location shape date separators.
	Locale   string
	Location *time.Location

	// OnEvent receives asynchronous outcomes on the loop.
	OnEvent func(Event)

	Metrics *telemetry.Metrics
	Logger  *zap.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the live transcript controller for one view. It re-runs its
// orchestration whenever the active chat changes or the store reports a
// change to that chat's messages.
type Controller struct {
	loop     schedule.Loop
	store    *Store
	svc      collab.Collaborator
	surface  scroll.Surface
	renderer Renderer
	opts     Options
	logger   *zap.Logger
	metrics  *telemetry.Metrics

	anchors *scroll.AnchorManager
	auto    *scroll.AutoScroll
	pager   *pagination.Controller
	typing  *typing.Heartbeat
	cache   *transcript.Cache
	labeler *transcript.Labeler

	initial    *schedule.Debouncer
	groupRetry *schedule.Debouncer
	peerExpiry schedule.Handle

	chat      model.ID
	lastCount int
	newestKey string
	newBelow  int
	pageErr   error
	replyTo   model.ID
	uploads   map[string]model.File
	cacheHits uint64
	cacheMiss uint64

	state       State
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewController wires a controller to its collaborators. Nothing is loaded
// until Open.
func NewController(loop schedule.Loop, store *Store, svc collab.Collaborator, surface scroll.Surface,
	renderer Renderer, opts Options) *Controller {
	if opts.UserID.IsZero() {
		opts.UserID = store.UserID()
	}
	if opts.InitialLoadDelay <= 0 {
		opts.InitialLoadDelay = DefaultInitialLoadDelay
	}
	if opts.GroupRetryDelay <= 0 {
		opts.GroupRetryDelay = DefaultGroupRetryDelay
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = RenderFunc(func(State) {})
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		loop:       loop,
		store:      store,
		svc:        svc,
		surface:    surface,
		renderer:   renderer,
		opts:       opts,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		cache:      transcript.NewCache(),
		labeler:    transcript.NewLabeler(opts.Locale),
		initial:    schedule.NewDebouncer(loop, opts.InitialLoadDelay),
		groupRetry: schedule.NewDebouncer(loop, opts.GroupRetryDelay),
		uploads:    make(map[string]model.File),
		ctx:        ctx,
		cancel:     cancel,
	}

	anchorOpts := opts.Anchor
	if anchorOpts.Logger == nil {
		anchorOpts.Logger = opts.Logger.Named("scroll")
	}
	c.anchors = scroll.NewAnchorManager(loop, surface, anchorOpts)

	autoOpts := opts.AutoScroll
	autoOpts.OnEvaluate = c.onScrollEvaluated
	if autoOpts.Logger == nil {
		autoOpts.Logger = opts.Logger.Named("scroll")
	}
	c.auto = scroll.NewAutoScroll(loop, surface, autoOpts)

	pageOpts := opts.Pagination
	if pageOpts.Logger == nil {
		pageOpts.Logger = opts.Logger.Named("pagination")
	}
	c.pager = pagination.New(loop, svc, surface, c.anchors, c.auto, svc.HasMoreMessages, pagination.Hooks{
		Started: c.onPageStarted,
		Loaded:  c.onPageLoaded,
		Failed:  c.onPageFailed,
		Settled: func(_ model.ID, r scroll.RestoreResult) {
			c.metrics.AnchorRestored(r.String())
		},
	}, pageOpts)

	typingOpts := opts.Typing
	typingOpts.OnEmit = func(_ model.ID, isTyping bool) {
		c.metrics.TypingSignal(isTyping)
	}
	if typingOpts.Logger == nil {
		typingOpts.Logger = opts.Logger.Named("typing")
	}
	c.typing = typing.New(loop, svc, typingOpts)

	c.unsubscribe = store.Subscribe(c.onStoreChange)
	return c
}

// State returns the state last rendered.
func (c *Controller) State() State {
	return c.state
}

// Chat returns the active chat id.
func (c *Controller) Chat() model.ID {
	return c.chat
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Open makes chatID the active chat. The previous chat is torn down first.
// An empty transcript schedules its first load after InitialLoadDelay, and a
// group chat that is still empty after GroupRetryDelay gets a second one.
func (c *Controller) Open(chatID model.ID) {
	if chatID.IsZero() {
		c.Close()
		return
	}
	if chatID.Equal(c.chat) {
		return
	}
	c.teardown()

	c.chat = chatID
	c.store.Open(chatID)
	c.lastCount = 0
	c.newestKey = ""
	c.newBelow = 0
	c.pageErr = nil
	c.replyTo = ""
	c.cache.Reset()
	c.typing.SetChat(chatID)
	c.pager.SetChat(chatID)
	c.logger.Info("chat_open", zap.String("chat_id", chatID.String()))

	c.auto.ResetForSwitch()
	c.sync()

	if len(c.store.Messages(chatID)) > 0 {
		return
	}
	c.initial.Trigger(func() {
		if !chatID.Equal(c.chat) {
			return
		}
		c.pager.LoadInitial(chatID)
	})
	if chat, _ := c.store.Chat(chatID); chat.IsGroup {
		c.groupRetry.Trigger(func() {
			if !chatID.Equal(c.chat) || len(c.store.Messages(chatID)) > 0 {
				return
			}
			// The first request may still be out; ask again regardless
			c.pager.LoadInitialForce(chatID)
		})
	}
}

// Close tears down the active chat and renders an empty state.
func (c *Controller) Close() {
	c.teardown()
	c.sync()
}

// Shutdown releases everything. The controller must not be used afterwards.
func (c *Controller) Shutdown() {
	c.teardown()
	c.pager.Close()
	c.typing.Close()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.cancel()
}

// teardown cancels every timer scoped to the active chat.
func (c *Controller) teardown() {
	if c.chat.IsZero() {
		return
	}
	if c.opts.EndTypingOnSwitch {
		c.typing.Stop()
	}
	c.typing.SetChat("")
	c.pager.SetChat("")
	c.auto.Cancel()
	c.initial.Cancel()
	c.groupRetry.Cancel()
	if c.peerExpiry != nil {
		c.peerExpiry.Stop()
		c.peerExpiry = nil
	}
	c.store.Close(c.chat)
	c.logger.Info("chat_close", zap.String("chat_id", c.chat.String()))
	c.chat = ""
}

// SetDisplay changes the separator locale and time zone.
func (c *Controller) SetDisplay(locale string, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	c.labeler = transcript.NewLabeler(locale)
	c.opts.Locale = locale
	c.opts.Location = loc
	c.sync()
}

// =============================================================================
// ORCHESTRATION
// =============================================================================

func (c *Controller) onStoreChange(chatID model.ID, change Change) {
	if change == ChangeRead || c.chat.IsZero() || !chatID.Equal(c.chat) {
		return
	}
	c.sync()
}

// sync recomputes the render state for the active chat and applies the
// scroll and read-receipt reactions to any growth.
func (c *Controller) sync() {
	if c.chat.IsZero() {
		c.state = State{}
		c.renderer.Render(c.state)
		return
	}

	chatID := c.chat
	chat, _ := c.store.Chat(chatID)
	msgs := c.store.Messages(chatID)
	appended := c.appendedSince(msgs)
	if appended > 0 && c.newestKey != "" && !c.auto.Enabled() {
		for _, m := range msgs[len(msgs)-appended:] {
			if !m.SenderID.Equal(c.opts.UserID) {
				c.newBelow++
			}
		}
	}

	c.state = c.buildState(chat, msgs)
	c.renderer.Render(c.state)

	if appended > 0 && c.auto.Grew() {
		c.metrics.Snap()
	}
	if len(msgs) > c.lastCount && len(msgs) > 0 {
		c.sendReadReceipt(chatID)
	}

	c.lastCount = len(msgs)
	c.newestKey = ""
	if n := len(msgs); n > 0 {
		c.newestKey = msgs[n-1].ID.Key()
	}
}

// appendedSince counts messages added after the newest one seen by the
// previous sync. Prepended history is not counted.
func (c *Controller) appendedSince(msgs []model.Message) int {
	if len(msgs) == 0 {
		return 0
	}
	if c.newestKey == "" {
		return len(msgs)
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID.Key() == c.newestKey {
			return len(msgs) - 1 - i
		}
	}
	// The newest message was replaced, as when a placeholder is reconciled
	if n := len(msgs) - c.lastCount; n > 0 {
		return n
	}
	return 0
}

func (c *Controller) buildState(chat model.Chat, msgs []model.Message) State {
	nodes := c.cache.Group(msgs, transcript.Options{
		CurrentUserID: c.opts.UserID,
		IsGroup:       chat.IsGroup,
		Encrypted:     chat.Encrypted,
		Now:           c.loop.Now(),
		Location:      c.opts.Location,
		Labeler:       c.labeler,
		Logger:        c.logger.Named("transcript"),
	})
	hits, misses := c.cache.Stats()
	c.metrics.GroupCache(hits-c.cacheHits, misses-c.cacheMiss)
	c.cacheHits, c.cacheMiss = hits, misses

	state := State{
		ChatID:                 c.chat,
		Chat:                   chat,
		Nodes:                  nodes,
		IsAtBottom:             c.auto.AtBottom(),
		AutoScroll:             c.auto.Enabled(),
		HasMoreMessagesForChat: c.svc.HasMoreMessages(c.chat),
		LoadingMessages:        c.pager.Loading(c.chat),
		PageError:              c.pageErr,
		HasModeratorMessages:   hasModeratorMessages(chat, msgs),
		NewBelow:               c.newBelow,
		Typing:                 c.typing.State(),
	}
	for _, id := range c.store.PeersTyping(c.chat, c.loop.Now()) {
		state.PeersTyping = append(state.PeersTyping, chat.SenderName(id))
	}
	if !c.replyTo.IsZero() {
		if m, ok := c.store.Message(c.chat, c.replyTo); ok {
			state.ReplyTo = &m
		}
	}
	return state
}

// hasModeratorMessages prefers the server aggregate and falls back to a scan
// of the loaded messages.
func hasModeratorMessages(chat model.Chat, msgs []model.Message) bool {
	if chat.ModeratorMessages != nil {
		return *chat.ModeratorMessages > 0
	}
	for _, m := range msgs {
		if m.FromModerator || chat.IsModerator(m.SenderID) {
			return true
		}
	}
	return false
}

// refresh re-renders without growth reactions.
func (c *Controller) refresh() {
	if c.chat.IsZero() {
		return
	}
	chat, _ := c.store.Chat(c.chat)
	c.state = c.buildState(chat, c.store.Messages(c.chat))
	c.renderer.Render(c.state)
}

func (c *Controller) sendReadReceipt(chatID model.ID) {
	c.store.MarkRead(chatID)
	c.metrics.ReadReceipt()
	c.logger.Debug("read_receipt", zap.String("chat_id", chatID.String()))

	ctx := c.ctx
	var err error
	c.loop.Go(func() {
		err = c.svc.MarkAllMessagesAsRead(ctx, chatID)
	}, func() {
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Warn("read_receipt_failed", zap.String("chat_id", chatID.String()), zap.Error(err))
			return
		}
		c.emit(Event{Kind: EventReadReceipt, ChatID: chatID})
	})
}

func (c *Controller) emit(ev Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(ev)
	}
}

// =============================================================================
// PAGINATION HOOKS
// =============================================================================

func (c *Controller) onPageStarted(model.ID) {
	c.pageErr = nil
	c.refresh()
}

func (c *Controller) onPageLoaded(chatID model.ID, page model.Page, took time.Duration) {
	c.metrics.PageLoaded(took, nil)
	// Store notifies and the active chat re-syncs before the anchor restore
	c.store.Prepend(chatID, page.Messages)
	c.emit(Event{Kind: EventPageLoaded, ChatID: chatID})
}

func (c *Controller) onPageFailed(chatID model.ID, err error) {
	c.metrics.PageLoaded(0, err)
	c.pageErr = err
	c.refresh()
	c.emit(Event{Kind: EventPageFailed, ChatID: chatID, Err: err})
}

// =============================================================================
// INPUT
// =============================================================================

// OnScroll samples the surface after the user scrolled. The pagination
// trigger sees every sample; autoscroll evaluation is throttled.
func (c *Controller) OnScroll() {
	if c.chat.IsZero() {
		return
	}
	m := c.surface.Metrics()
	c.pager.Observe(m)
	c.auto.OnScroll(m)
}

func (c *Controller) onScrollEvaluated(atBottom bool) {
	if atBottom {
		c.newBelow = 0
	}
	c.refresh()
}

// LoadOlder requests older history now, without waiting for the trigger.
func (c *Controller) LoadOlder() bool {
	return c.pager.Fire(c.chat)
}

// JumpToBottom re-enables autoscroll and snaps to the newest message.
func (c *Controller) JumpToBottom() {
	if c.chat.IsZero() {
		return
	}
	c.auto.ForceBottom()
	c.metrics.Snap()
	c.newBelow = 0
	c.refresh()
}

// Keystroke reports the composer content after a key press.
func (c *Controller) Keystroke(text string) {
	prev := c.typing.State()
	c.typing.Keystroke(text)
	if c.typing.State() != prev {
		c.refresh()
	}
}

// SetReplyTo makes the composer reply to a loaded message.
func (c *Controller) SetReplyTo(id model.ID) error {
	if c.chat.IsZero() {
		return ErrNoActiveChat
	}
	if _, ok := c.store.Message(c.chat, id); !ok {
		return fmt.Errorf("reply to %s: %w", id, ErrMessageNotLoaded)
	}
	c.replyTo = id
	c.refresh()
	return nil
}

// ClearReply drops the reply target.
func (c *Controller) ClearReply() {
	c.replyTo = ""
	c.refresh()
}

// =============================================================================
// PUSH EVENTS
// =============================================================================

// Receive applies a push event from the service. Call it on the loop.
func (c *Controller) Receive(ev collab.Event) {
	switch {
	case ev.Message != nil:
		c.store.Append(ev.Message.ChatID, *ev.Message)
	case ev.Typing != nil:
		expires := c.loop.Now().Add(c.typingEndDelay())
		c.store.SetPeerTyping(*ev.Typing, expires)
		if ev.Typing.IsTyping && ev.Typing.ChatID.Equal(c.chat) {
			c.armPeerExpiry(c.chat)
		}
	case ev.Read != nil:
		c.store.ApplyRead(ev.Read.ChatID, ev.Read.UserID)
	}
}

func (c *Controller) typingEndDelay() time.Duration {
	if c.opts.Typing.EndDelay > 0 {
		return c.opts.Typing.EndDelay
	}
	return typing.EndDelay
}

// armPeerExpiry re-renders once the latest peer typing state expires.
func (c *Controller) armPeerExpiry(chatID model.ID) {
	if c.peerExpiry != nil {
		c.peerExpiry.Stop()
	}
	c.peerExpiry = c.loop.AfterFunc(c.typingEndDelay(), func() {
		c.peerExpiry = nil
		if !chatID.Equal(c.chat) {
			return
		}
		c.refresh()
	})
}

// =============================================================================
// OUTBOUND
// =============================================================================

// Send posts text to the active chat. A pending placeholder appears at once
// and the view snaps to the bottom regardless of where the user was. The
// returned id is the placeholder's; a failure arrives as EventSendFailed.
func (c *Controller) Send(text string) (model.ID, error) {
	if c.chat.IsZero() {
		return "", ErrNoActiveChat
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", collab.ErrEmptyMessage
	}
	return c.post(model.Message{
		Kind:    model.KindText,
		Content: text,
	}, nil), nil
}

// Upload posts an attachment to the active chat, like Send.
func (c *Controller) Upload(file model.File, kind model.Kind) (model.ID, error) {
	if c.chat.IsZero() {
		return "", ErrNoActiveChat
	}
	if !kind.IsAttachment() {
		return "", fmt.Errorf("upload %q: %w", kind, ErrNotAttachment)
	}
	return c.post(model.Message{
		Kind: kind,
		Attachment: &model.Attachment{
			Name:     file.Name,
			MIMEType: file.MIMEType,
			Size:     int64(len(file.Data)),
		},
	}, &file), nil
}

func (c *Controller) post(msg model.Message, file *model.File) model.ID {
	c.typing.Stop()

	msg.ID = model.NewTempID()
	msg.ChatID = c.chat
	msg.SenderID = c.opts.UserID
	msg.CreatedAt = model.At(c.loop.Now())
	msg.ReplyToID = c.replyTo
	msg.Pending = true
	c.replyTo = ""
	if file != nil {
		c.uploads[msg.ID.Key()] = *file
	}

	c.store.Append(msg.ChatID, msg)
	// Outbound always wins over a scrolled-up position
	c.auto.ForceBottom()
	c.metrics.Snap()
	c.newBelow = 0
	c.refresh()

	c.dispatch(msg)
	return msg.ID
}

// dispatch delivers a placeholder and reconciles the store with the outcome.
func (c *Controller) dispatch(placeholder model.Message) {
	var (
		sent model.Message
		err  error
	)
	ctx := c.ctx
	file, isUpload := c.uploads[placeholder.ID.Key()]
	kind := string(placeholder.Kind)

	c.loop.Go(func() {
		if isUpload {
			sent, err = c.svc.UploadFile(ctx, placeholder.ChatID, file, placeholder.Kind, placeholder.ReplyToID)
		} else {
			sent, err = c.svc.SendTextMessage(ctx, placeholder.ChatID, placeholder.Content, placeholder.ReplyToID)
		}
	}, func() {
		c.metrics.Sent(kind, err)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.logger.Warn("send_failed",
				zap.String("chat_id", placeholder.ChatID.String()),
				zap.String("temp_id", placeholder.ID.String()),
				zap.String("kind", kind),
				zap.Error(err))
			c.store.SetDelivery(placeholder.ChatID, placeholder.ID, false, true)
			evKind := EventSendFailed
			if isUpload {
				evKind = EventUploadFailed
			}
			c.emit(Event{Kind: evKind, ChatID: placeholder.ChatID, TempID: placeholder.ID, Err: err})
			return
		}
		delete(c.uploads, placeholder.ID.Key())
		c.store.Reconcile(placeholder.ChatID, placeholder.ID, sent)
		c.emit(Event{Kind: EventSent, ChatID: placeholder.ChatID, TempID: placeholder.ID, Message: &sent})
	})
}

// Retry resends a failed placeholder in the active chat.
func (c *Controller) Retry(tempID model.ID) error {
	if c.chat.IsZero() {
		return ErrNoActiveChat
	}
	msg, ok := c.store.Message(c.chat, tempID)
	if !ok {
		return fmt.Errorf("retry %s: %w", tempID, ErrMessageNotLoaded)
	}
	if !msg.Failed {
		return fmt.Errorf("retry %s: %w", tempID, ErrNotFailed)
	}
	c.store.SetDelivery(c.chat, tempID, true, false)
	msg.Pending, msg.Failed = true, false
	c.dispatch(msg)
	return nil
}

// Discard removes a failed placeholder from the active chat.
func (c *Controller) Discard(tempID model.ID) error {
	if c.chat.IsZero() {
		return ErrNoActiveChat
	}
	msg, ok := c.store.Message(c.chat, tempID)
	if !ok {
		return fmt.Errorf("discard %s: %w", tempID, ErrMessageNotLoaded)
	}
	if !msg.Failed {
		return fmt.Errorf("discard %s: %w", tempID, ErrNotFailed)
	}
	delete(c.uploads, tempID.Key())
	c.store.Remove(c.chat, tempID)
	return nil
}
