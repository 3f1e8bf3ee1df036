// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pagination

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/schedule"
	"github.com/jeranaias/livechat-tui/internal/scroll"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultDebounce is how long the trigger must stay visible before a load.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultTriggerMargin extends the viewport above its top edge when
	// checking trigger visibility.
	DefaultTriggerMargin = 100

	// DefaultTriggerRatio is the visible fraction of the trigger that counts.
	DefaultTriggerRatio = 0.5

	// DefaultTriggerHeight is the height of the trigger region at the top of
	// the content.
	DefaultTriggerHeight = 40
)

// =============================================================================
// INTERFACES
// =============================================================================

// Loader fetches the next older page of a chat. The loader keeps the cursor;
// every call continues where the previous one stopped.
type Loader interface {
	LoadMessages(ctx context.Context, chatID model.ID) (model.Page, error)
}

// Hooks receive load lifecycle notifications on the loop.
type Hooks struct {
	// Started runs after autoscroll is disabled and before the request.
	Started func(chatID model.ID)

	// Loaded runs with a successful page. It must commit the new messages to
	// the surface before returning; the anchor is restored right after. It
	// also runs for a chat that is no longer active, so the page is not lost,
	// but no scroll correction follows.
	Loaded func(chatID model.ID, page model.Page, took time.Duration)

	// Failed runs when the request fails for the active chat.
	Failed func(chatID model.ID, err error)

	// Settled runs when the anchor restore finishes.
	Settled func(chatID model.ID, result scroll.RestoreResult)
}

// Options configure a Controller. Zero values take the defaults.
type Options struct {
	Debounce      time.Duration
	TriggerMargin int
	TriggerRatio  float64
	TriggerHeight int
	Logger        *zap.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller drives backward pagination for the active chat.
//
// Not safe for concurrent use; call it from the loop only.
type Controller struct {
	loop    schedule.Loop
	loader  Loader
	surface scroll.Surface
	anchors *scroll.AnchorManager
	auto    *scroll.AutoScroll
	hasMore func(chatID model.ID) bool
	hooks   Hooks
	opts    Options
	logger  *zap.Logger

	debounce *schedule.Debouncer
	chat     model.ID
	visible  bool
	inFlight map[string]int

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a pagination controller. hasMore reports whether the loader has
// older history for a chat.
func New(loop schedule.Loop, loader Loader, surface scroll.Surface, anchors *scroll.AnchorManager,
	auto *scroll.AutoScroll, hasMore func(model.ID) bool, hooks Hooks, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.TriggerMargin < 0 {
		opts.TriggerMargin = 0
	} else if opts.TriggerMargin == 0 {
		opts.TriggerMargin = DefaultTriggerMargin
	}
	if opts.TriggerRatio <= 0 || opts.TriggerRatio > 1 {
		opts.TriggerRatio = DefaultTriggerRatio
	}
	if opts.TriggerHeight <= 0 {
		opts.TriggerHeight = DefaultTriggerHeight
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		loop:     loop,
		loader:   loader,
		surface:  surface,
		anchors:  anchors,
		auto:     auto,
		hasMore:  hasMore,
		hooks:    hooks,
		opts:     opts,
		logger:   opts.Logger,
		debounce: schedule.NewDebouncer(loop, opts.Debounce),
		inFlight: make(map[string]int),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetChat makes chatID the active chat. A pending debounce is cancelled; a
// request already in flight for the previous chat completes without
// touching the scroll position.
func (c *Controller) SetChat(chatID model.ID) {
	c.debounce.Cancel()
	c.anchors.Cancel()
	c.chat = chatID
	c.visible = false
}

// Chat returns the active chat.
func (c *Controller) Chat() model.ID {
	return c.chat
}

// Loading reports whether a request is outstanding for chatID.
func (c *Controller) Loading(chatID model.ID) bool {
	return c.inFlight[chatID.Key()] > 0
}

// TriggerVisible reports whether the trigger region intersects the viewport
// (extended by TriggerMargin above) by at least TriggerRatio.
func (c *Controller) TriggerVisible(m scroll.Metrics) bool {
	top := m.ScrollTop - c.opts.TriggerMargin
	bottom := m.ScrollTop + m.ClientHeight
	overlap := min(bottom, c.opts.TriggerHeight) - max(top, 0)
	if overlap <= 0 {
		return false
	}
	return float64(overlap)/float64(c.opts.TriggerHeight) >= c.opts.TriggerRatio
}

// Observe checks the trigger against a scroll sample. The trigger becoming
// visible arms the debounce; leaving the viewport cancels it.
func (c *Controller) Observe(m scroll.Metrics) {
	visible := c.TriggerVisible(m)
	if visible == c.visible {
		return
	}
	c.visible = visible
	if !visible {
		c.debounce.Cancel()
		return
	}
	chat := c.chat
	c.debounce.Trigger(func() {
		c.Fire(chat)
	})
}

// Fire starts a load for chatID unless no chat is active, chatID is not the
// active chat, there is no more history or a load is already in flight.
// Returns true if a request was issued.
func (c *Controller) Fire(chatID model.ID) bool {
	if c.hasMore != nil && c.isActive(chatID) && !c.hasMore(chatID) {
		return false
	}
	return c.start(chatID, true, false)
}

// LoadInitial requests the newest page of an empty transcript. It shares the
// single-flight guard with Fire but neither anchors the scroll position nor
// disables autoscroll, and it does not consult hasMore: a chat whose first
// page came back empty may still be filling in.
func (c *Controller) LoadInitial(chatID model.ID) bool {
	return c.start(chatID, false, false)
}

// LoadInitialForce is LoadInitial without the single-flight guard. It is for
// a chat whose first page may arrive incrementally, where a second request
// must go out even while the first is outstanding. It still only loads for
// the active chat.
func (c *Controller) LoadInitialForce(chatID model.ID) bool {
	return c.start(chatID, false, true)
}

func (c *Controller) isActive(chatID model.ID) bool {
	return !c.chat.IsZero() && chatID.Equal(c.chat)
}

func (c *Controller) start(chatID model.ID, anchored, force bool) bool {
	if !c.isActive(chatID) {
		return false
	}
	key := chatID.Key()
	if c.inFlight[key] > 0 && !force {
		return false
	}

	c.inFlight[key]++
	var anchor *scroll.Anchor
	if anchored {
		a := c.anchors.Capture()
		anchor = &a
		c.auto.Disable()
	}
	if c.hooks.Started != nil {
		c.hooks.Started(chatID)
	}

	var (
		page model.Page
		err  error
	)
	ctx := c.ctx
	start := c.loop.Now()
	c.loop.Go(func() {
		page, err = c.loader.LoadMessages(ctx, chatID)
	}, func() {
		c.complete(chatID, anchor, page, err, c.loop.Now().Sub(start))
	})
	return true
}

func (c *Controller) complete(chatID model.ID, anchor *scroll.Anchor, page model.Page, err error, took time.Duration) {
	key := chatID.Key()
	if c.inFlight[key]--; c.inFlight[key] <= 0 {
		delete(c.inFlight, key)
	}
	if c.ctx.Err() != nil {
		return
	}
	active := chatID.Equal(c.chat)

	if err != nil {
		c.logger.Warn("page_failed",
			zap.String("chat_id", chatID.String()),
			zap.Duration("took", took),
			zap.Error(err))
		if !active {
			return
		}
		if anchor != nil {
			c.auto.Enable()
		}
		if c.hooks.Failed != nil {
			c.hooks.Failed(chatID, err)
		}
		return
	}

	c.logger.Info("page_loaded",
		zap.String("chat_id", chatID.String()),
		zap.Int("count", len(page.Messages)),
		zap.Bool("has_more", page.HasMore),
		zap.Duration("took", took))
	if c.hooks.Loaded != nil {
		c.hooks.Loaded(chatID, page, took)
	}
	if !active || anchor == nil {
		return
	}

	c.anchors.Restore(*anchor, func(r scroll.RestoreResult) {
		if c.hooks.Settled != nil {
			c.hooks.Settled(chatID, r)
		}
		if r == scroll.Cancelled || !chatID.Equal(c.chat) {
			return
		}
		// A short page can leave the trigger in view; look again
		c.visible = false
		c.Observe(c.surface.Metrics())
	})
}

// Cancel drops the pending debounce and any anchor restore.
func (c *Controller) Cancel() {
	c.debounce.Cancel()
	c.anchors.Cancel()
}

// Close cancels everything and abandons outstanding requests. Completions
// that arrive afterwards are ignored.
func (c *Controller) Close() {
	c.Cancel()
	c.cancel()
	c.chat = ""
	c.visible = false
}
