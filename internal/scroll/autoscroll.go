// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scroll

import (
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/schedule"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBottomThreshold is the distance from the bottom, in pixels, that
	// still counts as "at the bottom".
	DefaultBottomThreshold = 200

	// DefaultThrottleWindow rate-limits scroll evaluation.
	DefaultThrottleWindow = 200 * time.Millisecond

	// DefaultPaintDelay is when the second bottom snap runs, after the next
	// frame has been painted.
	DefaultPaintDelay = 16 * time.Millisecond

	// DefaultSwitchRetries bounds the bottom snaps after a chat switch.
	DefaultSwitchRetries = 5

	// DefaultSwitchRetryInterval spaces those snaps.
	DefaultSwitchRetryInterval = 50 * time.Millisecond
)

// =============================================================================
// AUTOSCROLL POLICY
// =============================================================================

// AutoScrollOptions configure an AutoScroll. Zero values take the defaults.
type AutoScrollOptions struct {
	Threshold           int
	ThrottleWindow      time.Duration
	PaintDelay          time.Duration
	SwitchRetries       int
	SwitchRetryInterval time.Duration

	// OnEvaluate runs after each throttled scroll evaluation.
	OnEvaluate func(atBottom bool)

	Logger *zap.Logger
}

// AutoScroll decides whether new content snaps the view to the bottom.
//
// Not safe for concurrent use; call it from the loop only.
type AutoScroll struct {
	sched   schedule.Scheduler
	surface Surface
	opts    AutoScrollOptions

	enabled  bool
	atBottom bool

	throttle    *schedule.Throttle
	paint       schedule.Handle
	switchRetry *schedule.RetryLoop
}

// NewAutoScroll creates an enabled policy for surface.
func NewAutoScroll(s schedule.Scheduler, surface Surface, opts AutoScrollOptions) *AutoScroll {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultBottomThreshold
	}
	if opts.ThrottleWindow <= 0 {
		opts.ThrottleWindow = DefaultThrottleWindow
	}
	if opts.PaintDelay <= 0 {
		opts.PaintDelay = DefaultPaintDelay
	}
	if opts.SwitchRetries <= 0 {
		opts.SwitchRetries = DefaultSwitchRetries
	}
	if opts.SwitchRetryInterval <= 0 {
		opts.SwitchRetryInterval = DefaultSwitchRetryInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AutoScroll{
		sched:       s,
		surface:     surface,
		opts:        opts,
		enabled:     true,
		atBottom:    true,
		throttle:    schedule.NewThrottle(s, opts.ThrottleWindow),
		switchRetry: schedule.NewRetryLoop(s, opts.SwitchRetryInterval, opts.SwitchRetries),
	}
}

// Enabled reports whether new content snaps to the bottom.
func (p *AutoScroll) Enabled() bool {
	return p.enabled
}

// AtBottom reports the latest evaluated position.
func (p *AutoScroll) AtBottom() bool {
	return p.atBottom
}

// OnScroll feeds a scroll sample. Evaluation is throttled; within a window
// only the most recent sample is evaluated.
func (p *AutoScroll) OnScroll(m Metrics) {
	p.throttle.Trigger(func() {
		p.evaluate(m)
	})
}

func (p *AutoScroll) evaluate(m Metrics) {
	if m.DistanceFromBottom() <= p.opts.Threshold {
		p.atBottom = true
		p.enabled = true
	} else {
		p.atBottom = false
		p.enabled = false
		// The user took over; stop fighting them
		p.switchRetry.Cancel()
		p.stopPaint()
	}
	if p.opts.OnEvaluate != nil {
		p.opts.OnEvaluate(p.atBottom)
	}
}

// Grew reacts to the transcript growing. When enabled it snaps to the bottom
// now and again after the next paint, and returns true.
func (p *AutoScroll) Grew() bool {
	if !p.enabled {
		return false
	}
	p.snapTwice()
	return true
}

// ForceBottom re-enables autoscroll and snaps regardless of position. Used
// for the local user's own sends.
func (p *AutoScroll) ForceBottom() {
	// A scroll sample queued before the send must not lock the view again
	p.throttle.Cancel()
	p.enabled = true
	p.atBottom = true
	p.snapTwice()
}

// ResetForSwitch re-enables autoscroll for a newly opened chat and snaps to
// the bottom repeatedly while its layout settles. The retries stop early if
// autoscroll is disabled in between.
func (p *AutoScroll) ResetForSwitch() {
	p.Cancel()
	p.enabled = true
	p.atBottom = true
	p.switchRetry.Start(func(int) bool {
		if !p.enabled {
			return true
		}
		p.snap()
		return false
	}, nil)
}

// Disable turns autoscroll off and drops any scheduled snap. Backward
// pagination calls it before loading so it can never cause a bottom snap.
func (p *AutoScroll) Disable() {
	p.enabled = false
	p.stopPaint()
	p.switchRetry.Cancel()
}

// Enable turns autoscroll back on without scrolling.
func (p *AutoScroll) Enable() {
	p.enabled = true
}

// Cancel drops the pending throttled evaluation and every scheduled snap.
func (p *AutoScroll) Cancel() {
	p.throttle.Cancel()
	p.stopPaint()
	p.switchRetry.Cancel()
}

func (p *AutoScroll) snapTwice() {
	p.snap()
	p.stopPaint()
	p.paint = p.sched.AfterFunc(p.opts.PaintDelay, func() {
		p.paint = nil
		if p.enabled {
			p.snap()
		}
	})
}

func (p *AutoScroll) snap() {
	m := p.surface.Metrics()
	p.surface.SetScrollTop(m.ScrollHeight, true)
}

func (p *AutoScroll) stopPaint() {
	if p.paint != nil {
		p.paint.Stop()
		p.paint = nil
	}
}
