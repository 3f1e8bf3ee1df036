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
	// DefaultAnchorTolerance is how close the settled offset must be to the
	// target for a restore to count as done.
	DefaultAnchorTolerance = 10

	// DefaultAnchorRetries bounds restore attempts.
	DefaultAnchorRetries = 5

	// DefaultAnchorRetryDelay spaces restore attempts while layout settles.
	DefaultAnchorRetryDelay = 16 * time.Millisecond
)

// =============================================================================
// ANCHOR MANAGER
// =============================================================================

// Anchor is a snapshot taken right before history is prepended.
type Anchor struct {
	ScrollHeight int
	ScrollTop    int
}

// RestoreResult reports how a restore ended.
type RestoreResult int

const (
	// Restored means the offset settled within tolerance of the target.
	Restored RestoreResult = iota
	// Discarded means the content height never changed.
	Discarded
	// Unsettled means the height changed but the offset never landed within
	// tolerance before the attempt budget ran out.
	Unsettled
	// Cancelled means Cancel was called before the restore finished.
	Cancelled
)

// String returns the result name.
func (r RestoreResult) String() string {
	switch r {
	case Restored:
		return "restored"
	case Discarded:
		return "discarded"
	case Unsettled:
		return "unsettled"
	default:
		return "cancelled"
	}
}

// AnchorOptions configure an AnchorManager. Zero values take the defaults.
type AnchorOptions struct {
	Tolerance  int
	Retries    int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// AnchorManager keeps the visible content still across a history prepend.
//
// Not safe for concurrent use; call it from the loop only.
type AnchorManager struct {
	surface   Surface
	tolerance int
	retry     *schedule.RetryLoop
	logger    *zap.Logger

	done func(RestoreResult)
}

// NewAnchorManager creates an anchor manager writing to surface.
func NewAnchorManager(s schedule.Scheduler, surface Surface, opts AnchorOptions) *AnchorManager {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultAnchorTolerance
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultAnchorRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultAnchorRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AnchorManager{
		surface:   surface,
		tolerance: opts.Tolerance,
		retry:     schedule.NewRetryLoop(s, opts.RetryDelay, opts.Retries),
		logger:    opts.Logger,
	}
}

// Capture records the current metrics. Call it before the mutation.
func (a *AnchorManager) Capture() Anchor {
	m := a.surface.Metrics()
	return Anchor{ScrollHeight: m.ScrollHeight, ScrollTop: m.ScrollTop}
}

// Restore shifts the viewport down by however much the content grew since
// anchor was captured. Call it after the mutation is committed to the
// surface. The first attempt runs synchronously; later attempts re-measure
// after RetryDelay. done, if not nil, runs once with the outcome.
//
// A restore in progress is cancelled first.
func (a *AnchorManager) Restore(anchor Anchor, done func(RestoreResult)) {
	a.Cancel()
	a.done = done

	grew := false
	a.retry.Start(func(n int) bool {
		m := a.surface.Metrics()
		delta := m.ScrollHeight - anchor.ScrollHeight
		if delta <= 0 {
			return false
		}
		grew = true
		target := anchor.ScrollTop + delta
		a.surface.SetScrollTop(target, true)

		settled := a.surface.Metrics().ScrollTop
		if abs(settled-target) > a.tolerance {
			return false
		}
		a.logger.Debug("anchor_restored",
			zap.Int("delta", delta),
			zap.Int("scroll_top", settled),
			zap.Int("attempt", n))
		a.finish(Restored)
		return true
	}, func() {
		if grew {
			a.logger.Debug("anchor_unsettled", zap.Int("attempts", a.retry.MaxAttempts()))
			a.finish(Unsettled)
			return
		}
		a.logger.Debug("anchor_discarded", zap.Int("attempts", a.retry.MaxAttempts()))
		a.finish(Discarded)
	})
}

// Cancel stops a restore in progress. Its done callback receives Cancelled.
func (a *AnchorManager) Cancel() {
	if !a.retry.Running() {
		return
	}
	a.retry.Cancel()
	a.finish(Cancelled)
}

// Restoring reports whether a restore is still retrying.
func (a *AnchorManager) Restoring() bool {
	return a.retry.Running()
}

func (a *AnchorManager) finish(r RestoreResult) {
	done := a.done
	a.done = nil
	if done != nil {
		done(r)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
