// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scroll

// =============================================================================
// SURFACE
// =============================================================================

// Metrics is a snapshot of a scroll container, in pixels.
type Metrics struct {
	ScrollHeight int // total content height
	ScrollTop    int // offset of the first visible pixel
	ClientHeight int // visible height
}

// DistanceFromBottom returns how far the viewport bottom is from the end of
// the content.
func (m Metrics) DistanceFromBottom() int {
	return m.ScrollHeight - m.ScrollTop - m.ClientHeight
}

// MaxScrollTop returns the largest valid offset.
func (m Metrics) MaxScrollTop() int {
	if limit := m.ScrollHeight - m.ClientHeight; limit > 0 {
		return limit
	}
	return 0
}

// Surface is the scroll container the controller drives.
type Surface interface {
	// Metrics measures the container as currently laid out.
	Metrics() Metrics

	// SetScrollTop moves the viewport. immediate disables any smooth-scroll
	// animation for this one assignment. Implementations clamp top to the
	// valid range.
	SetScrollTop(top int, immediate bool)
}

// =============================================================================
// MEMORY SURFACE
// =============================================================================

// MemorySurface is a Surface without a rendering backend. The line-mode REPL
// drives one, and tests use it to script layout changes.
type MemorySurface struct {
	Height int
	Top    int
	Client int

	// Writes counts SetScrollTop calls.
	Writes int
	// LastImmediate records the mode of the latest write.
	LastImmediate bool
}

// NewMemorySurface creates a surface with the given content and viewport
// heights, scrolled to the top.
func NewMemorySurface(height, client int) *MemorySurface {
	return &MemorySurface{Height: height, Client: client}
}

// Metrics implements Surface.
func (s *MemorySurface) Metrics() Metrics {
	return Metrics{ScrollHeight: s.Height, ScrollTop: s.Top, ClientHeight: s.Client}
}

// SetScrollTop implements Surface.
func (s *MemorySurface) SetScrollTop(top int, immediate bool) {
	s.Writes++
	s.LastImmediate = immediate
	s.Top = clamp(top, 0, s.Metrics().MaxScrollTop())
}

// Prepend grows the content above the viewport by px without moving
// ScrollTop, the way a browser lays out inserted history.
func (s *MemorySurface) Prepend(px int) {
	s.Height += px
}

// Append grows the content below the viewport by px.
func (s *MemorySurface) Append(px int) {
	s.Height += px
}

// ScrollToTop moves the viewport to the first pixel, as a user would.
func (s *MemorySurface) ScrollToTop() {
	s.Top = 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
