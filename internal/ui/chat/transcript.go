// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/livechat-tui/internal/scroll"
	"github.com/jeranaias/livechat-tui/internal/session"
	"github.com/jeranaias/livechat-tui/internal/ui/styles"
)

// DefaultLineHeight is the pixel height assigned to one terminal row.
const DefaultLineHeight = 20

// =============================================================================
// TRANSCRIPT VIEW
// =============================================================================

// transcriptView is the scroll surface and renderer the session controller
// drives. It lives behind a pointer so every copy of Model shares it.
//
// Not safe for concurrent use; it is only touched from Update.
type transcriptView struct {
	vp         viewport.Model
	lineHeight int
	renderer   *messageRenderer

	state   session.State
	renders int
}

var (
	_ scroll.Surface   = (*transcriptView)(nil)
	_ session.Renderer = (*transcriptView)(nil)
)

func newTranscriptView(theme *styles.Theme, lineHeight int, showAvatars bool) *transcriptView {
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	vp := viewport.New(1, 1)
	vp.MouseWheelEnabled = true
	return &transcriptView{
		vp:         vp,
		lineHeight: lineHeight,
		renderer:   newMessageRenderer(theme, showAvatars),
	}
}

// Metrics implements scroll.Surface. Rows are converted to pixels.
func (t *transcriptView) Metrics() scroll.Metrics {
	return scroll.Metrics{
		ScrollHeight: t.vp.TotalLineCount() * t.lineHeight,
		ScrollTop:    t.vp.YOffset * t.lineHeight,
		ClientHeight: t.vp.Height * t.lineHeight,
	}
}

// SetScrollTop implements scroll.Surface. A terminal cannot animate, so
// immediate is irrelevant; the offset rounds to the nearest row.
func (t *transcriptView) SetScrollTop(top int, _ bool) {
	if top < 0 {
		top = 0
	}
	t.vp.SetYOffset((top + t.lineHeight/2) / t.lineHeight)
}

// Render implements session.Renderer. The viewport content is replaced
// synchronously so the controller can measure it right after.
func (t *transcriptView) Render(s session.State) {
	t.state = s
	t.renders++
	t.layout()
}

// layout re-renders the last state at the current width.
func (t *transcriptView) layout() {
	t.vp.SetContent(t.renderer.Transcript(t.state, t.vp.Width))
}

// SetSize resizes the viewport and re-wraps the content.
func (t *transcriptView) SetSize(width, height int) {
	width = max(width, 1)
	height = max(height, 1)
	if width == t.vp.Width && height == t.vp.Height {
		return
	}
	wasBottom := t.vp.AtBottom()
	t.vp.Width = width
	t.vp.Height = height
	t.layout()
	if wasBottom || t.state.AutoScroll {
		t.vp.GotoBottom()
	}
}

// ScrollLines moves the viewport by n rows; negative is up.
func (t *transcriptView) ScrollLines(n int) {
	if n < 0 {
		t.vp.LineUp(-n)
	} else if n > 0 {
		t.vp.LineDown(n)
	}
}

// Page moves by one viewport height; negative is up.
func (t *transcriptView) Page(dir int) {
	if dir < 0 {
		t.vp.ViewUp()
	} else {
		t.vp.ViewDown()
	}
}

// HandleMouse forwards wheel events. It reports whether the offset moved.
func (t *transcriptView) HandleMouse(msg tea.MouseMsg) bool {
	before := t.vp.YOffset
	t.vp, _ = t.vp.Update(msg)
	return t.vp.YOffset != before
}

// SetShowAvatars toggles avatar badges and re-renders.
func (t *transcriptView) SetShowAvatars(show bool) {
	if t.renderer.showAvatars == show {
		return
	}
	t.renderer.showAvatars = show
	t.renderer.reset()
	t.layout()
}

// View returns the visible rows.
func (t *transcriptView) View() string {
	return t.vp.View()
}
