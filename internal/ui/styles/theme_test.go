// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme("dark")
	assert.True(t, dark.IsDark)

	light := NewTheme("LIGHT")
	assert.False(t, light.IsDark)
}

func TestTheme_StylesRender(t *testing.T) {
	theme := NewTheme("dark")
	styles := map[string]lipgloss.Style{
		"OwnBubble":       theme.OwnBubble,
		"PeerBubble":      theme.PeerBubble,
		"ModeratorBubble": theme.ModeratorBubble,
		"Separator":       theme.Separator,
		"ReplyPreview":    theme.ReplyPreview,
		"StatusBar":       theme.StatusBar,
		"InputContainer":  theme.InputContainer,
	}
	for name, style := range styles {
		assert.Contains(t, style.Render("hello"), "hello", name)
	}

	// Bordered bubbles add lines around the content.
	assert.Equal(t, 3, lipgloss.Height(theme.OwnBubble.Render("x")))
}

func TestTheme_LayoutMode(t *testing.T) {
	theme := NewTheme("dark")
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		assert.Equal(t, tt.want, theme.GetLayoutMode(), "width %d", tt.width)
	}
}

func TestRenderHelpers_IncludeIndicators(t *testing.T) {
	assert.True(t, strings.Contains(RenderSuccess("sent"), StatusIndicators.Success))
	assert.True(t, strings.Contains(RenderError("failed"), StatusIndicators.Error))
	assert.True(t, strings.Contains(RenderWarning("slow"), StatusIndicators.Warning))
	assert.True(t, strings.Contains(RenderInfo("hint"), StatusIndicators.Info))
}
