// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// CHAT LIST STYLES
	// ==========================================================================

	ChatList       lipgloss.Style
	ChatItem       lipgloss.Style
	ChatItemActive lipgloss.Style
	UnreadBadge    lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT STYLES
	// ==========================================================================

	Separator       lipgloss.Style
	SenderName      lipgloss.Style
	Avatar          lipgloss.Style
	OwnBubble       lipgloss.Style
	PeerBubble      lipgloss.Style
	ModeratorBubble lipgloss.Style
	Timestamp       lipgloss.Style
	ReplyPreview    lipgloss.Style
	ReplyMissing    lipgloss.Style
	Attachment      lipgloss.Style
	Pending         lipgloss.Style
	Failed          lipgloss.Style
	LoadingHint     lipgloss.Style
	PageError       lipgloss.Style

	// ==========================================================================
	// FOOTER STYLES
	// ==========================================================================

	TypingLine     lipgloss.Style
	NewBelow       lipgloss.Style
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	ReplyBar       lipgloss.Style
	StatusBar      lipgloss.Style
	ShortcutKey    lipgloss.Style
	ShortcutDesc   lipgloss.Style
}

// NewTheme creates a new theme with all styles configured. mode is "dark",
// "light" or "auto" (detect from the terminal).
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()
	isDark := true
	switch strings.ToLower(mode) {
	case "dark":
	case "light":
		isDark = false
	default:
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	// Header
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Chat list
	t.ChatList = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)

	t.ChatItem = lipgloss.NewStyle().
		Foreground(TextSecondary).
		PaddingLeft(1)

	t.ChatItemActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Cyan)

	t.UnreadBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Amber).
		Padding(0, 1)

	// Transcript
	t.Separator = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Center)

	t.SenderName = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.Avatar = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Purple).
		Width(4).
		Align(lipgloss.Center)

	t.OwnBubble = lipgloss.NewStyle().
		Foreground(OwnBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OwnBubbleBorder).
		Padding(0, 1)

	t.PeerBubble = lipgloss.NewStyle().
		Foreground(PeerBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(PeerBubbleBorder).
		Padding(0, 1)

	t.ModeratorBubble = lipgloss.NewStyle().
		Foreground(ModeratorBubbleFg).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(ModeratorBubbleBorder).
		Padding(0, 1)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ReplyPreview = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Purple).
		PaddingLeft(1)

	t.ReplyMissing = t.ReplyPreview.
		Italic(true).
		Foreground(TextMuted)

	t.Attachment = lipgloss.NewStyle().
		Foreground(Cyan).
		Underline(true)

	t.Pending = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Failed = lipgloss.NewStyle().
		Foreground(ErrorHighContrast).
		Bold(true)

	t.LoadingHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Align(lipgloss.Center)

	t.PageError = lipgloss.NewStyle().
		Foreground(Rose).
		Align(lipgloss.Center)

	// Footer
	t.TypingLine = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.NewBelow = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Cyan).
		Padding(0, 1)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ReplyBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, chat list hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
