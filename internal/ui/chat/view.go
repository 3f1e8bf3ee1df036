// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/livechat-tui/internal/session"
	"github.com/jeranaias/livechat-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	state := m.ctrl.State()

	column := m.width - m.chatListWidth()
	transcript := m.view.View()
	if m.showHelp {
		transcript = lipgloss.Place(column, m.view.vp.Height, lipgloss.Center, lipgloss.Center,
			m.help.FullHelpView(m.keys.FullHelp()))
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		transcript,
		m.renderIndicator(state, column),
		m.renderInput(column),
		m.renderStatusBar(state, column),
	)

	body := main
	if m.chatListWidth() > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderChatList(m.height-headerHeight), main)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(state), body)
}

func (m Model) renderHeader(state session.State) string {
	title := m.theme.HeaderTitle.Render("livechat")
	if state.Active() {
		name := state.Chat.Title
		if name == "" {
			name = state.ChatID.String()
		}
		title += "  " + name

		var facts []string
		if state.Chat.IsGroup {
			facts = append(facts, fmt.Sprintf("%d members", len(state.Chat.Members)))
		}
		if state.Chat.Encrypted {
			facts = append(facts, "encrypted")
		}
		if len(facts) > 0 {
			title += "  " + m.theme.HeaderSubtitle.Render(strings.Join(facts, " · "))
		}
	}
	return m.theme.Header.Width(m.width).MaxHeight(headerHeight).Render(title)
}

func (m Model) renderChatList(height int) string {
	width := m.chatListWidth() - 2
	active := m.ctrl.Chat()

	var rows []string
	for _, summary := range m.store.Chats() {
		title := summary.Chat.Title
		if title == "" {
			title = summary.Chat.ID.String()
		}
		badge := ""
		if summary.Unread > 0 && !summary.Chat.ID.Equal(active) {
			badge = m.theme.UnreadBadge.Render(fmt.Sprintf("%d", summary.Unread))
		}
		avail := width - lipgloss.Width(badge) - 2
		title = util.TruncateWidth(title, avail)
		gap := strings.Repeat(" ", max(avail-util.StringWidth(title), 0)+1)

		style := m.theme.ChatItem
		if summary.Chat.ID.Equal(active) {
			style = m.theme.ChatItemActive
		}
		rows = append(rows, style.Render(title+gap+badge))
	}
	return m.theme.ChatList.Width(width).Height(height).MaxHeight(height).
		Render(strings.Join(rows, "\n"))
}

// renderIndicator is the line between the transcript and the composer:
// history loading state or peer typing on the left, the new-below badge on
// the right.
func (m Model) renderIndicator(state session.State, width int) string {
	var left string
	switch {
	case state.PageError != nil:
		left = m.theme.PageError.Render("couldn't load older messages · C-l retry")
	case state.LoadingMessages:
		left = m.spinner.View() + " " + m.theme.LoadingHint.Render("loading older messages")
	case len(state.PeersTyping) > 0:
		left = m.theme.TypingLine.Render(typingText(state.PeersTyping))
	}

	var right string
	switch {
	case state.NewBelow > 0:
		right = m.theme.NewBelow.Render(fmt.Sprintf("↓ %d new · C-g", state.NewBelow))
	case state.Active() && !state.IsAtBottom && state.MessageCount() > 0:
		right = m.theme.Timestamp.Render("↓ C-g newest")
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return lipgloss.NewStyle().MaxWidth(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderInput(width int) string {
	return m.theme.InputContainer.Width(max(width-2, 1)).Render(m.input.View())
}

func (m Model) renderStatusBar(state session.State, width int) string {
	var text string
	switch {
	case state.ReplyTo != nil:
		preview := state.Chat.SenderName(state.ReplyTo.SenderID) + ": " + state.ReplyTo.Preview(replyPreviewLen)
		text = "replying to " + preview + " · Esc cancel"
		return m.theme.ReplyBar.Width(width).MaxHeight(1).Render(util.TruncateWidth(text, width-2))
	case m.notice.isErr:
		text = m.theme.Failed.Render(m.notice.text)
	case m.notice.text != "":
		text = m.notice.text
	default:
		text = m.help.ShortHelpView(m.keys.ShortHelp())
	}
	return m.theme.StatusBar.Width(width).MaxHeight(1).Render(text)
}

// typingText phrases the typing line for one or more peers.
func typingText(names []string) string {
	switch len(names) {
	case 1:
		return names[0] + " is typing…"
	case 2:
		return names[0] + " and " + names[1] + " are typing…"
	default:
		return fmt.Sprintf("%s and %d others are typing…", names[0], len(names)-1)
	}
}
