// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/session"
	"github.com/jeranaias/livechat-tui/internal/transcript"
	"github.com/jeranaias/livechat-tui/internal/ui/styles"
	"github.com/jeranaias/livechat-tui/internal/util"
)

const (
	// avatarWidth matches styles.Theme.Avatar plus one column of gap.
	avatarWidth = 5

	// maxCachedBlocks bounds the rendered message cache.
	maxCachedBlocks = 4096

	replyPreviewLen = 60
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// messageRenderer turns transcript nodes into terminal rows. Rendered
// message blocks are cached by everything that affects their look.
type messageRenderer struct {
	theme       *styles.Theme
	userID      model.ID
	loc         *time.Location
	showAvatars bool

	md      *glamour.TermRenderer
	mdWidth int
	blocks  map[string]string
}

func newMessageRenderer(theme *styles.Theme, showAvatars bool) *messageRenderer {
	return &messageRenderer{
		theme:       theme,
		loc:         time.Local,
		showAvatars: showAvatars,
		blocks:      make(map[string]string),
	}
}

func (r *messageRenderer) reset() {
	clear(r.blocks)
}

// Transcript renders the whole state at width columns.
func (r *messageRenderer) Transcript(s session.State, width int) string {
	if !s.Active() {
		return r.theme.LoadingHint.Width(width).Render("Select a chat to start")
	}

	var b strings.Builder
	if !s.HasMoreMessagesForChat && s.MessageCount() > 0 {
		b.WriteString(r.theme.LoadingHint.Width(width).Render("· beginning of conversation ·"))
		b.WriteByte('\n')
	}
	if s.HasModeratorMessages {
		b.WriteString(r.theme.LoadingHint.Width(width).Render("moderators are active in this chat"))
		b.WriteByte('\n')
	}
	if s.MessageCount() == 0 && !s.LoadingMessages {
		b.WriteString(r.theme.LoadingHint.Width(width).Render("No messages yet"))
		return b.String()
	}

	var prev model.ID
	for i, node := range s.Nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		if node.Kind == transcript.NodeSeparator {
			b.WriteString(r.separator(node.Label, width))
			prev = ""
			continue
		}
		showName := s.Chat.IsGroup && !node.Message.SenderID.Equal(prev)
		b.WriteString(r.message(s.Chat, node, showName, width))
		prev = node.Message.SenderID
	}
	return b.String()
}

func (r *messageRenderer) separator(label string, width int) string {
	text := " " + label + " "
	side := max((width-lipgloss.Width(text))/2, 0)
	rule := strings.Repeat("─", side)
	return r.theme.Separator.Width(width).Render(rule + text + rule)
}

func (r *messageRenderer) message(chat model.Chat, node transcript.Node, showName bool, width int) string {
	msg := node.Message
	key := blockKey(node, showName, width, r.showAvatars)
	if block, ok := r.blocks[key]; ok {
		return block
	}

	own := msg.SenderID.Equal(r.userID)
	moderator := msg.FromModerator || chat.IsModerator(msg.SenderID)

	bubbleStyle := r.theme.PeerBubble
	switch {
	case own:
		bubbleStyle = r.theme.OwnBubble
	case moderator:
		bubbleStyle = r.theme.ModeratorBubble
	}

	indent := 0
	if !own && r.showAvatars {
		indent = avatarWidth
	}
	maxBubble := max(width*3/4, 12) - indent
	inner := max(maxBubble-4, 4)

	var parts []string
	if node.ReplyPreview != nil {
		preview := chat.SenderName(node.ReplyPreview.SenderID) + ": " + node.ReplyPreview.Preview(replyPreviewLen)
		parts = append(parts, r.theme.ReplyPreview.Render(util.TruncateWidth(preview, inner-2)))
	} else if node.ReplyMissing {
		parts = append(parts, r.theme.ReplyMissing.Render("original message not loaded"))
	}
	parts = append(parts, r.body(msg, inner))

	body := lipgloss.JoinVertical(lipgloss.Left, parts...)
	bubble := bubbleStyle.Width(min(lipgloss.Width(body), inner) + 2).Render(body)

	var meta []string
	if msg.CreatedAt.Valid() {
		meta = append(meta, msg.CreatedAt.In(r.loc).Format("15:04"))
	}
	switch {
	case msg.Failed:
		meta = append(meta, r.theme.Failed.Render("not sent · C-t retry · C-x discard"))
	case msg.Pending:
		meta = append(meta, r.theme.Pending.Render("sending…"))
	case own && len(msg.ReadBy) > 0:
		meta = append(meta, "read")
	}
	footer := r.theme.Timestamp.Render(strings.Join(meta, " · "))

	var block string
	if own {
		block = lipgloss.JoinVertical(lipgloss.Right, bubble, footer)
		block = lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
	} else {
		rows := []string{}
		if showName {
			name := chat.SenderName(msg.SenderID)
			if moderator {
				name += " (moderator)"
			}
			rows = append(rows, r.theme.SenderName.Render(name))
		}
		rows = append(rows, bubble, footer)
		block = lipgloss.JoinVertical(lipgloss.Left, rows...)
		if indent > 0 {
			avatar := strings.Repeat(" ", avatarWidth)
			if node.ShowAvatar {
				avatar = r.theme.Avatar.Render(initials(chat.SenderName(msg.SenderID))) + " "
			}
			block = lipgloss.JoinHorizontal(lipgloss.Bottom, avatar, block)
		}
	}

	if len(r.blocks) >= maxCachedBlocks {
		r.reset()
	}
	r.blocks[key] = block
	return block
}

func (r *messageRenderer) body(msg model.Message, width int) string {
	if msg.Attachment != nil {
		label := fmt.Sprintf("[%s] %s (%s)", msg.Kind, msg.Attachment.Name, formatSize(msg.Attachment.Size))
		text := r.theme.Attachment.Render(util.TruncateWidth(label, width))
		if msg.Content != "" {
			text += "\n" + lipgloss.NewStyle().Width(width).Render(msg.Content)
		}
		return text
	}
	if looksLikeMarkdown(msg.Content) {
		if out, err := r.markdown(msg.Content, width); err == nil {
			return out
		}
	}
	content := msg.Content
	if lipgloss.Width(content) > width {
		content = lipgloss.NewStyle().Width(width).Render(content)
	}
	return content
}

// markdown renders content with glamour, rebuilding the renderer when the
// wrap width changes.
func (r *messageRenderer) markdown(content string, width int) (string, error) {
	if r.md == nil || r.mdWidth != width {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.markdownStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", err
		}
		r.md, r.mdWidth = md, width
	}
	out, err := r.md.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

func (r *messageRenderer) markdownStyle() string {
	switch {
	case r.theme.ColorProfile == termenv.Ascii:
		return "notty"
	case r.theme.IsDark:
		return "dark"
	default:
		return "light"
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func blockKey(node transcript.Node, showName bool, width int, avatars bool) string {
	msg := node.Message
	reply := ""
	if node.ReplyPreview != nil {
		reply = node.ReplyPreview.ID.Key()
	}
	return fmt.Sprintf("%s|%d|%t|%t|%t|%t|%t|%d|%t|%s|%d|%s",
		node.Key(), width, showName, avatars, node.ShowAvatar,
		msg.Pending, msg.Failed, len(msg.ReadBy), node.ReplyMissing, reply,
		msg.CreatedAt.UnixMilli(), msg.Content)
}

func looksLikeMarkdown(s string) bool {
	if strings.Contains(s, "```") || strings.Contains(s, "**") || strings.Contains(s, "](") {
		return true
	}
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "> ") {
			return true
		}
	}
	return false
}

// initials returns up to two uppercase initials of name.
func initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			out = append(out, unicode.ToUpper(r))
			break
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
