// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the livechat TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection; NewTheme can also force either background.

# Color System (colors.go)

  - Cyan - own messages and the active chat
  - Purple - peer messages and sender names
  - Amber - moderator messages and unread badges
  - Rose - failed sends and page errors

Status helpers (RenderSuccess, RenderError, RenderWarning, RenderInfo) pair
every color with an ASCII indicator for colorblind users.

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	theme.SetSize(width, height)
	if theme.GetLayoutMode() == styles.LayoutNarrow {
		// hide the chat list
	}
*/
package styles
