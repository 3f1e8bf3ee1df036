// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the chat screen of the livechat TUI.

The screen is a chat list beside the live transcript of the active chat,
with the composer underneath. All transcript behavior lives in the session
controller; this package adapts it to Bubble Tea.

# Key Types

  - Model: the Bubble Tea model (chat list, transcript, composer, status)
  - KeyMap: keyboard bindings, rendered through bubbles/help
  - ConfigReloadedMsg: sent by the config watcher for hot reload

# Scroll Surface

The transcript viewport implements scroll.Surface. Terminal rows are
converted to pixels with a fixed line height (20 by default), so scroll
thresholds configured in pixels keep their meaning.

# Threading

Construct the model with a schedule.TeaLoop so controller timers and
service completions arrive as schedule.RunMsg values, which Update runs.
Push events from the publisher are posted onto the same loop.

# Usage

	loop := schedule.NewTeaLoop()
	m := chat.New(chat.Options{Loop: loop, Service: svc, Directory: svc, Publisher: svc})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	loop.Attach(p)
	_, err := p.Run()
*/
package chat
