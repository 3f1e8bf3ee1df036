// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface. The composer
// always has focus, so no binding uses a bare printable key.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	LoadOlder   key.Binding
	Bottom      key.Binding
	Submit      key.Binding
	NextChat    key.Binding
	PrevChat    key.Binding
	Reply       key.Binding
	CancelReply key.Binding
	Retry       key.Binding
	Discard     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		LoadOlder: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "load older"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "jump to newest"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		NextChat: key.NewBinding(
			key.WithKeys("tab", "ctrl+n"),
			key.WithHelp("Tab", "next chat"),
		),
		PrevChat: key.NewBinding(
			key.WithKeys("shift+tab", "ctrl+p"),
			key.WithHelp("S-Tab", "previous chat"),
		),
		Reply: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reply to last"),
		),
		CancelReply: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel reply"),
		),
		Retry: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "retry failed"),
		),
		Discard: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "discard failed"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.NextChat, k.LoadOlder, k.Help, k.Quit}
}

// FullHelp returns every binding, grouped for the help overlay.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.LoadOlder, k.Bottom},
		{k.Submit, k.Reply, k.CancelReply, k.Retry, k.Discard},
		{k.NextChat, k.PrevChat, k.Help, k.Quit},
	}
}
