// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/livechat-tui/internal/config"
	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/session"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// chatsLoadedMsg carries the chat directory listing.
type chatsLoadedMsg struct {
	chats []model.Chat
	err   error
}

// ConfigReloadedMsg is sent by the config watcher after the file changed.
// Err is set when the new contents did not load.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// notice is the one-line status message shown in the status bar.
type notice struct {
	text  string
	isErr bool
}

// eventLog collects controller events between renders. The controller calls
// it on the loop, which is the Update goroutine.
type eventLog struct {
	latest notice
	failed model.ID
}

func (l *eventLog) record(ev session.Event) {
	switch ev.Kind {
	case session.EventPageFailed:
		l.latest = notice{text: "couldn't load history: " + ev.Err.Error(), isErr: true}
	case session.EventSendFailed:
		l.failed = ev.TempID
		l.latest = notice{text: "message not sent: " + ev.Err.Error(), isErr: true}
	case session.EventUploadFailed:
		l.failed = ev.TempID
		l.latest = notice{text: "upload failed: " + ev.Err.Error(), isErr: true}
	case session.EventSent:
		if ev.TempID.Equal(l.failed) {
			l.failed = ""
		}
		l.latest = notice{}
	}
}
