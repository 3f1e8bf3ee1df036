// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "errors"

var (
	// ErrNoActiveChat is returned by operations that need an open chat.
	ErrNoActiveChat = errors.New("no active chat")

	// ErrMessageNotLoaded is returned for a message id not in the transcript.
	ErrMessageNotLoaded = errors.New("message not loaded")

	// ErrNotFailed is returned when retrying a message that did not fail.
	ErrNotFailed = errors.New("message has not failed")

	// ErrNotAttachment is returned when uploading with a non-attachment kind.
	ErrNotAttachment = errors.New("kind is not an attachment")
)
