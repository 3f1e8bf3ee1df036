// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript turns a chat's ordered message list into the render
// sequence shown by the view.
//
// Group walks the list once and interleaves date separators, marks which
// messages show an avatar and resolves reply previews. Separator labels are
// localized ("Today", "Yesterday", or a full date) through a Labeler chosen by
// BCP 47 locale matching.
//
// # Usage
//
//	nodes := transcript.Group(msgs, transcript.Options{
//	    CurrentUserID: me,
//	    IsGroup:       chat.IsGroup,
//	    Labeler:       transcript.NewLabeler("de-AT"),
//	})
//
// Cache wraps Group with a content fingerprint so unchanged transcripts are
// not regrouped on every frame.
package transcript
