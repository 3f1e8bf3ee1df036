// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pagination loads older history when the user scrolls near the top
// of the transcript.
//
// A virtual "load more" trigger sits at the top of the content. Every scroll
// sample is checked against it; once the trigger has been visible for the
// debounce delay, one page is requested from the Loader. At most one request
// per chat is outstanding at a time. The scroll position is anchored across
// the prepend so the visible messages do not move.
package pagination
