// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll keeps the transcript viewport where the user expects it.
//
// Two components write to the scroll Surface:
//
//   - AnchorManager compensates for history prepended above the viewport, so
//     backward pagination does not move the visible messages.
//   - AutoScroll pins the view to the newest message while the user is at the
//     bottom and leaves it alone once they scroll up.
//
// Both run on the controller's event loop, so their writes never interleave
// within a tick. A Surface is anything that can report its metrics and accept
// a scroll offset: the bubbles viewport in the TUI, MemorySurface elsewhere.
package scroll
