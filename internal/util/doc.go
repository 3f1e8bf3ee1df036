// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across livechat packages.
//
//   - TruncateRunes / TruncateWidth: UTF-8 and display-width safe truncation
//   - AtomicWriteFile: crash-safe file writes (config saves)
package util
