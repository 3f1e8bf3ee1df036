// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the livechat command line.
//
// # Commands
//
//   - tui: full-screen chat (default when no command is given)
//   - repl: line-mode chat over the same session controller
//   - seed: fill the message database with demo chats
//   - config: show, locate, initialize and edit the config file
//
// # Global Flags
//
//	--config PATH        config file (default ~/.livechat/config.toml)
//	--db PATH            message database, overrides storage.path
//	--user ID            local user id, overrides user.id
//	--log-level LEVEL    debug, info, warn or error
//	--metrics-addr ADDR  serve Prometheus metrics on ADDR
package cli
