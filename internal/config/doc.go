// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for
// livechat.
//
// Supports both TOML and YAML configuration formats, with sensible defaults,
// .env and environment variable overrides, validation and hot reload.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - Duration: time.Duration written as "16ms" / "5s" in every format
//   - ValidateErrors: every problem found by Validate, field by field
//   - Watcher: fsnotify-driven reload of a config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (LIVECHAT_*), including those from a .env file
//   - ~/.livechat/config.toml
//   - ~/.livechat/config.yaml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Reload on change:
//
//	w, err := config.Watch(path, config.WatchOptions{}, func(cfg *config.Config, err error) { ... })
//	defer w.Close()
package config
