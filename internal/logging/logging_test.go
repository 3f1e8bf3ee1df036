// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/config"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "livechat.log")
	logger, err := New(config.LoggingConfig{Level: "warn", File: path})
	require.NoError(t, err)

	logger.Info("page_loaded", zap.String("chat_id", "c1"))
	logger.Warn("page_failed", zap.String("chat_id", "c1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "info is below the configured level")
	assert.Contains(t, lines[0], `"msg":"page_failed"`)
	assert.Contains(t, lines[0], `"chat_id":"c1"`)
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud"})
	assert.Error(t, err)

	assert.NotNil(t, Must(config.LoggingConfig{Level: "loud"}))
}

func TestNew_Stderr(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "DEBUG", File: Stderr, Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}
