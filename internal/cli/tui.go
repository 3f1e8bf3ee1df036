// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jeranaias/livechat-tui/internal/config"
	"github.com/jeranaias/livechat-tui/internal/schedule"
	"github.com/jeranaias/livechat-tui/internal/ui/chat"
	"github.com/jeranaias/livechat-tui/internal/ui/styles"
)

// ErrNoTerminal is returned when the full-screen client has no terminal.
var ErrNoTerminal = errors.New("livechat tui needs an interactive terminal")

func newTUICommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat client (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), e)
		},
	}
}

// IsTTY reports whether both stdin and stdout are terminals.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runTUI(ctx context.Context, e *env) error {
	if !IsTTY() {
		return fmt.Errorf("%w; use 'livechat repl' instead", ErrNoTerminal)
	}

	a, err := openApp(ctx, e)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := e.cfg
	loop := schedule.NewTeaLoop()
	defer loop.Close()

	m := chat.New(chat.Options{
		Loop:         loop,
		Service:      a.local,
		Directory:    a.local,
		Publisher:    a.local,
		Session:      sessionOptions(cfg, a.metrics, e.logger.Named("session")),
		Theme:        styles.NewTheme(cfg.UI.Theme),
		LineHeight:   cfg.Scroll.LineHeight,
		ShowAvatars:  cfg.UI.ShowAvatars,
		OnActiveChat: a.setActive,
		Logger:       e.logger.Named("ui"),
	})
	defer m.Shutdown()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	loop.Attach(p)

	if _, statErr := os.Stat(e.cfgPath); e.cfgPath != "" && statErr == nil {
		w, err := config.Watch(e.cfgPath, config.WatchOptions{}, func(cfg *config.Config, err error) {
			p.Send(chat.ConfigReloadedMsg{Config: cfg, Err: err})
		})
		if err != nil {
			e.logger.Warn("config_watch_failed", zap.String("path", e.cfgPath), zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	e.logger.Info("tui_start", zap.String("user_id", cfg.User.ID), zap.String("db", cfg.Storage.Path))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
