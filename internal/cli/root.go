// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/config"
	"github.com/jeranaias/livechat-tui/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

// globalFlags are shared by every command.
type globalFlags struct {
	configPath  string
	dbPath      string
	userID      string
	logLevel    string
	metricsAddr string
}

// env is what a command runs with once flags are parsed.
type env struct {
	flags   globalFlags
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
}

// NewRootCommand builds the livechat command tree.
func NewRootCommand() *cobra.Command {
	e := &env{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "livechat",
		Short: "A terminal chat client with a live transcript",
		Long: `livechat keeps an incrementally loaded chat transcript stable while you
scroll, page in history and receive new messages.

Run without a command to start the full-screen client.`,
		Version:       fmt.Sprintf("%s (%s, %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = e.logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), e)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.flags.configPath, "config", "", "Config file (default ~/.livechat/config.toml)")
	pf.StringVar(&e.flags.dbPath, "db", "", "Message database path")
	pf.StringVar(&e.flags.userID, "user", "", "Local user id")
	pf.StringVar(&e.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&e.flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	root.AddCommand(
		newTUICommand(e),
		newREPLCommand(e),
		newSeedCommand(e),
		newConfigCommand(e),
	)
	return root
}

// setup loads the config, applies flag overrides and builds the logger.
func (e *env) setup(cmd *cobra.Command) error {
	path := e.flags.configPath
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		path, _ = config.DefaultPath()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Storage.Path = e.flags.dbPath
	}
	if flags.Changed("user") {
		cfg.User.ID = e.flags.userID
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = e.flags.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = e.flags.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.cfg = cfg
	e.cfgPath = path
	e.logger = logging.Must(cfg.Logging)
	e.logger.Debug("config_loaded", zap.String("path", path), zap.String("user_id", cfg.User.ID))
	return nil
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
