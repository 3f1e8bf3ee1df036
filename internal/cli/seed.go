// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/storage"
)

func newSeedCommand(e *env) *cobra.Command {
	opts := storage.SeedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the message database with demo chats",
		Long: `Seed creates a direct chat, a moderated group and an encrypted chat with
several days of history. Chats that already have messages are left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.Open(e.cfg.Storage.Path)
			if err != nil {
				return fmt.Errorf("open message store: %w", err)
			}
			defer db.Close()

			opts.UserID = model.ID(e.cfg.User.ID)
			opts.UserName = e.cfg.User.Name
			res, err := storage.Seed(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			e.logger.Info("demo_seeded", zap.Int("chats", len(res.Chats)), zap.Int("messages", res.Messages))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d chats with %d messages into %s\n", len(res.Chats), res.Messages, db.Path())
			for _, id := range res.Skipped {
				fmt.Fprintf(out, "  skipped %s (already has messages)\n", id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Days, "days", 3, "Days of history")
	cmd.Flags().IntVar(&opts.PerDay, "per-day", 12, "Messages per chat per day")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 1, "Random seed for phrases and replies")
	return cmd
}
