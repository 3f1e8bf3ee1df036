// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jeranaias/livechat-tui/internal/model"
)

// =============================================================================
// DEMO DATA
// =============================================================================

// SeedOptions controls the demo history written by Seed.
type SeedOptions struct {
	// UserID and UserName describe the local user, a member of every chat.
	UserID   model.ID
	UserName string

	// Days of history ending today. Default: 3
	Days int

	// PerDay is the number of messages per chat per day. Default: 12
	PerDay int

	// Now anchors the history. Default: Store.Now
	Now time.Time

	// Seed feeds the phrase picker so runs are reproducible. Default: 1
	Seed int64
}

// SeedResult reports what Seed wrote.
type SeedResult struct {
	Chats    []model.ID
	Messages int
	Skipped  []model.ID
}

var seedPhrases = []string{
	"Morning! Did the build go green overnight?",
	"Pushed a fix for the flaky scroll test.",
	"Can someone review **#482** before lunch?",
	"The release notes are in the shared folder.",
	"I think the pagination cursor is off by one.",
	"Standup moved to 10:30 today.",
	"Looks good to me, merging.",
	"Does anyone have the staging credentials?",
	"Coffee run, anyone?",
	"Latency is back under 50ms after the cache change.",
	"Let's pair on the typing indicator later.",
	"Reminder: retro on Friday.",
	"`go test ./...` passes locally for me.",
	"Shipping it 🚀",
	"I'll take the on-call handoff tonight.",
}

// DemoPhrase picks a line of demo chatter.
func DemoPhrase(rng *rand.Rand) string {
	return seedPhrases[rng.Intn(len(seedPhrases))]
}

// Seed writes three demo chats (a direct message, a moderated group and an
// encrypted direct message) with Days of history. Chats that already hold
// messages are left untouched.
func Seed(ctx context.Context, s *Store, opts SeedOptions) (SeedResult, error) {
	if opts.UserID.IsZero() {
		return SeedResult{}, fmt.Errorf("seed: user id is required")
	}
	if opts.UserName == "" {
		opts.UserName = "You"
	}
	if opts.Days <= 0 {
		opts.Days = 3
	}
	if opts.PerDay <= 0 {
		opts.PerDay = 12
	}
	if opts.Now.IsZero() {
		opts.Now = s.Now()
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	me := model.Member{UserID: opts.UserID, Name: opts.UserName, Role: model.RoleMember}
	alice := model.Member{UserID: "alice", Name: "Alice", Role: model.RoleMember}
	bob := model.Member{UserID: "bob", Name: "Bob", Role: model.RoleMember}
	carol := model.Member{UserID: "carol", Name: "Carol", Role: model.RoleModerator}
	dave := model.Member{UserID: "dave", Name: "Dave", Role: model.RoleMember}

	chats := []model.Chat{
		{ID: "dm-alice", Title: "Alice", Members: []model.Member{me, alice}},
		{ID: "team", Title: "Team", IsGroup: true, Members: []model.Member{me, alice, bob, carol}},
		{ID: "vault", Title: "Dave (secret)", Encrypted: true, Members: []model.Member{me, dave}},
	}

	var result SeedResult
	for _, chat := range chats {
		n, err := s.MessageCount(ctx, chat.ID)
		if err != nil {
			return result, err
		}
		if n > 0 {
			result.Skipped = append(result.Skipped, chat.ID)
			continue
		}
		if err := s.PutChat(ctx, chat); err != nil {
			return result, err
		}
		written, err := seedHistory(ctx, s, chat, opts, rng)
		result.Messages += written
		if err != nil {
			return result, err
		}
		result.Chats = append(result.Chats, chat.ID)
	}
	return result, nil
}

func seedHistory(ctx context.Context, s *Store, chat model.Chat, opts SeedOptions, rng *rand.Rand) (int, error) {
	start := time.Date(opts.Now.Year(), opts.Now.Month(), opts.Now.Day(), 9, 0, 0, 0, opts.Now.Location()).
		AddDate(0, 0, -(opts.Days - 1))
	step := 8 * time.Hour / time.Duration(opts.PerDay)

	var (
		written int
		prev    model.ID
	)
	for day := 0; day < opts.Days; day++ {
		at := start.AddDate(0, 0, day)
		for i := 0; i < opts.PerDay; i++ {
			if at.After(opts.Now) {
				return written, nil
			}
			sender := chat.Members[rng.Intn(len(chat.Members))]
			msg := model.Message{
				ChatID:        chat.ID,
				SenderID:      sender.UserID,
				CreatedAt:     model.At(at),
				Kind:          model.KindText,
				Content:       DemoPhrase(rng),
				FromModerator: sender.Role.CanModerate(),
			}
			if !prev.IsZero() && rng.Intn(6) == 0 {
				msg.ReplyToID = prev
			}
			stored, err := s.AddMessage(ctx, msg, nil)
			if err != nil {
				return written, fmt.Errorf("seed %s: %w", chat.ID, err)
			}
			prev = stored.ID
			written++
			at = at.Add(step)
		}
	}
	return written, nil
}
