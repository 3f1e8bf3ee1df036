// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package collab

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/livechat-tui/internal/model"
	"github.com/jeranaias/livechat-tui/internal/storage"
)

// =============================================================================
// SIMULATOR
// =============================================================================

const (
	// DefaultSimulatorInterval is the pause between simulated messages.
	DefaultSimulatorInterval = 20 * time.Second

	// DefaultTypingLead is how long a simulated peer types before posting.
	DefaultTypingLead = 3 * time.Second
)

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	Interval   time.Duration
	TypingLead time.Duration

	// Seed makes peer and phrase choice reproducible. Zero uses the clock.
	Seed int64

	Logger *zap.Logger
}

// Simulator makes the other members of the active chat talk: a typing
// announcement, a message after TypingLead, then a read receipt.
//
// Thread-safety: All operations are protected by a mutex.
type Simulator struct {
	local *Local
	opts  SimulatorOptions

	mu     sync.Mutex
	rng    *rand.Rand
	active model.ID
	cancel context.CancelFunc
	done   chan struct{}
	posted int
}

// NewSimulator returns a stopped simulator posting through local.
func NewSimulator(local *Local, opts SimulatorOptions) *Simulator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultSimulatorInterval
	}
	if opts.TypingLead < 0 {
		opts.TypingLead = 0
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Simulator{
		local: local,
		opts:  opts,
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}
}

// SetActive selects the chat peers talk in. The zero id pauses the chatter.
func (s *Simulator) SetActive(chatID model.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = chatID
}

// Posted returns how many messages the simulator has sent.
func (s *Simulator) Posted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posted
}

// Start runs the chatter loop until ctx ends or Stop is called.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Step(ctx); err != nil && ctx.Err() == nil {
					s.opts.Logger.Warn("simulator_step_failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop ends the loop and waits for it to exit.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Step plays one round in the active chat. It is a no-op without an active
// chat or when the local user is alone in it.
func (s *Simulator) Step(ctx context.Context) error {
	s.mu.Lock()
	chatID := s.active
	s.mu.Unlock()
	if chatID.IsZero() {
		return nil
	}

	chat, err := s.local.Chat(ctx, chatID)
	if err != nil {
		return err
	}
	peers := chat.Others(s.local.UserID())
	if len(peers) == 0 {
		return nil
	}

	s.mu.Lock()
	peer := peers[s.rng.Intn(len(peers))]
	text := storage.DemoPhrase(s.rng)
	s.mu.Unlock()

	s.local.PeerTyping(model.TypingEvent{ChatID: chatID, UserID: peer.UserID, IsTyping: true, At: time.Now()})
	if s.opts.TypingLead > 0 {
		timer := time.NewTimer(s.opts.TypingLead)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.local.PeerTyping(model.TypingEvent{ChatID: chatID, UserID: peer.UserID, At: time.Now()})
			return ctx.Err()
		case <-timer.C:
		}
	}

	if _, err := s.local.Post(ctx, chatID, peer.UserID, text); err != nil {
		return err
	}
	s.mu.Lock()
	s.posted++
	s.mu.Unlock()
	s.opts.Logger.Debug("simulator_posted",
		zap.String("chat_id", chatID.String()),
		zap.String("sender", peer.UserID.String()))

	return s.local.PeerRead(ctx, chatID, peer.UserID)
}
