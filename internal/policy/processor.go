// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProcessorConfig holds feedback application configuration.
type ProcessorConfig struct {
	// ReorderWindow is how long the applier waits after an event arrives
	// so that concurrently submitted events for the same user can be
	// sorted into timestamp order before any of them is applied.
	ReorderWindow time.Duration `json:"reorder_window"`

	// DedupeDepth is how many recently applied event ids are remembered
	// per user to make redelivery idempotent.
	DedupeDepth int `json:"dedupe_depth"`
}

// DefaultProcessorConfig returns production defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		ReorderWindow: 10 * time.Millisecond,
		DedupeDepth:   1024,
	}
}

// pendingEvent pairs an event with its submitter's reply channel.
type pendingEvent struct {
	event *FeedbackEvent
	reply chan error
}

// userState is the per-user applier queue.
type userState struct {
	pending []pendingEvent
	running bool

	applied      map[string]bool
	appliedOrder []string
}

// Processor converts feedback events into policy updates. Events for one
// user are applied strictly in timestamp order by a single applier
// goroutine; events for different users apply concurrently. Submit is
// synchronous: it returns once the event is durably applied.
type Processor struct {
	store  *Store
	config ProcessorConfig
	logger zerolog.Logger

	mu    sync.Mutex
	users map[string]*userState
}

// NewProcessor creates a feedback processor over the policy store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewProcessor(store *Store, cfg ProcessorConfig, logger zerolog.Logger) *Processor {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = DefaultProcessorConfig().ReorderWindow
	}
	if cfg.DedupeDepth <= 0 {
		cfg.DedupeDepth = DefaultProcessorConfig().DedupeDepth
	}
	return &Processor{
		store:  store,
		config: cfg,
		logger: logger.With().Str("component", "feedback_processor").Logger(),
		users:  make(map[string]*userState),
	}
}

// Submit validates and applies one feedback event, blocking until the
// event's policy update is persisted. Redelivery of an already applied
// event id is a no-op. The caller's context only bounds the wait: an
// accepted event is applied even if the caller goes away, so feedback is
// never lost between acceptance and durability.
func (p *Processor) Submit(ctx context.Context, event *FeedbackEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	state, ok := p.users[event.UserID]
	if !ok {
		state = &userState{applied: make(map[string]bool)}
		p.users[event.UserID] = state
	}
	if event.EventID != "" && state.applied[event.EventID] {
		p.mu.Unlock()
		return nil
	}

	reply := make(chan error, 1)
	state.pending = append(state.pending, pendingEvent{event: event, reply: reply})
	if !state.running {
		state.running = true
		go p.drain(event.UserID, state)
	}
	p.mu.Unlock()

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return fmt.Errorf("feedback wait: %w", ctx.Err())
	}
}

// drain is the single applier for one user. It waits out the reorder
// window, takes everything pending, sorts by timestamp, and applies the
// batch serially. It exits when the queue is empty.
func (p *Processor) drain(userID string, state *userState) {
	for {
		time.Sleep(p.config.ReorderWindow)

		p.mu.Lock()
		batch := state.pending
		state.pending = nil
		if len(batch) == 0 {
			state.running = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		sort.SliceStable(batch, func(i, j int) bool {
			if !batch[i].event.Timestamp.Equal(batch[j].event.Timestamp) {
				return batch[i].event.Timestamp.Before(batch[j].event.Timestamp)
			}
			return batch[i].event.EventID < batch[j].event.EventID
		})

		for _, pe := range batch {
			pe.reply <- p.applyOne(userID, state, pe.event)
		}
	}
}

// applyOne performs the gradient step for a single event.
func (p *Processor) applyOne(userID string, state *userState, event *FeedbackEvent) error {
	if event.EventID != "" {
		p.mu.Lock()
		dup := state.applied[event.EventID]
		p.mu.Unlock()
		if dup {
			return nil
		}
	}

	updated, err := p.store.Update(context.Background(), userID, func(pol *Policy) error {
		pol.apply(event)
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply feedback for %s: %w", userID, err)
	}

	if event.EventID != "" {
		p.markApplied(state, event.EventID)
	}

	p.logger.Debug().
		Str("user_id", userID).
		Str("track_id", event.TrackID).
		Int("rating", event.Rating).
		Uint64("policy_version", updated.Version).
		Int("update_count", updated.UpdateCount).
		Msg("applied feedback")
	return nil
}

// markApplied remembers an event id, evicting the oldest beyond the
// dedupe depth.
func (p *Processor) markApplied(state *userState, eventID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if state.applied[eventID] {
		return
	}
	state.applied[eventID] = true
	state.appliedOrder = append(state.appliedOrder, eventID)
	if len(state.appliedOrder) > p.config.DedupeDepth {
		oldest := state.appliedOrder[0]
		state.appliedOrder = state.appliedOrder[1:]
		delete(state.applied, oldest)
	}
}
