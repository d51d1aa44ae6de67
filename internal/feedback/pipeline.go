// Auralis - Adaptive Music Recommendation Engine
// Copyright 2026 Auralis Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/auralis-io/auralis

// Package feedback routes rating events through a message pipeline into
// the policy update path.
//
// The pipeline is an in-process Watermill router over a gochannel
// pub/sub. Publishing blocks until the handler acknowledges, and Publish
// reports the terminal outcome of the handling attempts: a caller
// returning nil from Publish knows the event's policy update is durable.
// Handler panics are recovered, transient failures retry with backoff,
// and events that keep failing are routed to a poison topic for operator
// inspection; their final error still reaches the publisher.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/auralis-io/auralis/internal/history"
	"github.com/auralis-io/auralis/internal/policy"
)

// Topics used by the pipeline.
const (
	// TopicSubmitted carries accepted feedback events.
	TopicSubmitted = "feedback.submitted"

	// TopicPoison receives events that failed all retries.
	TopicPoison = "feedback.poison"
)

// Config holds pipeline retry and shutdown configuration.
type Config struct {
	RetryMaxRetries      int           `json:"retry_max_retries"`
	RetryInitialInterval time.Duration `json:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `json:"retry_max_interval"`
	RetryMultiplier      float64       `json:"retry_multiplier"`
	CloseTimeout         time.Duration `json:"close_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		RetryMaxRetries:      3,
		RetryInitialInterval: 50 * time.Millisecond,
		RetryMaxInterval:     2 * time.Second,
		RetryMultiplier:      2,
		CloseTimeout:         10 * time.Second,
	}
}

// Pipeline connects feedback publishing to the history store and the
// policy processor.
type Pipeline struct {
	pubsub    *gochannel.GoChannel
	router    *message.Router
	processor *policy.Processor
	history   *history.Store
	logger    zerolog.Logger

	// outcomes records the last handling error per message UUID. The
	// poison middleware acks an exhausted message, so the pubsub ack
	// alone cannot tell the publisher whether the update landed.
	outcomes sync.Map
}

// NewPipeline builds the pipeline and registers its handler. Run must be
// called before Publish will complete.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipeline(cfg Config, processor *policy.Processor, hist *history.Store, logger zerolog.Logger) (*Pipeline, error) {
	componentLogger := logger.With().Str("component", "feedback_pipeline").Logger()
	wmLogger := newWatermillLogger(componentLogger)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create feedback router: %w", err)
	}

	p := &Pipeline{
		pubsub:    pubsub,
		router:    router,
		processor: processor,
		history:   hist,
		logger:    componentLogger,
	}

	// First-added middleware is outermost. Poison wraps retry so a
	// message is parked only after the retries are exhausted, and the
	// recoverer sits innermost so a handler panic becomes a retryable
	// error.
	poison, err := middleware.PoisonQueue(pubsub, TopicPoison)
	if err != nil {
		return nil, fmt.Errorf("create poison queue: %w", err)
	}
	router.AddMiddleware(poison)
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          wmLogger,
	}
	router.AddMiddleware(retry.Middleware)
	router.AddMiddleware(middleware.Recoverer)

	router.AddConsumerHandler("apply-feedback", TopicSubmitted, pubsub, p.handle)

	return p, nil
}

// Run starts the router and blocks until ctx is cancelled or the router
// is closed.
func (p *Pipeline) Run(ctx context.Context) error {
	return p.router.Run(ctx)
}

// Running returns a channel closed once the router's handlers are
// subscribed and publishing can proceed.
func (p *Pipeline) Running() <-chan struct{} {
	return p.router.Running()
}

// Close shuts the router and pub/sub down.
func (p *Pipeline) Close() error {
	routerErr := p.router.Close()
	pubsubErr := p.pubsub.Close()
	return errors.Join(routerErr, pubsubErr)
}

// Publish validates and submits one feedback event, blocking until the
// handler has applied it.
func (p *Pipeline) Publish(ctx context.Context, event *policy.FeedbackEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feedback event: %w", err)
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.SetContext(ctx)
	if err := p.pubsub.Publish(TopicSubmitted, msg); err != nil {
		p.outcomes.Delete(msg.UUID)
		return fmt.Errorf("publish feedback: %w", err)
	}

	// The ack has fired, so the handler's final attempt is recorded.
	if v, ok := p.outcomes.LoadAndDelete(msg.UUID); ok {
		if handleErr, _ := v.(error); handleErr != nil {
			return fmt.Errorf("apply feedback: %w", handleErr)
		}
	}
	return nil
}

// handle wraps apply so every attempt's result is visible to the
// publisher. Retries overwrite earlier results, leaving the terminal one.
func (p *Pipeline) handle(msg *message.Message) error {
	err := p.apply(msg)
	p.outcomes.Store(msg.UUID, err)
	return err
}

// apply processes one message: append to the feedback log, record the
// rating in history, then run the policy update.
func (p *Pipeline) apply(msg *message.Message) error {
	var event policy.FeedbackEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode feedback event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return err
	}

	ctx := msg.Context()
	if err := p.history.AppendFeedback(ctx, &event); err != nil {
		return fmt.Errorf("append feedback log: %w", err)
	}
	if err := p.history.RecordRating(ctx, event.UserID, event.TrackID, "", event.Rating, event.Timestamp); err != nil {
		return fmt.Errorf("record rating: %w", err)
	}
	if err := p.processor.Submit(ctx, &event); err != nil {
		return err
	}

	p.logger.Debug().
		Str("user_id", event.UserID).
		Str("track_id", event.TrackID).
		Int("rating", event.Rating).
		Msg("feedback applied")
	return nil
}

// PoisonSubscriber exposes a subscription to the poison topic, used by
// operators to inspect failed events.
func (p *Pipeline) PoisonSubscriber(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, TopicPoison)
}
