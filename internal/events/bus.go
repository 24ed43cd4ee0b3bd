// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

// Package events is the in-process interaction event pipeline: a Watermill
// pub/sub bus carrying interaction events, and a supervised impression writer
// that batches served-page impressions into the interaction log off the
// request path.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/curata-io/curata/internal/config"
	"github.com/curata-io/curata/internal/models"
)

// TopicImpressions carries impression events from serving to the writer.
const TopicImpressions = "interactions.impressions"

// Bus is the in-process event bus. Publishes run through a circuit breaker
// so a wedged consumer degrades to dropped events instead of stalled
// request handlers.
type Bus struct {
	pubsub  *gochannel.GoChannel
	breaker *gobreaker.CircuitBreaker[any]
	logger  zerolog.Logger
}

// NewBus creates the bus with the configured channel buffering.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBus(cfg config.EventsConfig, logger zerolog.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, newWatermillLogger(logger))

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:     "event-bus",
		Interval: time.Minute,
		Timeout:  15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("event bus breaker state change")
		},
	})

	return &Bus{
		pubsub:  pubsub,
		breaker: breaker,
		logger:  logger.With().Str("component", "events").Logger(),
	}
}

// PublishInteraction serializes and publishes one interaction event.
func (b *Bus) PublishInteraction(topic string, ev models.InteractionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", ev.ID, err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.Metadata.Set("type", string(ev.Type))

	if _, err := b.breaker.Execute(func() (any, error) {
		return nil, b.pubsub.Publish(topic, msg)
	}); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns the message stream for a topic. The subscription lives
// until ctx is canceled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	msgs, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return msgs, nil
}

// Close shuts the bus down, closing every subscription channel.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// decodeInteraction unmarshals a bus message back into an event.
func decodeInteraction(msg *message.Message) (models.InteractionEvent, error) {
	var ev models.InteractionEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decoding event %s: %w", msg.UUID, err)
	}
	return ev, nil
}
