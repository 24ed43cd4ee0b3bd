// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curata-io/curata/internal/config"
	"github.com/curata-io/curata/internal/metrics"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

// flushTimeout bounds a single bulk insert so a slow store cannot wedge the
// writer past its supervisor restart budget.
const flushTimeout = 10 * time.Second

// ImpressionWriter records which recommendations were served, off the
// request path. RecordImpressions hands events to a bounded queue and never
// blocks; a pump publishes them onto the bus, and the Serve loop batches the
// subscription into the interaction log.
//
// The writer is a suture service: Serve runs until ctx is canceled and
// flushes the remaining batch on the way out.
type ImpressionWriter struct {
	bus          *Bus
	interactions store.InteractionStore
	cfg          config.EventsConfig
	logger       zerolog.Logger
	now          func() time.Time

	in chan models.InteractionEvent
}

// ImpressionWriterOptions carries the writer's collaborators.
type ImpressionWriterOptions struct {
	Bus          *Bus
	Interactions store.InteractionStore
	Config       config.EventsConfig
	Logger       zerolog.Logger
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewImpressionWriter wires an impression writer.
func NewImpressionWriter(opts ImpressionWriterOptions) *ImpressionWriter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ImpressionWriter{
		bus:          opts.Bus,
		interactions: opts.Interactions,
		cfg:          opts.Config,
		logger:       opts.Logger.With().Str("component", "impressions").Logger(),
		now:          now,
		in:           make(chan models.InteractionEvent, opts.Config.BufferSize),
	}
}

var _ recommend.ImpressionRecorder = (*ImpressionWriter)(nil)

// RecordImpressions enqueues one impression event per served item. When the
// queue is full the overflow is dropped; impressions are telemetry, not
// state the serving path may stall on.
func (w *ImpressionWriter) RecordImpressions(userID string, items []recommend.Item, session recommend.SessionContext) {
	if userID == "" || len(items) == 0 {
		return
	}

	now := w.now()
	dropped := 0
	for i, item := range items {
		ev := models.InteractionEvent{
			ID:                 uuid.NewString(),
			UserID:             userID,
			ProductID:          item.ProductID,
			Type:               models.InteractionImpression,
			RecommendationType: string(item.Reason),
			Position:           i,
			Score:              item.Score,
			Metadata: models.InteractionMetadata{
				SessionID:  session.SessionID,
				DeviceType: session.DeviceType,
				Source:     string(item.Metadata.Source),
			},
			CreatedAt: now,
		}
		select {
		case w.in <- ev:
		default:
			dropped++
		}
	}

	metrics.ImpressionQueueDepth.Set(float64(len(w.in)))
	if dropped > 0 {
		w.logger.Warn().
			Int("dropped", dropped).
			Str("user_id", userID).
			Msg("impression queue full")
	}
}

// Serve runs the writer until ctx is canceled. It subscribes to the
// impressions topic, pumps the local queue onto the bus, and flushes batches
// when they reach the configured size or the flush interval elapses.
func (w *ImpressionWriter) Serve(ctx context.Context) error {
	msgs, err := w.bus.Subscribe(ctx, TopicImpressions)
	if err != nil {
		return err
	}

	go w.pump(ctx)

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]models.InteractionEvent, 0, w.cfg.FlushBatch)
	for {
		select {
		case <-ctx.Done():
			w.flush(batch)
			return ctx.Err()

		case msg, ok := <-msgs:
			if !ok {
				w.flush(batch)
				return nil
			}
			ev, err := decodeInteraction(msg)
			msg.Ack()
			if err != nil {
				w.logger.Error().Err(err).Msg("dropping undecodable impression")
				continue
			}
			batch = append(batch, ev)
			if len(batch) >= w.cfg.FlushBatch {
				w.flush(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			w.flush(batch)
			batch = batch[:0]
			metrics.ImpressionQueueDepth.Set(float64(len(w.in)))
		}
	}
}

// pump moves queued events onto the bus. Publishing may block briefly when
// the subscriber is behind; that pressure stays here, off the request path.
func (w *ImpressionWriter) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.in:
			if err := w.bus.PublishInteraction(TopicImpressions, ev); err != nil {
				w.logger.Error().Err(err).Str("event_id", ev.ID).Msg("impression publish failed")
			}
		}
	}
}

// flush bulk-inserts a batch into the interaction log.
func (w *ImpressionWriter) flush(batch []models.InteractionEvent) {
	if len(batch) == 0 {
		return
	}

	// The serve context is canceled during shutdown; the final flush still
	// needs to land.
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	if err := w.interactions.BulkAppend(ctx, batch); err != nil {
		metrics.ImpressionFlushes.WithLabelValues("error").Inc()
		w.logger.Error().Err(err).Int("batch", len(batch)).Msg("impression flush failed")
		return
	}
	metrics.ImpressionFlushes.WithLabelValues("ok").Inc()
	w.logger.Debug().Int("batch", len(batch)).Msg("impressions flushed")
}

// String names the service in supervisor logs.
func (w *ImpressionWriter) String() string { return "impression-writer" }
