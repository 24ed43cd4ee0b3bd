// Curata - Product Discovery Recommendation Engine
// Copyright 2026 Curata Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curata-io/curata

package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curata-io/curata/internal/config"
	"github.com/curata-io/curata/internal/models"
	"github.com/curata-io/curata/internal/recommend"
	"github.com/curata-io/curata/internal/store"
)

func testEventsConfig() config.EventsConfig {
	return config.EventsConfig{
		BufferSize:    64,
		FlushInterval: 10 * time.Millisecond,
		FlushBatch:    4,
	}
}

func testItems(n int) []recommend.Item {
	items := make([]recommend.Item, n)
	for i := range items {
		items[i] = recommend.Item{
			ProductID: "p" + string(rune('a'+i)),
			Score:     0.9 - float64(i)*0.1,
			Reason:    recommend.ReasonTrending,
			Metadata:  recommend.ItemMetadata{Source: recommend.ReasonTrending},
		}
	}
	return items
}

func TestBus_PublishSubscribeRoundtrip(t *testing.T) {
	t.Parallel()

	bus := NewBus(testEventsConfig(), zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	msgs, err := bus.Subscribe(ctx, "test.topic")
	require.NoError(t, err)

	want := models.InteractionEvent{
		ID:        "ev-1",
		UserID:    "u1",
		ProductID: "p1",
		Type:      models.InteractionImpression,
		Position:  2,
		CreatedAt: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, bus.PublishInteraction("test.topic", want))

	select {
	case msg := <-msgs:
		got, err := decodeInteraction(msg)
		msg.Ack()
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Position, got.Position)
		assert.Equal(t, string(models.InteractionImpression), msg.Metadata.Get("type"))
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
}

func TestImpressionWriter_FlushesBatches(t *testing.T) {
	t.Parallel()

	bus := NewBus(testEventsConfig(), zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	interactions := store.NewMemoryInteractionStore(nil)
	w := NewImpressionWriter(ImpressionWriterOptions{
		Bus:          bus,
		Interactions: interactions,
		Config:       testEventsConfig(),
		Logger:       zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Serve(ctx) }()

	// Give Serve a moment to subscribe before producing.
	time.Sleep(20 * time.Millisecond)
	w.RecordImpressions("u1", testItems(6), recommend.SessionContext{SessionID: "s1", DeviceType: "mobile"})

	require.Eventually(t, func() bool {
		return len(interactions.Events()) == 6
	}, 2*time.Second, 10*time.Millisecond, "impressions never landed in the log")

	events := interactions.Events()
	byProduct := make(map[string]models.InteractionEvent, len(events))
	for _, ev := range events {
		assert.Equal(t, models.InteractionImpression, ev.Type)
		assert.Equal(t, "u1", ev.UserID)
		assert.Equal(t, "s1", ev.Metadata.SessionID)
		byProduct[ev.ProductID] = ev
	}
	assert.Equal(t, 0, byProduct["pa"].Position)
	assert.Equal(t, 5, byProduct["pf"].Position)
	assert.Equal(t, string(recommend.ReasonTrending), byProduct["pa"].RecommendationType)
}

func TestImpressionWriter_AnonymousAndEmptyNoop(t *testing.T) {
	t.Parallel()

	bus := NewBus(testEventsConfig(), zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	w := NewImpressionWriter(ImpressionWriterOptions{
		Bus:          bus,
		Interactions: store.NewMemoryInteractionStore(nil),
		Config:       testEventsConfig(),
		Logger:       zerolog.Nop(),
	})

	w.RecordImpressions("", testItems(3), recommend.SessionContext{})
	w.RecordImpressions("u1", nil, recommend.SessionContext{})
	assert.Empty(t, w.in)
}

func TestImpressionWriter_QueueOverflowDropsWithoutBlocking(t *testing.T) {
	t.Parallel()

	cfg := testEventsConfig()
	cfg.BufferSize = 2

	bus := NewBus(cfg, zerolog.Nop())
	t.Cleanup(func() { _ = bus.Close() })

	w := NewImpressionWriter(ImpressionWriterOptions{
		Bus:          bus,
		Interactions: store.NewMemoryInteractionStore(nil),
		Config:       cfg,
		Logger:       zerolog.Nop(),
	})

	// No Serve loop running: the queue fills and the rest must drop, not block.
	done := make(chan struct{})
	go func() {
		w.RecordImpressions("u1", testItems(10), recommend.SessionContext{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecordImpressions blocked on a full queue")
	}
	assert.Len(t, w.in, 2)
}
