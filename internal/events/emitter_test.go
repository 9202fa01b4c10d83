package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler records the events it receives.
type recordingHandler struct {
	events []*Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *Event) error {
	h.events = append(h.events, event)
	return h.err
}

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	learned, err := NewCardLearnedEvent(CardLearned{
		DeckID:    uuid.New(),
		CardID:    uuid.New(),
		SessionID: uuid.New(),
		LearnedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	t.Run("no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(ctx, learned))
	})

	t.Run("delivers by type", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		first, second, other := &recordingHandler{}, &recordingHandler{}, &recordingHandler{}
		emitter.Subscribe(TypeCardLearned, first)
		emitter.Subscribe(TypeCardLearned, second)
		emitter.Subscribe("card.reviewed", other)

		require.NoError(t, emitter.EmitEvent(ctx, learned))
		assert.Equal(t, []*Event{learned}, first.events)
		assert.Equal(t, []*Event{learned}, second.events)
		assert.Empty(t, other.events)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		failure := errors.New("handler error")
		failing, ok := &recordingHandler{err: failure}, &recordingHandler{}
		emitter.Subscribe(TypeCardLearned, failing)
		emitter.Subscribe(TypeCardLearned, ok)

		err := emitter.EmitEvent(ctx, learned)
		assert.ErrorIs(t, err, failure)
		assert.Len(t, failing.events, 1)
		assert.Len(t, ok.events, 1)
	})

	t.Run("handler func", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(nil)
		var got string
		emitter.Subscribe(TypeCardLearned, HandlerFunc(func(_ context.Context, e *Event) error {
			got = e.Type
			return nil
		}))
		require.NoError(t, emitter.EmitEvent(ctx, learned))
		assert.Equal(t, TypeCardLearned, got)
	})

	t.Run("nil event", func(t *testing.T) {
		assert.Error(t, NewInMemoryEventEmitter(logger).EmitEvent(ctx, nil))
	})
}
