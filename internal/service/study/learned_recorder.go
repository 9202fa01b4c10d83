package study

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// LearnedRecorder handles card.learned events by recording the card in the
// learned store, which feeds the daily new-card quota.
type LearnedRecorder struct {
	learned store.LearnedStore
	logger  *slog.Logger
}

var _ events.EventHandler = (*LearnedRecorder)(nil)

// NewLearnedRecorder creates a LearnedRecorder.
func NewLearnedRecorder(learned store.LearnedStore, logger *slog.Logger) *LearnedRecorder {
	if learned == nil {
		panic("learned store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LearnedRecorder{
		learned: learned,
		logger:  logger.With(slog.String("component", "learned_recorder")),
	}
}

// HandleEvent implements events.EventHandler. Events of other types are ignored.
func (r *LearnedRecorder) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeCardLearned {
		return nil
	}

	var p events.CardLearned
	if err := event.UnmarshalPayload(&p); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}

	if err := r.learned.RecordLearned(ctx, p.DeckID, p.CardID, p.LearnedAt); err != nil {
		return fmt.Errorf("failed to record learned card: %w", err)
	}

	logger.FromContextOrDefault(ctx, r.logger).Info("card learned",
		slog.String("card_id", p.CardID.String()),
		slog.String("deck_id", p.DeckID.String()),
		slog.String("session_id", p.SessionID.String()))
	return nil
}
