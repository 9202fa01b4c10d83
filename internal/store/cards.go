package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// CardStateStore persists cards and their memory state.
type CardStateStore interface {
	// Create stores a new card. A card without state is stored uninitialized.
	// Returns ErrCardExists when the id is taken.
	Create(ctx context.Context, card domain.Card) error

	// Get loads a card with its state and full review log.
	// Returns ErrCardNotFound if the card does not exist.
	Get(ctx context.Context, id uuid.UUID) (domain.Card, error)

	// GetMany loads the given cards; unknown ids are skipped.
	GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Card, error)

	// ListByDeck loads every card of a deck in creation order.
	ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error)

	// SaveState upserts the card's state and appends the review events that
	// are not yet persisted. Review events are never rewritten; once a card
	// has stored events, a state that does not add to them returns
	// ErrStaleState.
	//
	// IMPORTANT: SaveState writes two tables and must run within a
	// transaction. Use WithTx with RunInTransaction:
	//   err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//       return cards.WithTx(tx).SaveState(ctx, card)
	//   })
	SaveState(ctx context.Context, card domain.Card) error

	// WithTx returns a CardStateStore bound to tx.
	WithTx(tx *sql.Tx) CardStateStore
}

// CheckpointStore persists session checkpoints for crash recovery.
type CheckpointStore interface {
	// Save upserts the checkpoint of a session.
	Save(ctx context.Context, cp domain.SessionCheckpoint) error

	// Get returns ErrCheckpointNotFound when no checkpoint exists.
	Get(ctx context.Context, sessionID uuid.UUID) (domain.SessionCheckpoint, error)

	// Delete removes a checkpoint. Deleting a missing checkpoint is not an error.
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// LearnedStore records when new cards are learned, for the daily quota.
type LearnedStore interface {
	// RecordLearned marks a card learned at the given time. Recording the
	// same card twice keeps the first time.
	RecordLearned(ctx context.Context, deckID, cardID uuid.UUID, at time.Time) error

	// CountLearnedSince counts the deck's cards learned at or after since.
	CountLearnedSince(ctx context.Context, deckID uuid.UUID, since time.Time) (int, error)
}
