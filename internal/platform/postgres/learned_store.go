package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresLearnedStore implements store.LearnedStore.
type PostgresLearnedStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearnedStore creates a learned-card store.
func NewPostgresLearnedStore(db store.DBTX, logger *slog.Logger) *PostgresLearnedStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLearnedStore{
		db:     db,
		logger: logger.With(slog.String("component", "learned_store")),
	}
}

var _ store.LearnedStore = (*PostgresLearnedStore)(nil)

// RecordLearned implements store.LearnedStore.RecordLearned.
func (s *PostgresLearnedStore) RecordLearned(ctx context.Context, deckID, cardID uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_cards (card_id, deck_id, learned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (card_id) DO NOTHING
	`, cardID, deckID, at)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrCardNotFound, cardID)
		}
		return store.NewStoreError("learned_card", "record", "failed to record learned card", MapError(err))
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		logger.FromContextOrDefault(ctx, s.logger).Debug("card already recorded as learned",
			slog.String("card_id", cardID.String()))
	}
	return nil
}

// CountLearnedSince implements store.LearnedStore.CountLearnedSince.
func (s *PostgresLearnedStore) CountLearnedSince(ctx context.Context, deckID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM learned_cards WHERE deck_id = $1 AND learned_at >= $2`,
		deckID, since).Scan(&n)
	if err != nil {
		return 0, store.NewStoreError("learned_card", "count", "failed to count learned cards", MapError(err))
	}
	return n, nil
}
