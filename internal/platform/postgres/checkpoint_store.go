package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresCheckpointStore implements store.CheckpointStore. Checkpoints are
// stored as JSONB documents keyed by session.
type PostgresCheckpointStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCheckpointStore creates a checkpoint store.
func NewPostgresCheckpointStore(db store.DBTX, logger *slog.Logger) *PostgresCheckpointStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCheckpointStore{
		db:     db,
		logger: logger.With(slog.String("component", "checkpoint_store")),
	}
}

var _ store.CheckpointStore = (*PostgresCheckpointStore)(nil)

// Save implements store.CheckpointStore.Save.
func (s *PostgresCheckpointStore) Save(ctx context.Context, cp domain.SessionCheckpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	payload, err := json.Marshal(cp)
	if err != nil {
		return store.NewStoreError("checkpoint", "save", "failed to encode checkpoint", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, deck_id, payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`, cp.SessionID, cp.DeckID, payload, cp.UpdatedAt)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to save checkpoint",
			slog.String("error", err.Error()),
			slog.String("session_id", cp.SessionID.String()))
		return store.NewStoreError("checkpoint", "save", "failed to upsert checkpoint", MapError(err))
	}
	return nil
}

// Get implements store.CheckpointStore.Get.
func (s *PostgresCheckpointStore) Get(ctx context.Context, sessionID uuid.UUID) (domain.SessionCheckpoint, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM session_checkpoints WHERE session_id = $1`,
		sessionID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SessionCheckpoint{}, store.ErrCheckpointNotFound
		}
		return domain.SessionCheckpoint{}, store.NewStoreError("checkpoint", "get", "failed to load checkpoint", MapError(err))
	}

	var cp domain.SessionCheckpoint
	if err := json.Unmarshal(payload, &cp); err != nil {
		return domain.SessionCheckpoint{}, store.NewStoreError("checkpoint", "get", "failed to decode checkpoint", err)
	}
	return cp, nil
}

// Delete implements store.CheckpointStore.Delete.
func (s *PostgresCheckpointStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_checkpoints WHERE session_id = $1`, sessionID)
	if err != nil {
		return store.NewStoreError("checkpoint", "delete", "failed to delete checkpoint", MapError(err))
	}
	return nil
}
