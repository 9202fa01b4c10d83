package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// PostgresCardStateStore implements store.CardStateStore.
type PostgresCardStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCardStateStore creates a card state store over a connection
// pool or transaction. If logger is nil, a default logger will be used.
func NewPostgresCardStateStore(db store.DBTX, logger *slog.Logger) *PostgresCardStateStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCardStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_state_store")),
	}
}

// Ensure PostgresCardStateStore implements store.CardStateStore interface
var _ store.CardStateStore = (*PostgresCardStateStore)(nil)

const selectCardColumns = `
	SELECT c.id, c.deck_id, s.card_id IS NOT NULL,
	       COALESCE(s.difficulty, 0), COALESCE(s.stability, 0),
	       s.last_review_at, s.due_at, COALESCE(s.stage, 0), s.first_learned_at
	FROM cards c
	LEFT JOIN card_states s ON s.card_id = c.id
`

// WithTx implements store.CardStateStore.WithTx.
func (s *PostgresCardStateStore) WithTx(tx *sql.Tx) store.CardStateStore {
	return &PostgresCardStateStore{db: tx, logger: s.logger}
}

// Create implements store.CardStateStore.Create.
func (s *PostgresCardStateStore) Create(ctx context.Context, card domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if card.DeckID == uuid.Nil {
		return fmt.Errorf("%w: card has no deck", store.ErrInvalidEntity)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cards (id, deck_id) VALUES ($1, $2)`,
		card.ID, card.DeckID)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrCardExists, card.ID)
		}
		log.Error("failed to create card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return store.NewStoreError("card", "create", "failed to insert card", MapError(err))
	}

	if card.State != nil {
		if err := s.SaveState(ctx, card); err != nil {
			return err
		}
	}

	log.Debug("card created",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", card.DeckID.String()))
	return nil
}

// Get implements store.CardStateStore.Get.
func (s *PostgresCardStateStore) Get(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	row := s.db.QueryRowContext(ctx, selectCardColumns+` WHERE c.id = $1`, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Card{}, store.ErrCardNotFound
		}
		return domain.Card{}, store.NewStoreError("card", "get", "failed to load card", MapError(err))
	}

	if card.State != nil {
		reviews, err := s.loadReviews(ctx,
			`WHERE card_id = $1`, id)
		if err != nil {
			return domain.Card{}, err
		}
		card.State.Reviews = reviews[id]
		if card.State.Reviews == nil {
			card.State.Reviews = []domain.ReviewEvent{}
		}
	}
	return card, nil
}

// GetMany implements store.CardStateStore.GetMany.
func (s *PostgresCardStateStore) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Card, error) {
	if len(ids) == 0 {
		return []domain.Card{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	return s.list(ctx, "get_many",
		`WHERE c.id = ANY($1::uuid[])`,
		`WHERE card_id = ANY($1::uuid[])`,
		keys)
}

// ListByDeck implements store.CardStateStore.ListByDeck.
func (s *PostgresCardStateStore) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	return s.list(ctx, "list_by_deck",
		`WHERE c.deck_id = $1`,
		`WHERE card_id IN (SELECT id FROM cards WHERE deck_id = $1)`,
		deckID)
}

func (s *PostgresCardStateStore) list(
	ctx context.Context,
	operation, cardFilter, reviewFilter string,
	arg any,
) ([]domain.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		selectCardColumns+cardFilter+` ORDER BY c.created_at, c.id`, arg)
	if err != nil {
		return nil, store.NewStoreError("card", operation, "failed to query cards", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	cards := []domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, store.NewStoreError("card", operation, "failed to scan card", MapError(err))
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", operation, "failed to iterate cards", MapError(err))
	}

	reviews, err := s.loadReviews(ctx, reviewFilter, arg)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].State == nil {
			continue
		}
		cards[i].State.Reviews = reviews[cards[i].ID]
		if cards[i].State.Reviews == nil {
			cards[i].State.Reviews = []domain.ReviewEvent{}
		}
	}
	return cards, nil
}

// SaveState implements store.CardStateStore.SaveState.
func (s *PostgresCardStateStore) SaveState(ctx context.Context, card domain.Card) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	state := card.State
	if state == nil {
		return fmt.Errorf("%w: card %s has no state", store.ErrInvalidEntity, card.ID)
	}

	var stored int
	err := s.db.QueryRowContext(ctx,
		`SELECT review_count FROM card_states WHERE card_id = $1 FOR UPDATE`,
		card.ID).Scan(&stored)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.NewStoreError("card", "save_state", "failed to lock state", MapError(err))
	}
	// Once reviews are stored, a save must append to them. An equal count
	// means the state was derived from an older copy of the card.
	if stored > 0 && len(state.Reviews) <= stored {
		log.Warn("refusing to save stale card state",
			slog.String("card_id", card.ID.String()),
			slog.Int("stored_reviews", stored),
			slog.Int("reviews", len(state.Reviews)))
		return fmt.Errorf("%w: card %s has %d stored reviews, state has %d",
			store.ErrStaleState, card.ID, stored, len(state.Reviews))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO card_states (
			card_id, difficulty, stability, last_review_at, due_at,
			stage, first_learned_at, review_count, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (card_id) DO UPDATE SET
			difficulty = EXCLUDED.difficulty,
			stability = EXCLUDED.stability,
			last_review_at = EXCLUDED.last_review_at,
			due_at = EXCLUDED.due_at,
			stage = EXCLUDED.stage,
			first_learned_at = EXCLUDED.first_learned_at,
			review_count = EXCLUDED.review_count,
			updated_at = NOW()
	`,
		card.ID,
		state.Difficulty,
		state.Stability,
		nullTime(state.LastReviewAt),
		nullTime(state.DueAt),
		int(state.Stage),
		nullTime(state.FirstLearnedAt),
		len(state.Reviews),
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %s", store.ErrCardNotFound, card.ID)
		}
		log.Error("failed to upsert card state",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return store.NewStoreError("card", "save_state", "failed to upsert state", MapError(err))
	}

	for seq := stored; seq < len(state.Reviews); seq++ {
		ev := state.Reviews[seq]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO review_events (
				card_id, seq, reviewed_at, rating, interval_days, difficulty, stability
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, card.ID, seq, ev.Timestamp, int(ev.Rating), ev.IntervalDays, ev.Difficulty, ev.Stability)
		if err != nil {
			return store.NewStoreError("card", "save_state", "failed to append review", MapError(err))
		}
	}

	log.Debug("card state saved",
		slog.String("card_id", card.ID.String()),
		slog.Int("appended_reviews", len(state.Reviews)-stored))
	return nil
}

func (s *PostgresCardStateStore) loadReviews(
	ctx context.Context,
	filter string,
	arg any,
) (map[uuid.UUID][]domain.ReviewEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT card_id, reviewed_at, rating, interval_days, difficulty, stability
		FROM review_events `+filter+`
		ORDER BY card_id, seq
	`, arg)
	if err != nil {
		return nil, store.NewStoreError("review_event", "list", "failed to query reviews", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID][]domain.ReviewEvent)
	for rows.Next() {
		var (
			cardID uuid.UUID
			ev     domain.ReviewEvent
			rating int
		)
		if err := rows.Scan(&cardID, &ev.Timestamp, &rating, &ev.IntervalDays, &ev.Difficulty, &ev.Stability); err != nil {
			return nil, store.NewStoreError("review_event", "list", "failed to scan review", MapError(err))
		}
		ev.Rating = domain.Rating(rating)
		ev.Timestamp = ev.Timestamp.UTC()
		out[cardID] = append(out[cardID], ev)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("review_event", "list", "failed to iterate reviews", MapError(err))
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(row scanner) (domain.Card, error) {
	var (
		card                          domain.Card
		hasState                      bool
		difficulty, stability         float64
		lastReview, due, firstLearned sql.NullTime
		stage                         int
	)
	if err := row.Scan(&card.ID, &card.DeckID, &hasState, &difficulty, &stability,
		&lastReview, &due, &stage, &firstLearned); err != nil {
		return domain.Card{}, err
	}
	if !hasState {
		return card, nil
	}
	card.State = &domain.CardState{
		Difficulty:     difficulty,
		Stability:      stability,
		LastReviewAt:   timePtr(lastReview),
		DueAt:          timePtr(due),
		Stage:          domain.Stage(stage),
		FirstLearnedAt: timePtr(firstLearned),
	}
	return card, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
