package study

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// CardRepository is the card storage the service works against.
type CardRepository interface {
	Create(ctx context.Context, card domain.Card) error
	Get(ctx context.Context, id uuid.UUID) (domain.Card, error)
	GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Card, error)
	ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error)
	// SaveState persists a card's state and its new review events atomically.
	SaveState(ctx context.Context, card domain.Card) error
}

// NewCardRepositoryAdapter adapts a store.CardStateStore so that every
// write runs in its own transaction on db.
func NewCardRepositoryAdapter(cards store.CardStateStore, db *sql.DB) CardRepository {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if db == nil {
		panic("db cannot be nil")
	}
	return &cardRepositoryAdapter{cards: cards, db: db}
}

type cardRepositoryAdapter struct {
	cards store.CardStateStore
	db    *sql.DB
}

func (a *cardRepositoryAdapter) Create(ctx context.Context, card domain.Card) error {
	return store.RunInTransaction(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		return a.cards.WithTx(tx).Create(ctx, card)
	})
}

func (a *cardRepositoryAdapter) Get(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	return a.cards.Get(ctx, id)
}

func (a *cardRepositoryAdapter) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Card, error) {
	return a.cards.GetMany(ctx, ids)
}

func (a *cardRepositoryAdapter) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	return a.cards.ListByDeck(ctx, deckID)
}

func (a *cardRepositoryAdapter) SaveState(ctx context.Context, card domain.Card) error {
	return store.RunInTransaction(ctx, a.db, func(ctx context.Context, tx *sql.Tx) error {
		return a.cards.WithTx(tx).SaveState(ctx, card)
	})
}
