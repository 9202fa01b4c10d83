package study_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockCardRepository mocks the CardRepository interface
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Create(ctx context.Context, card domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) Get(ctx context.Context, id uuid.UUID) (domain.Card, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Card), args.Error(1)
}

func (m *MockCardRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]domain.Card, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepository) ListByDeck(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	args := m.Called(ctx, deckID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Card), args.Error(1)
}

func (m *MockCardRepository) SaveState(ctx context.Context, card domain.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

// MockCheckpointStore mocks store.CheckpointStore
type MockCheckpointStore struct {
	mock.Mock
}

func (m *MockCheckpointStore) Save(ctx context.Context, cp domain.SessionCheckpoint) error {
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *MockCheckpointStore) Get(ctx context.Context, sessionID uuid.UUID) (domain.SessionCheckpoint, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(domain.SessionCheckpoint), args.Error(1)
}

func (m *MockCheckpointStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockLearnedStore mocks store.LearnedStore
type MockLearnedStore struct {
	mock.Mock
}

func (m *MockLearnedStore) RecordLearned(ctx context.Context, deckID, cardID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, deckID, cardID, at)
	return args.Error(0)
}

func (m *MockLearnedStore) CountLearnedSince(ctx context.Context, deckID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, deckID, since)
	return args.Int(0), args.Error(1)
}
