package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardValidate(t *testing.T) {
	t.Parallel()

	card := NewCard(uuid.New())
	if err := card.Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	err := Card{DeckID: uuid.New()}.Validate()
	var invalid *InvalidCardError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "id", invalid.Field)
	assert.ErrorIs(t, err, ErrInvalidCard)
}

func TestCardStateClone(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 4)
	original := &CardState{
		Difficulty:   5.1443,
		Stability:    4.1386,
		Reviews:      []ReviewEvent{{Timestamp: now, Rating: RatingEasy, IntervalDays: 4}},
		LastReviewAt: &now,
		DueAt:        &due,
		Stage:        StageKnown,
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	clone.Reviews[0].Rating = RatingForgot
	*clone.DueAt = now
	clone.Reviews = append(clone.Reviews, ReviewEvent{Timestamp: now})

	assert.Equal(t, RatingEasy, original.Reviews[0].Rating)
	assert.Equal(t, due, *original.DueAt)
	assert.Len(t, original.Reviews, 1)

	var nilState *CardState
	assert.Nil(t, nilState.Clone())
}

func TestCardStateCheck(t *testing.T) {
	t.Parallel()

	cardID := uuid.New()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 4)
	review := ReviewEvent{Timestamp: now, Rating: RatingEasy, IntervalDays: 4, Difficulty: 5.1443, Stability: 4.1386}

	testCases := []struct {
		name   string
		state  *CardState
		fields []string
	}{
		{
			name:  "nil state is not malformed",
			state: nil,
		},
		{
			name:  "fresh state",
			state: NewCardState(),
		},
		{
			name: "consistent reviewed state",
			state: &CardState{
				Difficulty:     5.1443,
				Stability:      4.1386,
				Reviews:        []ReviewEvent{review},
				LastReviewAt:   &now,
				DueAt:          &due,
				Stage:          StageKnown,
				FirstLearnedAt: &now,
			},
		},
		{
			name:  "nil reviews slice",
			state: &CardState{},
		},
		{
			name: "reviewed state missing numeric fields",
			state: &CardState{
				Reviews:        []ReviewEvent{review},
				FirstLearnedAt: &now,
			},
			fields: []string{"difficulty", "stability", "last_review_at", "due_at"},
		},
		{
			name: "NaN stability and stale stage",
			state: &CardState{
				Difficulty:     5,
				Stability:      math.NaN(),
				Reviews:        []ReviewEvent{review},
				LastReviewAt:   &now,
				DueAt:          &due,
				Stage:          StageKnown,
				FirstLearnedAt: &now,
			},
			fields: []string{"stability", "stage"},
		},
		{
			name: "memory without history",
			state: &CardState{
				Stability:    12,
				Reviews:      []ReviewEvent{},
				LastReviewAt: &now,
				Stage:        StageStrong,
			},
			fields: []string{"memory", "timestamps"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.state.Check(cardID)
			if len(tc.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			var malformed *MalformedStateError
			require.True(t, errors.As(err, &malformed), "expected MalformedStateError, got %v", err)
			assert.Equal(t, cardID, malformed.CardID)
			assert.Equal(t, tc.fields, malformed.Fields)
			assert.ErrorIs(t, err, ErrMalformedState)
		})
	}
}

func TestFirstPassAt(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	assert.Nil(t, FirstPassAt(nil))
	assert.Nil(t, FirstPassAt([]ReviewEvent{{Timestamp: t1, Rating: RatingForgot}}))

	got := FirstPassAt([]ReviewEvent{
		{Timestamp: t1, Rating: RatingForgot},
		{Timestamp: t2, Rating: RatingHard},
	})
	require.NotNil(t, got)
	assert.Equal(t, t2, *got)
}
