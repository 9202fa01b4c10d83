package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("process review: %w", &InvalidRatingError{Rating: 7})
	assert.ErrorIs(t, wrapped, ErrInvalidRating)
	assert.Contains(t, wrapped.Error(), "invalid rating 7")

	var ratingErr *InvalidRatingError
	assert.True(t, errors.As(wrapped, &ratingErr))
	assert.Equal(t, Rating(7), ratingErr.Rating)

	cardErr := error(&InvalidCardError{Field: "id", Reason: "cannot be empty"})
	assert.ErrorIs(t, cardErr, ErrInvalidCard)
	assert.Equal(t, "invalid card: id cannot be empty", cardErr.Error())

	id := uuid.New()
	stateErr := error(&MalformedStateError{CardID: id, Fields: []string{"stability", "due_at"}})
	assert.ErrorIs(t, stateErr, ErrMalformedState)
	assert.Contains(t, stateErr.Error(), "stability, due_at")

	validation := NewValidationError("deck_id", "cannot be empty", ErrInvalidID)
	assert.ErrorIs(t, validation, ErrInvalidID)
	assert.Equal(t, "deck_id cannot be empty", validation.Error())
}
