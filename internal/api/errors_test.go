package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/service/study"
	"github.com/phrazzld/scry-scheduler/internal/session"
	"github.com/phrazzld/scry-scheduler/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "nil error", err: nil, expectedStatus: http.StatusInternalServerError},
		{name: "card not found", err: store.ErrCardNotFound, expectedStatus: http.StatusNotFound},
		{
			name:           "wrapped session not found",
			err:            fmt.Errorf("answer operation failed: %w", study.ErrSessionNotFound),
			expectedStatus: http.StatusNotFound,
		},
		{name: "checkpoint not found", err: store.ErrCheckpointNotFound, expectedStatus: http.StatusNotFound},
		{name: "duplicate card", err: store.ErrCardExists, expectedStatus: http.StatusConflict},
		{name: "stale state", err: store.ErrStaleState, expectedStatus: http.StatusConflict},
		{name: "completed session", err: session.ErrSessionCompleted, expectedStatus: http.StatusConflict},
		{name: "no history", err: session.ErrNoHistory, expectedStatus: http.StatusConflict},
		{name: "invalid rating", err: &domain.InvalidRatingError{Rating: 9}, expectedStatus: http.StatusBadRequest},
		{
			name:           "validation error",
			err:            domain.NewValidationError("deck_id", "cannot be empty", domain.ErrInvalidID),
			expectedStatus: http.StatusBadRequest,
		},
		{name: "invalid card", err: &domain.InvalidCardError{Field: "id"}, expectedStatus: http.StatusBadRequest},
		{name: "unknown error", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: "An unexpected error occurred"},
		{name: "session", err: study.ErrSessionNotFound, expected: "Session not found"},
		{name: "card", err: fmt.Errorf("load: %w", store.ErrCardNotFound), expected: "Card not found"},
		{name: "stale", err: store.ErrStaleState, expected: "Card state is out of date"},
		{name: "rating", err: &domain.InvalidRatingError{Rating: 0}, expected: "Invalid rating"},
		{
			name:     "validation",
			err:      domain.NewValidationError("deck_id", "cannot be empty", domain.ErrInvalidID),
			expected: "Invalid deck_id: cannot be empty",
		},
		{
			name:     "internal detail hidden",
			err:      errors.New("pq: relation card_states does not exist"),
			expected: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(RatingRequest{})
	assert.Equal(t, "Invalid rating: required field", SanitizeValidationError(err))

	err = v.Struct(RatingRequest{Rating: "good"})
	assert.Equal(t, "Invalid rating: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
