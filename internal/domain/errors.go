// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidCard is matched by every InvalidCardError.
	ErrInvalidCard = errors.New("invalid card")

	// ErrInvalidRating is matched by every InvalidRatingError.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrMalformedState is matched by every MalformedStateError.
	ErrMalformedState = errors.New("malformed card state")
)

// ValidationError describes a single field that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError wrapping err.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvalidCardError reports a card that lacks the identity fields required to
// record a review. It is never recovered silently: review counts downstream
// assume that a processed review was actually recorded.
type InvalidCardError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidCardError) Error() string {
	return fmt.Sprintf("invalid card: %s %s", e.Field, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidCard) succeed.
func (e *InvalidCardError) Unwrap() error {
	return ErrInvalidCard
}

// InvalidRatingError reports a rating outside {1, 2, 3}.
type InvalidRatingError struct {
	Rating Rating
}

// Error implements the error interface.
func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("invalid rating %d: must be 1 (forgot), 2 (hard) or 3 (easy)", int(e.Rating))
}

// Unwrap makes errors.Is(err, ErrInvalidRating) succeed.
func (e *InvalidRatingError) Unwrap() error {
	return ErrInvalidRating
}

// MalformedStateError reports a loaded CardState that is missing or carries
// unusable numeric fields, typically data written before a schema change.
// It is recoverable: the scheduler fills defaults instead of failing.
type MalformedStateError struct {
	CardID uuid.UUID
	Fields []string
}

// Error implements the error interface.
func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("malformed state for card %s: %s", e.CardID, strings.Join(e.Fields, ", "))
}

// Unwrap makes errors.Is(err, ErrMalformedState) succeed.
func (e *MalformedStateError) Unwrap() error {
	return ErrMalformedState
}
