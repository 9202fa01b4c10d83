// Package scheduler orchestrates the memory model over cards: it initializes
// and repairs card state, records reviews and selects due cards. It is the
// validation boundary of the engine.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// ReviewResult is the outcome of recording one review.
type ReviewResult struct {
	// Card carries the replaced state
	Card domain.Card `json:"card"`
	// IsNewCard is true when the card had never been reviewed before
	IsNewCard bool `json:"is_new_card"`
}

// Scheduler is the single entry point callers use for card-level
// scheduling operations.
type Scheduler interface {
	// InitializeCard attaches a zero-valued state to a card that has none and
	// repairs a malformed or partial state by filling engine defaults.
	//
	// Parameters:
	//   - ctx: Context for the operation, used for request-scoped logging
	//   - card: The card to initialize
	//
	// Returns:
	//   - (domain.Card, nil): The card with a consistent state attached
	//   - (domain.Card{}, error): An error wrapping *domain.InvalidCardError when the
	//     card has no identity
	//
	// Calling InitializeCard on an initialized card returns it unchanged.
	// A malformed state is logged at WARN and repaired; it is never an error.
	InitializeCard(ctx context.Context, card domain.Card) (domain.Card, error)

	// ProcessReview records one review of card with rating.
	//
	// Parameters:
	//   - ctx: Context for the operation, used for request-scoped logging
	//   - card: The reviewed card; its state may be nil
	//   - rating: The learner's rating
	//
	// Returns:
	//   - (ReviewResult, nil): The card with its state replaced, and whether the
	//     card had never been reviewed before
	//   - (ReviewResult{}, error): An error wrapping *domain.InvalidCardError or
	//     *domain.InvalidRatingError
	//
	// Error Handling:
	//   - A missing identity is always an error, never a silent no-op
	//   - Ratings outside {1, 2, 3} are rejected, never substituted
	//
	// The input card and its state are not modified.
	ProcessReview(ctx context.Context, card domain.Card, rating domain.Rating) (ReviewResult, error)

	// GetDueCards returns the cards due at now, preserving input order.
	// Uninitialized cards are always due.
	GetDueCards(cards []domain.Card, now time.Time) []domain.Card

	// IsDue reports whether a single card is due at now.
	IsDue(card domain.Card, now time.Time) bool

	// IsNew reports whether a state belongs to a card still being learned:
	// state == nil || state.Stage == 0. Every component classifies "new"
	// cards through this predicate.
	IsNew(state *domain.CardState) bool
}

// ServiceError wraps errors from the scheduler with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "initialize_card", "process_review")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewInitializeCardError returns a new ServiceError for the initialize_card operation.
func NewInitializeCardError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "initialize_card",
		Message:   message,
		Err:       err,
	}
}

// NewProcessReviewError returns a new ServiceError for the process_review operation.
func NewProcessReviewError(message string, err error) *ServiceError {
	return &ServiceError{
		Operation: "process_review",
		Message:   message,
		Err:       err,
	}
}
