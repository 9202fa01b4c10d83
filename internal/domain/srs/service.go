package srs

import (
	"errors"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// Common errors
var (
	ErrNilState = errors.New("card state cannot be nil")
)

// Service defines the interface for memory model operations
type Service interface {
	// Rate computes the state that results from reviewing a card with rating at now.
	// The input state is never modified.
	Rate(state *domain.CardState, rating domain.Rating, now time.Time) (*domain.CardState, error)

	// IsDue reports whether a card with this state should be reviewed at now.
	IsDue(state *domain.CardState, now time.Time) bool

	// Retrievability estimates the probability of recall at now.
	// It returns 0 for a card that has never been reviewed.
	Retrievability(state *domain.CardState, now time.Time) float64

	// Params returns a copy of the parameters the service was built with.
	Params() Params
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new memory model service with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new memory model service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

// Rate implements the Service interface for computing the next state
func (s *defaultService) Rate(
	state *domain.CardState,
	rating domain.Rating,
	now time.Time,
) (*domain.CardState, error) {
	if state == nil {
		return nil, ErrNilState
	}

	if !rating.Valid() {
		return nil, &domain.InvalidRatingError{Rating: rating}
	}

	return calculateNextState(state, rating, now, s.params), nil
}

// IsDue implements the Service interface
func (s *defaultService) IsDue(state *domain.CardState, now time.Time) bool {
	return isDue(state, now)
}

// Retrievability implements the Service interface
func (s *defaultService) Retrievability(state *domain.CardState, now time.Time) float64 {
	if state == nil || state.LastReviewAt == nil {
		return 0
	}
	elapsed := now.Sub(*state.LastReviewAt).Hours() / 24
	return retrievability(elapsed, state.Stability)
}

// Params implements the Service interface
func (s *defaultService) Params() Params {
	return *s.params
}
