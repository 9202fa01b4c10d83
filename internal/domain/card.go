package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Card is one learnable item together with its memory state.
// A nil State means the card has never been seen by the scheduler.
type Card struct {
	ID     uuid.UUID  `json:"id"     yaml:"id"`
	DeckID uuid.UUID  `json:"deck_id" yaml:"deck_id"`
	State  *CardState `json:"state,omitempty" yaml:"state,omitempty"`
}

// NewCard creates an uninitialized card in the given deck.
func NewCard(deckID uuid.UUID) Card {
	return Card{ID: uuid.New(), DeckID: deckID}
}

// Validate checks that the card carries the identity needed to record reviews.
func (c Card) Validate() error {
	if c.ID == uuid.Nil {
		return &InvalidCardError{Field: "id", Reason: "cannot be empty"}
	}
	return nil
}

// WithState returns a copy of the card carrying state.
func (c Card) WithState(state *CardState) Card {
	c.State = state
	return c
}

// ReviewEvent records the outcome of a single review. Events are immutable
// and appended in chronological order.
type ReviewEvent struct {
	Timestamp    time.Time `json:"timestamp"     yaml:"timestamp"`
	Rating       Rating    `json:"rating"        yaml:"rating"`
	IntervalDays int       `json:"interval_days" yaml:"interval_days"`
	Difficulty   float64   `json:"difficulty"    yaml:"difficulty"`
	Stability    float64   `json:"stability"     yaml:"stability"`
}

// CardState is the memory state of one card. Values are replaced, never
// mutated: every update produces a new CardState.
type CardState struct {
	Difficulty     float64       `json:"difficulty"       yaml:"difficulty"`
	Stability      float64       `json:"stability"        yaml:"stability"`
	Reviews        []ReviewEvent `json:"reviews"          yaml:"reviews"`
	LastReviewAt   *time.Time    `json:"last_review_at"   yaml:"last_review_at"`
	DueAt          *time.Time    `json:"due_at"           yaml:"due_at"`
	Stage          Stage         `json:"stage"            yaml:"stage"`
	FirstLearnedAt *time.Time    `json:"first_learned_at" yaml:"first_learned_at"`
}

// NewCardState returns the zero state of a never-reviewed card.
func NewCardState() *CardState {
	return &CardState{Reviews: []ReviewEvent{}}
}

// Clone returns a deep copy of s.
func (s *CardState) Clone() *CardState {
	if s == nil {
		return nil
	}
	c := *s
	c.Reviews = make([]ReviewEvent, len(s.Reviews))
	copy(c.Reviews, s.Reviews)
	c.LastReviewAt = cloneTime(s.LastReviewAt)
	c.DueAt = cloneTime(s.DueAt)
	c.FirstLearnedAt = cloneTime(s.FirstLearnedAt)
	return &c
}

// LastReview returns the most recent review event, if any.
func (s *CardState) LastReview() (ReviewEvent, bool) {
	if s == nil || len(s.Reviews) == 0 {
		return ReviewEvent{}, false
	}
	return s.Reviews[len(s.Reviews)-1], true
}

// Reviewed reports whether the state carries any review history.
func (s *CardState) Reviewed() bool {
	return s != nil && len(s.Reviews) > 0
}

// Check reports the fields of s that violate the state invariants as a
// *MalformedStateError, or nil when the state is consistent.
func (s *CardState) Check(cardID uuid.UUID) error {
	if s == nil {
		return nil
	}

	var fields []string
	if s.Reviewed() {
		if !finite(s.Difficulty) || s.Difficulty < 0.1 || s.Difficulty > 10 {
			fields = append(fields, "difficulty")
		}
		if !finite(s.Stability) || s.Stability < 0.1 {
			fields = append(fields, "stability")
		}
		if s.LastReviewAt == nil {
			fields = append(fields, "last_review_at")
		}
		if s.DueAt == nil {
			fields = append(fields, "due_at")
		}
		if s.FirstLearnedAt == nil && FirstPassAt(s.Reviews) != nil {
			fields = append(fields, "first_learned_at")
		}
	} else {
		// A nil review log is an empty history.
		if s.Stability != 0 || s.Difficulty != 0 {
			fields = append(fields, "memory")
		}
		if s.LastReviewAt != nil || s.DueAt != nil {
			fields = append(fields, "timestamps")
		}
	}
	if s.Stage != StageForStability(s.Stability) {
		fields = append(fields, "stage")
	}

	if len(fields) == 0 {
		return nil
	}
	return &MalformedStateError{CardID: cardID, Fields: fields}
}

// FirstPassAt returns the timestamp of the first non-FORGOT review, if any.
func FirstPassAt(reviews []ReviewEvent) *time.Time {
	for _, r := range reviews {
		if r.Rating != RatingForgot {
			t := r.Timestamp
			return &t
		}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
