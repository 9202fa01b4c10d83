package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/service/study"
	"github.com/phrazzld/scry-scheduler/internal/session"
)

// RatingRequest is the body of review and answer endpoints.
type RatingRequest struct {
	Rating string `json:"rating" validate:"required,oneof=forgot hard easy 1 2 3"`
}

// CardStateResponse is the memory state of a card.
type CardStateResponse struct {
	Difficulty     float64      `json:"difficulty"`
	Stability      float64      `json:"stability"`
	Stage          domain.Stage `json:"stage"`
	ReviewCount    int          `json:"review_count"`
	LastReviewAt   *time.Time   `json:"last_review_at,omitempty"`
	DueAt          *time.Time   `json:"due_at,omitempty"`
	FirstLearnedAt *time.Time   `json:"first_learned_at,omitempty"`
}

// CardResponse is a card with its state, if scheduled.
type CardResponse struct {
	ID     uuid.UUID          `json:"id"`
	DeckID uuid.UUID          `json:"deck_id"`
	State  *CardStateResponse `json:"state,omitempty"`
}

// ReviewResponse is returned after a standalone review.
type ReviewResponse struct {
	Card      CardResponse `json:"card"`
	IsNewCard bool         `json:"is_new_card"`
}

// SessionResponse describes a study session.
type SessionResponse struct {
	ID        uuid.UUID      `json:"id"`
	DeckID    uuid.UUID      `json:"deck_id"`
	Status    session.Status `json:"status"`
	Current   *CardResponse  `json:"current,omitempty"`
	Remaining int            `json:"remaining"`
	Learned   int            `json:"learned"`
}

// OutcomeResponse describes what a session answer did to the card.
type OutcomeResponse struct {
	Card      CardResponse `json:"card"`
	IsNewCard bool         `json:"is_new_card"`
	Streak    int          `json:"streak"`
	Mastered  bool         `json:"mastered"`
	Learned   bool         `json:"learned"`
	Position  int          `json:"position"`
}

// AnswerResponse is returned after answering in a session.
type AnswerResponse struct {
	Outcome OutcomeResponse `json:"outcome"`
	Session SessionResponse `json:"session"`
}

func cardToResponse(card domain.Card) CardResponse {
	resp := CardResponse{ID: card.ID, DeckID: card.DeckID}
	if s := card.State; s != nil {
		resp.State = &CardStateResponse{
			Difficulty:     s.Difficulty,
			Stability:      s.Stability,
			Stage:          s.Stage,
			ReviewCount:    len(s.Reviews),
			LastReviewAt:   s.LastReviewAt,
			DueAt:          s.DueAt,
			FirstLearnedAt: s.FirstLearnedAt,
		}
	}
	return resp
}

func sessionToResponse(v study.SessionView) SessionResponse {
	resp := SessionResponse{
		ID:        v.ID,
		DeckID:    v.DeckID,
		Status:    v.Status,
		Remaining: v.Remaining,
		Learned:   v.Learned,
	}
	if v.Current != nil {
		c := cardToResponse(*v.Current)
		resp.Current = &c
	}
	return resp
}

func answerToResponse(a study.AnswerResult) AnswerResponse {
	return AnswerResponse{
		Outcome: OutcomeResponse{
			Card:      cardToResponse(a.Outcome.Card),
			IsNewCard: a.Outcome.IsNewCard,
			Streak:    a.Outcome.Streak,
			Mastered:  a.Outcome.Mastered,
			Learned:   a.Outcome.Learned,
			Position:  a.Outcome.Position,
		},
		Session: sessionToResponse(a.Session),
	}
}
