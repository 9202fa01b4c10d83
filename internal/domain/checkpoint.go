package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionCheckpoint is the resumable snapshot of a study session. It holds
// card identities only; card state is always reloaded from storage.
type SessionCheckpoint struct {
	SessionID uuid.UUID         `json:"session_id"`
	DeckID    uuid.UUID         `json:"deck_id"`
	Queue     []uuid.UUID       `json:"queue"`
	History   []uuid.UUID       `json:"history"`
	Streaks   map[uuid.UUID]int `json:"streaks"`
	NewCards  []uuid.UUID       `json:"new_cards"`
	Learned   []uuid.UUID       `json:"learned"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Validate checks that the checkpoint identifies its session and deck.
func (c *SessionCheckpoint) Validate() error {
	if c.SessionID == uuid.Nil {
		return NewValidationError("session_id", "cannot be empty", ErrInvalidID)
	}
	if c.DeckID == uuid.Nil {
		return NewValidationError("deck_id", "cannot be empty", ErrInvalidID)
	}
	return nil
}

// CardIDs returns every card referenced by the checkpoint, queue first,
// without duplicates.
func (c *SessionCheckpoint) CardIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(c.Queue)+len(c.History))
	ids := make([]uuid.UUID, 0, len(c.Queue)+len(c.History))
	for _, group := range [][]uuid.UUID{c.Queue, c.History} {
		for _, id := range group {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
