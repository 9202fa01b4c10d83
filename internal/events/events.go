package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// TypeCardLearned is emitted once per card, the first time a card that
	// started a session as new is mastered.
	TypeCardLearned = "card.learned"
)

// Event is a typed notification with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an event of eventType carrying payload.
func NewEvent(eventType string, payload any, at time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: at,
	}, nil
}

// CardLearned is the payload of TypeCardLearned.
type CardLearned struct {
	DeckID    uuid.UUID `json:"deck_id"`
	CardID    uuid.UUID `json:"card_id"`
	SessionID uuid.UUID `json:"session_id"`
	LearnedAt time.Time `json:"learned_at"`
}

// NewCardLearnedEvent wraps p in a TypeCardLearned event.
func NewCardLearnedEvent(p CardLearned) (*Event, error) {
	return NewEvent(TypeCardLearned, p, p.LearnedAt)
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to subscribed handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
