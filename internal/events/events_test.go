package events

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardLearnedEvent(t *testing.T) {
	payload := CardLearned{
		DeckID:    uuid.New(),
		CardID:    uuid.New(),
		SessionID: uuid.New(),
		LearnedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	event, err := NewCardLearnedEvent(payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeCardLearned, event.Type)
	assert.Equal(t, payload.LearnedAt, event.CreatedAt)

	var decoded CardLearned
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, payload, decoded)

	var wrong []string
	assert.Error(t, event.UnmarshalPayload(&wrong))
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	_, err := NewEvent("card.learned", math.Inf(1), time.Now())
	assert.Error(t, err)
}
