package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/service/study"
)

// CardHandler handles card registration and standalone reviews.
type CardHandler struct {
	study  study.Service
	logger *slog.Logger
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(svc study.Service, logger *slog.Logger) *CardHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("study service cannot be nil for CardHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CardHandler{
		study:  svc,
		logger: logger.With(slog.String("component", "card_handler")),
	}
}

// GetDueCards handles GET /decks/{deckID}/cards/due.
func (h *CardHandler) GetDueCards(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	deckID, ok := handlePathUUID(w, r, "deckID", log)
	if !ok {
		return
	}

	cards, err := h.study.DueCards(r.Context(), deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load due cards")
		return
	}

	resp := make([]CardResponse, len(cards))
	for i, card := range cards {
		resp[i] = cardToResponse(card)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RegisterCard handles POST /decks/{deckID}/cards.
func (h *CardHandler) RegisterCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	deckID, ok := handlePathUUID(w, r, "deckID", log)
	if !ok {
		return
	}

	card, err := h.study.RegisterCard(r.Context(), deckID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, cardToResponse(card))
}

// ReviewCard handles POST /cards/{id}/review. It rates a card outside any
// session.
func (h *CardHandler) ReviewCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	cardID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}
	rating, ok := decodeRating(w, r, log)
	if !ok {
		return
	}

	result, err := h.study.Review(r.Context(), cardID, rating)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Debug("card reviewed via API", slog.String("card_id", cardID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, ReviewResponse{
		Card:      cardToResponse(result.Card),
		IsNewCard: result.IsNewCard,
	})
}
