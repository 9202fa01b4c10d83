package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-scheduler/internal/api/shared"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/service/study"
)

// SessionHandler handles study session requests.
type SessionHandler struct {
	study  study.Service
	logger *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc study.Service, logger *slog.Logger) *SessionHandler {
	if svc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("study service cannot be nil for SessionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		study:  svc,
		logger: logger.With(slog.String("component", "session_handler")),
	}
}

// StartSession handles POST /decks/{deckID}/sessions.
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	deckID, ok := handlePathUUID(w, r, "deckID", log)
	if !ok {
		return
	}

	view, err := h.study.StartSession(r.Context(), deckID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to start session")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(view))
}

// GetSession handles GET /sessions/{id}.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	view, err := h.study.GetSession(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}

// Answer handles POST /sessions/{id}/answer.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}
	rating, ok := decodeRating(w, r, log)
	if !ok {
		return
	}

	result, err := h.study.Answer(r.Context(), sessionID, rating)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, answerToResponse(result))
}

// Back handles POST /sessions/{id}/back.
func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	sessionID, ok := handlePathUUID(w, r, "id", log)
	if !ok {
		return
	}

	view, err := h.study.Back(r.Context(), sessionID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(view))
}
