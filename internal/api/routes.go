package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the card and session endpoints on r.
func Routes(r chi.Router, cards *CardHandler, sessions *SessionHandler) {
	r.Route("/decks/{deckID}", func(r chi.Router) {
		r.Get("/cards/due", cards.GetDueCards)
		r.Post("/cards", cards.RegisterCard)
		r.Post("/sessions", sessions.StartSession)
	})
	r.Post("/cards/{id}/review", cards.ReviewCard)

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", sessions.GetSession)
		r.Post("/answer", sessions.Answer)
		r.Post("/back", sessions.Back)
	})
}
