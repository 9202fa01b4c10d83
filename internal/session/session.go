package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
)

var (
	// ErrSessionCompleted is returned when rating a session with an empty queue.
	ErrSessionCompleted = errors.New("session completed")
	// ErrNoHistory is returned when navigating back before the first card.
	ErrNoHistory = errors.New("no previous card")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Outcome describes what happened to a card after a rating.
type Outcome struct {
	// Card carries the updated state
	Card domain.Card
	// IsNewCard is true when this was the card's first review ever
	IsNewCard bool
	// Streak is the in-session EASY streak after the rating
	Streak int
	// Mastered is true when the card left the queue
	Mastered bool
	// Learned is true the one time a card that started new is mastered
	Learned bool
	// Position is the re-insertion index, or -1 when the card left the queue
	Position int
	// Status is the session status after the rating
	Status Status
}

// Session is one in-memory study session.
type Session struct {
	policy    *Policy
	id        uuid.UUID
	deckID    uuid.UUID
	cards     map[uuid.UUID]domain.Card
	queue     []uuid.UUID
	history   []uuid.UUID
	streaks   map[uuid.UUID]int
	newCards  map[uuid.UUID]struct{}
	learned   []uuid.UUID
	updatedAt time.Time
}

func newSession(p *Policy, id, deckID uuid.UUID, at time.Time) *Session {
	return &Session{
		policy:    p,
		id:        id,
		deckID:    deckID,
		cards:     make(map[uuid.UUID]domain.Card),
		streaks:   make(map[uuid.UUID]int),
		newCards:  make(map[uuid.UUID]struct{}),
		updatedAt: at,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// DeckID returns the deck the session studies.
func (s *Session) DeckID() uuid.UUID { return s.deckID }

// Status reports whether cards remain in the queue.
func (s *Session) Status() Status {
	if len(s.queue) == 0 {
		return StatusCompleted
	}
	return StatusActive
}

// Current returns the card at the head of the queue.
func (s *Session) Current() (domain.Card, bool) {
	if len(s.queue) == 0 {
		return domain.Card{}, false
	}
	return s.cards[s.queue[0]], true
}

// Remaining returns the queue length.
func (s *Session) Remaining() int { return len(s.queue) }

// Queue returns the queued card ids in order.
func (s *Session) Queue() []uuid.UUID { return slices.Clone(s.queue) }

// LearnedCount returns how many new cards were learned in this session.
func (s *Session) LearnedCount() int { return len(s.learned) }

// Card returns the session's current copy of a card.
func (s *Session) Card(id uuid.UUID) (domain.Card, bool) {
	card, ok := s.cards[id]
	return card, ok
}

// Refresh replaces the session's copy of card when card carries more
// reviews, as it does after a review recorded outside the session. It
// reports whether the copy was replaced.
func (s *Session) Refresh(card domain.Card) bool {
	held, ok := s.cards[card.ID]
	if !ok || reviewCount(card) <= reviewCount(held) {
		return false
	}
	s.cards[card.ID] = card
	return true
}

func reviewCount(card domain.Card) int {
	if card.State == nil {
		return 0
	}
	return len(card.State.Reviews)
}

// Rate records rating for the current card and re-queues or retires it.
// A scheduler error aborts the rating and leaves the session unchanged.
func (s *Session) Rate(ctx context.Context, rating domain.Rating) (Outcome, error) {
	current, ok := s.Current()
	if !ok {
		return Outcome{}, ErrSessionCompleted
	}

	log := logger.FromContextOrDefault(ctx, s.policy.logger)

	result, err := s.policy.sched.ProcessReview(ctx, current, rating)
	if err != nil {
		log.Error("rating aborted",
			slog.String("session_id", s.id.String()),
			slog.String("card_id", current.ID.String()),
			slog.String("error", err.Error()))
		return Outcome{}, fmt.Errorf("failed to rate card %s: %w", current.ID, err)
	}

	id := current.ID
	s.cards[id] = result.Card
	s.policy.Remember(result.Card)
	s.queue = s.queue[1:]
	s.history = append(s.history, id)
	s.updatedAt = s.policy.now()

	out := Outcome{Card: result.Card, IsNewCard: result.IsNewCard, Position: -1}
	cfg := s.policy.cfg

	if rating == domain.RatingEasy {
		s.streaks[id]++
		out.Streak = s.streaks[id]
		if out.Streak >= cfg.MasteryStreak {
			out.Mastered = true
			if _, wasNew := s.newCards[id]; wasNew {
				out.Learned = s.markLearned(id)
			}
		} else {
			out.Position = s.insert(id, s.policy.reinsertAt(cfg.EasyWindow, len(s.queue)))
		}
	} else {
		s.streaks[id] = 0
		out.Position = s.insert(id, s.policy.reinsertAt(cfg.FailWindow, len(s.queue)))
	}
	out.Status = s.Status()

	log.Debug("card rated in session",
		slog.String("session_id", s.id.String()),
		slog.String("card_id", id.String()),
		slog.String("rating", rating.String()),
		slog.Int("streak", out.Streak),
		slog.Int("position", out.Position),
		slog.Bool("learned", out.Learned))

	return out, nil
}

// Back moves the most recently shown card to the front of the queue. It
// never rates and never changes card state.
func (s *Session) Back() (domain.Card, error) {
	if len(s.history) == 0 {
		return domain.Card{}, ErrNoHistory
	}

	id := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	s.queue = slices.DeleteFunc(s.queue, func(q uuid.UUID) bool { return q == id })
	s.queue = slices.Insert(s.queue, 0, id)
	s.updatedAt = s.policy.now()

	return s.cards[id], nil
}

// Checkpoint snapshots the session for later Resume.
func (s *Session) Checkpoint() domain.SessionCheckpoint {
	streaks := make(map[uuid.UUID]int, len(s.streaks))
	for id, n := range s.streaks {
		if n > 0 {
			streaks[id] = n
		}
	}

	newCards := make([]uuid.UUID, 0, len(s.newCards))
	for id := range s.newCards {
		newCards = append(newCards, id)
	}
	slices.SortFunc(newCards, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })

	return domain.SessionCheckpoint{
		SessionID: s.id,
		DeckID:    s.deckID,
		Queue:     slices.Clone(s.queue),
		History:   slices.Clone(s.history),
		Streaks:   streaks,
		NewCards:  newCards,
		Learned:   slices.Clone(s.learned),
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) insert(id uuid.UUID, pos int) int {
	s.queue = slices.Insert(s.queue, pos, id)
	return pos
}

// markLearned records id once and reports whether it was newly recorded.
func (s *Session) markLearned(id uuid.UUID) bool {
	if slices.Contains(s.learned, id) {
		return false
	}
	s.learned = append(s.learned, id)
	return true
}
