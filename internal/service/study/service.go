package study

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/service/scheduler"
	"github.com/phrazzld/scry-scheduler/internal/session"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// SessionView is the externally visible state of a session.
type SessionView struct {
	ID        uuid.UUID      `json:"id"`
	DeckID    uuid.UUID      `json:"deck_id"`
	Status    session.Status `json:"status"`
	Current   *domain.Card   `json:"current,omitempty"`
	Remaining int            `json:"remaining"`
	Learned   int            `json:"learned"`
}

// AnswerResult is the outcome of answering the current card of a session.
type AnswerResult struct {
	Outcome session.Outcome `json:"outcome"`
	Session SessionView     `json:"session"`
}

// Service is the study workflow over stored cards.
type Service interface {
	// DueCards returns the deck's cards due now, in storage order.
	DueCards(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error)

	// RegisterCard stores a new, initialized card in the deck.
	RegisterCard(ctx context.Context, deckID uuid.UUID) (domain.Card, error)

	// Review rates a single card outside any session and persists the result.
	Review(ctx context.Context, cardID uuid.UUID, rating domain.Rating) (scheduler.ReviewResult, error)

	// StartSession plans a session over the deck and checkpoints it.
	StartSession(ctx context.Context, deckID uuid.UUID) (SessionView, error)

	// GetSession returns a live session, resuming it from its checkpoint
	// when it is not held in memory.
	GetSession(ctx context.Context, sessionID uuid.UUID) (SessionView, error)

	// Answer rates the stored copy of the session's current card and
	// persists the card state and the checkpoint. A completed session is
	// dropped along with its checkpoint. When the card state cannot be
	// stored the session is rolled back to before the rating.
	Answer(ctx context.Context, sessionID uuid.UUID, rating domain.Rating) (AnswerResult, error)

	// Back re-shows the previously answered card without rating it.
	Back(ctx context.Context, sessionID uuid.UUID) (SessionView, error)
}

// Option customizes the service.
type Option func(*serviceImpl)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *serviceImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// DefaultSessionTTL is how long an untouched session stays in memory before
// it has to be resumed from its checkpoint.
const DefaultSessionTTL = 30 * time.Minute

// WithSessionTTL sets how long idle sessions are held in memory.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *serviceImpl) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithLocation sets the timezone whose midnight starts a new quota day.
func WithLocation(loc *time.Location) Option {
	return func(s *serviceImpl) {
		if loc != nil {
			s.loc = loc
		}
	}
}

var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	cards       CardRepository
	checkpoints store.CheckpointStore
	learned     store.LearnedStore
	sched       scheduler.Scheduler
	policy      *session.Policy
	emitter     events.EventEmitter
	now         func() time.Time
	loc         *time.Location
	logger      *slog.Logger

	// mu serializes writes per card and guards sessions
	mu         sync.Mutex
	sessions   *session.Cache[uuid.UUID, *session.Session]
	sessionTTL time.Duration
}

// NewService creates the study service.
func NewService(
	cards CardRepository,
	checkpoints store.CheckpointStore,
	learned store.LearnedStore,
	sched scheduler.Scheduler,
	policy *session.Policy,
	emitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) Service {
	if cards == nil {
		panic("cards cannot be nil")
	}
	if checkpoints == nil {
		panic("checkpoints cannot be nil")
	}
	if learned == nil {
		panic("learned cannot be nil")
	}
	if sched == nil {
		panic("sched cannot be nil")
	}
	if policy == nil {
		panic("policy cannot be nil")
	}
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &serviceImpl{
		cards:       cards,
		checkpoints: checkpoints,
		learned:     learned,
		sched:       sched,
		policy:      policy,
		emitter:     emitter,
		now:         time.Now,
		loc:         time.UTC,
		logger:      logger.With(slog.String("component", "study_service")),
		sessionTTL:  DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = session.NewCache[uuid.UUID, *session.Session](s.sessionTTL, func() time.Time { return s.now() })
	return s
}

// DueCards implements Service.DueCards.
func (s *serviceImpl) DueCards(ctx context.Context, deckID uuid.UUID) ([]domain.Card, error) {
	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return nil, newServiceError("due_cards", "failed to load deck", err)
	}
	return s.sched.GetDueCards(cards, s.now()), nil
}

// RegisterCard implements Service.RegisterCard.
func (s *serviceImpl) RegisterCard(ctx context.Context, deckID uuid.UUID) (domain.Card, error) {
	if deckID == uuid.Nil {
		return domain.Card{}, domain.NewValidationError("deck_id", "cannot be empty", domain.ErrInvalidID)
	}

	card, err := s.sched.InitializeCard(ctx, domain.NewCard(deckID))
	if err != nil {
		return domain.Card{}, newServiceError("register_card", "failed to initialize card", err)
	}
	if err := s.cards.Create(ctx, card); err != nil {
		return domain.Card{}, newServiceError("register_card", "failed to store card", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("card registered",
		slog.String("card_id", card.ID.String()),
		slog.String("deck_id", deckID.String()))
	return card, nil
}

// Review implements Service.Review.
func (s *serviceImpl) Review(
	ctx context.Context,
	cardID uuid.UUID,
	rating domain.Rating,
) (scheduler.ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.cards.Get(ctx, cardID)
	if err != nil {
		return scheduler.ReviewResult{}, newServiceError("review", "failed to load card", err)
	}

	result, err := s.sched.ProcessReview(ctx, card, rating)
	if err != nil {
		return scheduler.ReviewResult{}, newServiceError("review", "review rejected", err)
	}

	if err := s.cards.SaveState(ctx, result.Card); err != nil {
		log.Error("failed to persist review",
			slog.String("error", err.Error()),
			slog.String("card_id", cardID.String()))
		return scheduler.ReviewResult{}, newServiceError("review", "failed to persist review", err)
	}
	s.policy.Remember(result.Card)

	log.Info("card reviewed",
		slog.String("card_id", cardID.String()),
		slog.String("rating", rating.String()),
		slog.Bool("is_new_card", result.IsNewCard))
	return result, nil
}

// StartSession implements Service.StartSession.
func (s *serviceImpl) StartSession(ctx context.Context, deckID uuid.UUID) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.cards.ListByDeck(ctx, deckID)
	if err != nil {
		return SessionView{}, newServiceError("start_session", "failed to load deck", err)
	}

	learnedToday, err := s.learned.CountLearnedSince(ctx, deckID, s.startOfDay())
	if err != nil {
		return SessionView{}, newServiceError("start_session", "failed to count learned cards", err)
	}

	sess, err := s.policy.Start(ctx, deckID, cards, learnedToday)
	if err != nil {
		return SessionView{}, newServiceError("start_session", "failed to plan session", err)
	}

	if n := s.sessions.Prune(); n > 0 {
		logger.FromContextOrDefault(ctx, s.logger).Debug("dropped idle sessions", slog.Int("count", n))
	}
	if sess.Status() == session.StatusActive {
		if err := s.checkpoints.Save(ctx, sess.Checkpoint()); err != nil {
			return SessionView{}, newServiceError("start_session", "failed to save checkpoint", err)
		}
		s.sessions.Put(sess.ID(), sess)
	}

	return view(sess), nil
}

// GetSession implements Service.GetSession.
func (s *serviceImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return SessionView{}, newServiceError("get_session", "failed to load session", err)
	}
	return view(sess), nil
}

// Answer implements Service.Answer.
func (s *serviceImpl) Answer(
	ctx context.Context,
	sessionID uuid.UUID,
	rating domain.Rating,
) (AnswerResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return AnswerResult{}, newServiceError("answer", "failed to load session", err)
	}

	if current, ok := sess.Current(); ok {
		// The card may have been reviewed outside this session since it
		// was queued; rating the session's copy would not extend the
		// stored history.
		stored, err := s.cards.Get(ctx, current.ID)
		if err != nil {
			return AnswerResult{}, newServiceError("answer", "failed to load card", err)
		}
		if sess.Refresh(stored) {
			log.Debug("refreshed card reviewed outside the session",
				slog.String("session_id", sessionID.String()),
				slog.String("card_id", current.ID.String()))
		}
	}

	before := sess.Checkpoint()
	previous, _ := sess.Current()

	out, err := sess.Rate(ctx, rating)
	if err != nil {
		return AnswerResult{}, newServiceError("answer", "rating aborted", err)
	}

	if err := s.cards.SaveState(ctx, out.Card); err != nil {
		log.Error("failed to persist answer, rolling back session",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()),
			slog.String("card_id", out.Card.ID.String()))
		s.rollback(ctx, sess, before, previous)
		return AnswerResult{}, newServiceError("answer", "failed to persist answer", err)
	}

	// The card state is stored; a failed checkpoint write only costs
	// resumability and is retried on the next action.
	if err := s.saveCheckpoint(ctx, sess); err != nil {
		log.Warn("failed to update session checkpoint",
			slog.String("error", err.Error()),
			slog.String("session_id", sessionID.String()))
	}

	if out.Learned {
		s.emitLearned(ctx, sess, out.Card)
	}
	if sess.Status() == session.StatusCompleted {
		s.sessions.Evict(sessionID)
	}

	return AnswerResult{Outcome: out, Session: view(sess)}, nil
}

// Back implements Service.Back.
func (s *serviceImpl) Back(ctx context.Context, sessionID uuid.UUID) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return SessionView{}, newServiceError("back", "failed to load session", err)
	}
	if _, err := sess.Back(); err != nil {
		return SessionView{}, newServiceError("back", "cannot go back", err)
	}
	if err := s.saveCheckpoint(ctx, sess); err != nil {
		return SessionView{}, newServiceError("back", "failed to save checkpoint", err)
	}
	return view(sess), nil
}

// lookup returns the live session or resumes it from its checkpoint.
// Callers hold s.mu.
func (s *serviceImpl) lookup(ctx context.Context, sessionID uuid.UUID) (*session.Session, error) {
	if sess, ok := s.sessions.Get(sessionID); ok {
		s.sessions.Put(sessionID, sess)
		return sess, nil
	}

	cp, err := s.checkpoints.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrCheckpointNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	cards, err := s.cards.GetMany(ctx, cp.CardIDs())
	if err != nil {
		return nil, err
	}
	sess, err := s.policy.Resume(ctx, cp, cards)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(sessionID, sess)
	return sess, nil
}

// saveCheckpoint stores the session checkpoint, or deletes it when the
// session is over.
func (s *serviceImpl) saveCheckpoint(ctx context.Context, sess *session.Session) error {
	if sess.Status() == session.StatusCompleted {
		logger.FromContextOrDefault(ctx, s.logger).Info("session completed",
			slog.String("session_id", sess.ID().String()),
			slog.Int("learned", sess.LearnedCount()))
		return s.checkpoints.Delete(ctx, sess.ID())
	}
	return s.checkpoints.Save(ctx, sess.Checkpoint())
}

// rollback restores the session to the checkpoint taken before a rating
// whose result could not be stored.
func (s *serviceImpl) rollback(
	ctx context.Context,
	sess *session.Session,
	before domain.SessionCheckpoint,
	previous domain.Card,
) {
	s.policy.Forget(previous.ID)

	cards := make([]domain.Card, 0, len(before.Queue))
	for _, id := range before.CardIDs() {
		if id == previous.ID {
			cards = append(cards, previous)
			continue
		}
		if card, ok := sess.Card(id); ok {
			cards = append(cards, card)
		}
	}

	restored, err := s.policy.Resume(ctx, before, cards)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to roll back session",
			slog.String("error", err.Error()),
			slog.String("session_id", sess.ID().String()))
		s.sessions.Evict(sess.ID())
		return
	}
	s.sessions.Put(sess.ID(), restored)
}

// emitLearned publishes card.learned. The review is already stored, so a
// failing handler is logged rather than returned.
func (s *serviceImpl) emitLearned(ctx context.Context, sess *session.Session, card domain.Card) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewCardLearnedEvent(events.CardLearned{
		DeckID:    sess.DeckID(),
		CardID:    card.ID,
		SessionID: sess.ID(),
		LearnedAt: s.now().UTC(),
	})
	if err != nil {
		log.Error("failed to build learned event", slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("learned event not fully handled",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
	}
}

// startOfDay is midnight of the current day in the configured timezone.
func (s *serviceImpl) startOfDay() time.Time {
	now := s.now().In(s.loc)
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func view(sess *session.Session) SessionView {
	v := SessionView{
		ID:        sess.ID(),
		DeckID:    sess.DeckID(),
		Status:    sess.Status(),
		Remaining: sess.Remaining(),
		Learned:   sess.LearnedCount(),
	}
	if card, ok := sess.Current(); ok {
		v.Current = &card
	}
	return v
}
