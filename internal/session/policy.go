package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
	"github.com/phrazzld/scry-scheduler/internal/service/scheduler"
)

// ErrInvalidConfig is returned when a policy configuration is inconsistent.
var ErrInvalidConfig = errors.New("invalid session config")

// Window is an inclusive range of queue slots ahead of the current position.
type Window struct {
	Min int
	Max int
}

// Config holds the session quotas and re-insertion windows.
type Config struct {
	// MaxReviewWordsPerSession bounds the queue length (R)
	MaxReviewWordsPerSession int
	// DailyNewWordsQuota bounds new cards learned per day (N)
	DailyNewWordsQuota int
	// MasteryStreak is the number of consecutive EASY ratings that master a card
	MasteryStreak int
	// EasyWindow places a card rated EASY before its streak completes
	EasyWindow Window
	// FailWindow places a card rated HARD or FORGOT
	FailWindow Window
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		MaxReviewWordsPerSession: 30,
		DailyNewWordsQuota:       10,
		MasteryStreak:            3,
		EasyWindow:               Window{Min: 1, Max: 3},
		FailWindow:               Window{Min: 1, Max: 2},
	}
}

// ConfigFromSettings converts loaded session settings.
func ConfigFromSettings(c config.SessionConfig) Config {
	return Config{
		MaxReviewWordsPerSession: c.MaxReviewWordsPerSession,
		DailyNewWordsQuota:       c.DailyNewWordsQuota,
		MasteryStreak:            c.MasteryStreak,
		EasyWindow:               Window{Min: c.EasyWindowMin, Max: c.EasyWindowMax},
		FailWindow:               Window{Min: c.FailWindowMin, Max: c.FailWindowMax},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.MaxReviewWordsPerSession < 1:
		return fmt.Errorf("%w: max review words per session must be positive", ErrInvalidConfig)
	case c.DailyNewWordsQuota < 0:
		return fmt.Errorf("%w: daily new words quota cannot be negative", ErrInvalidConfig)
	case c.MasteryStreak < 1:
		return fmt.Errorf("%w: mastery streak must be positive", ErrInvalidConfig)
	}
	for name, w := range map[string]Window{"easy": c.EasyWindow, "fail": c.FailWindow} {
		if w.Min < 0 || w.Max < w.Min {
			return fmt.Errorf("%w: %s window [%d, %d] is empty", ErrInvalidConfig, name, w.Min, w.Max)
		}
	}
	return nil
}

// Plan is the ordered queue for one session together with how it was built.
type Plan struct {
	Queue []domain.Card
	// Reviews is the number of due review cards at the head of the queue
	Reviews int
	// New is the number of new cards appended after the reviews
	New int
	// Browsing is true when no new cards existed and not-yet-due cards
	// were used instead
	Browsing bool
	// NewQuota is the remaining daily quota (-1 when unlimited)
	NewQuota int
}

// Policy builds and drives study sessions.
type Policy struct {
	cfg    Config
	sched  scheduler.Scheduler
	cache  *Cache[uuid.UUID, domain.Card]
	rng    *rand.Rand
	now    func() time.Time
	logger *slog.Logger
}

// PolicyOption customizes a Policy.
type PolicyOption func(*Policy)

// WithClock replaces the time source used to classify due cards and stamp
// checkpoints.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the policy logger.
func WithLogger(l *slog.Logger) PolicyOption {
	return func(p *Policy) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPolicy creates a Policy. The cache holds recently rated cards so that a
// plan built before storage has caught up still sees their latest state; a
// nil rng seeds one from the clock.
func NewPolicy(
	cfg Config,
	sched scheduler.Scheduler,
	cache *Cache[uuid.UUID, domain.Card],
	rng *rand.Rand,
	opts ...PolicyOption,
) (*Policy, error) {
	if sched == nil {
		return nil, errors.New("scheduler cannot be nil")
	}
	if cache == nil {
		return nil, errors.New("cache cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Policy{
		cfg:    cfg,
		sched:  sched,
		cache:  cache,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(p.now().UnixNano()))
	}
	p.rng = rng
	p.logger = p.logger.With(slog.String("component", "session_policy"))
	return p, nil
}

// Config returns the policy configuration.
func (p *Policy) Config() Config {
	return p.cfg
}

// Remember records the latest state of a rated card.
func (p *Policy) Remember(card domain.Card) {
	p.cache.Put(card.ID, card)
}

// Forget drops a card from the recently-rated cache.
func (p *Policy) Forget(cardID uuid.UUID) {
	p.cache.Evict(cardID)
}

// Plan partitions cards into due reviews, new cards and cards not yet due and
// composes the session queue from them. learnedToday is the number of new
// cards already learned today in the same scope.
func (p *Policy) Plan(ctx context.Context, cards []domain.Card, learnedToday int, now time.Time) (Plan, error) {
	var dueReview, fresh, notDue []domain.Card
	for _, card := range cards {
		card, err := p.sched.InitializeCard(ctx, p.freshest(card))
		if err != nil {
			return Plan{}, fmt.Errorf("failed to plan session: %w", err)
		}
		switch {
		case p.sched.IsNew(card.State):
			fresh = append(fresh, card)
		case p.sched.IsDue(card, now):
			dueReview = append(dueReview, card)
		default:
			notDue = append(notDue, card)
		}
	}

	// Overdue cards first
	sort.SliceStable(dueReview, func(i, j int) bool {
		return dueAt(dueReview[i]).Before(dueAt(dueReview[j]))
	})

	r := p.cfg.MaxReviewWordsPerSession
	reviewQueue := takeFirst(dueReview, r)

	candidates := fresh
	newQuota := max(0, p.cfg.DailyNewWordsQuota-learnedToday)
	browsing := len(fresh) == 0
	if browsing {
		candidates = notDue
		newQuota = len(notDue)
	}

	remainingCap := max(0, r-len(reviewQueue))
	newCount := min(len(candidates), newQuota, remainingCap)

	picked := append([]domain.Card(nil), candidates[:newCount]...)
	p.rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	queue := make([]domain.Card, 0, len(reviewQueue)+len(picked))
	queue = append(queue, reviewQueue...)
	queue = append(queue, picked...)

	plan := Plan{
		Queue:    queue,
		Reviews:  len(reviewQueue),
		New:      len(picked),
		Browsing: browsing,
		NewQuota: newQuota,
	}
	if browsing {
		plan.NewQuota = -1
	}

	logger.FromContextOrDefault(ctx, p.logger).Debug("planned session",
		slog.Int("due_reviews", len(dueReview)),
		slog.Int("new_cards", len(fresh)),
		slog.Int("not_due", len(notDue)),
		slog.Int("learned_today", learnedToday),
		slog.Int("queue_length", len(queue)),
		slog.Bool("browsing", browsing))

	return plan, nil
}

// Start plans a session over the deck's cards and returns it active.
func (p *Policy) Start(
	ctx context.Context,
	deckID uuid.UUID,
	cards []domain.Card,
	learnedToday int,
) (*Session, error) {
	if deckID == uuid.Nil {
		return nil, domain.NewValidationError("deck_id", "cannot be empty", domain.ErrInvalidID)
	}

	now := p.now()
	plan, err := p.Plan(ctx, cards, learnedToday, now)
	if err != nil {
		return nil, err
	}

	s := newSession(p, uuid.New(), deckID, now)
	for _, card := range plan.Queue {
		s.cards[card.ID] = card
		s.queue = append(s.queue, card.ID)
		if p.sched.IsNew(card.State) {
			s.newCards[card.ID] = struct{}{}
		}
	}

	logger.FromContextOrDefault(ctx, p.logger).Info("session started",
		slog.String("session_id", s.id.String()),
		slog.String("deck_id", deckID.String()),
		slog.Int("queue_length", len(s.queue)))

	return s, nil
}

// Resume rebuilds a session from a checkpoint. cards supplies the current
// state of the referenced cards; ids missing from cards are dropped.
func (p *Policy) Resume(ctx context.Context, cp domain.SessionCheckpoint, cards []domain.Card) (*Session, error) {
	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("invalid checkpoint: %w", err)
	}

	log := logger.FromContextOrDefault(ctx, p.logger)
	s := newSession(p, cp.SessionID, cp.DeckID, cp.UpdatedAt)

	for _, card := range cards {
		card, err := p.sched.InitializeCard(ctx, p.freshest(card))
		if err != nil {
			return nil, fmt.Errorf("failed to resume session: %w", err)
		}
		s.cards[card.ID] = card
	}

	var dropped int
	keep := func(ids []uuid.UUID) []uuid.UUID {
		out := make([]uuid.UUID, 0, len(ids))
		for _, id := range ids {
			if _, ok := s.cards[id]; ok {
				out = append(out, id)
			} else {
				dropped++
			}
		}
		return out
	}
	s.queue = keep(cp.Queue)
	s.history = keep(cp.History)

	for id, streak := range cp.Streaks {
		s.streaks[id] = streak
	}
	for _, id := range cp.NewCards {
		s.newCards[id] = struct{}{}
	}
	for _, id := range cp.Learned {
		s.markLearned(id)
	}

	if dropped > 0 {
		log.Warn("checkpoint references unknown cards",
			slog.String("session_id", cp.SessionID.String()),
			slog.Int("dropped", dropped))
	}
	log.Info("session resumed",
		slog.String("session_id", s.id.String()),
		slog.Int("queue_length", len(s.queue)))

	return s, nil
}

// freshest returns the cached copy of card when it was reviewed more recently.
func (p *Policy) freshest(card domain.Card) domain.Card {
	cached, ok := p.cache.Get(card.ID)
	if !ok || cached.State == nil || cached.State.LastReviewAt == nil {
		return card
	}
	if card.State == nil || card.State.LastReviewAt == nil ||
		cached.State.LastReviewAt.After(*card.State.LastReviewAt) {
		return cached
	}
	return card
}

// reinsertAt picks a slot in a queue of length n within w.
func (p *Policy) reinsertAt(w Window, n int) int {
	offset := w.Min + p.rng.Intn(w.Max-w.Min+1)
	return min(n, offset)
}

func dueAt(card domain.Card) time.Time {
	if card.State == nil || card.State.DueAt == nil {
		return time.Time{}
	}
	return *card.State.DueAt
}

func takeFirst(cards []domain.Card, n int) []domain.Card {
	if n <= 0 {
		return nil
	}
	if len(cards) <= n {
		return cards
	}
	return cards[:n]
}
