package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/platform/logger"
)

// Verify interface compliance at compile time
var _ Scheduler = (*schedulerImpl)(nil)

// schedulerImpl implements the Scheduler interface.
type schedulerImpl struct {
	model  srs.Service
	params srs.Params
	now    func() time.Time
	logger *slog.Logger
}

// Option customizes a Scheduler.
type Option func(*schedulerImpl)

// WithClock replaces the time source used to timestamp reviews.
func WithClock(now func() time.Time) Option {
	return func(s *schedulerImpl) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler creates a new Scheduler over the given memory model.
func NewScheduler(model srs.Service, logger *slog.Logger, opts ...Option) Scheduler {
	if model == nil {
		panic("model cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	s := &schedulerImpl{
		model:  model,
		params: model.Params(),
		now:    time.Now,
		logger: logger.With(slog.String("component", "scheduler")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeCard implements Scheduler.InitializeCard.
func (s *schedulerImpl) InitializeCard(ctx context.Context, card domain.Card) (domain.Card, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("refusing to initialize card without identity",
			slog.String("error", err.Error()))
		return domain.Card{}, NewInitializeCardError("card is missing identity", err)
	}

	if card.State == nil {
		log.Debug("attaching initial state", slog.String("card_id", card.ID.String()))
		return card.WithState(domain.NewCardState()), nil
	}

	err := card.State.Check(card.ID)
	if err == nil {
		return card, nil
	}

	var malformed *domain.MalformedStateError
	if errors.As(err, &malformed) {
		log.Warn("repairing malformed card state",
			slog.String("card_id", card.ID.String()),
			slog.Any("fields", malformed.Fields))
	}

	return card.WithState(repairState(card.State, s.params)), nil
}

// ProcessReview implements Scheduler.ProcessReview.
func (s *schedulerImpl) ProcessReview(
	ctx context.Context,
	card domain.Card,
	rating domain.Rating,
) (ReviewResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := card.Validate(); err != nil {
		log.Warn("refusing to review card without identity",
			slog.String("error", err.Error()))
		return ReviewResult{}, NewProcessReviewError("card is missing identity", err)
	}

	if !rating.Valid() {
		log.Warn("invalid rating",
			slog.String("card_id", card.ID.String()),
			slog.Int("rating", int(rating)))
		return ReviewResult{}, NewProcessReviewError("rating rejected", &domain.InvalidRatingError{Rating: rating})
	}

	card, err := s.InitializeCard(ctx, card)
	if err != nil {
		return ReviewResult{}, NewProcessReviewError("failed to initialize card", err)
	}

	isNew := card.State.LastReviewAt == nil

	next, err := s.model.Rate(card.State, rating, s.now().UTC())
	if err != nil {
		log.Error("failed to rate card",
			slog.String("error", err.Error()),
			slog.String("card_id", card.ID.String()))
		return ReviewResult{}, NewProcessReviewError("failed to rate card", err)
	}

	log.Debug("recorded review",
		slog.String("card_id", card.ID.String()),
		slog.String("rating", rating.String()),
		slog.Bool("is_new_card", isNew),
		slog.Float64("difficulty", next.Difficulty),
		slog.Float64("stability", next.Stability),
		slog.Int("stage", int(next.Stage)),
		slog.Time("due_at", *next.DueAt))

	return ReviewResult{Card: card.WithState(next), IsNewCard: isNew}, nil
}

// GetDueCards implements Scheduler.GetDueCards.
func (s *schedulerImpl) GetDueCards(cards []domain.Card, now time.Time) []domain.Card {
	due := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		if s.IsDue(card, now) {
			due = append(due, card)
		}
	}
	return due
}

// IsDue implements Scheduler.IsDue.
func (s *schedulerImpl) IsDue(card domain.Card, now time.Time) bool {
	return s.model.IsDue(card.State, now)
}

// IsNew implements Scheduler.IsNew.
func (s *schedulerImpl) IsNew(state *domain.CardState) bool {
	return state == nil || state.Stage == domain.StageLearning
}

// repairState returns a copy of state with every invariant restored. Missing
// values come from the last review event when it has them and from engine
// defaults otherwise. The result always passes CardState.Check.
func repairState(state *domain.CardState, params srs.Params) *domain.CardState {
	if !state.Reviewed() {
		// Memory without history cannot be trusted; the card starts over
		return domain.NewCardState()
	}

	next := state.Clone()
	last, _ := next.LastReview()

	next.Difficulty = repairValue(next.Difficulty, last.Difficulty,
		params.Weights[4], params.MinDifficulty, params.MaxDifficulty)
	next.Stability = repairValue(next.Stability, last.Stability,
		params.MinStability, params.MinStability, params.MaxStability)

	if next.LastReviewAt == nil {
		t := last.Timestamp
		next.LastReviewAt = &t
	}

	if next.DueAt == nil {
		interval := last.IntervalDays
		if interval < params.MinIntervalDays {
			interval = int(math.Max(float64(params.MinIntervalDays), math.Round(next.Stability)))
		}
		if interval > params.MaxIntervalDays {
			interval = params.MaxIntervalDays
		}
		due := next.LastReviewAt.AddDate(0, 0, interval)
		next.DueAt = &due
	}

	if next.FirstLearnedAt == nil {
		next.FirstLearnedAt = domain.FirstPassAt(next.Reviews)
	}

	next.Stage = domain.StageForStability(next.Stability)
	return next
}

// repairValue keeps a usable current value (clamped to [lo, hi]), otherwise
// takes the usable value recorded by the last review, otherwise fallback.
func repairValue(current, recorded, fallback, lo, hi float64) float64 {
	for _, v := range []float64{current, recorded} {
		if !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 {
			return math.Min(math.Max(v, lo), hi)
		}
	}
	return math.Min(math.Max(fallback, lo), hi)
}
