package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-scheduler/internal/domain"
)

// isFirstReview reports whether state has no usable memory yet.
func isFirstReview(state *domain.CardState) bool {
	return state.Stability == 0 || state.LastReviewAt == nil
}

// initialStability selects the stability of a card's first review directly
// from the weight vector: w[0] for forgot, w[1] for hard, w[2] for easy.
func initialStability(rating domain.Rating, params *Params) float64 {
	return params.Weights[int(rating)-1]
}

// initialDifficulty computes w[4] - w[5]*(rating-3), clamped to
// [MinInitialDifficulty, MaxDifficulty].
func initialDifficulty(rating domain.Rating, params *Params) float64 {
	w := params.Weights
	d := w[4] - w[5]*float64(rating-3)
	return clamp(d, params.MinInitialDifficulty, params.MaxDifficulty)
}

// calculateNextDifficulty determines the difficulty after a subsequent review.
//
// The rating shifts the current difficulty by w[6] per rating step below easy,
// and the shifted value is then damped exponentially by w[7]:
//
//	shifted = d - w[6]*(rating-3)
//	d'      = shifted * exp(w[7] * (1 - shifted))
//
// Parameters:
//   - difficulty: The difficulty before this review
//   - rating: The learner's rating (1, 2 or 3)
//   - params: Configuration parameters for the memory model
//
// Returns:
//   - The new difficulty, clamped to [params.MinDifficulty, params.MaxDifficulty]
func calculateNextDifficulty(difficulty float64, rating domain.Rating, params *Params) float64 {
	w := params.Weights
	shifted := difficulty - w[6]*float64(rating-3)
	next := shifted * math.Exp(w[7]*(1-shifted))
	return clamp(next, params.MinDifficulty, params.MaxDifficulty)
}

// calculateNextStability determines the stability after a subsequent review.
//
// It receives the difficulty from BEFORE the current review. Feeding the
// updated difficulty here changes every interval the model produces.
//
// Parameters:
//   - stability: The stability before this review, in days
//   - difficulty: The difficulty before this review
//   - rating: The learner's rating (1, 2 or 3)
//   - params: Configuration parameters for the memory model
//
// Returns:
//   - The new stability in days, clamped to [params.MinStability, params.MaxStability]
//
// Algorithm behavior:
//   - Forgot: w[8] * d^w[9] * s^w[10] * exp((1-s)*w[11])
//   - Hard and easy: s * (1 + exp(w[12]) * (11-d) * s^w[13] * (exp((1-s)*w[14]) - 1) * factor)
//     where factor is params.HardFactor for hard and params.EasyFactor for easy
//   - NaN inputs produce NaN; nothing here guesses a replacement value
func calculateNextStability(
	stability float64,
	difficulty float64,
	rating domain.Rating,
	params *Params,
) float64 {
	w := params.Weights
	s, d := stability, difficulty

	var next float64
	if rating == domain.RatingForgot {
		next = w[8] * math.Pow(d, w[9]) * math.Pow(s, w[10]) * math.Exp((1-s)*w[11])
	} else {
		factor := params.EasyFactor
		if rating == domain.RatingHard {
			factor = params.HardFactor
		}
		next = s * (1 + math.Exp(w[12])*(11-d)*math.Pow(s, w[13])*(math.Exp((1-s)*w[14])-1)*factor)
	}

	return clamp(next, params.MinStability, params.MaxStability)
}

// calculateInterval converts a post-review stability into a whole number of
// days until the next review.
//
// Algorithm behavior:
//   - First review: round(stability)
//   - Forgot: always the minimum interval
//   - Hard: round(stability * HardFactor)
//   - Easy: round(stability * EasyFactor)
//   - The result is clamped to [params.MinIntervalDays, params.MaxIntervalDays]
func calculateInterval(stability float64, rating domain.Rating, first bool, params *Params) int {
	var days float64
	switch {
	case first:
		days = math.Round(stability)
	case rating == domain.RatingForgot:
		days = float64(params.MinIntervalDays)
	case rating == domain.RatingHard:
		days = math.Round(stability * params.HardFactor)
	default:
		days = math.Round(stability * params.EasyFactor)
	}

	interval := int(days)
	if interval < params.MinIntervalDays {
		interval = params.MinIntervalDays
	}
	if interval > params.MaxIntervalDays {
		interval = params.MaxIntervalDays
	}
	return interval
}

// calculateNextState applies one review to state and returns a new state.
//
// The input is never modified: the review log is copied before the new event
// is appended, and every timestamp is freshly allocated.
//
// Parameters:
//   - state: The current state, already initialized (non-nil)
//   - rating: The learner's rating, already validated
//   - now: The review timestamp
//   - params: Configuration parameters for the memory model
//
// Returns:
//   - A new CardState with difficulty, stability, due date and stage recomputed
//     and one ReviewEvent appended. FirstLearnedAt is set on the first review
//     that is not a failure and never changed afterwards.
func calculateNextState(
	state *domain.CardState,
	rating domain.Rating,
	now time.Time,
	params *Params,
) *domain.CardState {
	next := state.Clone()

	first := isFirstReview(state)
	if first {
		next.Stability = initialStability(rating, params)
		next.Difficulty = initialDifficulty(rating, params)
	} else {
		next.Difficulty = calculateNextDifficulty(state.Difficulty, rating, params)
		next.Stability = calculateNextStability(state.Stability, state.Difficulty, rating, params)
	}

	interval := calculateInterval(next.Stability, rating, first, params)

	reviewedAt := now
	due := now.AddDate(0, 0, interval)
	next.LastReviewAt = &reviewedAt
	next.DueAt = &due
	next.Stage = domain.StageForStability(next.Stability)

	if next.FirstLearnedAt == nil && rating != domain.RatingForgot {
		learnedAt := now
		next.FirstLearnedAt = &learnedAt
	}

	next.Reviews = append(next.Reviews, domain.ReviewEvent{
		Timestamp:    now,
		Rating:       rating,
		IntervalDays: interval,
		Difficulty:   next.Difficulty,
		Stability:    next.Stability,
	})

	return next
}

// isDue reports whether state should be reviewed at now. A missing due date
// means the card is due immediately.
func isDue(state *domain.CardState, now time.Time) bool {
	if state == nil || state.DueAt == nil {
		return true
	}
	return !now.Before(*state.DueAt)
}

// retrievability estimates the probability of recall after elapsedDays with
// the power forgetting curve (1 + t/(9*S))^-1.
func retrievability(elapsedDays, stability float64) float64 {
	if stability <= 0 {
		return 0
	}
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	return math.Pow(1+elapsedDays/(9*stability), -1)
}

// clamp bounds x to [lo, hi]. NaN passes through unchanged.
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
