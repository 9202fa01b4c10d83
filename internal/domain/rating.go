package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Rating is the learner's self-reported recall quality for one review.
// The ordinal values are used directly in the difficulty formula and must
// stay 1, 2 and 3.
type Rating int

// Possible rating values
const (
	RatingForgot Rating = 1
	RatingHard   Rating = 2
	RatingEasy   Rating = 3
)

// Valid reports whether r is one of the three defined ratings.
func (r Rating) Valid() bool {
	return r >= RatingForgot && r <= RatingEasy
}

// String returns the lowercase name of the rating.
func (r Rating) String() string {
	switch r {
	case RatingForgot:
		return "forgot"
	case RatingHard:
		return "hard"
	case RatingEasy:
		return "easy"
	default:
		return fmt.Sprintf("rating(%d)", int(r))
	}
}

// ParseRating accepts a rating name ("forgot", "hard", "easy") or its
// ordinal ("1", "2", "3"), case-insensitively.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forgot":
		return RatingForgot, nil
	case "hard":
		return RatingHard, nil
	case "easy":
		return RatingEasy, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	r := Rating(n)
	if !r.Valid() {
		return 0, &InvalidRatingError{Rating: r}
	}
	return r, nil
}
