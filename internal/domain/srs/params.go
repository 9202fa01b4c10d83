package srs

import (
	"errors"
	"fmt"
)

// WeightCount is the length of the memory model weight vector.
const WeightCount = 17

// ErrInvalidWeights is returned when a weight override does not have exactly
// WeightCount elements.
var ErrInvalidWeights = errors.New("weight vector must have exactly 17 elements")

// Weights is the fixed parameter vector of the memory model.
type Weights [WeightCount]float64

// DefaultWeights are the weights used when no override is configured.
var DefaultWeights = Weights{
	0.5701, 1.4436, 4.1386, 10.9355,
	5.1443, 1.2006, 0.8627, 0.0782,
	1.4202, 0.2116, 1.9889, 0.0029,
	0.8719, 0.5249, 0.1278, 0.3561,
	2.5016,
}

// Params defines all configurable parameters for the memory model
type Params struct {
	Weights Weights

	// Difficulty bounds after the first review
	MinDifficulty float64
	MaxDifficulty float64

	// Difficulty bounds for the first review
	MinInitialDifficulty float64

	// Stability bounds in days
	MinStability float64
	MaxStability float64

	// Interval multipliers applied to the new stability
	HardFactor float64
	EasyFactor float64

	// Interval bounds in days
	MinIntervalDays int
	MaxIntervalDays int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	// Weights replaces the default vector wholesale when non-empty
	Weights []float64

	// MaxIntervalDays caps every computed interval when > 0
	MaxIntervalDays int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Weights: DefaultWeights,

		MinDifficulty:        0.1,
		MaxDifficulty:        10,
		MinInitialDifficulty: 1,

		MinStability: 0.1,
		MaxStability: 365,

		HardFactor: 0.8,
		EasyFactor: 1.2,

		MinIntervalDays: 1,
		MaxIntervalDays: 365,
	}
}

// NewParams creates a new Params instance with custom configuration.
// It returns ErrInvalidWeights when a weight override has the wrong length.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if len(config.Weights) > 0 {
		if len(config.Weights) != WeightCount {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidWeights, len(config.Weights))
		}
		copy(params.Weights[:], config.Weights)
	}

	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	return params, nil
}
