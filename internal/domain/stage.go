package domain

// Stage is a coarse learning stage derived from stability.
type Stage int

// Stages from learning to mastered
const (
	StageLearning Stage = iota
	StageFamiliar
	StageKnown
	StageStrong
	StageMastered
)

// Stability thresholds (days) at which each stage begins.
const (
	familiarStability = 1.0
	knownStability    = 3.0
	strongStability   = 7.0
	masteredStability = 30.0
)

// StageForStability maps a stability value to its stage. It is a
// non-decreasing step function; NaN maps to StageLearning.
func StageForStability(stability float64) Stage {
	switch {
	case stability >= masteredStability:
		return StageMastered
	case stability >= strongStability:
		return StageStrong
	case stability >= knownStability:
		return StageKnown
	case stability >= familiarStability:
		return StageFamiliar
	default:
		return StageLearning
	}
}
