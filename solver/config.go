package solver

import (
	"errors"
	"math"
)

// AveragingMode controls how early iterations are discounted in the average
// strategy.
type AveragingMode uint8

const (
	// AverageConstant weights every iteration equally.
	AverageConstant AveragingMode = iota
	// AverageLinear weights iteration t by t, washing out early noise.
	AverageLinear
	// AverageExponential weights iteration t by gamma^(T-t) with the decay
	// applied implicitly: each iteration multiplies prior mass by gamma.
	AverageExponential
)

func (m AveragingMode) String() string {
	switch m {
	case AverageConstant:
		return "constant"
	case AverageLinear:
		return "linear"
	case AverageExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// TrainingConfig aggregates the parameters of one blueprint run.
type TrainingConfig struct {
	Iterations    int   `json:"iterations"`
	Players       int   `json:"players"`
	SmallBlind    int   `json:"small_blind"`
	BigBlind      int   `json:"big_blind"`
	StartingStack int   `json:"starting_stack"`
	Seed          int64 `json:"seed"`

	// Workers runs this many independently seeded tables per iteration
	// against the shared store.
	Workers int `json:"workers"`

	CFRPlus       bool          `json:"cfr_plus"`
	Averaging     AveragingMode `json:"averaging"`
	DiscountGamma float64       `json:"discount_gamma"`

	CheckpointEvery int    `json:"checkpoint_every"`
	CheckpointPath  string `json:"checkpoint_path,omitempty"`
	ProgressEvery   int    `json:"progress_every"`
}

// Validate ensures the parameters are safe to train with.
func (c TrainingConfig) Validate() error {
	if c.Iterations <= 0 {
		return errors.New("iterations must be > 0")
	}
	if c.Players < 2 {
		return errors.New("players must be >= 2")
	}
	if c.SmallBlind <= 0 {
		return errors.New("small blind must be > 0")
	}
	if c.BigBlind <= c.SmallBlind {
		return errors.New("big blind must exceed small blind")
	}
	if c.StartingStack <= c.BigBlind {
		return errors.New("starting stack must exceed big blind")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	if c.Averaging > AverageExponential {
		return errors.New("invalid averaging mode")
	}
	if c.Averaging == AverageExponential && (c.DiscountGamma <= 0 || c.DiscountGamma > 1) {
		return errors.New("discount gamma must be in (0,1] for exponential averaging")
	}
	if c.CheckpointEvery < 0 {
		return errors.New("checkpoint interval cannot be negative")
	}
	if c.ProgressEvery < 0 {
		return errors.New("progress interval cannot be negative")
	}
	return nil
}

// DefaultTrainingConfig returns a configuration for local experimentation.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Iterations:    100000,
		Players:       2,
		SmallBlind:    5,
		BigBlind:      10,
		StartingStack: 1000,
		Seed:          1,
		Workers:       1,
		CFRPlus:       true,
		Averaging:     AverageLinear,
		ProgressEvery: 0,
	}
}

// iterationWeight computes the averaging weight for iteration t (1-based).
func (c TrainingConfig) iterationWeight(t int64) float64 {
	switch c.Averaging {
	case AverageLinear:
		if t < 1 {
			t = 1
		}
		return float64(t)
	case AverageExponential:
		// Weighting iteration t by gamma^-t decays all earlier mass by
		// gamma per iteration; AverageStrategy's normalisation cancels the
		// absolute scale. t is relative to the trainer's rescale base, which
		// folds the scale back into the table before the float grows large.
		if t < 1 {
			t = 1
		}
		return math.Pow(1/c.DiscountGamma, float64(t))
	default:
		return 1.0
	}
}
