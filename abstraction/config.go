// Package abstraction defines the coarse game representation the solver and
// resolver operate on: per-street hand buckets, the ordered set of action
// archetypes, bucket transition tables, and a fingerprint binding checkpoints
// to the abstraction that produced them. Everything here is precomputed at
// construction and read-only afterwards.
package abstraction

import (
	"errors"
	"fmt"
)

// Street enumerates the betting rounds within the abstraction.
type Street uint8

const (
	Preflop Street = iota
	Flop
	Turn
	River
	numStreets = 4
)

func (s Street) String() string {
	switch s {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "unknown"
	}
}

// Config parameterises the abstraction. BucketCounts fixes the number of hand
// buckets per street and BetFractions lists the pot-fraction raise archetypes
// exposed on each street, in strictly increasing order.
type Config struct {
	BucketCounts       [4]int       `json:"bucket_counts"`
	BetFractions       [4][]float64 `json:"bet_fractions"`
	MaxRaisesPerStreet int          `json:"max_raises_per_street"`

	// AllInThreshold is the fraction of the stack above which a translated
	// raise snaps to an explicit all-in.
	AllInThreshold float64 `json:"all_in_threshold"`
}

// Validate ensures the abstraction is well-formed before anything consumes it.
func (c Config) Validate() error {
	for s, n := range c.BucketCounts {
		if n <= 0 {
			return fmt.Errorf("bucket count for %v must be > 0", Street(s))
		}
	}
	for s, fractions := range c.BetFractions {
		last := 0.0
		for i, f := range fractions {
			if f <= 0 {
				return fmt.Errorf("%v bet fraction[%d] must be > 0", Street(s), i)
			}
			if f <= last {
				return fmt.Errorf("%v bet fraction[%d] must be strictly increasing", Street(s), i)
			}
			last = f
		}
	}
	if c.MaxRaisesPerStreet <= 0 {
		return errors.New("max raises per street must be > 0")
	}
	if c.AllInThreshold <= 0 || c.AllInThreshold > 1 {
		return errors.New("all-in threshold must be in (0,1]")
	}
	return nil
}

// Default returns the abstraction used for standard training runs.
func Default() Config {
	return Config{
		BucketCounts: [4]int{24, 20, 20, 16},
		BetFractions: [4][]float64{
			{0.5, 1.0, 2.0},
			{0.33, 0.75, 1.5},
			{0.5, 1.0},
			{0.5, 1.0},
		},
		MaxRaisesPerStreet: 3,
		AllInThreshold:     0.97,
	}
}

// Smoke returns a tiny abstraction for fast tests and smoke runs.
func Smoke() Config {
	return Config{
		BucketCounts: [4]int{6, 5, 5, 4},
		BetFractions: [4][]float64{
			{1.0},
			{0.75},
			{0.75},
			{0.75},
		},
		MaxRaisesPerStreet: 2,
		AllInThreshold:     0.97,
	}
}
