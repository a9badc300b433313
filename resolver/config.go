// Package resolver implements the online half of the decision core: when a
// decision is due at the table, it carves out the current public state as a
// depth-limited subgame, estimates the opponent's hand distribution from the
// blueprint, and re-solves the subgame under a hard wall-clock budget. When
// the budget cannot buy a trustworthy answer the resolver falls back to the
// blueprint policy rather than act on a half-solved tree.
package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/pokerforge/pokerforge/abstraction"
)

// LeafMode selects how subgame leaves past the depth limit are valued.
type LeafMode uint8

const (
	// LeafAnalytic values showdown leaves with the abstraction's current-street
	// equity matrix. Cheapest; no sampling noise.
	LeafAnalytic LeafMode = iota
	// LeafRollout values leaves by Monte Carlo rollout of the remaining
	// streets through the bucket transition matrices.
	LeafRollout
)

func (m LeafMode) String() string {
	switch m {
	case LeafAnalytic:
		return "analytic"
	case LeafRollout:
		return "rollout"
	default:
		return "unknown"
	}
}

// SearchConfig bounds one re-solve.
type SearchConfig struct {
	// TimeBudget is the hard wall-clock limit for a solve. The resolver
	// checks it between iterations and never starts work past the deadline.
	TimeBudget time.Duration `json:"time_budget"`

	// StreetBudgets optionally overrides TimeBudget per street. A zero entry
	// keeps the global budget.
	StreetBudgets [4]time.Duration `json:"street_budgets"`

	// MinIterations is the floor below which a solve result is not trusted:
	// hitting the deadline earlier reports a timeout and the caller falls
	// back to the blueprint.
	MinIterations int `json:"min_iterations"`

	// MaxIterations stops a solve early even with budget to spare.
	MaxIterations int `json:"max_iterations"`

	// LeafMode selects leaf valuation; SamplesPerBucket sizes the rollout
	// estimate when LeafRollout is chosen.
	LeafMode         LeafMode `json:"leaf_mode"`
	SamplesPerBucket int      `json:"samples_per_bucket"`

	// SamplesPerSolve is how many independently sampled board continuations
	// a pre-river rollout solve averages over. Each continuation prices the
	// subgame leaves under its own draw of the hidden cards; analytic leaves
	// integrate over the runouts in closed form and always run one pass.
	SamplesPerSolve int `json:"samples_per_solve"`

	// StreetSamples optionally overrides SamplesPerSolve per street. A zero
	// entry keeps the global count.
	StreetSamples [4]int `json:"street_samples"`

	// Workers parallelises leaf-table precomputation.
	Workers int `json:"workers"`

	// Seed makes solves reproducible. Each solve derives its streams from
	// the seed and the solve sequence number.
	Seed int64 `json:"seed"`
}

// Validate checks the bounds are coherent.
func (c SearchConfig) Validate() error {
	if c.TimeBudget <= 0 {
		return errors.New("time budget must be > 0")
	}
	if c.MinIterations <= 0 {
		return errors.New("min iterations must be > 0")
	}
	if c.MaxIterations < c.MinIterations {
		return fmt.Errorf("max iterations %d below min %d", c.MaxIterations, c.MinIterations)
	}
	if c.LeafMode > LeafRollout {
		return errors.New("invalid leaf mode")
	}
	if c.LeafMode == LeafRollout && c.SamplesPerBucket <= 0 {
		return errors.New("rollout leaf mode needs samples per bucket > 0")
	}
	if c.SamplesPerSolve <= 0 {
		return errors.New("samples per solve must be > 0")
	}
	for _, n := range c.StreetSamples {
		if n < 0 {
			return errors.New("street sample overrides cannot be negative")
		}
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	return nil
}

// samplesFor returns how many sampled continuations a solve on street runs.
// The river has no hidden cards, and analytic leaves already integrate over
// the runouts, so both collapse to a single pass.
func (c SearchConfig) samplesFor(street abstraction.Street) int {
	if c.LeafMode != LeafRollout || street == abstraction.River {
		return 1
	}
	if n := c.StreetSamples[street]; n > 0 {
		return n
	}
	return c.SamplesPerSolve
}

// budgetFor returns the effective wall-clock budget on a street.
func (c SearchConfig) budgetFor(street int) time.Duration {
	if street >= 0 && street < len(c.StreetBudgets) && c.StreetBudgets[street] > 0 {
		return c.StreetBudgets[street]
	}
	return c.TimeBudget
}

// DefaultSearchConfig returns budgets suited to live play against bots.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		TimeBudget:       2 * time.Second,
		MinIterations:    200,
		MaxIterations:    200000,
		LeafMode:         LeafAnalytic,
		SamplesPerBucket: 100,
		SamplesPerSolve:  1,
		Workers:          4,
		Seed:             1,
	}
}
