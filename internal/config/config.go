// Package config loads solver and resolver profiles from HCL files. A
// profile overrides the built-in defaults; a missing file means stock
// settings, so every command works with no configuration at all.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/resolver"
	"github.com/pokerforge/pokerforge/solver"
)

// Profile is the top-level HCL document.
type Profile struct {
	Abstraction *AbstractionBlock `hcl:"abstraction,block"`
	Training    *TrainingBlock    `hcl:"training,block"`
	Search      *SearchBlock      `hcl:"search,block"`
}

// AbstractionBlock overrides the card and action abstraction.
type AbstractionBlock struct {
	Preset             string    `hcl:"preset,optional"` // "default" or "smoke"
	BucketCounts       []int     `hcl:"bucket_counts,optional"`
	PreflopBets        []float64 `hcl:"preflop_bets,optional"`
	FlopBets           []float64 `hcl:"flop_bets,optional"`
	TurnBets           []float64 `hcl:"turn_bets,optional"`
	RiverBets          []float64 `hcl:"river_bets,optional"`
	MaxRaisesPerStreet int       `hcl:"max_raises_per_street,optional"`
	AllInThreshold     float64   `hcl:"all_in_threshold,optional"`
}

// TrainingBlock overrides blueprint training parameters.
type TrainingBlock struct {
	Iterations      int     `hcl:"iterations,optional"`
	Players         int     `hcl:"players,optional"`
	SmallBlind      int     `hcl:"small_blind,optional"`
	BigBlind        int     `hcl:"big_blind,optional"`
	StartingStack   int     `hcl:"starting_stack,optional"`
	Seed            int64   `hcl:"seed,optional"`
	Workers         int     `hcl:"workers,optional"`
	CFRPlus         *bool   `hcl:"cfr_plus,optional"`
	Averaging       string  `hcl:"averaging,optional"` // constant, linear, exponential
	DiscountGamma   float64 `hcl:"discount_gamma,optional"`
	CheckpointEvery int     `hcl:"checkpoint_every,optional"`
	CheckpointPath  string  `hcl:"checkpoint_path,optional"`
	ProgressEvery   int     `hcl:"progress_every,optional"`
}

// SearchBlock overrides online re-solve parameters.
type SearchBlock struct {
	TimeBudgetMS     int     `hcl:"time_budget_ms,optional"`
	StreetBudgetsMS  []int   `hcl:"street_budgets_ms,optional"`
	MinIterations    int     `hcl:"min_iterations,optional"`
	MaxIterations    int     `hcl:"max_iterations,optional"`
	LeafMode         string  `hcl:"leaf_mode,optional"` // analytic or rollout
	SamplesPerBucket int     `hcl:"samples_per_bucket,optional"`
	SamplesPerSolve  int     `hcl:"samples_per_solve,optional"`
	StreetSamples    []int   `hcl:"street_samples,optional"`
	Workers          int     `hcl:"workers,optional"`
	Seed             int64   `hcl:"seed,optional"`
}

// Load parses a profile file. A missing path yields an empty profile, which
// resolves to defaults everywhere.
func Load(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Profile{}, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", path, diags.Error())
	}

	var p Profile
	if diags := gohcl.DecodeBody(file.Body, nil, &p); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", path, diags.Error())
	}
	return &p, nil
}

// AbstractionConfig resolves the profile's abstraction on top of the preset.
func (p *Profile) AbstractionConfig() (abstraction.Config, error) {
	cfg := abstraction.Default()
	b := p.Abstraction
	if b == nil {
		return cfg, nil
	}

	switch b.Preset {
	case "", "default":
	case "smoke":
		cfg = abstraction.Smoke()
	default:
		return cfg, fmt.Errorf("unknown abstraction preset %q", b.Preset)
	}

	if len(b.BucketCounts) > 0 {
		if len(b.BucketCounts) != len(cfg.BucketCounts) {
			return cfg, fmt.Errorf("bucket_counts needs %d entries, got %d", len(cfg.BucketCounts), len(b.BucketCounts))
		}
		copy(cfg.BucketCounts[:], b.BucketCounts)
	}
	for street, bets := range [][]float64{b.PreflopBets, b.FlopBets, b.TurnBets, b.RiverBets} {
		if bets != nil {
			cfg.BetFractions[street] = bets
		}
	}
	if b.MaxRaisesPerStreet > 0 {
		cfg.MaxRaisesPerStreet = b.MaxRaisesPerStreet
	}
	if b.AllInThreshold > 0 {
		cfg.AllInThreshold = b.AllInThreshold
	}
	return cfg, cfg.Validate()
}

// TrainingConfig resolves the profile's training parameters.
func (p *Profile) TrainingConfig() (solver.TrainingConfig, error) {
	cfg := solver.DefaultTrainingConfig()
	b := p.Training
	if b == nil {
		return cfg, nil
	}

	if b.Iterations > 0 {
		cfg.Iterations = b.Iterations
	}
	if b.Players > 0 {
		cfg.Players = b.Players
	}
	if b.SmallBlind > 0 {
		cfg.SmallBlind = b.SmallBlind
	}
	if b.BigBlind > 0 {
		cfg.BigBlind = b.BigBlind
	}
	if b.StartingStack > 0 {
		cfg.StartingStack = b.StartingStack
	}
	if b.Seed != 0 {
		cfg.Seed = b.Seed
	}
	if b.Workers > 0 {
		cfg.Workers = b.Workers
	}
	if b.CFRPlus != nil {
		cfg.CFRPlus = *b.CFRPlus
	}
	if b.Averaging != "" {
		mode, err := parseAveraging(b.Averaging)
		if err != nil {
			return cfg, err
		}
		cfg.Averaging = mode
	}
	if b.DiscountGamma > 0 {
		cfg.DiscountGamma = b.DiscountGamma
	}
	if b.CheckpointEvery > 0 {
		cfg.CheckpointEvery = b.CheckpointEvery
	}
	if b.CheckpointPath != "" {
		cfg.CheckpointPath = b.CheckpointPath
	}
	if b.ProgressEvery > 0 {
		cfg.ProgressEvery = b.ProgressEvery
	}
	return cfg, cfg.Validate()
}

// SearchConfig resolves the profile's re-solve parameters.
func (p *Profile) SearchConfig() (resolver.SearchConfig, error) {
	cfg := resolver.DefaultSearchConfig()
	b := p.Search
	if b == nil {
		return cfg, nil
	}

	if b.TimeBudgetMS > 0 {
		cfg.TimeBudget = time.Duration(b.TimeBudgetMS) * time.Millisecond
	}
	if len(b.StreetBudgetsMS) > 0 {
		if len(b.StreetBudgetsMS) != len(cfg.StreetBudgets) {
			return cfg, fmt.Errorf("street_budgets_ms needs %d entries, got %d", len(cfg.StreetBudgets), len(b.StreetBudgetsMS))
		}
		for i, ms := range b.StreetBudgetsMS {
			cfg.StreetBudgets[i] = time.Duration(ms) * time.Millisecond
		}
	}
	if b.MinIterations > 0 {
		cfg.MinIterations = b.MinIterations
	}
	if b.MaxIterations > 0 {
		cfg.MaxIterations = b.MaxIterations
	}
	if b.LeafMode != "" {
		mode, err := parseLeafMode(b.LeafMode)
		if err != nil {
			return cfg, err
		}
		cfg.LeafMode = mode
	}
	if b.SamplesPerBucket > 0 {
		cfg.SamplesPerBucket = b.SamplesPerBucket
	}
	if b.SamplesPerSolve > 0 {
		cfg.SamplesPerSolve = b.SamplesPerSolve
	}
	if len(b.StreetSamples) > 0 {
		if len(b.StreetSamples) != len(cfg.StreetSamples) {
			return cfg, fmt.Errorf("street_samples needs %d entries, got %d", len(cfg.StreetSamples), len(b.StreetSamples))
		}
		for i, n := range b.StreetSamples {
			cfg.StreetSamples[i] = n
		}
	}
	if b.Workers > 0 {
		cfg.Workers = b.Workers
	}
	if b.Seed != 0 {
		cfg.Seed = b.Seed
	}
	return cfg, cfg.Validate()
}

func parseAveraging(s string) (solver.AveragingMode, error) {
	switch s {
	case "constant":
		return solver.AverageConstant, nil
	case "linear":
		return solver.AverageLinear, nil
	case "exponential":
		return solver.AverageExponential, nil
	default:
		return 0, fmt.Errorf("unknown averaging mode %q", s)
	}
}

func parseLeafMode(s string) (resolver.LeafMode, error) {
	switch s {
	case "analytic":
		return resolver.LeafAnalytic, nil
	case "rollout":
		return resolver.LeafRollout, nil
	default:
		return 0, fmt.Errorf("unknown leaf mode %q", s)
	}
}
