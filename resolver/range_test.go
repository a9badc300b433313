package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/solver"
	"github.com/pokerforge/pokerforge/translate"
)

func smokeMapper(t *testing.T) *abstraction.Mapper {
	t.Helper()
	mapper, err := abstraction.NewMapper(abstraction.Smoke())
	require.NoError(t, err)
	return mapper
}

func TestUniformRangeSumsToOne(t *testing.T) {
	mapper := smokeMapper(t)
	r := UniformRange(mapper, abstraction.Flop)
	require.Len(t, r.Weights, mapper.Buckets(abstraction.Flop))

	sum := 0.0
	for _, w := range r.Weights {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-12)
}

func TestEstimateWithEmptyPolicyStaysNormalised(t *testing.T) {
	mapper := smokeMapper(t)
	policy := &solver.Policy{Strategies: map[string][]float64{}}
	est := NewRangeEstimator(policy, mapper)

	history := solver.PadToken("c") + solver.PadToken("c") + solver.PadToken(solver.StreetBreak) + solver.PadToken("c")
	r, err := est.Estimate(history, 1, 0, 5, 10, 1000)
	require.NoError(t, err)
	require.Equal(t, abstraction.Flop, r.Street)
	require.Len(t, r.Weights, mapper.Buckets(abstraction.Flop))

	sum := 0.0
	for _, w := range r.Weights {
		require.GreaterOrEqual(t, w, 0.0)
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestEstimateConcentratesOnObservedLine(t *testing.T) {
	mapper := smokeMapper(t)
	cfg := mapper.Config()
	tr := translate.New(cfg)

	// Policy where low buckets always fold facing the blind and high buckets
	// always call: observing a call must wipe the low half.
	bs := newHandStart(5, 10, 1000, 0)
	moves := legalMoves(&bs, cfg, tr)
	callIdx := -1
	for i, m := range moves {
		if m.archetype.Kind == abstraction.Call {
			callIdx = i
		}
	}
	require.GreaterOrEqual(t, callIdx, 0)

	buckets := mapper.Buckets(abstraction.Preflop)
	strategies := map[string][]float64{}
	for b := 0; b < buckets; b++ {
		probs := make([]float64, len(moves))
		if b < buckets/2 {
			probs[0] = 1 // fold
		} else {
			probs[callIdx] = 1
		}
		key := solver.InfosetKey{Street: abstraction.Preflop, Bucket: b}
		strategies[key.String()] = probs
	}
	est := NewRangeEstimator(&solver.Policy{Strategies: strategies}, mapper)

	r, err := est.Estimate(solver.PadToken("c"), 0, 0, 5, 10, 1000)
	require.NoError(t, err)
	for b := 0; b < buckets/2; b++ {
		require.Zero(t, r.Weights[b], "folding bucket %d must have no mass", b)
	}
	sum := 0.0
	for _, w := range r.Weights {
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestEstimateUnreachableLineFails(t *testing.T) {
	mapper := smokeMapper(t)
	cfg := mapper.Config()
	tr := translate.New(cfg)

	bs := newHandStart(5, 10, 1000, 0)
	moves := legalMoves(&bs, cfg, tr)

	// Every bucket folds the button spot with probability one, so an
	// observed call has zero posterior mass everywhere.
	strategies := map[string][]float64{}
	for b := 0; b < mapper.Buckets(abstraction.Preflop); b++ {
		probs := make([]float64, len(moves))
		probs[0] = 1
		key := solver.InfosetKey{Street: abstraction.Preflop, Bucket: b}
		strategies[key.String()] = probs
	}
	est := NewRangeEstimator(&solver.Policy{Strategies: strategies}, mapper)

	_, err := est.Estimate(solver.PadToken("c"), 0, 0, 5, 10, 1000)
	require.ErrorIs(t, err, ErrInsufficientRange)
}

func TestEstimateIgnoresHeroActions(t *testing.T) {
	mapper := smokeMapper(t)
	policy := &solver.Policy{Strategies: map[string][]float64{}}
	est := NewRangeEstimator(policy, mapper)

	// Villain is the big blind (seat 1); only the button has acted, so the
	// villain range must still be the uniform prior.
	r, err := est.Estimate(solver.PadToken("c"), 1, 0, 5, 10, 1000)
	require.NoError(t, err)
	n := float64(mapper.Buckets(abstraction.Preflop))
	for _, w := range r.Weights {
		require.InDelta(t, 1/n, w, 1e-12)
	}
}
