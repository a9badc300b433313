package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/solver"
	"github.com/pokerforge/pokerforge/translate"
)

// ErrInsufficientRange means every opponent bucket has negligible posterior
// mass: the observed betting line is one the blueprint would essentially
// never take. The estimate cannot be normalised, so the caller must decide
// between a uniform prior and a blueprint fallback.
var ErrInsufficientRange = errors.New("opponent range has no mass after filtering")

const rangeMassEpsilon = 1e-12

// Range is a distribution over the opponent's hand buckets on one street.
type Range struct {
	Street  abstraction.Street
	Weights []float64
}

// UniformRange spreads mass evenly over a street's buckets.
func UniformRange(mapper *abstraction.Mapper, street abstraction.Street) Range {
	n := mapper.Buckets(street)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return Range{Street: street, Weights: w}
}

// normalize scales weights to sum to one; reports the pre-scaling mass.
func (r *Range) normalize() float64 {
	total := 0.0
	for _, w := range r.Weights {
		total += w
	}
	if total > 0 {
		for i := range r.Weights {
			r.Weights[i] /= total
		}
	}
	return total
}

// RangeEstimator reconstructs an opponent's bucket distribution from the
// betting line, assuming they play the blueprint.
type RangeEstimator struct {
	policy     *solver.Policy
	mapper     *abstraction.Mapper
	translator *translate.Translator
}

// NewRangeEstimator builds an estimator over one blueprint and abstraction.
func NewRangeEstimator(policy *solver.Policy, mapper *abstraction.Mapper) *RangeEstimator {
	return &RangeEstimator{
		policy:     policy,
		mapper:     mapper,
		translator: translate.New(mapper.Config()),
	}
}

// Estimate runs Bayesian filtering over the betting history: starting from a
// uniform prior over preflop buckets, each opponent action multiplies every
// bucket's weight by the blueprint's probability of taking that action from
// that bucket, and each street transition pushes the posterior through the
// bucket transition matrix. History is the fixed-width token string shared
// with the blueprint's infoset keys.
func (e *RangeEstimator) Estimate(history string, villain, button, smallBlind, bigBlind, stack int) (Range, error) {
	if len(history)%solver.TokenWidth != 0 {
		return Range{}, fmt.Errorf("history %q is not token-aligned", history)
	}

	bs := newHandStart(smallBlind, bigBlind, stack, button)
	r := UniformRange(e.mapper, bs.street)
	cfg := e.mapper.Config()
	prefix := ""

	for i := 0; i+solver.TokenWidth <= len(history); i += solver.TokenWidth {
		padded := history[i : i+solver.TokenWidth]
		tok := strings.TrimRight(padded, ".")

		if tok == solver.StreetBreak {
			r.Weights = e.advanceStreet(bs.street, r.Weights)
			bs.nextStreet()
			r.Street = bs.street
			prefix += padded
			continue
		}

		moves := legalMoves(&bs, cfg, e.translator)
		idx := -1
		for mi, m := range moves {
			if m.archetype.Token() == tok {
				idx = mi
				break
			}
		}
		if idx < 0 {
			return Range{}, fmt.Errorf("history token %q has no legal action at %s", tok, bs.street)
		}

		if bs.actor == villain {
			for b := range r.Weights {
				key := solver.InfosetKey{Street: bs.street, Bucket: b, History: prefix}
				r.Weights[b] *= e.policy.ActionProbs(key, len(moves))[idx]
			}
		}
		if err := bs.apply(moves[idx].concrete); err != nil {
			return Range{}, fmt.Errorf("replaying history: %w", err)
		}
		prefix += padded
	}

	if mass := r.normalize(); mass < rangeMassEpsilon {
		return Range{}, ErrInsufficientRange
	}
	return r, nil
}

// advanceStreet pushes bucket mass through the transition matrix into the
// next street's bucket space.
func (e *RangeEstimator) advanceStreet(street abstraction.Street, weights []float64) []float64 {
	next := make([]float64, e.mapper.Buckets(street+1))
	for b, w := range weights {
		if w == 0 {
			continue
		}
		for j, p := range e.mapper.Transition(street, b) {
			next[j] += w * p
		}
	}
	return next
}
