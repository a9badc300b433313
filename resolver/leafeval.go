package resolver

import (
	"context"
	"fmt"
	"math"
	rand "math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/randutil"
)

// zeroSumTolerance bounds how far a leaf value pair may drift from summing
// to the pot. A violation means the evaluator itself is broken, and the
// solve must abort rather than train against leaked chips.
const zeroSumTolerance = 1e-6

// LeafTable prices showdown-or-later leaves of a subgame: eq[a][b] is the
// probability that a hand in bucket a beats a hand in bucket b once all
// remaining cards are out.
type LeafTable struct {
	street abstraction.Street
	eq     [][]float64
}

// heroEquity returns the win probability for heroBucket against villainBucket.
func (t *LeafTable) heroEquity(heroBucket, villainBucket int) float64 {
	return t.eq[heroBucket][villainBucket]
}

// validate enforces the zero-sum pairing: the two players' equities for any
// bucket pair must sum to one within tolerance.
func (t *LeafTable) validate() error {
	n := len(t.eq)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			e := t.eq[a][b]
			if e < 0 || e > 1 || math.IsNaN(e) {
				return fmt.Errorf("leaf equity [%d][%d] = %v out of range", a, b, e)
			}
			if diff := math.Abs(e + t.eq[b][a] - 1); diff > zeroSumTolerance {
				return fmt.Errorf("leaf equities [%d][%d] violate zero sum by %v", a, b, diff)
			}
		}
	}
	return nil
}

// newAnalyticLeafTable prices leaves directly from the abstraction's
// current-street equity matrix.
func newAnalyticLeafTable(mapper *abstraction.Mapper, street abstraction.Street) (*LeafTable, error) {
	n := mapper.Buckets(street)
	eq := make([][]float64, n)
	for a := 0; a < n; a++ {
		eq[a] = make([]float64, n)
		for b := 0; b < n; b++ {
			eq[a][b] = mapper.Equity(street, a, b)
		}
	}
	t := &LeafTable{street: street, eq: eq}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// newRolloutLeafTable prices leaves by Monte Carlo: both buckets walk the
// transition matrices to the river independently, and the pair is scored by
// river equity. Each sample credits complementary values to the (a,b) and
// (b,a) cells, so the table is zero-sum by construction. Bucket rows are
// filled in parallel.
func newRolloutLeafTable(ctx context.Context, mapper *abstraction.Mapper, street abstraction.Street, samples, workers int, seed int64) (*LeafTable, error) {
	n := mapper.Buckets(street)
	eq := make([][]float64, n)
	for a := range eq {
		eq[a] = make([]float64, n)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for a := 0; a < n; a++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := randutil.Stream(seed, a)
			for b := a; b < n; b++ {
				total := 0.0
				for s := 0; s < samples; s++ {
					ra := rolloutBucket(rng, mapper, street, a)
					rb := rolloutBucket(rng, mapper, street, b)
					total += mapper.Equity(abstraction.River, ra, rb)
				}
				mean := total / float64(samples)
				eq[a][b] = mean
				eq[b][a] = 1 - mean
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The diagonal must self-mirror: a bucket against itself is a coin flip.
	for a := 0; a < n; a++ {
		eq[a][a] = 0.5
	}

	t := &LeafTable{street: street, eq: eq}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// rolloutBucket samples one bucket trajectory from street to the river.
func rolloutBucket(rng *rand.Rand, mapper *abstraction.Mapper, street abstraction.Street, bucket int) int {
	for s := street; s < abstraction.River; s++ {
		bucket = sampleDist(rng, mapper.Transition(s, bucket))
	}
	return bucket
}

func sampleDist(rng *rand.Rand, dist []float64) int {
	r := rng.Float64()
	acc := 0.0
	for i, p := range dist {
		acc += p
		if r < acc {
			return i
		}
	}
	return len(dist) - 1
}
