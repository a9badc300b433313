package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/randutil"
	"github.com/pokerforge/pokerforge/translate"
)

// polarToyGame is a river spot with a textbook solution: the hero holds
// either the nuts (bucket 0) or air (bucket 2) with equal probability, the
// villain always holds a bluff catcher (bucket 1). One pot-sized bet is the
// only raise. At equilibrium the hero bets every nut hand, bluffs half the
// air, and the villain calls half the time.
func polarToyGame() (*subgame, *LeafTable, [2]Range) {
	check := subgameMove{
		archetype: abstraction.Archetype{Kind: abstraction.Call},
		concrete:  translate.Concrete{Kind: translate.Check},
	}
	bet := subgameMove{
		archetype: abstraction.Archetype{Kind: abstraction.Raise, Fraction: 1},
		concrete:  translate.Concrete{Kind: translate.RaiseTo, Amount: 2},
	}
	fold := subgameMove{
		archetype: abstraction.Archetype{Kind: abstraction.Fold},
		concrete:  translate.Concrete{Kind: translate.Fold},
	}
	call := subgameMove{
		archetype: abstraction.Archetype{Kind: abstraction.Call},
		concrete:  translate.Concrete{Kind: translate.Call},
	}

	sg := &subgame{
		street: abstraction.River,
		nodes: []sgNode{
			{kind: sgDecision, actor: 0, moves: []subgameMove{check, bet}, children: []int32{1, 2}},
			{kind: sgLeaf, foldWinner: -1, pot: 2, contrib: [2]int{1, 1}},
			{kind: sgDecision, actor: 1, moves: []subgameMove{fold, call}, children: []int32{3, 4}},
			{kind: sgLeaf, foldWinner: 0, pot: 4, contrib: [2]int{3, 1}},
			{kind: sgLeaf, foldWinner: -1, pot: 6, contrib: [2]int{3, 3}},
		},
	}
	leaf := &LeafTable{
		street: abstraction.River,
		eq: [][]float64{
			{0.5, 1, 1},
			{0, 0.5, 1},
			{0, 0, 0.5},
		},
	}
	ranges := [2]Range{
		{Street: abstraction.River, Weights: []float64{0.5, 0, 0.5}},
		{Street: abstraction.River, Weights: []float64{0, 1, 0}},
	}
	return sg, leaf, ranges
}

func averageRow(sum []float64) []float64 {
	total := 0.0
	for _, v := range sum {
		total += v
	}
	out := make([]float64, len(sum))
	for i, v := range sum {
		out[i] = v / total
	}
	return out
}

func TestSubgameSolverConvergesOnPolarToyGame(t *testing.T) {
	sg, leaf, ranges := polarToyGame()
	require.NoError(t, leaf.validate())

	ss := newSubgameSolver(sg, leaf, ranges, randutil.New(3))
	for i := 0; i < 200000; i++ {
		ss.iterate()
	}

	nuts := ss.rootStrategy(0)
	require.Greater(t, nuts[1], 0.95, "the nuts always bet, got %v", nuts)

	air := ss.rootStrategy(2)
	require.InDelta(t, 0.5, air[1], 0.1, "air bluffs half the time, got %v", air)

	villain := averageRow(ss.nodes[2].stratSum[1])
	require.InDelta(t, 0.5, villain[1], 0.1, "the bluff catcher calls half the time, got %v", villain)
}

func TestSubgameSolverLeafValuesAreZeroSum(t *testing.T) {
	sg, leaf, _ := polarToyGame()
	ss := &subgameSolver{sg: sg, leaf: leaf}

	for id := range sg.nodes {
		n := &sg.nodes[id]
		if n.kind != sgLeaf {
			continue
		}
		for _, buckets := range [][2]int{{0, 1}, {2, 1}, {1, 1}} {
			hero := ss.leafValue(n, 0, buckets)
			villain := ss.leafValue(n, 1, buckets)
			require.InDelta(t, 0.0, hero+villain, zeroSumTolerance, "leaf %d buckets %v", id, buckets)
		}
	}
}
