package resolver

import (
	rand "math/rand/v2"
)

// sgStrategy holds regret and average-strategy mass for one node, lazily
// split by the acting player's bucket. Rows appear the first time a sampled
// bucket reaches the node.
type sgStrategy struct {
	regret   map[int][]float64
	stratSum map[int][]float64
}

// subgameSolver runs counterfactual regret minimization over one subgame.
// Both seats carry a bucket distribution: each iteration samples a bucket
// pair from the ranges and runs one external-sampling pass per seat, so the
// opponent's counter-strategy is solved against everything the hero could
// hold here, not just the hand actually dealt.
type subgameSolver struct {
	sg     *subgame
	leaf   *LeafTable
	ranges [2][]float64
	nodes  []sgStrategy
	rng    *rand.Rand
}

func newSubgameSolver(sg *subgame, leaf *LeafTable, ranges [2]Range, rng *rand.Rand) *subgameSolver {
	nodes := make([]sgStrategy, len(sg.nodes))
	for i := range nodes {
		if sg.nodes[i].kind == sgDecision {
			nodes[i] = sgStrategy{
				regret:   make(map[int][]float64),
				stratSum: make(map[int][]float64),
			}
		}
	}
	return &subgameSolver{
		sg:     sg,
		leaf:   leaf,
		ranges: [2][]float64{ranges[0].Weights, ranges[1].Weights},
		nodes:  nodes,
		rng:    rng,
	}
}

// iterate samples one bucket pair and updates both seats.
func (s *subgameSolver) iterate() {
	buckets := [2]int{
		sampleDist(s.rng, s.ranges[0]),
		sampleDist(s.rng, s.ranges[1]),
	}
	for traverser := 0; traverser < 2; traverser++ {
		s.walk(0, traverser, buckets)
	}
}

// walk returns the traverser's expected chip value under the current
// strategies. The traverser explores every move and accumulates regret; the
// other seat samples from its strategy and accumulates average mass.
func (s *subgameSolver) walk(id int32, traverser int, buckets [2]int) float64 {
	n := &s.sg.nodes[id]
	if n.kind == sgLeaf {
		return s.leafValue(n, traverser, buckets)
	}

	bucket := buckets[n.actor]
	regret := s.row(id, bucket)
	strat := regretMatch(regret)

	if n.actor == traverser {
		utils := make([]float64, len(n.moves))
		nodeUtil := 0.0
		for i, child := range n.children {
			utils[i] = s.walk(child, traverser, buckets)
			nodeUtil += strat[i] * utils[i]
		}
		for i := range regret {
			regret[i] += utils[i] - nodeUtil
		}
		return nodeUtil
	}

	sum := s.sumRow(id, bucket)
	for i, p := range strat {
		sum[i] += p
	}
	return s.walk(n.children[sampleDist(s.rng, strat)], traverser, buckets)
}

func (s *subgameSolver) leafValue(n *sgNode, seat int, buckets [2]int) float64 {
	if n.foldWinner >= 0 {
		if seat == n.foldWinner {
			return float64(n.pot - n.contrib[seat])
		}
		return float64(-n.contrib[seat])
	}
	eq := s.leaf.heroEquity(buckets[seat], buckets[1-seat])
	return eq*float64(n.pot) - float64(n.contrib[seat])
}

func (s *subgameSolver) row(id int32, bucket int) []float64 {
	st := &s.nodes[id]
	r, ok := st.regret[bucket]
	if !ok {
		r = make([]float64, len(s.sg.nodes[id].moves))
		st.regret[bucket] = r
	}
	return r
}

func (s *subgameSolver) sumRow(id int32, bucket int) []float64 {
	st := &s.nodes[id]
	r, ok := st.stratSum[bucket]
	if !ok {
		r = make([]float64, len(s.sg.nodes[id].moves))
		st.stratSum[bucket] = r
	}
	return r
}

// rootStrategy returns the normalised average strategy at the root for one
// bucket, or the current regret-matched strategy when the average has no
// mass yet.
func (s *subgameSolver) rootStrategy(bucket int) []float64 {
	sum, ok := s.nodes[0].stratSum[bucket]
	if ok {
		total := 0.0
		for _, v := range sum {
			total += v
		}
		if total > 0 {
			out := make([]float64, len(sum))
			for i, v := range sum {
				out[i] = v / total
			}
			return out
		}
	}
	if r, ok := s.nodes[0].regret[bucket]; ok {
		return regretMatch(r)
	}
	return regretMatch(make([]float64, len(s.sg.nodes[0].moves)))
}

// averageRootStrategy merges the per-continuation root strategies for one
// hero bucket into a single distribution.
func averageRootStrategy(solvers []*subgameSolver, bucket int) []float64 {
	probs := make([]float64, len(solvers[0].sg.nodes[0].moves))
	for _, ss := range solvers {
		for i, p := range ss.rootStrategy(bucket) {
			probs[i] += p
		}
	}
	for i := range probs {
		probs[i] /= float64(len(solvers))
	}
	return probs
}

func regretMatch(regret []float64) []float64 {
	strat := make([]float64, len(regret))
	total := 0.0
	for i, r := range regret {
		if r > 0 {
			strat[i] = r
			total += r
		}
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(strat))
		for i := range strat {
			strat[i] = uniform
		}
		return strat
	}
	for i := range strat {
		strat[i] /= total
	}
	return strat
}
