package solver

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/internal/game"
	"github.com/pokerforge/pokerforge/translate"
)

// traversalCtx carries the per-worker state of one sampled traversal.
type traversalCtx struct {
	rng    *rand.Rand
	stats  *TraversalStats
	weight float64
}

// move pairs an abstract archetype with its concrete resolution at a node.
// The per-node move set is a pure function of the betting history and the
// training config, so every visit to an infoset sees the same actions in the
// same order.
type move struct {
	archetype abstraction.Archetype
	concrete  translate.Concrete
}

// traverseHand deals one hand and runs an external-sampling pass for the
// target seat: the target's actions are explored exhaustively and accumulate
// regret, while every other seat samples from its current strategy and
// accumulates average-strategy weight.
func (t *Trainer) traverseHand(tc *traversalCtx, button, target int) error {
	h := game.NewHandState(tc.rng, t.cfg.Players, button, t.cfg.SmallBlind, t.cfg.BigBlind, t.cfg.StartingStack)
	_, err := t.traverse(tc, h, "", 0, target, 0)
	return err
}

func (t *Trainer) traverse(tc *traversalCtx, h *game.HandState, history string, raises, target, depth int) (float64, error) {
	tc.stats.NodesVisited++
	if depth > tc.stats.MaxDepth {
		tc.stats.MaxDepth = depth
	}
	if h.Complete() {
		tc.stats.TerminalNodes++
		return float64(h.Utility(target)), nil
	}

	actor := h.Actor()
	street := abstraction.Street(h.Street)
	moves := t.legalMoves(h, street, raises)
	if len(moves) == 0 {
		return 0, fmt.Errorf("no legal moves at %s history %q", street, history)
	}

	bucket := t.mapper.Bucket(street, h.Players[actor].Hole, h.Board)
	key := InfosetKey{Street: street, Bucket: bucket, History: history}
	_, entry, err := t.table.GetOrCreate(key.String(), len(moves))
	if err != nil {
		return 0, err
	}
	strat := entry.Strategy()

	if actor == target {
		// Explore every action; regret is each action's payoff against the
		// strategy's expected payoff.
		utils := make([]float64, len(moves))
		nodeUtil := 0.0
		for i, m := range moves {
			child := h.Clone()
			if err := child.Apply(gameAction(m.concrete)); err != nil {
				return 0, err
			}
			u, err := t.traverse(tc, child, nextHistory(history, h, child, m), nextRaises(raises, h, child, m), target, depth+1)
			if err != nil {
				return 0, err
			}
			utils[i] = u
			nodeUtil += strat[i] * u
		}
		regrets := make([]float64, len(moves))
		for i := range moves {
			regrets[i] = utils[i] - nodeUtil
		}
		entry.AddRegrets(regrets, t.cfg.CFRPlus)
		return nodeUtil, nil
	}

	// Opponent node: the sampled strategy contributes to the average policy,
	// then play continues down a single sampled branch.
	entry.AddStrategy(strat, tc.weight)
	m := moves[sampleIndex(tc.rng, strat)]
	child := h.Clone()
	if err := child.Apply(gameAction(m.concrete)); err != nil {
		return 0, err
	}
	return t.traverse(tc, child, nextHistory(history, h, child, m), nextRaises(raises, h, child, m), target, depth+1)
}

// legalMoves resolves the street's archetype menu against the table
// constraints, dropping archetypes with no legal concrete action and
// collapsing archetypes that clamp to the same concrete amount.
func (t *Trainer) legalMoves(h *game.HandState, street abstraction.Street, raises int) []move {
	ec := h.Constraints()
	tc := translate.Constraints{
		Pot:        h.Pot(),
		ToCall:     ec.ToCall,
		CurrentBet: h.CurrentBet,
		MinRaiseTo: ec.MinRaiseTo,
		MaxRaiseTo: ec.MaxRaiseTo,
	}
	canRaise := ec.CanRaise && raises < t.mapper.Config().MaxRaisesPerStreet

	archetypes := t.mapper.Config().Actions(street, ec.ToCall > 0, canRaise)
	moves := make([]move, 0, len(archetypes))
	for _, a := range archetypes {
		c, err := t.translator.ToConcrete(a, tc)
		if err != nil {
			continue
		}
		if dup := duplicateConcrete(moves, c); dup {
			continue
		}
		moves = append(moves, move{archetype: a, concrete: c})
	}
	return moves
}

func duplicateConcrete(moves []move, c translate.Concrete) bool {
	for _, m := range moves {
		if m.concrete.Kind == c.Kind && m.concrete.Amount == c.Amount {
			return true
		}
	}
	return false
}

func gameAction(c translate.Concrete) game.Action {
	switch c.Kind {
	case translate.Fold:
		return game.Action{Type: game.Fold}
	case translate.Check:
		return game.Action{Type: game.Check}
	case translate.Call:
		return game.Action{Type: game.Call}
	case translate.RaiseTo:
		return game.Action{Type: game.Raise, RaiseTo: c.Amount}
	default:
		return game.Action{Type: game.AllIn}
	}
}

// nextHistory appends the taken action's token, plus a street-break marker
// when the action closed the betting round.
func nextHistory(history string, before, after *game.HandState, m move) string {
	history += PadToken(m.archetype.Token())
	if !after.Complete() && after.Street != before.Street {
		history += PadToken(StreetBreak)
	}
	return history
}

// nextRaises tracks the per-street raise count that caps the abstraction's
// betting-tree depth.
func nextRaises(raises int, before, after *game.HandState, m move) int {
	if after.Street != before.Street {
		return 0
	}
	if m.archetype.Kind == abstraction.Raise || m.archetype.Kind == abstraction.AllIn {
		return raises + 1
	}
	return raises
}

func sampleIndex(rng *rand.Rand, dist []float64) int {
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
