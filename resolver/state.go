package resolver

import (
	"fmt"
	"strings"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/solver"
	"github.com/pokerforge/pokerforge/translate"
)

// betState is a two-player abstract betting position. It mirrors the hand
// engine's chip arithmetic (min-raise tracking, short all-ins, street resets)
// but carries no cards: hands exist only as buckets, so the same state
// machine serves both opponent-range replay and subgame construction.
type betState struct {
	street     abstraction.Street
	button     int
	actor      int
	contrib    [2]int // whole hand
	bet        [2]int // this street
	stack      [2]int
	currentBet int
	minRaise   int
	bb         int
	acted      [2]bool
	allIn      [2]bool
	folded     int // seat that folded, -1 while both live
	raises     int // this street
}

// newHandStart returns the preflop state after blinds. Heads up the button
// posts the small blind and acts first.
func newHandStart(smallBlind, bigBlind, stack, button int) betState {
	bs := betState{
		button:   button,
		actor:    button,
		stack:    [2]int{stack, stack},
		minRaise: bigBlind,
		bb:       bigBlind,
		folded:   -1,
	}
	bs.post(button, smallBlind)
	bs.post(1-button, bigBlind)
	bs.currentBet = bigBlind
	return bs
}

func (bs *betState) post(seat, amount int) {
	if amount >= bs.stack[seat] {
		amount = bs.stack[seat]
		bs.allIn[seat] = true
	}
	bs.stack[seat] -= amount
	bs.bet[seat] += amount
	bs.contrib[seat] += amount
}

func (bs *betState) pot() int {
	return bs.contrib[0] + bs.contrib[1]
}

// constraints renders the actor's legal envelope for the translator.
func (bs *betState) constraints() translate.Constraints {
	toCall := bs.currentBet - bs.bet[bs.actor]
	if toCall < 0 {
		toCall = 0
	}
	maxTo := bs.bet[bs.actor] + bs.stack[bs.actor]
	minTo := bs.currentBet + bs.minRaise
	if minTo > maxTo {
		minTo = maxTo
	}
	return translate.Constraints{
		Pot:        bs.pot(),
		ToCall:     toCall,
		CurrentBet: bs.currentBet,
		MinRaiseTo: minTo,
		MaxRaiseTo: maxTo,
	}
}

func (bs *betState) canRaise() bool {
	return bs.bet[bs.actor]+bs.stack[bs.actor] > bs.currentBet
}

// apply executes a concrete action for the current actor and passes the turn.
// Street advancement is the caller's job via nextStreet; the caller knows
// whether the betting round closed.
func (bs *betState) apply(c translate.Concrete) error {
	seat := bs.actor
	cons := bs.constraints()
	switch c.Kind {
	case translate.Fold:
		bs.folded = seat
	case translate.Check:
		if cons.ToCall != 0 {
			return fmt.Errorf("check facing a bet of %d", cons.ToCall)
		}
	case translate.Call:
		bs.post(seat, cons.ToCall)
	case translate.RaiseTo:
		if c.Amount < cons.MinRaiseTo || c.Amount > cons.MaxRaiseTo {
			return fmt.Errorf("raise to %d outside [%d,%d]", c.Amount, cons.MinRaiseTo, cons.MaxRaiseTo)
		}
		bs.raiseTo(c.Amount)
	case translate.AllIn:
		if cons.MaxRaiseTo <= bs.currentBet {
			bs.post(seat, bs.stack[seat])
		} else {
			bs.raiseTo(cons.MaxRaiseTo)
		}
	default:
		return fmt.Errorf("unknown concrete kind %d", c.Kind)
	}
	bs.acted[seat] = true
	bs.actor = 1 - seat
	return nil
}

func (bs *betState) raiseTo(total int) {
	seat := bs.actor
	increment := total - bs.currentBet
	if increment >= bs.minRaise {
		bs.minRaise = increment
	}
	if total > bs.currentBet {
		bs.currentBet = total
		other := 1 - seat
		if !bs.allIn[other] {
			bs.acted[other] = false
		}
	}
	bs.post(seat, total-bs.bet[seat])
	bs.raises++
}

// roundClosed reports whether the street's betting is finished.
func (bs *betState) roundClosed() bool {
	if bs.folded >= 0 {
		return true
	}
	for seat := 0; seat < 2; seat++ {
		if bs.allIn[seat] {
			continue
		}
		if !bs.acted[seat] || bs.bet[seat] < bs.currentBet {
			return false
		}
	}
	return true
}

// nextStreet advances past a closed betting round. Postflop the non-button
// seat opens.
func (bs *betState) nextStreet() {
	bs.street++
	bs.currentBet = 0
	bs.minRaise = bs.bb
	bs.bet = [2]int{}
	bs.acted = [2]bool{}
	bs.raises = 0
	bs.actor = 1 - bs.button
	if bs.allIn[bs.actor] {
		bs.actor = bs.button
	}
}

// bothCommitted reports that no further betting is possible this hand.
func (bs *betState) bothCommitted() bool {
	live := 0
	for seat := 0; seat < 2; seat++ {
		if !bs.allIn[seat] {
			live++
		}
	}
	return live <= 1
}

// legalMoves mirrors the blueprint trainer's action resolution: the street's
// archetype menu translated against the live constraints, illegal archetypes
// dropped, duplicate concrete amounts collapsed. Range replay depends on the
// menus here matching the ones the blueprint trained with.
func legalMoves(bs *betState, cfg abstraction.Config, tr *translate.Translator) []subgameMove {
	cons := bs.constraints()
	canRaise := bs.canRaise() && bs.raises < cfg.MaxRaisesPerStreet
	archetypes := cfg.Actions(bs.street, cons.ToCall > 0, canRaise)

	moves := make([]subgameMove, 0, len(archetypes))
	for _, a := range archetypes {
		c, err := tr.ToConcrete(a, cons)
		if err != nil {
			continue
		}
		dup := false
		for _, m := range moves {
			if m.concrete.Kind == c.Kind && m.concrete.Amount == c.Amount {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		moves = append(moves, subgameMove{archetype: a, concrete: c})
	}
	return moves
}

// subgameMove pairs an archetype with its concrete table action at a node.
type subgameMove struct {
	archetype abstraction.Archetype
	concrete  translate.Concrete
}

// replayHistory reconstructs the betting state reached by a token history
// from the start of the hand.
func replayHistory(history string, cfg abstraction.Config, tr *translate.Translator, smallBlind, bigBlind, stack, button int) (betState, error) {
	if len(history)%solver.TokenWidth != 0 {
		return betState{}, fmt.Errorf("history %q is not token-aligned", history)
	}
	bs := newHandStart(smallBlind, bigBlind, stack, button)
	for i := 0; i+solver.TokenWidth <= len(history); i += solver.TokenWidth {
		tok := strings.TrimRight(history[i:i+solver.TokenWidth], ".")
		if tok == solver.StreetBreak {
			bs.nextStreet()
			continue
		}
		moves := legalMoves(&bs, cfg, tr)
		applied := false
		for _, m := range moves {
			if m.archetype.Token() == tok {
				if err := bs.apply(m.concrete); err != nil {
					return betState{}, fmt.Errorf("replaying history: %w", err)
				}
				applied = true
				break
			}
		}
		if !applied {
			return betState{}, fmt.Errorf("history token %q has no legal action at %s", tok, bs.street)
		}
	}
	return bs, nil
}
