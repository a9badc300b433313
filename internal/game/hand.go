// Package game implements a minimal no-limit Texas Hold'em hand engine.
// It models exactly what solver traversals need: blinds, street-by-street
// betting with min-raise tracking, all-ins with side pots, and showdown
// settlement. There is no table management, timing, or player I/O here.
package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/pokerforge/pokerforge/poker"
)

// Street enumerates the betting rounds of a hand.
type Street uint8

const (
	Preflop Street = iota
	Flop
	Turn
	River
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

// Board cards dealt at the start of each street.
var streetDeals = [4]int{0, 3, 1, 1}

// ActionType enumerates the concrete moves a player can make.
type ActionType uint8

const (
	Fold ActionType = iota
	Check
	Call
	Raise
	AllIn
)

func (a ActionType) String() string {
	switch a {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case Raise:
		return "raise"
	case AllIn:
		return "all-in"
	default:
		return "unknown"
	}
}

// Action is a concrete move. RaiseTo is the total street commitment for
// Raise actions and is ignored otherwise.
type Action struct {
	Type    ActionType
	RaiseTo int
}

// Player holds per-seat hand state.
type Player struct {
	Hole        poker.Hand
	Stack       int
	Bet         int // committed this street
	Contributed int // committed across the whole hand
	Folded      bool
	AllIn       bool
	acted       bool
}

// Constraints describes what the actor may legally do right now.
type Constraints struct {
	ToCall     int  // additional chips required to call (0 means check is legal)
	MinRaiseTo int  // smallest legal total street commitment for a raise
	MaxRaiseTo int  // bet + remaining stack
	CanRaise   bool // false once the stack cannot exceed the current bet
}

var errHandComplete = errors.New("hand is complete")

// HandState is a single hand in progress.
type HandState struct {
	Players []Player
	Button  int
	Street  Street
	Board   poker.Hand

	CurrentBet int // highest street commitment so far
	MinRaise   int // current raise increment

	deck     poker.Deck
	sb, bb   int
	actor    int
	complete bool
	payouts  []int
}

// NewHandState deals a fresh hand. All randomness comes from rng.
func NewHandState(rng *rand.Rand, players, button, smallBlind, bigBlind, stack int) *HandState {
	h := &HandState{
		Players:  make([]Player, players),
		Button:   button,
		Street:   Preflop,
		MinRaise: bigBlind,
		sb:       smallBlind,
		bb:       bigBlind,
	}
	h.deck = *poker.NewDeck(rng)
	for i := range h.Players {
		h.Players[i].Stack = stack
		h.Players[i].Hole = h.deck.DealHand(2)
	}

	sbSeat := h.seatAfter(button)
	bbSeat := h.seatAfter(sbSeat)
	if players == 2 {
		// Heads up the button posts the small blind.
		sbSeat = button
		bbSeat = h.seatAfter(button)
	}
	h.post(sbSeat, smallBlind)
	h.post(bbSeat, bigBlind)
	h.CurrentBet = bigBlind
	h.actor = h.seatAfter(bbSeat)
	h.settleIfDone()
	return h
}

// Clone returns an independent copy sharing no mutable state.
func (h *HandState) Clone() *HandState {
	c := *h
	c.Players = append([]Player(nil), h.Players...)
	if h.payouts != nil {
		c.payouts = append([]int(nil), h.payouts...)
	}
	return &c
}

func (h *HandState) seatAfter(seat int) int {
	return (seat + 1) % len(h.Players)
}

func (h *HandState) post(seat, amount int) {
	p := &h.Players[seat]
	if amount >= p.Stack {
		amount = p.Stack
		p.AllIn = true
	}
	p.Stack -= amount
	p.Bet += amount
	p.Contributed += amount
}

// Complete reports whether the hand has been settled.
func (h *HandState) Complete() bool {
	return h.complete
}

// Actor returns the seat to act, or -1 if the hand is complete.
func (h *HandState) Actor() int {
	if h.complete {
		return -1
	}
	return h.actor
}

// Pot returns total chips committed by all players.
func (h *HandState) Pot() int {
	total := 0
	for i := range h.Players {
		total += h.Players[i].Contributed
	}
	return total
}

// Constraints returns the legal-action envelope for the current actor.
func (h *HandState) Constraints() Constraints {
	p := &h.Players[h.actor]
	toCall := h.CurrentBet - p.Bet
	if toCall < 0 {
		toCall = 0
	}
	maxTo := p.Bet + p.Stack
	minTo := h.CurrentBet + h.MinRaise
	if minTo > maxTo {
		minTo = maxTo
	}
	return Constraints{
		ToCall:     toCall,
		MinRaiseTo: minTo,
		MaxRaiseTo: maxTo,
		CanRaise:   maxTo > h.CurrentBet,
	}
}

// Apply validates and executes an action for the current actor, advancing
// streets and settling the hand as needed.
func (h *HandState) Apply(a Action) error {
	if h.complete {
		return errHandComplete
	}
	p := &h.Players[h.actor]
	c := h.Constraints()

	switch a.Type {
	case Fold:
		p.Folded = true
	case Check:
		if c.ToCall != 0 {
			return fmt.Errorf("cannot check facing a bet of %d", c.ToCall)
		}
	case Call:
		if c.ToCall == 0 {
			return errors.New("nothing to call")
		}
		h.post(h.actor, c.ToCall)
	case Raise:
		if !c.CanRaise {
			return errors.New("stack too small to raise")
		}
		if a.RaiseTo < c.MinRaiseTo || a.RaiseTo > c.MaxRaiseTo {
			return fmt.Errorf("raise to %d outside legal range [%d,%d]", a.RaiseTo, c.MinRaiseTo, c.MaxRaiseTo)
		}
		h.raiseTo(a.RaiseTo)
	case AllIn:
		if c.MaxRaiseTo <= h.CurrentBet {
			// Calling all-in for less than the current bet.
			h.post(h.actor, p.Stack)
		} else {
			h.raiseTo(c.MaxRaiseTo)
		}
	default:
		return fmt.Errorf("unknown action %d", a.Type)
	}

	p.acted = true
	h.advance()
	return nil
}

func (h *HandState) raiseTo(total int) {
	p := &h.Players[h.actor]
	increment := total - h.CurrentBet
	// A short all-in raise does not reopen the betting, so only full raises
	// move the min-raise increment.
	if increment >= h.MinRaise {
		h.MinRaise = increment
	}
	if total > h.CurrentBet {
		h.CurrentBet = total
		for i := range h.Players {
			if i != h.actor && !h.Players[i].Folded && !h.Players[i].AllIn {
				h.Players[i].acted = false
			}
		}
	}
	h.post(h.actor, total-p.Bet)
}

// advance moves to the next actor, next street, or showdown.
func (h *HandState) advance() {
	if h.settleIfDone() {
		return
	}
	for {
		if h.roundClosed() {
			if h.Street == River {
				h.settle()
				return
			}
			h.nextStreet()
			if h.settleIfDone() {
				return
			}
			continue
		}
		h.actor = h.seatAfter(h.actor)
		p := &h.Players[h.actor]
		if !p.Folded && !p.AllIn {
			return
		}
	}
}

func (h *HandState) roundClosed() bool {
	for i := range h.Players {
		p := &h.Players[i]
		if p.Folded || p.AllIn {
			continue
		}
		if !p.acted || p.Bet < h.CurrentBet {
			return false
		}
	}
	return true
}

func (h *HandState) nextStreet() {
	h.Street++
	h.Board |= h.deck.DealHand(streetDeals[h.Street])
	h.CurrentBet = 0
	h.MinRaise = h.bb
	for i := range h.Players {
		h.Players[i].Bet = 0
		h.Players[i].acted = false
	}
	h.actor = h.Button
	// First live seat after the button opens the street.
	for {
		h.actor = h.seatAfter(h.actor)
		p := &h.Players[h.actor]
		if !p.Folded && !p.AllIn {
			return
		}
		if h.actor == h.Button {
			return
		}
	}
}

// settleIfDone ends the hand early when at most one player can still act.
func (h *HandState) settleIfDone() bool {
	live, canAct := 0, 0
	for i := range h.Players {
		if !h.Players[i].Folded {
			live++
			if !h.Players[i].AllIn {
				canAct++
			}
		}
	}
	if live <= 1 {
		h.settle()
		return true
	}
	if canAct <= 1 && h.roundClosed() {
		// Everyone is all-in (or one live player remains uncalled): run out
		// the remaining board and settle.
		for h.Street < River {
			h.nextStreet()
		}
		h.settle()
		return true
	}
	return false
}

// settle computes payouts, including side pots for uneven all-ins.
func (h *HandState) settle() {
	h.complete = true
	h.payouts = make([]int, len(h.Players))

	live := make([]int, 0, len(h.Players))
	for i := range h.Players {
		if !h.Players[i].Folded {
			live = append(live, i)
		}
	}
	if len(live) == 1 {
		h.payouts[live[0]] = h.Pot()
		return
	}

	ranks := make(map[int]poker.HandRank, len(live))
	for _, seat := range live {
		ranks[seat] = poker.Evaluate(h.Players[seat].Hole | h.Board)
	}

	// Pot layers: one layer per distinct live contribution level. Each layer
	// collects min(contributed, level)-prev from every player and is awarded
	// to the best live hand among players contributed up to that level.
	levels := contributionLevels(h.Players, live)
	prev := 0
	for li, level := range levels {
		// Dead money from a fold above the top live level belongs to the
		// last layer, so its collection boundary is the table maximum.
		collectTo := level
		if li == len(levels)-1 {
			for i := range h.Players {
				if c := h.Players[i].Contributed; c > collectTo {
					collectTo = c
				}
			}
		}

		layer := 0
		for i := range h.Players {
			c := h.Players[i].Contributed
			if c > prev {
				if c > collectTo {
					c = collectTo
				}
				layer += c - prev
			}
		}

		var winners []int
		var best poker.HandRank
		for _, seat := range live {
			if h.Players[seat].Contributed < level {
				continue
			}
			switch {
			case len(winners) == 0 || ranks[seat] > best:
				winners = []int{seat}
				best = ranks[seat]
			case ranks[seat] == best:
				winners = append(winners, seat)
			}
		}

		share := layer / len(winners)
		odd := layer - share*len(winners)
		for _, seat := range winners {
			h.payouts[seat] += share
		}
		// Odd chips go to the first winner after the button.
		if odd > 0 {
			seat := h.Button
			for {
				seat = h.seatAfter(seat)
				if slices.Contains(winners, seat) {
					h.payouts[seat] += odd
					break
				}
			}
		}
		prev = collectTo
	}
}

func contributionLevels(players []Player, live []int) []int {
	seen := map[int]struct{}{}
	levels := make([]int, 0, len(live))
	for _, seat := range live {
		c := players[seat].Contributed
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			levels = append(levels, c)
		}
	}
	slices.Sort(levels)
	return levels
}

// Utility returns the chip delta for a seat once the hand is complete.
func (h *HandState) Utility(seat int) int {
	return h.payouts[seat] - h.Players[seat].Contributed
}
