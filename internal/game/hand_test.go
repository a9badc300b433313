package game

import (
	"slices"
	"testing"

	"github.com/pokerforge/pokerforge/internal/randutil"
)

func newTestHand(t *testing.T, players int) *HandState {
	t.Helper()
	return NewHandState(randutil.New(1), players, 0, 5, 10, 1000)
}

func TestBlindsAndFirstActor(t *testing.T) {
	h := newTestHand(t, 2)

	// Heads up: button posts the small blind and acts first preflop.
	if h.Players[0].Contributed != 5 {
		t.Fatalf("button contributed %d, want 5", h.Players[0].Contributed)
	}
	if h.Players[1].Contributed != 10 {
		t.Fatalf("bb contributed %d, want 10", h.Players[1].Contributed)
	}
	if h.Actor() != 0 {
		t.Fatalf("actor = %d, want button", h.Actor())
	}
	if h.Pot() != 15 {
		t.Fatalf("pot = %d, want 15", h.Pot())
	}
}

func TestFoldEndsHand(t *testing.T) {
	h := newTestHand(t, 2)

	if err := h.Apply(Action{Type: Fold}); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if !h.Complete() {
		t.Fatalf("hand should be complete after fold")
	}
	if got := h.Utility(1); got != 5 {
		t.Fatalf("winner utility = %d, want 5", got)
	}
	if got := h.Utility(0); got != -5 {
		t.Fatalf("folder utility = %d, want -5", got)
	}
}

func TestCheckdownReachesShowdown(t *testing.T) {
	h := newTestHand(t, 2)

	if err := h.Apply(Action{Type: Call}); err != nil {
		t.Fatalf("limp: %v", err)
	}
	// Big blind has the option.
	if h.Actor() != 1 {
		t.Fatalf("actor = %d, want bb option", h.Actor())
	}
	steps := 0
	for !h.Complete() {
		if err := h.Apply(Action{Type: Check}); err != nil {
			t.Fatalf("check at step %d: %v", steps, err)
		}
		if steps++; steps > 20 {
			t.Fatalf("hand did not terminate")
		}
	}
	if h.Street != River {
		t.Fatalf("street = %v, want river", h.Street)
	}
	if h.Board.Count() != 5 {
		t.Fatalf("board has %d cards, want 5", h.Board.Count())
	}
	if h.Utility(0)+h.Utility(1) != 0 {
		t.Fatalf("utilities do not sum to zero: %d + %d", h.Utility(0), h.Utility(1))
	}
}

func TestMinRaiseTracking(t *testing.T) {
	h := newTestHand(t, 2)

	c := h.Constraints()
	if c.MinRaiseTo != 20 {
		t.Fatalf("preflop min raise to %d, want 20", c.MinRaiseTo)
	}
	if err := h.Apply(Action{Type: Raise, RaiseTo: 30}); err != nil {
		t.Fatalf("raise: %v", err)
	}
	// Raise of 20 over 10 sets the next increment to 20.
	c = h.Constraints()
	if c.ToCall != 20 {
		t.Fatalf("to call %d, want 20", c.ToCall)
	}
	if c.MinRaiseTo != 50 {
		t.Fatalf("re-raise min to %d, want 50", c.MinRaiseTo)
	}
	if err := h.Apply(Action{Type: Raise, RaiseTo: 45}); err == nil {
		t.Fatalf("expected min-raise violation")
	}
}

func TestAllInRunout(t *testing.T) {
	h := newTestHand(t, 2)

	if err := h.Apply(Action{Type: AllIn}); err != nil {
		t.Fatalf("shove: %v", err)
	}
	if err := h.Apply(Action{Type: AllIn}); err != nil {
		t.Fatalf("call shove: %v", err)
	}
	if !h.Complete() {
		t.Fatalf("hand should run out and settle")
	}
	if h.Board.Count() != 5 {
		t.Fatalf("board has %d cards after runout, want 5", h.Board.Count())
	}
	if h.Utility(0)+h.Utility(1) != 0 {
		t.Fatalf("utilities do not sum to zero: %d + %d", h.Utility(0), h.Utility(1))
	}
}

func TestSidePotSettlement(t *testing.T) {
	// Three-handed with a short stack: the short stack can only win the
	// layer it covered.
	h := NewHandState(randutil.New(9), 3, 0, 5, 10, 1000)
	h.Players[1].Stack = 90 // sb seat already posted 5 of an effective 100

	for !h.Complete() {
		c := h.Constraints()
		var err error
		if c.ToCall > 0 {
			err = h.Apply(Action{Type: AllIn})
		} else {
			err = h.Apply(Action{Type: AllIn})
		}
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
	}

	total := 0
	for seat := range h.Players {
		total += h.Utility(seat)
	}
	if total != 0 {
		t.Fatalf("settlement not zero-sum: %d", total)
	}
	// The short stack can never win more than what it covered from each
	// caller plus blinds.
	if h.Utility(1) > 200 {
		t.Fatalf("short stack won %d, exceeds covered layers", h.Utility(1))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	h := newTestHand(t, 2)
	c := h.Clone()

	if err := h.Apply(Action{Type: Fold}); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if c.Complete() {
		t.Fatalf("clone should be unaffected by original's action")
	}
	if err := c.Apply(Action{Type: Call}); err != nil {
		t.Fatalf("clone apply: %v", err)
	}
}

func TestZeroSumAcrossRandomPlayouts(t *testing.T) {
	rng := randutil.New(77)
	for trial := 0; trial < 200; trial++ {
		players := 2 + rng.IntN(3)
		h := NewHandState(rng, players, rng.IntN(players), 5, 10, 500)
		for !h.Complete() {
			c := h.Constraints()
			switch rng.IntN(4) {
			case 0:
				if c.ToCall > 0 {
					_ = h.Apply(Action{Type: Fold})
				} else {
					_ = h.Apply(Action{Type: Check})
				}
			case 1:
				if c.ToCall > 0 {
					_ = h.Apply(Action{Type: Call})
				} else {
					_ = h.Apply(Action{Type: Check})
				}
			case 2:
				if c.CanRaise {
					_ = h.Apply(Action{Type: Raise, RaiseTo: c.MinRaiseTo})
				} else if c.ToCall > 0 {
					_ = h.Apply(Action{Type: Call})
				} else {
					_ = h.Apply(Action{Type: Check})
				}
			default:
				_ = h.Apply(Action{Type: AllIn})
			}
		}
		sum := 0
		for seat := 0; seat < players; seat++ {
			sum += h.Utility(seat)
		}
		if sum != 0 {
			t.Fatalf("trial %d (%d players): utilities sum to %d", trial, players, sum)
		}
	}
}

func TestContributionLevelsSortedUnique(t *testing.T) {
	players := []Player{
		{Contributed: 300}, {Contributed: 100}, {Contributed: 300}, {Contributed: 50},
	}
	levels := contributionLevels(players, []int{0, 1, 2, 3})
	if want := []int{50, 100, 300}; !slices.Equal(levels, want) {
		t.Fatalf("levels = %v, want %v", levels, want)
	}
}
