package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pokerforge/pokerforge/abstraction"
	"github.com/pokerforge/pokerforge/solver"
	"github.com/pokerforge/pokerforge/translate"
)

func TestHandStartBlinds(t *testing.T) {
	bs := newHandStart(5, 10, 1000, 0)

	require.Equal(t, abstraction.Preflop, bs.street)
	require.Equal(t, 0, bs.actor, "heads up the button acts first preflop")
	require.Equal(t, 5, bs.bet[0])
	require.Equal(t, 10, bs.bet[1])
	require.Equal(t, 15, bs.pot())
	require.Equal(t, 10, bs.currentBet)

	cons := bs.constraints()
	require.Equal(t, 5, cons.ToCall)
	require.Equal(t, 20, cons.MinRaiseTo)
	require.Equal(t, 1000, cons.MaxRaiseTo)
}

func TestBetStateRaiseAndCall(t *testing.T) {
	bs := newHandStart(5, 10, 1000, 0)

	require.NoError(t, bs.apply(translate.Concrete{Kind: translate.RaiseTo, Amount: 30}))
	require.Equal(t, 1, bs.actor)
	require.Equal(t, 30, bs.currentBet)
	require.Equal(t, 20, bs.minRaise)
	require.False(t, bs.roundClosed())

	require.NoError(t, bs.apply(translate.Concrete{Kind: translate.Call}))
	require.True(t, bs.roundClosed())
	require.Equal(t, 60, bs.pot())

	bs.nextStreet()
	require.Equal(t, abstraction.Flop, bs.street)
	require.Equal(t, 1, bs.actor, "non-button opens postflop")
	require.Equal(t, 0, bs.currentBet)
}

func TestBetStateFoldEndsHand(t *testing.T) {
	bs := newHandStart(5, 10, 1000, 1)
	require.NoError(t, bs.apply(translate.Concrete{Kind: translate.Fold}))
	require.Equal(t, 1, bs.folded)
	require.True(t, bs.roundClosed())
}

func TestBetStateAllInStopsBetting(t *testing.T) {
	bs := newHandStart(5, 10, 100, 0)
	require.NoError(t, bs.apply(translate.Concrete{Kind: translate.AllIn, Amount: 100}))
	require.True(t, bs.allIn[0])
	require.NoError(t, bs.apply(translate.Concrete{Kind: translate.Call}))
	require.True(t, bs.bothCommitted())
	require.True(t, bs.roundClosed())
	require.Equal(t, 200, bs.pot())
}

func TestLegalMovesCollapsesDuplicates(t *testing.T) {
	cfg := abstraction.Smoke()
	tr := translate.New(cfg)

	// A tiny stack forces every raise size onto the same all-in amount.
	bs := newHandStart(5, 10, 22, 0)
	moves := legalMoves(&bs, cfg, tr)

	seen := map[string]bool{}
	for _, m := range moves {
		sig := m.concrete.String()
		require.False(t, seen[sig], "duplicate concrete action %s", sig)
		seen[sig] = true
	}
}

func TestReplayHistoryMatchesStepwiseState(t *testing.T) {
	cfg := abstraction.Smoke()
	tr := translate.New(cfg)

	// Button calls, big blind checks, street break.
	history := solver.PadToken("c") + solver.PadToken("c") + solver.PadToken(solver.StreetBreak)
	bs, err := replayHistory(history, cfg, tr, 5, 10, 1000, 0)
	require.NoError(t, err)

	require.Equal(t, abstraction.Flop, bs.street)
	require.Equal(t, 20, bs.pot())
	require.Equal(t, 1, bs.actor)
	require.Equal(t, -1, bs.folded)
}

func TestReplayHistoryRejectsUnknownToken(t *testing.T) {
	cfg := abstraction.Smoke()
	tr := translate.New(cfg)

	_, err := replayHistory(solver.PadToken("zz"), cfg, tr, 5, 10, 1000, 0)
	require.Error(t, err)

	_, err = replayHistory("c..", cfg, tr, 5, 10, 1000, 0)
	require.Error(t, err, "unaligned history must be rejected")
}
