package translate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pokerforge/pokerforge/abstraction"
)

func defaultConstraints() Constraints {
	return Constraints{
		Pot:        100,
		ToCall:     0,
		CurrentBet: 0,
		MinRaiseTo: 10,
		MaxRaiseTo: 2000,
	}
}

func TestCheckAndCall(t *testing.T) {
	tr := New(abstraction.Default())

	c := defaultConstraints()
	out, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Call}, c)
	require.NoError(t, err)
	require.Equal(t, Check, out.Kind)

	c.ToCall = 20
	c.CurrentBet = 20
	out, err = tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Call}, c)
	require.NoError(t, err)
	require.Equal(t, Call, out.Kind)

	out, err = tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Fold}, c)
	require.NoError(t, err)
	require.Equal(t, Fold, out.Kind)
}

func TestFoldWithoutBetIsIllegal(t *testing.T) {
	tr := New(abstraction.Default())
	_, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Fold}, defaultConstraints())
	require.ErrorIs(t, err, ErrIllegalAction)
}

func TestRaiseSizing(t *testing.T) {
	tr := New(abstraction.Default())
	c := defaultConstraints()

	out, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 0.5}, c)
	require.NoError(t, err)
	require.Equal(t, RaiseTo, out.Kind)
	require.Equal(t, 50, out.Amount)
	require.False(t, out.Clamped)

	// Facing a bet: pot fraction sizes against the pot after calling.
	c.ToCall = 20
	c.CurrentBet = 20
	c.MinRaiseTo = 40
	out, err = tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 1.0}, c)
	require.NoError(t, err)
	require.Equal(t, 20+20+120, out.Amount)
}

func TestMinRaiseClamp(t *testing.T) {
	tr := New(abstraction.Default())
	c := Constraints{Pot: 20, ToCall: 0, CurrentBet: 0, MinRaiseTo: 20, MaxRaiseTo: 2000}

	// 50% pot would be 10, below the legal minimum.
	out, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 0.5}, c)
	require.NoError(t, err)
	require.Equal(t, RaiseTo, out.Kind)
	require.Equal(t, 20, out.Amount)
	require.True(t, out.Clamped)
}

func TestAllInSnap(t *testing.T) {
	tr := New(abstraction.Default())

	// A 2x pot raise lands at 97%+ of the stack cap and must snap.
	c := Constraints{Pot: 500, ToCall: 0, CurrentBet: 0, MinRaiseTo: 10, MaxRaiseTo: 1000}
	out, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 2.0}, c)
	require.NoError(t, err)
	require.Equal(t, AllIn, out.Kind)
	require.Equal(t, 1000, out.Amount)
	require.False(t, out.Clamped, "a fraction resolving to exactly the cap moved nothing")
}

func TestSnapBelowCapMarksClamped(t *testing.T) {
	tr := New(abstraction.Default())

	// 1.95x pot resolves to 975, inside the snap window but below the cap:
	// the snap moves the amount, so the flag must say so.
	c := Constraints{Pot: 500, ToCall: 0, CurrentBet: 0, MinRaiseTo: 10, MaxRaiseTo: 1000}
	out, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 1.95}, c)
	require.NoError(t, err)
	require.Equal(t, AllIn, out.Kind)
	require.Equal(t, 1000, out.Amount)
	require.True(t, out.Clamped)
}

func TestShortStackMinRaiseAboveSnapLine(t *testing.T) {
	// The documented short-stack edge: the legal minimum raise already sits
	// above the snap threshold, so any raise archetype commits to all-in.
	tr := New(abstraction.Default())
	c := Constraints{Pot: 200, ToCall: 40, CurrentBet: 40, MinRaiseTo: 78, MaxRaiseTo: 80}

	out, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 0.5}, c)
	require.NoError(t, err)
	require.Equal(t, AllIn, out.Kind)
	require.Equal(t, 80, out.Amount)
}

func TestRaiseImpossible(t *testing.T) {
	tr := New(abstraction.Default())
	c := Constraints{Pot: 100, ToCall: 50, CurrentBet: 100, MinRaiseTo: 60, MaxRaiseTo: 60}

	_, err := tr.ToConcrete(abstraction.Archetype{Kind: abstraction.Raise, Fraction: 1.0}, c)
	require.True(t, errors.Is(err, ErrIllegalAction))
}

func TestRoundTripUnclamped(t *testing.T) {
	cfg := abstraction.Default()
	tr := New(cfg)
	archetypes := cfg.Actions(abstraction.Flop, false, true)

	cases := []Constraints{
		{Pot: 100, ToCall: 0, CurrentBet: 0, MinRaiseTo: 10, MaxRaiseTo: 10000},
		{Pot: 60, ToCall: 20, CurrentBet: 20, MinRaiseTo: 40, MaxRaiseTo: 10000},
		{Pot: 350, ToCall: 75, CurrentBet: 150, MinRaiseTo: 225, MaxRaiseTo: 50000},
	}

	for _, c := range cases {
		for _, a := range archetypes {
			if a.Kind != abstraction.Raise {
				continue
			}
			out, err := tr.ToConcrete(a, c)
			require.NoError(t, err)
			if out.Clamped || out.Kind != RaiseTo {
				continue
			}
			back := tr.ToAbstract(out.Amount, c, archetypes)
			require.Equal(t, a, back, "round trip for %v under %+v", a, c)
		}
	}
}

func TestToAbstractTieBreaksSmaller(t *testing.T) {
	cfg := abstraction.Default()
	tr := New(cfg)
	archetypes := []abstraction.Archetype{
		{Kind: abstraction.Call},
		{Kind: abstraction.Raise, Fraction: 0.5},
		{Kind: abstraction.Raise, Fraction: 1.0},
	}

	// Pot 100, no bet: raise-to 75 is equidistant between 50% and 100%.
	c := Constraints{Pot: 100, ToCall: 0, CurrentBet: 0, MinRaiseTo: 10, MaxRaiseTo: 10000}
	got := tr.ToAbstract(75, c, archetypes)
	require.Equal(t, abstraction.Archetype{Kind: abstraction.Raise, Fraction: 0.5}, got)
}

func TestToAbstractSnapsToAllIn(t *testing.T) {
	cfg := abstraction.Default()
	tr := New(cfg)
	archetypes := cfg.Actions(abstraction.River, true, true)

	c := Constraints{Pot: 100, ToCall: 20, CurrentBet: 20, MinRaiseTo: 40, MaxRaiseTo: 500}
	got := tr.ToAbstract(495, c, archetypes)
	require.Equal(t, abstraction.AllIn, got.Kind)
}
