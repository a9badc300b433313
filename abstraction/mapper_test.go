package abstraction

import (
	"math"
	"testing"

	"github.com/pokerforge/pokerforge/poker"
)

func mustHand(t *testing.T, s string) poker.Hand {
	t.Helper()
	h, err := poker.ParseHand(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return h
}

func TestBucketBoundsAndOrdering(t *testing.T) {
	m, err := NewMapper(Default())
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}

	aces := m.Bucket(Preflop, mustHand(t, "As Ah"), 0)
	trash := m.Bucket(Preflop, mustHand(t, "7c 2d"), 0)
	if aces <= trash {
		t.Fatalf("aces bucket %d should exceed 72o bucket %d", aces, trash)
	}
	if aces >= m.Buckets(Preflop) || trash < 0 {
		t.Fatalf("buckets out of range: %d, %d", aces, trash)
	}

	board := mustHand(t, "Ks Qs Js")
	set := m.Bucket(Flop, mustHand(t, "Kd Kc"), board)
	air := m.Bucket(Flop, mustHand(t, "2c 7d"), board)
	if set <= air {
		t.Fatalf("set bucket %d should exceed air bucket %d", set, air)
	}
}

func TestTransitionRowsAreStochastic(t *testing.T) {
	m, err := NewMapper(Smoke())
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}

	for s := Preflop; s < River; s++ {
		for b := 0; b < m.Buckets(s); b++ {
			row := m.Transition(s, b)
			if len(row) != m.Buckets(s+1) {
				t.Fatalf("%v transition row %d has %d entries, want %d", s, b, len(row), m.Buckets(s+1))
			}
			sum := 0.0
			for _, p := range row {
				if p < 0 {
					t.Fatalf("%v transition row %d has negative mass", s, b)
				}
				sum += p
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Fatalf("%v transition row %d sums to %f", s, b, sum)
			}
		}
	}
}

func TestEquityIsComplementary(t *testing.T) {
	m, err := NewMapper(Smoke())
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}

	for a := 0; a < m.Buckets(River); a++ {
		for b := 0; b < m.Buckets(River); b++ {
			e := m.Equity(River, a, b)
			if math.Abs(e+m.Equity(River, b, a)-1) > 1e-9 {
				t.Fatalf("equity(%d,%d) not complementary", a, b)
			}
			if a == b && math.Abs(e-0.5) > 1e-9 {
				t.Fatalf("equity(%d,%d) = %f, want 0.5", a, b, e)
			}
			if a > b && e <= 0.5 {
				t.Fatalf("stronger bucket %d has equity %f vs %d", a, e, b)
			}
		}
	}
}

func TestFingerprintIsSensitiveToParameters(t *testing.T) {
	base, err := NewMapper(Default())
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}

	same, err := NewMapper(Default())
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	if base.Fingerprint() != same.Fingerprint() {
		t.Fatalf("identical configs produced different fingerprints")
	}

	cfg := Default()
	cfg.BucketCounts[Flop]++
	changed, err := NewMapper(cfg)
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	if base.Fingerprint() == changed.Fingerprint() {
		t.Fatalf("bucket count change did not alter fingerprint")
	}

	cfg = Default()
	cfg.BetFractions[Preflop] = []float64{0.5, 1.0, 2.5}
	changed, err = NewMapper(cfg)
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	if base.Fingerprint() == changed.Fingerprint() {
		t.Fatalf("bet sizing change did not alter fingerprint")
	}
}

func TestActionsOrdering(t *testing.T) {
	cfg := Default()

	facing := cfg.Actions(Flop, true, true)
	if facing[0].Kind != Fold || facing[1].Kind != Call {
		t.Fatalf("facing a bet should start fold, call: %v", facing)
	}
	if facing[len(facing)-1].Kind != AllIn {
		t.Fatalf("last archetype should be all-in: %v", facing)
	}
	for i := 2; i < len(facing)-1; i++ {
		if facing[i].Kind != Raise {
			t.Fatalf("middle archetypes should be raises: %v", facing)
		}
		if i > 2 && facing[i].Fraction <= facing[i-1].Fraction {
			t.Fatalf("raise fractions not increasing: %v", facing)
		}
	}

	unraised := cfg.Actions(Flop, false, true)
	if unraised[0].Kind != Call {
		t.Fatalf("unraised node should not offer fold: %v", unraised)
	}

	capped := cfg.Actions(Flop, true, false)
	if len(capped) != 2 {
		t.Fatalf("raise-capped node should offer only fold and call: %v", capped)
	}
}

func TestArchetypeTokens(t *testing.T) {
	cases := []struct {
		a    Archetype
		want string
	}{
		{Archetype{Kind: Fold}, "f"},
		{Archetype{Kind: Call}, "c"},
		{Archetype{Kind: AllIn}, "a"},
		{Archetype{Kind: Raise, Fraction: 0.5}, "r050"},
		{Archetype{Kind: Raise, Fraction: 1.5}, "r150"},
	}
	for _, tc := range cases {
		if got := tc.a.Token(); got != tc.want {
			t.Errorf("Token(%v) = %q, want %q", tc.a, got, tc.want)
		}
	}
}
