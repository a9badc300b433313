package abstraction

import "fmt"

// ArchetypeKind enumerates the abstract action families.
type ArchetypeKind uint8

const (
	Fold ArchetypeKind = iota
	// Call covers both check and call: calling a zero bet is a check.
	Call
	Raise
	AllIn
)

// Archetype is one abstract action. Raise archetypes carry the pot fraction
// that sizes them; other kinds leave Fraction at zero.
type Archetype struct {
	Kind     ArchetypeKind
	Fraction float64
}

// Token renders the archetype as the fixed-width infoset history token:
// "f", "c", "a", or "rNNN" with the pot fraction in centipots.
func (a Archetype) Token() string {
	switch a.Kind {
	case Fold:
		return "f"
	case Call:
		return "c"
	case AllIn:
		return "a"
	case Raise:
		return fmt.Sprintf("r%03d", int(a.Fraction*100+0.5))
	default:
		return "?"
	}
}

func (a Archetype) String() string {
	return a.Token()
}

// Actions returns the ordered legal archetypes for a street. facingBet
// controls whether Fold is offered, and canRaise whether the raise family
// (sized raises and all-in) is offered at all.
func (c Config) Actions(street Street, facingBet, canRaise bool) []Archetype {
	out := make([]Archetype, 0, len(c.BetFractions[street])+3)
	if facingBet {
		out = append(out, Archetype{Kind: Fold})
	}
	out = append(out, Archetype{Kind: Call})
	if canRaise {
		for _, f := range c.BetFractions[street] {
			out = append(out, Archetype{Kind: Raise, Fraction: f})
		}
		out = append(out, Archetype{Kind: AllIn})
	}
	return out
}
