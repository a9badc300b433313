// Package translate maps between abstract action archetypes and concrete
// chip amounts at the table. The forward direction sizes a pot-fraction
// archetype and enforces legality (min-raise, stack cap, all-in snap); the
// reverse direction classifies an observed bet as the nearest archetype so
// opponent ranges can be updated in abstract space.
package translate

import (
	"errors"
	"fmt"
	"math"

	"github.com/pokerforge/pokerforge/abstraction"
)

// ErrIllegalAction is returned when no legal concrete amount exists for the
// requested archetype. Callers must never forward such an action to the
// table.
var ErrIllegalAction = errors.New("translate: no legal concrete action")

// Constraints captures table legality at the decision point. Amounts are
// total street commitments ("raise to"), matching how the engine validates.
type Constraints struct {
	Pot        int // chips in the pot, including all current-street bets
	ToCall     int // additional chips needed to call
	CurrentBet int // highest street commitment so far
	MinRaiseTo int // smallest legal raise-to; equals MaxRaiseTo when short
	MaxRaiseTo int // actor's bet plus remaining stack
}

// Kind enumerates concrete action families emitted toward the table.
type Kind uint8

const (
	Fold Kind = iota
	Check
	Call
	RaiseTo
	AllIn
)

func (k Kind) String() string {
	switch k {
	case Fold:
		return "fold"
	case Check:
		return "check"
	case Call:
		return "call"
	case RaiseTo:
		return "raise"
	case AllIn:
		return "all-in"
	default:
		return "unknown"
	}
}

// Concrete is one table-legal action, with the originating archetype attached
// for logging and for range bookkeeping.
type Concrete struct {
	Kind      Kind
	Amount    int // raise-to total for RaiseTo and AllIn, else 0
	Archetype abstraction.Archetype
	Clamped   bool // legality clamps moved the amount off its pot fraction
}

func (c Concrete) String() string {
	if c.Kind == RaiseTo || c.Kind == AllIn {
		return fmt.Sprintf("%s %d", c.Kind, c.Amount)
	}
	return c.Kind.String()
}

// Translator converts archetypes to concrete actions and back under one
// abstraction config.
type Translator struct {
	cfg abstraction.Config
}

// New returns a translator for the given abstraction.
func New(cfg abstraction.Config) *Translator {
	return &Translator{cfg: cfg}
}

// potAfterCall is the reference pot a fraction archetype sizes against.
func potAfterCall(c Constraints) int {
	return c.Pot + c.ToCall
}

// raiseToFor returns the unclamped raise-to amount for a pot fraction.
func raiseToFor(fraction float64, c Constraints) int {
	raise := int(math.Round(fraction * float64(potAfterCall(c))))
	return c.CurrentBet + c.ToCall + raise
}

// fractionFor inverts raiseToFor for an observed amount.
func fractionFor(amount int, c Constraints) float64 {
	ref := potAfterCall(c)
	if ref <= 0 {
		return 0
	}
	return float64(amount-c.CurrentBet-c.ToCall) / float64(ref)
}

// ToConcrete resolves an archetype against the table constraints.
//
// Raise sizing resolves the pot fraction, clamps into the legal window
// [MinRaiseTo, MaxRaiseTo], and then snaps to all-in when the clamped amount
// reaches the configured fraction of the stack cap. Clamp-then-snap order is
// deliberate: with very short stacks the legal minimum raise can itself sit
// above the snap line, and the translation must commit to all-in rather than
// emit a raise that strands an un-actionable remainder.
func (t *Translator) ToConcrete(a abstraction.Archetype, c Constraints) (Concrete, error) {
	switch a.Kind {
	case abstraction.Fold:
		if c.ToCall == 0 {
			// Open-folding is never offered by the abstraction.
			return Concrete{}, fmt.Errorf("%w: fold with nothing to call", ErrIllegalAction)
		}
		return Concrete{Kind: Fold, Archetype: a}, nil

	case abstraction.Call:
		if c.ToCall == 0 {
			return Concrete{Kind: Check, Archetype: a}, nil
		}
		return Concrete{Kind: Call, Archetype: a}, nil

	case abstraction.Raise, abstraction.AllIn:
		if c.MaxRaiseTo <= c.CurrentBet {
			return Concrete{}, fmt.Errorf("%w: stack cannot exceed current bet", ErrIllegalAction)
		}
		if a.Kind == abstraction.AllIn {
			return Concrete{Kind: AllIn, Amount: c.MaxRaiseTo, Archetype: a}, nil
		}

		amount := raiseToFor(a.Fraction, c)
		clamped := false
		if amount < c.MinRaiseTo {
			amount = c.MinRaiseTo
			clamped = true
		}
		if amount > c.MaxRaiseTo {
			amount = c.MaxRaiseTo
			clamped = true
		}
		if float64(amount) >= t.cfg.AllInThreshold*float64(c.MaxRaiseTo) {
			// The snap moves the amount off its pot fraction too.
			if amount != c.MaxRaiseTo {
				clamped = true
			}
			return Concrete{Kind: AllIn, Amount: c.MaxRaiseTo, Archetype: a, Clamped: clamped}, nil
		}
		if amount <= c.CurrentBet || amount < c.MinRaiseTo {
			return Concrete{}, fmt.Errorf("%w: clamped raise %d still illegal", ErrIllegalAction, amount)
		}
		return Concrete{Kind: RaiseTo, Amount: amount, Archetype: a, Clamped: clamped}, nil

	default:
		return Concrete{}, fmt.Errorf("%w: unknown archetype kind %d", ErrIllegalAction, a.Kind)
	}
}

// ToAbstract classifies an observed concrete amount as the nearest archetype
// in pot-fraction space. Ties break deterministically toward the smaller
// archetype. Amounts at or above the snap threshold classify as all-in when
// the archetype set offers one.
func (t *Translator) ToAbstract(amount int, c Constraints, archetypes []abstraction.Archetype) abstraction.Archetype {
	if float64(amount) >= t.cfg.AllInThreshold*float64(c.MaxRaiseTo) {
		for _, a := range archetypes {
			if a.Kind == abstraction.AllIn {
				return a
			}
		}
	}

	observed := fractionFor(amount, c)
	var best abstraction.Archetype
	bestDist := math.Inf(1)
	found := false
	for _, a := range archetypes {
		var f float64
		switch a.Kind {
		case abstraction.Raise:
			f = a.Fraction
		case abstraction.AllIn:
			f = fractionFor(c.MaxRaiseTo, c)
		default:
			continue
		}
		d := math.Abs(f - observed)
		// Strict less-than keeps the first (smaller) archetype on a tie.
		if d < bestDist {
			best = a
			bestDist = d
			found = true
		}
	}
	if !found {
		// No raise family offered: an aggressive observed action still has
		// to land somewhere, and call is the closest surviving archetype.
		for _, a := range archetypes {
			if a.Kind == abstraction.Call {
				return a
			}
		}
		if len(archetypes) > 0 {
			return archetypes[0]
		}
	}
	return best
}
