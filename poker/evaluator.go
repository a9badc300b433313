package poker

import "math/bits"

// HandRank scores a 5-7 card hand. Higher values win. The top bits carry the
// hand category and the low 20 bits carry up to five 4-bit rank kickers in
// significance order, so two ranks compare correctly with a single integer
// comparison.
type HandRank uint32

// HandType enumerates hand categories from weakest to strongest.
type HandType uint8

const (
	HighCard HandType = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (t HandType) String() string {
	switch t {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// Type returns the category encoded in the rank.
func (r HandRank) Type() HandType {
	return HandType(r >> 20)
}

func packRank(t HandType, kickers ...uint8) HandRank {
	v := uint32(t) << 20
	shift := 16
	for _, k := range kickers {
		v |= uint32(k) << shift
		shift -= 4
	}
	return HandRank(v)
}

// Evaluate returns the rank of the best 5-card hand within the given cards.
// The hand must contain between 5 and 7 cards.
func Evaluate(h Hand) HandRank {
	var suitMasks [4]uint16
	var rankMask uint16
	for s := uint8(0); s < 4; s++ {
		suitMasks[s] = h.SuitMask(s)
		rankMask |= suitMasks[s]
	}

	// Straight flush and flush.
	var bestFlush HandRank
	for _, sm := range suitMasks {
		if bits.OnesCount16(sm) < 5 {
			continue
		}
		if high := straightHigh(sm); high != noStraight {
			sr := packRank(StraightFlush, high)
			if sr > bestFlush {
				bestFlush = sr
			}
			continue
		}
		fr := packRank(Flush, topRanks(sm, 5)...)
		if fr > bestFlush {
			bestFlush = fr
		}
	}
	if bestFlush.Type() == StraightFlush {
		return bestFlush
	}

	quads := suitMasks[0] & suitMasks[1] & suitMasks[2] & suitMasks[3]
	triples := (suitMasks[0] & suitMasks[1] & suitMasks[2]) |
		(suitMasks[0] & suitMasks[1] & suitMasks[3]) |
		(suitMasks[0] & suitMasks[2] & suitMasks[3]) |
		(suitMasks[1] & suitMasks[2] & suitMasks[3])
	trips := triples &^ quads
	pairs := ((suitMasks[0] & suitMasks[1]) | (suitMasks[0] & suitMasks[2]) |
		(suitMasks[0] & suitMasks[3]) | (suitMasks[1] & suitMasks[2]) |
		(suitMasks[1] & suitMasks[3]) | (suitMasks[2] & suitMasks[3])) &^ triples

	if quads != 0 {
		q := topRank(quads)
		kicker := topRank(rankMask &^ (1 << q))
		return packRank(FourOfAKind, q, kicker)
	}

	if trips != 0 {
		t := topRank(trips)
		// A second trip counts as the pair of a full house.
		pairCandidates := pairs | (trips &^ (1 << t))
		if pairCandidates != 0 {
			return packRank(FullHouse, t, topRank(pairCandidates))
		}
	}

	if bestFlush != 0 {
		return bestFlush
	}

	if high := straightHigh(rankMask); high != noStraight {
		return packRank(Straight, high)
	}

	if trips != 0 {
		t := topRank(trips)
		ks := topRanks(rankMask&^(1<<t), 2)
		return packRank(ThreeOfAKind, t, ks[0], ks[1])
	}

	if bits.OnesCount16(pairs) >= 2 {
		hi := topRank(pairs)
		lo := topRank(pairs &^ (1 << hi))
		kicker := topRank(rankMask &^ (1<<hi | 1<<lo))
		return packRank(TwoPair, hi, lo, kicker)
	}

	if pairs != 0 {
		p := topRank(pairs)
		ks := topRanks(rankMask&^(1<<p), 3)
		return packRank(Pair, p, ks[0], ks[1], ks[2])
	}

	return packRank(HighCard, topRanks(rankMask, 5)...)
}

const noStraight = 255

// straightHigh returns the high rank of the best straight in a rank mask, or
// noStraight. The wheel (A-5) reports Five as its high card.
func straightHigh(mask uint16) uint8 {
	mask &= rankMask
	seq := mask & (mask >> 1) & (mask >> 2) & (mask >> 3) & (mask >> 4)
	if seq != 0 {
		return uint8(bits.Len16(seq)-1) + 4
	}
	const wheelMask = 1<<Five | 1<<Four | 1<<Three | 1<<Two | 1<<Ace
	if mask&wheelMask == wheelMask {
		return Five
	}
	return noStraight
}

func topRank(mask uint16) uint8 {
	if mask == 0 {
		return 0
	}
	return uint8(bits.Len16(mask) - 1)
}

func topRanks(mask uint16, n int) []uint8 {
	out := make([]uint8, 0, n)
	for len(out) < n {
		if mask == 0 {
			out = append(out, 0)
			continue
		}
		t := topRank(mask)
		out = append(out, t)
		mask &^= 1 << t
	}
	return out
}

// Compare returns 1 if a beats b, -1 if b beats a, 0 for a chop.
func Compare(a, b HandRank) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}
