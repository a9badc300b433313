package abstraction

import (
	"hash/fnv"
	"math"

	"github.com/pokerforge/pokerforge/poker"
)

// Mapper assigns hands to buckets and carries the precomputed bucket
// transition and showdown-equity tables derived from the config. It is
// immutable after construction; solve and search code only read from it.
type Mapper struct {
	cfg         Config
	transitions [numStreets][][]float64
	equity      [numStreets][][]float64
	fingerprint uint64
}

// NewMapper validates the config and precomputes the derived tables.
func NewMapper(cfg Config) (*Mapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Mapper{cfg: cfg}
	for s := Street(0); s < numStreets; s++ {
		if s < River {
			m.transitions[s] = transitionMatrix(cfg.BucketCounts[s], cfg.BucketCounts[s+1])
		}
		m.equity[s] = equityMatrix(cfg.BucketCounts[s])
	}
	m.fingerprint = m.computeFingerprint()
	return m, nil
}

// Config returns the abstraction parameters backing the mapper.
func (m *Mapper) Config() Config {
	return m.cfg
}

// Buckets returns the bucket count for a street.
func (m *Mapper) Buckets(street Street) int {
	return m.cfg.BucketCounts[street]
}

// Bucket maps a hole/board combination to the street's bucket id. Buckets are
// ordered: higher ids are stronger holdings.
func (m *Mapper) Bucket(street Street, hole, board poker.Hand) int {
	n := m.cfg.BucketCounts[street]
	var score float64
	if street == Preflop {
		score = preflopScore(hole)
	} else {
		score = postflopScore(hole, board)
	}
	b := int(score * float64(n))
	if b >= n {
		b = n - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

// preflopScore maps the 169 starting-hand classes into [0,1).
func preflopScore(hole poker.Hand) float64 {
	cards := hole.Cards()
	if len(cards) != 2 {
		return 0
	}
	r0, r1 := int(cards[0].Rank()), int(cards[1].Rank())
	if r0 < r1 {
		r0, r1 = r1, r0
	}
	score := float64(r0*13 + r1)
	if r0 == r1 {
		score += 200
	}
	if cards[0].Suit() == cards[1].Suit() {
		score += 13
	}
	return score / 382.0
}

// postflopScore grades made-hand strength into [0,1) from the evaluator's
// category and primary kicker.
func postflopScore(hole, board poker.Hand) float64 {
	rank := poker.Evaluate(hole | board)
	category := float64(rank.Type())
	kicker := float64((rank >> 16) & 0xF)
	return (category*13 + kicker) / (9 * 13)
}

// Transition returns the probability distribution over next-street buckets
// for a hand currently in bucket b. Rows are stochastic.
func (m *Mapper) Transition(street Street, b int) []float64 {
	return m.transitions[street][b]
}

// Equity returns the probability that a hand in bucket a beats a hand in
// bucket b at showdown on the given street. Equity(a,b) + Equity(b,a) = 1.
func (m *Mapper) Equity(street Street, a, b int) float64 {
	return m.equity[street][a][b]
}

// transitionMatrix concentrates mass around the same relative strength with
// geometric falloff, modeling that bucket membership is sticky street to
// street but can jump on a bad or lucky card.
func transitionMatrix(from, to int) [][]float64 {
	rows := make([][]float64, from)
	for i := range rows {
		row := make([]float64, to)
		center := float64(i) / float64(from) * float64(to)
		total := 0.0
		for j := range row {
			d := math.Abs(float64(j) - center)
			row[j] = math.Exp(-d / 1.5)
			total += row[j]
		}
		for j := range row {
			row[j] /= total
		}
		rows[i] = row
	}
	return rows
}

// equityMatrix grades win probability by relative bucket rank through a
// logistic curve; equal buckets are a coin flip.
func equityMatrix(n int) [][]float64 {
	rows := make([][]float64, n)
	for a := range rows {
		row := make([]float64, n)
		for b := range row {
			diff := float64(a-b) / float64(n)
			row[b] = 1.0 / (1.0 + math.Exp(-6*diff))
		}
		rows[a] = row
	}
	return rows
}

// Fingerprint is a stable hash over the abstraction parameters and a probe of
// actual bucket assignments. Checkpoints record it; resume refuses to load a
// table built against a different abstraction.
func (m *Mapper) Fingerprint() uint64 {
	return m.fingerprint
}

var probeHands = []string{
	"As Ah", "As Ks", "7c 2d", "Td 9d", "5h 5s",
}

var probeBoards = []string{
	"Ks Qs Js", "2c 7d Th 9s", "Ac Kc 4d 4h 8s",
}

func (m *Mapper) computeFingerprint() uint64 {
	h := fnv.New64a()
	write := func(v uint64) {
		var buf [8]byte
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}

	for _, n := range m.cfg.BucketCounts {
		write(uint64(n))
	}
	for _, fractions := range m.cfg.BetFractions {
		write(uint64(len(fractions)))
		for _, f := range fractions {
			write(math.Float64bits(f))
		}
	}
	write(uint64(m.cfg.MaxRaisesPerStreet))
	write(math.Float64bits(m.cfg.AllInThreshold))

	// Probe the actual assignment function so a behavioral change that
	// leaves the parameters untouched still changes the fingerprint.
	for _, hs := range probeHands {
		hole, err := poker.ParseHand(hs)
		if err != nil {
			continue
		}
		write(uint64(m.Bucket(Preflop, hole, 0)))
		for _, bs := range probeBoards {
			board, err := poker.ParseHand(bs)
			if err != nil {
				continue
			}
			street := Flop
			switch board.Count() {
			case 4:
				street = Turn
			case 5:
				street = River
			}
			write(uint64(m.Bucket(street, hole, board)))
		}
	}
	return h.Sum64()
}
