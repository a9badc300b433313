// Package poker provides card primitives and hand evaluation for no-limit
// Texas Hold'em. Cards are single bits in a uint64 so hands compose with
// bitwise OR and membership tests are a single AND.
package poker

import (
	"fmt"
	"math/bits"
	rand "math/rand/v2"
	"strings"
)

// Card is a single card encoded as one set bit in a uint64.
// Bit layout: [13 spades][13 hearts][13 diamonds][13 clubs].
type Card uint64

// Hand is a set of cards: multiple bits set in the same layout.
type Hand uint64

// Suit constants.
const (
	Clubs    uint8 = 0
	Diamonds uint8 = 1
	Hearts   uint8 = 2
	Spades   uint8 = 3
)

// Rank constants, 0-12 for deuce through ace.
const (
	Two uint8 = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankMask = 0x1FFF

// NewCard builds a card from a rank (0-12) and suit (0-3).
func NewCard(rank, suit uint8) Card {
	return Card(1) << (suit*13 + rank)
}

// Rank returns the card rank (0-12), or 255 for the zero card.
func (c Card) Rank() uint8 {
	if c == 0 {
		return 255
	}
	return uint8(bits.TrailingZeros64(uint64(c))) % 13
}

// Suit returns the card suit (0-3), or 255 for the zero card.
func (c Card) Suit() uint8 {
	if c == 0 {
		return 255
	}
	return uint8(bits.TrailingZeros64(uint64(c))) / 13
}

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

func (c Card) String() string {
	r, s := c.Rank(), c.Suit()
	if r > 12 || s > 3 {
		return "??"
	}
	return string(rankChars[r]) + string(suitChars[s])
}

// ParseCard parses a two-character card like "As" or "7d".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	r := strings.IndexByte(rankChars, s[0])
	su := strings.IndexByte(suitChars, s[1])
	if r < 0 || su < 0 {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	return NewCard(uint8(r), uint8(su)), nil
}

// ParseHand parses space-separated cards like "As Kd 7c".
func ParseHand(s string) (Hand, error) {
	var h Hand
	for _, tok := range strings.Fields(s) {
		c, err := ParseCard(tok)
		if err != nil {
			return 0, err
		}
		h = h.Add(c)
	}
	return h, nil
}

// Add returns the hand with the card included.
func (h Hand) Add(c Card) Hand {
	return h | Hand(c)
}

// Contains reports whether the card is present.
func (h Hand) Contains(c Card) bool {
	return h&Hand(c) != 0
}

// Count returns the number of cards in the hand.
func (h Hand) Count() int {
	return bits.OnesCount64(uint64(h))
}

// Cards returns the cards in the hand in bit order.
func (h Hand) Cards() []Card {
	out := make([]Card, 0, h.Count())
	v := uint64(h)
	for v != 0 {
		low := v & -v
		out = append(out, Card(low))
		v &^= low
	}
	return out
}

// SuitMask returns the 13-bit rank mask for a suit.
func (h Hand) SuitMask(suit uint8) uint16 {
	return uint16(uint64(h)>>(suit*13)) & rankMask
}

// RankMask returns the union of rank bits across all suits.
func (h Hand) RankMask() uint16 {
	var m uint16
	for s := uint8(0); s < 4; s++ {
		m |= h.SuitMask(s)
	}
	return m
}

func (h Hand) String() string {
	cards := h.Cards()
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Deck is a standard 52-card deck dealt front to back after a shuffle.
type Deck struct {
	cards [52]Card
	next  int
	rng   *rand.Rand
}

// NewDeck returns a shuffled deck using the provided RNG.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	i := 0
	for suit := uint8(0); suit < 4; suit++ {
		for rank := uint8(0); rank < 13; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	d.Shuffle()
	return d
}

// Shuffle resets the deal position and reshuffles (Fisher-Yates).
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the next card. Returns 0 when exhausted.
func (d *Deck) Deal() Card {
	if d.next >= len(d.cards) {
		return 0
	}
	c := d.cards[d.next]
	d.next++
	return c
}

// DealHand removes n cards and returns them as a hand.
func (d *Deck) DealHand(n int) Hand {
	var h Hand
	for i := 0; i < n; i++ {
		h = h.Add(d.Deal())
	}
	return h
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Remove marks specific cards as dealt so they cannot appear again. Used when
// reconstructing a live state where board and hole cards are already known.
func (d *Deck) Remove(h Hand) {
	kept := d.cards[d.next:]
	w := 0
	for _, c := range kept {
		if !h.Contains(c) {
			kept[w] = c
			w++
		}
	}
	// Dead cards sink to the end of the array, beyond the live window.
	d.next = len(d.cards) - w
	copy(d.cards[d.next:], kept[:w])
}
