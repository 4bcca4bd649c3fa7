package poker

import (
	"fmt"
	rand "math/rand/v2"
)

// DeckSize is the number of distinct cards in a standard deck
const DeckSize = 52

// Deck is an ordered, exhaustible 52-card deck consumed front to back.
// A new Deck is built and shuffled for every hand.
type Deck struct {
	cards [DeckSize]Card
	next  int
}

// NewDeck creates a full deck shuffled with the given RNG
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{}
	i := 0
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	d.shuffle(rng)
	return d
}

// RestoreDeck rebuilds a deck whose undealt cards are exactly remaining, in order.
// It is used when resuming a hand from a snapshot.
func RestoreDeck(remaining []Card) (*Deck, error) {
	if len(remaining) > DeckSize {
		return nil, fmt.Errorf("deck has %d cards, max %d", len(remaining), DeckSize)
	}
	seen := make(map[Card]bool, len(remaining))
	d := &Deck{next: DeckSize - len(remaining)}
	for i, c := range remaining {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid card at position %d", i)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate card %s in deck", c)
		}
		seen[c] = true
		d.cards[d.next+i] = c
	}
	return d, nil
}

// shuffle performs a Fisher-Yates shuffle
func (d *Deck) shuffle(rng *rand.Rand) {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the next n cards
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 || d.next+n > len(d.cards) {
		return nil, fmt.Errorf("cannot deal %d cards, %d remaining", n, d.Remaining())
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Burn discards the next card and returns it
func (d *Deck) Burn() (Card, error) {
	cards, err := d.Deal(1)
	if err != nil {
		return Card{}, err
	}
	return cards[0], nil
}

// Remaining returns the number of undealt cards
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Undealt returns a copy of the undealt cards in dealing order
func (d *Deck) Undealt() []Card {
	out := make([]Card, d.Remaining())
	copy(out, d.cards[d.next:])
	return out
}
