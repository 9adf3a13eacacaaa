package engine

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// xorshift64 RNG — inline, no interface
// ---------------------------------------------------------------------------

func nextRand(seed *uint64) uint64 {
	x := *seed
	if x == 0 {
		x = 1 // xorshift can't start at 0
	}
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	*seed = x
	return x
}

// randN returns a random number in [0, n).
func randN(seed *uint64, n uint64) uint64 {
	return nextRand(seed) % n
}

// ---------------------------------------------------------------------------
// Deck construction and dealing
// ---------------------------------------------------------------------------

// BuildDeck returns the full unshuffled card supply: one card per value in
// [MinCardValue, MaxCardValue].
func BuildDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for v := MinCardValue; v <= MaxCardValue; v++ {
		deck = append(deck, Card{ID: fmt.Sprintf("card-%d", v), Value: v})
	}
	return deck
}

// Shuffle returns a uniformly shuffled copy of cards using Fisher-Yates over
// the xorshift stream at *seed. The input slice is not modified; the seed is
// advanced in place.
func Shuffle(cards []Card, seed *uint64) []Card {
	out := append([]Card(nil), cards...)
	for i := len(out) - 1; i > 0; i-- {
		j := int(randN(seed, uint64(i+1)))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal splits handSize cards off the front of deck, returning the hand
// (sorted ascending) and the remaining deck. Fails when the deck is short.
func Deal(deck []Card, handSize int) (hand, rest []Card, err error) {
	if len(deck) < handSize {
		return nil, nil, ErrInsufficientCards
	}
	hand = sortByValue(append([]Card(nil), deck[:handSize]...))
	rest = append([]Card(nil), deck[handSize:]...)
	return hand, rest, nil
}

// Draw moves min(count, len(deck)) cards from the front of deck into hand.
// The returned hand is sorted ascending by value; sorting is a presentation
// convenience kept here so tests stay deterministic, not a gameplay rule.
func Draw(deck, hand []Card, count int) (newHand, newDeck []Card) {
	if count < 0 {
		count = 0
	}
	if count > len(deck) {
		count = len(deck)
	}
	newHand = append(append([]Card(nil), hand...), deck[:count]...)
	newHand = sortByValue(newHand)
	newDeck = append([]Card(nil), deck[count:]...)
	return newHand, newDeck
}

func sortByValue(cards []Card) []Card {
	sort.Slice(cards, func(i, j int) bool { return cards[i].Value < cards[j].Value })
	return cards
}
