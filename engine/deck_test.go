package engine

import "testing"

func TestBuildDeck(t *testing.T) {
	deck := BuildDeck()
	if len(deck) != DeckSize {
		t.Fatalf("deck size = %d, want %d", len(deck), DeckSize)
	}
	seen := make(map[string]bool)
	for i, c := range deck {
		if c.Value != MinCardValue+i {
			t.Errorf("deck[%d].Value = %d, want %d", i, c.Value, MinCardValue+i)
		}
		if seen[c.ID] {
			t.Errorf("duplicate card id %q", c.ID)
		}
		seen[c.ID] = true
	}
}

func TestShuffleDeterministicPerSeed(t *testing.T) {
	deck := BuildDeck()

	s1 := uint64(42)
	s2 := uint64(42)
	a := Shuffle(deck, &s1)
	b := Shuffle(deck, &s2)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different permutations at index %d", i)
		}
	}
	if s1 == 42 {
		t.Error("seed was not advanced")
	}

	s3 := uint64(7)
	c := Shuffle(deck, &s3)
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical permutations")
	}
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	deck := BuildDeck()
	seed := uint64(99)
	Shuffle(deck, &seed)
	for i, c := range deck {
		if c.Value != MinCardValue+i {
			t.Fatalf("input deck mutated at index %d", i)
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	deck := BuildDeck()
	seed := uint64(1234)
	out := Shuffle(deck, &seed)
	if len(out) != len(deck) {
		t.Fatalf("shuffled length = %d, want %d", len(out), len(deck))
	}
	seen := make(map[int]bool)
	for _, c := range out {
		if seen[c.Value] {
			t.Fatalf("value %d appears twice after shuffle", c.Value)
		}
		seen[c.Value] = true
	}
}

func TestDeal(t *testing.T) {
	deck := BuildDeck()
	hand, rest, err := Deal(deck, HandSize)
	if err != nil {
		t.Fatalf("Deal: %v", err)
	}
	if len(hand) != HandSize {
		t.Errorf("hand size = %d, want %d", len(hand), HandSize)
	}
	if len(rest) != DeckSize-HandSize {
		t.Errorf("rest size = %d, want %d", len(rest), DeckSize-HandSize)
	}
	for i := 1; i < len(hand); i++ {
		if hand[i].Value < hand[i-1].Value {
			t.Errorf("hand not sorted: %d before %d", hand[i-1].Value, hand[i].Value)
		}
	}
}

func TestDealInsufficientCards(t *testing.T) {
	short := BuildDeck()[:HandSize-1]
	if _, _, err := Deal(short, HandSize); err != ErrInsufficientCards {
		t.Fatalf("Deal on short deck: err = %v, want ErrInsufficientCards", err)
	}
}

func TestDrawCapsAtDeckSize(t *testing.T) {
	deck := cardsOf(10, 20)
	hand := cardsOf(55)
	newHand, newDeck := Draw(deck, hand, 5)
	if len(newHand) != 3 {
		t.Errorf("hand size = %d, want 3", len(newHand))
	}
	if len(newDeck) != 0 {
		t.Errorf("deck size = %d, want 0", len(newDeck))
	}
	// Draw re-sorts the hand ascending.
	want := []int{10, 20, 55}
	for i, v := range want {
		if newHand[i].Value != v {
			t.Errorf("hand[%d].Value = %d, want %d", i, newHand[i].Value, v)
		}
	}
}

func TestDrawTakesFromFront(t *testing.T) {
	deck := cardsOf(30, 40, 50)
	newHand, newDeck := Draw(deck, nil, 2)
	if len(newHand) != 2 || newHand[0].Value != 30 || newHand[1].Value != 40 {
		t.Fatalf("drew %v, want values 30 and 40", newHand)
	}
	if len(newDeck) != 1 || newDeck[0].Value != 50 {
		t.Fatalf("remaining deck %v, want single value 50", newDeck)
	}
}
