package engine

import (
	"fmt"
	"testing"
)

// cardsOf builds cards the way BuildDeck does, one per value.
func cardsOf(values ...int) []Card {
	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{ID: fmt.Sprintf("card-%d", v), Value: v}
	}
	return cards
}

func idsOf(cards []Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// twoPlayerGame builds an in-progress game with fixed hands and draw pile.
func twoPlayerGame(p0Hand, p1Hand, draw []int) GameState {
	return GameState{
		GameID: "g1",
		Status: StatusInProgress,
		Players: []Player{
			{ID: "p0", Name: "Ada", IsInitiator: true, Hand: cardsOf(p0Hand...), Color: PlayerColors[0]},
			{ID: "p1", Name: "Ben", Hand: cardsOf(p1Hand...), Color: PlayerColors[1]},
		},
		DrawPile:    cardsOf(draw...),
		Piles:       NewPiles(),
		InitiatorID: "p0",
		Seed:        1,
	}
}

// ---------------------------------------------------------------------------
// CanPlay
// ---------------------------------------------------------------------------

func TestCanPlayEmptyPile(t *testing.T) {
	for _, kind := range []PileKind{Ascending, Descending} {
		pile := Pile{ID: "x", Kind: kind}
		if !CanPlay(Card{ID: "c", Value: 50}, pile) {
			t.Errorf("empty %s pile refused a card", kind)
		}
	}
}

func TestCanPlayAscending(t *testing.T) {
	pile := Pile{ID: "up", Kind: Ascending, Cards: cardsOf(50)}
	cases := []struct {
		value int
		want  bool
	}{
		{60, true},  // higher
		{51, true},  // barely higher
		{50, false}, // equal
		{45, false}, // lower but not the backstep
		{40, true},  // exactly BackstepGap lower
		{30, false},
	}
	for _, tc := range cases {
		got := CanPlay(Card{ID: "c", Value: tc.value}, pile)
		if got != tc.want {
			t.Errorf("CanPlay(%d on ascending 50) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

// TestCanPlayDescending pins the descending backstep to +10; a duplicated
// rule variant once used +5, which is treated as a bug, not a rule.
func TestCanPlayDescending(t *testing.T) {
	pile := Pile{ID: "down", Kind: Descending, Cards: cardsOf(50)}
	cases := []struct {
		value int
		want  bool
	}{
		{40, true},  // lower
		{49, true},  // barely lower
		{50, false}, // equal
		{55, false}, // +5 is NOT the backstep
		{60, true},  // exactly BackstepGap higher
		{70, false},
	}
	for _, tc := range cases {
		got := CanPlay(Card{ID: "c", Value: tc.value}, pile)
		if got != tc.want {
			t.Errorf("CanPlay(%d on descending 50) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// ValidateTurn
// ---------------------------------------------------------------------------

func TestValidateTurnWrongPlayer(t *testing.T) {
	g := twoPlayerGame([]int{10, 20}, []int{30, 40}, []int{50})
	err := ValidateTurn(&g, "p1", cardsOf(30, 40))
	if err != ErrNotYourTurn {
		t.Fatalf("err = %v, want ErrNotYourTurn", err)
	}
}

func TestValidateTurnMinimumWithStock(t *testing.T) {
	g := twoPlayerGame([]int{10, 20}, []int{30, 40}, []int{50})
	if err := ValidateTurn(&g, "p0", cardsOf(10)); err != ErrMustPlayTwo {
		t.Fatalf("one-card proposal with stock: err = %v, want ErrMustPlayTwo", err)
	}
	if err := ValidateTurn(&g, "p0", cardsOf(10, 20)); err != nil {
		t.Fatalf("two-card proposal: err = %v, want nil", err)
	}
}

func TestValidateTurnMinimumWithoutStock(t *testing.T) {
	g := twoPlayerGame([]int{10, 20}, []int{30, 40}, nil)
	if err := ValidateTurn(&g, "p0", cardsOf(10)); err != nil {
		t.Fatalf("one-card proposal with empty stock: err = %v, want nil", err)
	}
}

func TestValidateTurnTooManyCards(t *testing.T) {
	g := twoPlayerGame([]int{10, 20}, []int{30, 40}, []int{50})
	if err := ValidateTurn(&g, "p0", cardsOf(10, 20, 30)); err != ErrTooManyCards {
		t.Fatalf("err = %v, want ErrTooManyCards", err)
	}
}

func TestValidateTurnCardsNotInHand(t *testing.T) {
	g := twoPlayerGame([]int{10, 20}, []int{30, 40}, []int{50})
	if err := ValidateTurn(&g, "p0", cardsOf(10, 30)); err != ErrInvalidCards {
		t.Fatalf("err = %v, want ErrInvalidCards", err)
	}
}

// ---------------------------------------------------------------------------
// Legal moves and terminal positions
// ---------------------------------------------------------------------------

func TestHasAnyLegalMove(t *testing.T) {
	piles := NewPiles()
	piles[0].Cards = cardsOf(90) // ascending-1
	piles[1].Cards = cardsOf(95) // ascending-2
	piles[2].Cards = cardsOf(5)  // descending-1
	piles[3].Cards = cardsOf(3)  // descending-2

	if HasAnyLegalMove(cardsOf(50), piles) {
		t.Error("50 should have no legal move (no fit, no backstep)")
	}
	if !HasAnyLegalMove(cardsOf(80), piles) {
		t.Error("80 should fit the ascending 90 pile via backstep")
	}
	if !HasAnyLegalMove(cardsOf(96), piles) {
		t.Error("96 should fit the ascending 95 pile")
	}
}

func TestIsWin(t *testing.T) {
	g := twoPlayerGame(nil, nil, nil)
	if !IsWin(&g) {
		t.Error("all hands and draw pile empty should be a win")
	}
	g2 := twoPlayerGame([]int{10}, nil, nil)
	if IsWin(&g2) {
		t.Error("a non-empty hand is not a win")
	}
	g3 := twoPlayerGame(nil, nil, []int{10})
	if IsWin(&g3) {
		t.Error("a non-empty draw pile is not a win")
	}
}

func TestIsGameOverDeadlock(t *testing.T) {
	g := twoPlayerGame([]int{50}, []int{60}, nil)
	g.Piles[0].Cards = cardsOf(90)
	g.Piles[1].Cards = cardsOf(95)
	g.Piles[2].Cards = cardsOf(5)
	g.Piles[3].Cards = cardsOf(3)
	if !IsGameOver(&g) {
		t.Error("current player holding only unplayable cards is a deadlock")
	}

	g.Piles[1].Cards = cardsOf(40) // now 50 fits
	if IsGameOver(&g) {
		t.Error("not a deadlock when a move exists")
	}
}

func TestValidPiles(t *testing.T) {
	g := twoPlayerGame([]int{10, 20}, nil, nil)
	g.Piles[0].Cards = cardsOf(15) // ascending-1: 10 illegal
	g.Piles[2].Cards = cardsOf(30) // descending-1: 10 then 20 illegal

	got := ValidPiles(&g, cardsOf(10, 20))
	want := map[string]bool{"ascending-2": true, "descending-2": true}
	if len(got) != len(want) {
		t.Fatalf("ValidPiles = %v, want %v", got, want)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected valid pile %q", id)
		}
	}
}

// TestValidPilesChecksEvolvingTop ensures the helper applies cards in order
// against the intermediate pile top, not the original one.
func TestValidPilesChecksEvolvingTop(t *testing.T) {
	g := twoPlayerGame([]int{20, 10}, nil, nil)
	got := ValidPiles(&g, cardsOf(20, 10))
	for _, id := range got {
		if id == "ascending-1" || id == "ascending-2" {
			t.Errorf("20 then 10 cannot both land on an ascending pile, got %q", id)
		}
	}
}
