package engine

import (
	"reflect"
	"testing"
)

// collectCardIDs gathers every card id in the document, failing on
// duplicates. Used to assert the conservation invariant: every card lives in
// exactly one of a hand, the draw pile, or a foundation pile.
func collectCardIDs(t *testing.T, g *GameState) map[string]bool {
	t.Helper()
	seen := make(map[string]bool)
	add := func(where string, cards []Card) {
		for _, c := range cards {
			if seen[c.ID] {
				t.Fatalf("card %s duplicated (seen again in %s)", c.ID, where)
			}
			seen[c.ID] = true
		}
	}
	for i := range g.Players {
		add("hand of "+g.Players[i].ID, g.Players[i].Hand)
	}
	add("draw pile", g.DrawPile)
	for i := range g.Piles {
		add("pile "+g.Piles[i].ID, g.Piles[i].Cards)
	}
	return seen
}

func assertConservation(t *testing.T, g *GameState) {
	t.Helper()
	if got := len(collectCardIDs(t, g)); got != DeckSize {
		t.Fatalf("card count = %d, want %d", got, DeckSize)
	}
}

// TestCardConservation drives a started game through greedy play and checks
// after every accepted command that no card is duplicated or lost.
func TestCardConservation(t *testing.T) {
	g := startedGame(t, "Ada", "Ben")
	assertConservation(t, &g)

	for turn := 0; turn < 40 && g.Status == StatusInProgress; turn++ {
		cur, _ := g.CurrentPlayer()
		played := 0
		for played < MinCardsPerTurn {
			moved := false
			for _, c := range cur.Hand {
				for _, pile := range g.Piles {
					if !CanPlay(c, pile) {
						continue
					}
					next, err := g.PlayCards(cur.ID, []string{c.ID}, pile.ID)
					if err != nil {
						t.Fatalf("PlayCards: %v", err)
					}
					g = next
					assertConservation(t, &g)
					cur, _ = g.CurrentPlayer()
					played++
					moved = true
					break
				}
				if moved {
					break
				}
			}
			if !moved {
				break
			}
		}
		next, err := g.EndTurn(cur.ID)
		if err != nil {
			t.Fatalf("EndTurn: %v", err)
		}
		g = next
		assertConservation(t, &g)
	}
}

// TestTerminationWin walks a crafted two-player endgame to completion and
// expects a FINISHED, winning document.
func TestTerminationWin(t *testing.T) {
	g := GameState{
		GameID: "g1",
		Status: StatusInProgress,
		Players: []Player{
			{ID: "p0", Name: "Ada", Hand: cardsOf(10, 20)},
			{ID: "p1", Name: "Ben", Hand: cardsOf(30, 40)},
		},
		Piles: NewPiles(),
	}

	g, err := g.PlayCards("p0", []string{"card-10", "card-20"}, "ascending-1")
	if err != nil {
		t.Fatalf("p0 PlayCards: %v", err)
	}
	g, err = g.EndTurn("p0")
	if err != nil {
		t.Fatalf("p0 EndTurn: %v", err)
	}
	if g.Status == StatusFinished {
		t.Fatal("game must continue while another player holds cards")
	}
	if !g.Players[0].IsFinished {
		t.Error("p0 emptied hand with empty draw pile, should be finished")
	}

	g, err = g.PlayCards("p1", []string{"card-30", "card-40"}, "ascending-1")
	if err != nil {
		t.Fatalf("p1 PlayCards: %v", err)
	}
	g, err = g.EndTurn("p1")
	if err != nil {
		t.Fatalf("p1 EndTurn: %v", err)
	}
	if g.Status != StatusFinished {
		t.Fatalf("status = %s, want FINISHED", g.Status)
	}
	if !IsWin(&g) {
		t.Fatal("both hands and draw pile empty must be a win")
	}
}

// TestTransitionsArePure applies the same command twice to the same input
// state and expects identical results both times.
func TestTransitionsArePure(t *testing.T) {
	waiting := newWaitingGame(t, "Ada", "Ben")

	a, err := waiting.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	b, err := waiting.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("Start is not a pure function of the input state")
	}

	cur, _ := a.CurrentPlayer()
	pileID := ""
	cardID := ""
	for _, c := range cur.Hand {
		for _, p := range a.Piles {
			if CanPlay(c, p) {
				cardID, pileID = c.ID, p.ID
				break
			}
		}
		if pileID != "" {
			break
		}
	}
	if pileID == "" {
		t.Fatal("fresh deal with empty piles must have a legal move")
	}
	pa, err := a.PlayCards(cur.ID, []string{cardID}, pileID)
	if err != nil {
		t.Fatalf("PlayCards: %v", err)
	}
	pb, err := a.PlayCards(cur.ID, []string{cardID}, pileID)
	if err != nil {
		t.Fatalf("PlayCards: %v", err)
	}
	if !reflect.DeepEqual(pa, pb) {
		t.Fatal("PlayCards is not a pure function of the input state")
	}
}

// TestInvariantIndexInRange spot-checks that the current player index stays
// in range across lifecycle transitions.
func TestInvariantIndexInRange(t *testing.T) {
	g := startedGame(t, "Ada", "Ben", "Cleo")
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		t.Fatalf("index %d out of range", g.CurrentPlayerIndex)
	}
	reset, err := g.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if reset.CurrentPlayerIndex != 0 {
		t.Fatalf("index after reset = %d, want 0", reset.CurrentPlayerIndex)
	}
}
