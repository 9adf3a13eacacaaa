package engine

// CanPlay reports whether card may legally land on pile right now.
// An empty pile accepts anything. An ascending pile accepts any higher card,
// or a card exactly BackstepGap lower; a descending pile is the mirror image.
func CanPlay(card Card, pile Pile) bool {
	top, ok := pile.Top()
	if !ok {
		return true
	}
	if pile.Kind == Ascending {
		return card.Value > top.Value || card.Value == top.Value-BackstepGap
	}
	return card.Value < top.Value || card.Value == top.Value+BackstepGap
}

// ValidateTurn checks whether the given player may submit proposed as a
// complete turn against the current state. It returns nil when the proposal
// is valid, or a rule rejection explaining why. Legality of each card against
// its target pile is checked during PlayCards, not here.
func ValidateTurn(g *GameState, playerID string, proposed []Card) error {
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return ErrNotYourTurn
	}
	if len(g.DrawPile) > 0 && len(proposed) < MinCardsPerTurn {
		return ErrMustPlayTwo
	}
	idx := g.PlayerByID(playerID)
	if idx < 0 {
		return ErrUnknownPlayer
	}
	player := g.Players[idx]
	if len(proposed) > len(player.Hand) {
		return ErrTooManyCards
	}
	inHand := make(map[string]bool, len(player.Hand))
	for _, c := range player.Hand {
		inHand[c.ID] = true
	}
	for _, c := range proposed {
		if !inHand[c.ID] {
			return ErrInvalidCards
		}
	}
	return nil
}

// HasAnyLegalMove reports whether any card in hand can be played on any pile.
func HasAnyLegalMove(hand []Card, piles []Pile) bool {
	for _, c := range hand {
		for i := range piles {
			if CanPlay(c, piles[i]) {
				return true
			}
		}
	}
	return false
}

// ValidPiles returns the IDs of piles on which every card in cards could be
// played in the order given. Advisory helper for clients highlighting drop
// targets.
func ValidPiles(g *GameState, cards []Card) []string {
	var ids []string
	for i := range g.Piles {
		pile := g.Piles[i].Clone()
		ok := true
		for _, c := range cards {
			if !CanPlay(c, pile) {
				ok = false
				break
			}
			pile.Cards = append(pile.Cards, c)
		}
		if ok {
			ids = append(ids, pile.ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the pile.
func (p Pile) Clone() Pile {
	cp := p
	cp.Cards = append([]Card(nil), p.Cards...)
	if p.Preferences != nil {
		cp.Preferences = make(map[string]PreferenceLevel, len(p.Preferences))
		for k, v := range p.Preferences {
			cp.Preferences[k] = v
		}
	}
	return cp
}

// IsWin reports whether the game has been cleared: the draw pile and every
// hand are empty.
func IsWin(g *GameState) bool {
	if len(g.DrawPile) > 0 {
		return false
	}
	for i := range g.Players {
		if len(g.Players[i].Hand) > 0 {
			return false
		}
	}
	return len(g.Players) > 0
}

// IsGameOver reports whether the game has reached a terminal position: either
// a win, or the player to move still holds cards and has no legal move
// anywhere (deadlock). A finished player with an empty hand is skipped by
// turn advancement and does not by itself end the game.
func IsGameOver(g *GameState) bool {
	if IsWin(g) {
		return true
	}
	cur, ok := g.CurrentPlayer()
	if !ok {
		return false
	}
	return len(cur.Hand) > 0 && !HasAnyLegalMove(cur.Hand, g.Piles)
}
