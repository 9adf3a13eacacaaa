package engine

// Commands are the only way the document changes. Each one takes the state
// by value, clones it, and returns the successor (or a rejection, leaving
// the input untouched). No command may be applied to a FINISHED game except
// Reset and the best-effort SetPresence.

// NewGame creates the shared document for a fresh game: WAITING, a single
// initiator seat, deck not yet dealt.
func NewGame(gameID, hostID, hostName string, seed uint64, now int64) (GameState, error) {
	if hostName == "" {
		return GameState{}, ErrEmptyName
	}
	host := Player{
		ID:          hostID,
		Name:        hostName,
		Hand:        []Card{},
		IsInitiator: true,
		IsOnline:    true,
		LastActive:  now,
		Color:       PlayerColors[0],
	}
	return GameState{
		GameID:      gameID,
		Status:      StatusWaiting,
		Players:     []Player{host},
		Piles:       NewPiles(),
		InitiatorID: hostID,
		CreatedAt:   now,
		Seed:        seed,
	}, nil
}

// Join appends a new player with an empty hand and the next free color.
func (g GameState) Join(playerID, name string, now int64) (GameState, error) {
	if name == "" {
		return GameState{}, ErrEmptyName
	}
	switch g.Status {
	case StatusFinished:
		return GameState{}, ErrGameFinished
	case StatusInProgress:
		return GameState{}, ErrAlreadyStarted
	}
	if len(g.Players) >= MaxPlayers {
		return GameState{}, ErrGameFull
	}
	if g.PlayerByID(playerID) >= 0 {
		return GameState{}, ErrAlreadyJoined
	}
	next := g.Clone()
	next.Players = append(next.Players, Player{
		ID:         playerID,
		Name:       name,
		Hand:       []Card{},
		IsOnline:   true,
		LastActive: now,
		Color:      PlayerColors[len(next.Players)%MaxPlayers],
	})
	return next, nil
}

// Start shuffles a fresh deck, deals every player a full hand, and moves the
// game to IN_PROGRESS with the initiator to act first.
func (g GameState) Start() (GameState, error) {
	switch g.Status {
	case StatusFinished:
		return GameState{}, ErrGameFinished
	case StatusInProgress:
		return GameState{}, ErrAlreadyStarted
	}
	if len(g.Players) < MinPlayers {
		return GameState{}, ErrNotEnoughPlayers
	}
	next := g.Clone()
	deck := Shuffle(BuildDeck(), &next.Seed)
	for i := range next.Players {
		hand, rest, err := Deal(deck, HandSize)
		if err != nil {
			return GameState{}, err
		}
		next.Players[i].Hand = hand
		next.Players[i].IsFinished = false
		deck = rest
	}
	next.DrawPile = deck
	next.Status = StatusInProgress
	next.CurrentPlayerIndex = 0
	next.CardsPlayedThisTurn = 0
	return next, nil
}

// PlayCards moves the identified cards from the acting player's hand onto
// one pile, in the order supplied. Each card is checked against the pile top
// as it stands after the previous card of the same submission; the first
// illegal card rejects the whole command with nothing applied. Playing on a
// pile clears all preference signals on it.
func (g GameState) PlayCards(playerID string, cardIDs []string, pileID string) (GameState, error) {
	switch g.Status {
	case StatusFinished:
		return GameState{}, ErrGameFinished
	case StatusWaiting:
		return GameState{}, ErrNotInProgress
	}
	if len(cardIDs) == 0 {
		return GameState{}, ErrNoCards
	}
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return GameState{}, ErrNotYourTurn
	}
	pi := g.PileByID(pileID)
	if pi < 0 {
		return GameState{}, ErrUnknownPile
	}

	next := g.Clone()
	player := &next.Players[next.CurrentPlayerIndex]
	if len(cardIDs) > len(player.Hand) {
		return GameState{}, ErrTooManyCards
	}
	pile := &next.Piles[pi]
	for _, id := range cardIDs {
		hi := -1
		for i := range player.Hand {
			if player.Hand[i].ID == id {
				hi = i
				break
			}
		}
		if hi < 0 {
			// Not in hand (or a duplicate of an already-played ID).
			return GameState{}, ErrInvalidCards
		}
		card := player.Hand[hi]
		if !CanPlay(card, *pile) {
			return GameState{}, ErrIllegalPlay
		}
		pile.Cards = append(pile.Cards, card)
		player.Hand = append(player.Hand[:hi], player.Hand[hi+1:]...)
	}
	*pile = ClearAllPreferences(*pile)
	next.CardsPlayedThisTurn += len(cardIDs)
	if len(player.Hand) == 0 && len(next.DrawPile) == 0 {
		player.IsFinished = true
	}
	return next, nil
}

// EndTurn closes the acting player's turn: replenishes their hand from the
// draw pile, clears their preference signals everywhere, passes play to the
// next seat still holding cards, and re-evaluates the terminal conditions.
//
// While the draw pile is non-empty the minimum of two plays is enforced
// here. A player who cannot reach the minimum because no card of theirs fits
// anywhere ends the game instead (cooperative loss) rather than being stuck.
func (g GameState) EndTurn(playerID string) (GameState, error) {
	switch g.Status {
	case StatusFinished:
		return GameState{}, ErrGameFinished
	case StatusWaiting:
		return GameState{}, ErrNotInProgress
	}
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return GameState{}, ErrNotYourTurn
	}

	next := g.Clone()
	player := &next.Players[next.CurrentPlayerIndex]

	if next.CardsPlayedThisTurn < MinCardsPerTurn && len(next.DrawPile) > 0 {
		if HasAnyLegalMove(player.Hand, next.Piles) {
			return GameState{}, ErrMustPlayTwo
		}
		next.Status = StatusFinished
		return next, nil
	}

	if need := HandSize - len(player.Hand); need > 0 {
		player.Hand, next.DrawPile = Draw(next.DrawPile, player.Hand, need)
	}
	if len(player.Hand) == 0 && len(next.DrawPile) == 0 {
		player.IsFinished = true
	}
	for i := range next.Piles {
		next.Piles[i] = ClearPreferences(next.Piles[i], playerID)
	}
	next.CardsPlayedThisTurn = 0
	next.advanceTurn()
	if IsGameOver(&next) {
		next.Status = StatusFinished
	}
	return next, nil
}

// advanceTurn moves CurrentPlayerIndex to the next seat with cards in hand.
// When no such seat exists the index stays put; the caller's terminal check
// decides what that means.
func (g *GameState) advanceTurn() {
	n := len(g.Players)
	if n == 0 {
		return
	}
	for step := 1; step <= n; step++ {
		idx := (g.CurrentPlayerIndex + step) % n
		if len(g.Players[idx].Hand) > 0 {
			g.CurrentPlayerIndex = idx
			return
		}
	}
}

// SetPreference records the player's advisory signal on a pile. Legal for
// any player at any time before the game finishes; never touches turn state.
func (g GameState) SetPreference(playerID, pileID string, level PreferenceLevel) (GameState, error) {
	if g.Status == StatusFinished {
		return GameState{}, ErrGameFinished
	}
	if !ValidLevel(level) {
		return GameState{}, ErrInvalidLevel
	}
	if g.PlayerByID(playerID) < 0 {
		return GameState{}, ErrUnknownPlayer
	}
	pi := g.PileByID(pileID)
	if pi < 0 {
		return GameState{}, ErrUnknownPile
	}
	next := g.Clone()
	next.Piles[pi] = SetPreference(next.Piles[pi], playerID, level)
	return next, nil
}

// Reset returns the game to WAITING: hands emptied, piles recreated, draw
// pile cleared (Start builds the next deck), and the shuffle seed advanced
// so the next deal is a fresh permutation. Players keep their seats and
// colors. Reset is the one command allowed on a FINISHED game.
func (g GameState) Reset() (GameState, error) {
	next := g.Clone()
	next.Status = StatusWaiting
	next.CurrentPlayerIndex = 0
	next.CardsPlayedThisTurn = 0
	next.DrawPile = nil
	next.Piles = NewPiles()
	for i := range next.Players {
		next.Players[i].Hand = []Card{}
		next.Players[i].IsFinished = false
	}
	nextRand(&next.Seed)
	return next, nil
}

// SetPresence updates a player's online flag and activity timestamp. It is
// best-effort, last-write-wins metadata and is allowed in every status,
// including FINISHED.
func (g GameState) SetPresence(playerID string, online bool, now int64) (GameState, error) {
	idx := g.PlayerByID(playerID)
	if idx < 0 {
		return GameState{}, ErrUnknownPlayer
	}
	next := g.Clone()
	next.Players[idx].IsOnline = online
	next.Players[idx].LastActive = now
	return next, nil
}
