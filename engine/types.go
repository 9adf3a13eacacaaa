// Package engine implements the Up'n'Down card game rules.
//
// The package is pure: every command is a function from one GameState to the
// next (or a typed rejection) and never performs I/O. Randomness is drawn
// from a seed carried inside the state, so replaying a transition from the
// same state produces the same result. That keeps optimistic retries in the
// sync layer simple re-derivations rather than re-executions of side effects.
package engine

const (
	// Card values span [MinCardValue, MaxCardValue], one card per value.
	MinCardValue = 2
	MaxCardValue = 99
	DeckSize     = MaxCardValue - MinCardValue + 1

	HandSize        = 6
	MinCardsPerTurn = 2

	NumPiles   = 4
	MinPlayers = 2
	MaxPlayers = 8

	// BackstepGap is the one exception to pile ordering: a card exactly this
	// far from the top card, in the wrong direction, is playable. The gap is
	// 10 for both pile kinds.
	BackstepGap = 10
)

// Status is the lifecycle phase of a game.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// PileKind is the ordering direction of a foundation pile.
type PileKind string

const (
	Ascending  PileKind = "ASCENDING"
	Descending PileKind = "DESCENDING"
)

// PreferenceLevel is a non-binding signal a player sets on a pile to
// coordinate team strategy. PrefNone is equivalent to no entry at all.
type PreferenceLevel string

const (
	PrefNone   PreferenceLevel = "NONE"
	PrefLow    PreferenceLevel = "LOW"
	PrefMedium PreferenceLevel = "MEDIUM"
	PrefHigh   PreferenceLevel = "HIGH"
)

// ValidLevel reports whether l is one of the four defined levels.
func ValidLevel(l PreferenceLevel) bool {
	switch l {
	case PrefNone, PrefLow, PrefMedium, PrefHigh:
		return true
	}
	return false
}

// PlayerColors are the distinct colors assigned to players in join order.
var PlayerColors = [MaxPlayers]string{
	"#FF6B6B", // coral red
	"#4ECDC4", // turquoise
	"#9B59B6", // purple
	"#F7D794", // mellow yellow
	"#45B7D1", // sky blue
	"#96C93D", // lime green
	"#FF8F40", // orange
	"#5D6D7E", // slate
}

// Card is a single card. Immutable once created; the ID is derived from the
// value so that rebuilding a deck yields identical documents.
type Card struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// Player is one seat at the table.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Hand        []Card `json:"hand"`
	IsInitiator bool   `json:"isInitiator"`
	IsOnline    bool   `json:"isOnline"`
	LastActive  int64  `json:"lastActive"`
	IsFinished  bool   `json:"isFinished"`
	Color       string `json:"color"`
}

// Pile is one of the four foundation piles. Cards is append-only within a
// turn; Preferences maps player IDs to their advisory signal for this pile.
type Pile struct {
	ID          string                     `json:"id"`
	Kind        PileKind                   `json:"kind"`
	Cards       []Card                     `json:"cards"`
	Preferences map[string]PreferenceLevel `json:"preferences,omitempty"`
}

// Top returns the last card of the pile, or false if the pile is empty.
func (p *Pile) Top() (Card, bool) {
	if len(p.Cards) == 0 {
		return Card{}, false
	}
	return p.Cards[len(p.Cards)-1], true
}

// GameState is the complete shared game document. It is the unit of
// replication: clients read it, derive the next state through a command, and
// write it back under the version guard.
type GameState struct {
	GameID              string   `json:"gameId"`
	Status              Status   `json:"status"`
	Players             []Player `json:"players"`
	CurrentPlayerIndex  int      `json:"currentPlayerIndex"`
	DrawPile            []Card   `json:"drawPile"`
	Piles               []Pile   `json:"piles"`
	CardsPlayedThisTurn int      `json:"cardsPlayedThisTurn"`
	InitiatorID         string   `json:"initiatorId"`
	CreatedAt           int64    `json:"createdAt"`

	// Version increases by one on every accepted write. It is owned by the
	// synchronization layer; commands never touch it.
	Version int64 `json:"version"`

	// Seed is the xorshift64 state used for shuffling. Advanced whenever a
	// command consumes randomness.
	Seed uint64 `json:"seed"`
}

// NewPiles returns the four empty foundation piles: two ascending, two
// descending.
func NewPiles() []Pile {
	return []Pile{
		{ID: "ascending-1", Kind: Ascending},
		{ID: "ascending-2", Kind: Ascending},
		{ID: "descending-1", Kind: Descending},
		{ID: "descending-2", Kind: Descending},
	}
}

// PlayerByID returns the index of the player with the given ID, or -1.
func (g *GameState) PlayerByID(playerID string) int {
	for i := range g.Players {
		if g.Players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// PileByID returns the index of the pile with the given ID, or -1.
func (g *GameState) PileByID(pileID string) int {
	for i := range g.Piles {
		if g.Piles[i].ID == pileID {
			return i
		}
	}
	return -1
}

// CurrentPlayer returns the player whose turn it is, or false when the game
// has no players.
func (g *GameState) CurrentPlayer() (Player, bool) {
	if len(g.Players) == 0 || g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return Player{}, false
	}
	return g.Players[g.CurrentPlayerIndex], true
}

// Clone returns a deep copy of the state. Commands clone before mutating so
// the caller's copy is never touched; stores clone to keep their canonical
// copy private.
func (g GameState) Clone() GameState {
	out := g
	out.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		cp := p
		cp.Hand = append([]Card(nil), p.Hand...)
		out.Players[i] = cp
	}
	out.DrawPile = append([]Card(nil), g.DrawPile...)
	out.Piles = make([]Pile, len(g.Piles))
	for i, p := range g.Piles {
		cp := p
		cp.Cards = append([]Card(nil), p.Cards...)
		if p.Preferences != nil {
			cp.Preferences = make(map[string]PreferenceLevel, len(p.Preferences))
			for k, v := range p.Preferences {
				cp.Preferences[k] = v
			}
		}
		out.Piles[i] = cp
	}
	return out
}
