package engine

import "errors"

// Kind classifies a rejection of the state machine. All engine errors are
// deterministic: the same state and command always produce the same
// rejection, so callers must never retry them.
type Kind uint8

const (
	// KindValidation marks malformed command input (empty name, bad level).
	KindValidation Kind = iota + 1
	// KindRule marks a legal command applied against the rules of play.
	KindRule
	// KindLifecycle marks a command that is invalid for the current status.
	KindLifecycle
	// KindNotFound marks a reference to an unknown player, pile, or card.
	KindNotFound
)

// Error is a deterministic rejection of the state machine.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func validationErr(reason string) *Error { return &Error{Kind: KindValidation, Reason: reason} }
func ruleErr(reason string) *Error       { return &Error{Kind: KindRule, Reason: reason} }
func lifecycleErr(reason string) *Error  { return &Error{Kind: KindLifecycle, Reason: reason} }
func notFoundErr(reason string) *Error   { return &Error{Kind: KindNotFound, Reason: reason} }

var (
	ErrEmptyName         = validationErr("name must not be empty")
	ErrNoCards           = validationErr("no cards supplied")
	ErrInvalidLevel      = validationErr("invalid preference level")
	ErrInsufficientCards = validationErr("not enough cards in deck")

	ErrNotYourTurn  = ruleErr("not your turn")
	ErrMustPlayTwo  = ruleErr("must play at least 2 cards")
	ErrTooManyCards = ruleErr("cannot play more cards than in hand")
	ErrInvalidCards = ruleErr("invalid cards selected")
	ErrIllegalPlay  = ruleErr("card cannot be played on that pile")

	ErrGameFull         = lifecycleErr("game is full")
	ErrAlreadyJoined    = lifecycleErr("player already in game")
	ErrAlreadyStarted   = lifecycleErr("game already started")
	ErrNotEnoughPlayers = lifecycleErr("not enough players to start")
	ErrNotInProgress    = lifecycleErr("game is not in progress")
	ErrGameFinished     = lifecycleErr("game is finished")

	ErrUnknownPlayer = notFoundErr("player not found")
	ErrUnknownPile   = notFoundErr("pile not found")
)

// KindOf returns the classification of err, or 0 for non-engine errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
