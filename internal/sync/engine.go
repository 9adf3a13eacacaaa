// Package sync coordinates concurrent edits to shared game documents. Every
// command is a read, a pure transition, and a compare-and-set against the
// version that was read; a lost race is retried from a fresh read, bounded.
package sync

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kencorless/UpNDown/engine"
	"github.com/kencorless/UpNDown/internal/store"
)

// ErrContention means a command kept losing the compare-and-set race and ran
// out of attempts. The document was not changed by this caller; re-read and
// resubmit.
var ErrContention = errors.New("too much contention")

const (
	defaultMaxAttempts = 5
	defaultBackoff     = 50 * time.Millisecond
)

// Hooks observe the write path. Both funcs are optional and must be safe to
// call from multiple goroutines.
type Hooks struct {
	// OnCommit fires after every accepted write with the committed state.
	OnCommit func(g engine.GameState)
	// OnConflict fires once per lost compare-and-set, before the retry.
	OnConflict func(gameID string, attempt int, err error)
}

// Engine is the command surface clients talk to. It owns document versions
// and identifier generation; the rules themselves live in package engine.
type Engine struct {
	store       store.Store
	log         *logrus.Entry
	hooks       Hooks
	maxAttempts int
	backoff     time.Duration
	sleep       func(context.Context, time.Duration) error

	now     func() int64
	newID   func() string
	newSeed func() uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks installs commit/conflict observers.
func WithHooks(h Hooks) Option { return func(e *Engine) { e.hooks = h } }

// WithMaxAttempts bounds the retry loop. n < 1 is treated as 1.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.maxAttempts = n
	}
}

// WithBackoff sets the base delay applied after a transient store failure.
func WithBackoff(d time.Duration) Option { return func(e *Engine) { e.backoff = d } }

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Entry) Option { return func(e *Engine) { e.log = log } }

// WithClock, WithIDFunc and WithSeedFunc pin the nondeterministic inputs.
// Tests use them; production keeps the defaults.
func WithClock(now func() int64) Option      { return func(e *Engine) { e.now = now } }
func WithIDFunc(newID func() string) Option  { return func(e *Engine) { e.newID = newID } }
func WithSeedFunc(seed func() uint64) Option { return func(e *Engine) { e.newSeed = seed } }

// New builds an Engine on top of st.
func New(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		log:         logrus.WithField("component", "sync"),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		sleep:       sleepCtx,
		now:         func() int64 { return time.Now().Unix() },
		newID:       func() string { return uuid.NewString() },
		newSeed:     cryptoSeed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cryptoSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	s := binary.LittleEndian.Uint64(b[:])
	if s == 0 {
		s = 1
	}
	return s
}

// CreateGame allocates a new game with the caller as initiator and writes
// version 1. Returns the committed state; the caller's player ID is the
// initiator entry.
func (e *Engine) CreateGame(ctx context.Context, hostName string) (engine.GameState, error) {
	g, err := engine.NewGame(e.newID(), e.newID(), hostName, e.newSeed(), e.now())
	if err != nil {
		return engine.GameState{}, err
	}
	g.Version = 1
	if err := e.casWithRetry(ctx, g.GameID, 0, g); err != nil {
		return engine.GameState{}, err
	}
	e.log.WithFields(logrus.Fields{"game_id": g.GameID, "host": hostName}).Info("game created")
	return g, nil
}

// JoinGame seats a new player and returns the committed state plus the
// player's generated ID.
func (e *Engine) JoinGame(ctx context.Context, gameID, playerName string) (engine.GameState, string, error) {
	playerID := e.newID()
	g, err := e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.Join(playerID, playerName, e.now())
	})
	if err != nil {
		return engine.GameState{}, "", err
	}
	return g, playerID, nil
}

// StartGame shuffles, deals, and moves the game to IN_PROGRESS.
func (e *Engine) StartGame(ctx context.Context, gameID string) (engine.GameState, error) {
	return e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.Start()
	})
}

// PlayCards applies one atomic play of one or more cards onto a single pile.
func (e *Engine) PlayCards(ctx context.Context, gameID, playerID string, cardIDs []string, pileID string) (engine.GameState, error) {
	return e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.PlayCards(playerID, cardIDs, pileID)
	})
}

// EndTurn finishes the current player's turn, replenishes their hand, and
// advances play.
func (e *Engine) EndTurn(ctx context.Context, gameID, playerID string) (engine.GameState, error) {
	return e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.EndTurn(playerID)
	})
}

// SetPreference records an advisory pile preference for the player.
func (e *Engine) SetPreference(ctx context.Context, gameID, playerID, pileID string, level engine.PreferenceLevel) (engine.GameState, error) {
	return e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.SetPreference(playerID, pileID, level)
	})
}

// ResetGame returns a game to the lobby for a rematch.
func (e *Engine) ResetGame(ctx context.Context, gameID string) (engine.GameState, error) {
	return e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.Reset()
	})
}

// SetPresence flips a player's online flag. Presence is advisory metadata:
// contention here is swallowed rather than surfaced, since the next
// heartbeat will land anyway.
func (e *Engine) SetPresence(ctx context.Context, gameID, playerID string, online bool) (engine.GameState, error) {
	g, err := e.apply(ctx, gameID, func(cur engine.GameState) (engine.GameState, error) {
		return cur.SetPresence(playerID, online, e.now())
	})
	if errors.Is(err, ErrContention) {
		e.log.WithFields(logrus.Fields{"game_id": gameID, "player_id": playerID}).
			Debug("presence update lost to contention")
		return e.store.Get(ctx, gameID)
	}
	return g, err
}

// GetGame reads the current state.
func (e *Engine) GetGame(ctx context.Context, gameID string) (engine.GameState, error) {
	return e.store.Get(ctx, gameID)
}

// Subscribe registers fn for every commit to gameID.
func (e *Engine) Subscribe(ctx context.Context, gameID string, fn store.ChangeFunc) (func(), error) {
	return e.store.Subscribe(ctx, gameID, fn)
}

// apply runs the read/transition/compare-and-set loop. Transition rejections
// are final and returned as-is; only lost races and transient store failures
// are retried.
func (e *Engine) apply(ctx context.Context, gameID string, fn func(engine.GameState) (engine.GameState, error)) (engine.GameState, error) {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		cur, err := e.store.Get(ctx, gameID)
		if err != nil {
			if errors.Is(err, store.ErrUnavailable) && attempt < e.maxAttempts {
				lastErr = err
				if err := e.sleep(ctx, e.backoff*time.Duration(attempt)); err != nil {
					return engine.GameState{}, err
				}
				continue
			}
			return engine.GameState{}, err
		}

		next, err := fn(cur)
		if err != nil {
			return engine.GameState{}, err
		}
		next.Version = cur.Version + 1

		err = e.store.CompareAndSet(ctx, gameID, cur.Version, next)
		if err == nil {
			if e.hooks.OnCommit != nil {
				e.hooks.OnCommit(next)
			}
			return next, nil
		}
		lastErr = err
		switch {
		case errors.Is(err, store.ErrConflict):
			if e.hooks.OnConflict != nil {
				e.hooks.OnConflict(gameID, attempt, err)
			}
		case errors.Is(err, store.ErrUnavailable):
			if err := e.sleep(ctx, e.backoff*time.Duration(attempt)); err != nil {
				return engine.GameState{}, err
			}
		default:
			return engine.GameState{}, err
		}
	}
	return engine.GameState{}, fmt.Errorf("%w: %s after %d attempts: %v", ErrContention, gameID, e.maxAttempts, lastErr)
}

// casWithRetry is the create path: expected version 0, retried only on
// transient failures since an existence conflict cannot resolve itself.
func (e *Engine) casWithRetry(ctx context.Context, gameID string, expected int64, g engine.GameState) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err := e.store.CompareAndSet(ctx, gameID, expected, g)
		if err == nil {
			if e.hooks.OnCommit != nil {
				e.hooks.OnCommit(g)
			}
			return nil
		}
		if !errors.Is(err, store.ErrUnavailable) {
			return err
		}
		lastErr = err
		if err := e.sleep(ctx, e.backoff*time.Duration(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %v", ErrContention, gameID, e.maxAttempts, lastErr)
}
