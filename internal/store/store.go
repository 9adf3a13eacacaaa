// Package store defines the shared game document contract and its backends.
//
// The core depends only on this narrow capability interface; any backing
// technology that can do a versioned compare-and-set and push change
// notifications satisfies it.
package store

import (
	"context"
	"errors"

	"github.com/kencorless/UpNDown/engine"
)

var (
	// ErrNotFound means no document exists under the given game ID.
	ErrNotFound = errors.New("game not found")

	// ErrConflict means the compare-and-set lost a race: the stored version
	// no longer matches the version the caller read.
	ErrConflict = errors.New("version conflict")

	// ErrUnavailable wraps transport-level failures. Unlike ErrConflict it
	// is not a statement about the document, so callers may retry with
	// backoff.
	ErrUnavailable = errors.New("store unavailable")
)

// ChangeFunc receives every committed state for a subscribed game.
type ChangeFunc func(engine.GameState)

// Store is the remote state store contract.
//
// CompareAndSet writes next only if the stored version still equals
// expected; expected == 0 creates the document (and conflicts if it already
// exists). Implementations must treat the write and its change notification
// as one commit: every successful CompareAndSet reaches every subscriber.
type Store interface {
	Get(ctx context.Context, gameID string) (engine.GameState, error)
	CompareAndSet(ctx context.Context, gameID string, expected int64, next engine.GameState) error
	Subscribe(ctx context.Context, gameID string, fn ChangeFunc) (cancel func(), err error)
	Close() error
}
