package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/kencorless/UpNDown/engine"
)

// MemoryStore keeps game documents in a process-local map. It is the
// default backend for tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	games    map[string]engine.GameState
	notifier *notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:    make(map[string]engine.GameState),
		notifier: newNotifier(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, gameID string) (engine.GameState, error) {
	if err := ctx.Err(); err != nil {
		return engine.GameState{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.mu.RLock()
	g, ok := s.games[gameID]
	s.mu.RUnlock()
	if !ok {
		return engine.GameState{}, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	return g.Clone(), nil
}

func (s *MemoryStore) CompareAndSet(ctx context.Context, gameID string, expected int64, next engine.GameState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.mu.Lock()
	cur, ok := s.games[gameID]
	if expected == 0 {
		if ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s already exists", ErrConflict, gameID)
		}
	} else {
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrNotFound, gameID)
		}
		if cur.Version != expected {
			s.mu.Unlock()
			return fmt.Errorf("%w: have %d, expected %d", ErrConflict, cur.Version, expected)
		}
	}
	s.games[gameID] = next.Clone()
	s.mu.Unlock()

	s.notifier.publish(gameID, next)
	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, gameID string, fn ChangeFunc) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.notifier.add(gameID, fn), nil
}

func (s *MemoryStore) Close() error { return nil }
