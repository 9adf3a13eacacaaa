package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/kencorless/UpNDown/engine"
)

// PostgresStore persists game documents in a jsonb column with the version
// alongside, so compare-and-set is a guarded UPDATE. Commits are fanned out
// through pg_notify, letting multiple nodes share one database.
type PostgresStore struct {
	pool     *pgxpool.Pool
	notifier *notifier

	listenOnce   sync.Once
	listenCancel context.CancelFunc
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	s := &PostgresStore{pool: pool, notifier: newNotifier()}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id      TEXT PRIMARY KEY,
			doc     JSONB NOT NULL,
			version BIGINT NOT NULL
		)
	`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, gameID string) (engine.GameState, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, "SELECT doc FROM games WHERE id = $1", gameID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.GameState{}, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return engine.GameState{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var g engine.GameState
	if err := json.Unmarshal(doc, &g); err != nil {
		return engine.GameState{}, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, gameID, err)
	}
	return g, nil
}

func (s *PostgresStore) CompareAndSet(ctx context.Context, gameID string, expected int64, next engine.GameState) error {
	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", gameID, err)
	}

	if expected == 0 {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO games (id, doc, version) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
		`, gameID, doc, next.Version)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s already exists", ErrConflict, gameID)
		}
	} else {
		tag, err := s.pool.Exec(ctx, `
			UPDATE games SET doc = $1, version = $2 WHERE id = $3 AND version = $4
		`, doc, next.Version, gameID, expected)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			var v int64
			err := s.pool.QueryRow(ctx, "SELECT version FROM games WHERE id = $1", gameID).Scan(&v)
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, gameID)
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return fmt.Errorf("%w: have %d, expected %d", ErrConflict, v, expected)
		}
	}

	// Payload carries only the ID; listeners re-read the document. pg_notify
	// payloads are capped at 8000 bytes, too small for a full game doc.
	if _, err := s.pool.Exec(ctx, "SELECT pg_notify('upndown_games', $1)", gameID); err != nil {
		logrus.WithError(err).WithField("game_id", gameID).Warn("commit notify failed")
	}
	return nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, gameID string, fn ChangeFunc) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.listenOnce.Do(func() {
		lctx, cancel := context.WithCancel(context.Background())
		s.listenCancel = cancel
		go s.listenLoop(lctx)
	})
	return s.notifier.add(gameID, fn), nil
}

// listenLoop holds a dedicated connection on LISTEN and re-reads each
// notified game before fanning it out. The connection is re-acquired after
// any failure.
func (s *PostgresStore) listenLoop(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.listen(ctx); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("game listener dropped, reconnecting")
			time.Sleep(time.Second)
		}
	}
}

func (s *PostgresStore) listen(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, "LISTEN upndown_games"); err != nil {
		return err
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		gameID := n.Payload
		if s.notifier.count(gameID) == 0 {
			continue
		}
		g, err := s.Get(ctx, gameID)
		if err != nil {
			logrus.WithError(err).WithField("game_id", gameID).Warn("dropping game notification")
			continue
		}
		s.notifier.publish(gameID, g)
	}
}

func (s *PostgresStore) Close() error {
	if s.listenCancel != nil {
		s.listenCancel()
	}
	s.pool.Close()
	return nil
}
