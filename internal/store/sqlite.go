package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kencorless/UpNDown/engine"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists game documents in a single sqlite file. Documents are
// stored as JSON with the version in its own column so compare-and-set is a
// guarded UPDATE. Change notifications are process-local, so this backend is
// for single-node deployments that want durability across restarts.
type SQLiteStore struct {
	db       *sql.DB
	notifier *notifier
}

// NewSQLiteStore opens (or creates) the database at path and runs migrations.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL: %w", err)
	}
	s := &SQLiteStore{db: db, notifier: newNotifier()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id      TEXT PRIMARY KEY,
			doc     TEXT NOT NULL,
			version INTEGER NOT NULL
		);
	`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, gameID string) (engine.GameState, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM games WHERE id = ?", gameID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.GameState{}, fmt.Errorf("%w: %s", ErrNotFound, gameID)
	}
	if err != nil {
		return engine.GameState{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var g engine.GameState
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return engine.GameState{}, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, gameID, err)
	}
	return g, nil
}

func (s *SQLiteStore) CompareAndSet(ctx context.Context, gameID string, expected int64, next engine.GameState) error {
	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", gameID, err)
	}

	if expected == 0 {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO games (id, doc, version) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING",
			gameID, string(doc), next.Version,
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s already exists", ErrConflict, gameID)
		}
	} else {
		res, err := s.db.ExecContext(ctx,
			"UPDATE games SET doc = ?, version = ? WHERE id = ? AND version = ?",
			string(doc), next.Version, gameID, expected,
		)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 0 {
			// Distinguish a lost race from a missing row.
			var v int64
			err := s.db.QueryRowContext(ctx, "SELECT version FROM games WHERE id = ?", gameID).Scan(&v)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", ErrNotFound, gameID)
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
			return fmt.Errorf("%w: have %d, expected %d", ErrConflict, v, expected)
		}
	}

	s.notifier.publish(gameID, next)
	return nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, gameID string, fn ChangeFunc) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.notifier.add(gameID, fn), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
