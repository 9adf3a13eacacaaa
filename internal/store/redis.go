package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kencorless/UpNDown/engine"
)

// RedisStore keeps game documents in redis hashes and pushes commits over
// pub/sub, so any number of nodes can serve the same game. Compare-and-set
// runs under WATCH: the transaction aborts if another writer touches the key
// between the version read and the write.
type RedisStore struct {
	rdb      *redis.Client
	notifier *notifier

	mu   sync.Mutex
	subs map[string]*redis.PubSub // gameID -> server-side subscription
}

func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}
	return &RedisStore{
		rdb:      rdb,
		notifier: newNotifier(),
		subs:     make(map[string]*redis.PubSub),
	}, nil
}

func gameKey(gameID string) string     { return "upndown:game:" + gameID }
func gameChannel(gameID string) string { return "upndown:events:" + gameID }

func (s *RedisStore) Get(ctx context.Context, gameID string) (engine.GameState, error) {
	doc, err := s.rdb.HGet(ctx, gameKey(gameID), "doc").Result()
	if errors.Is(err, redis.Nil) {
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

func (s *RedisStore) CompareAndSet(ctx context.Context, gameID string, expected int64, next engine.GameState) error {
	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", gameID, err)
	}
	key := gameKey(gameID)

	txn := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, "version").Result()
		switch {
		case errors.Is(err, redis.Nil):
			if expected != 0 {
				return fmt.Errorf("%w: %s", ErrNotFound, gameID)
			}
		case err != nil:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		default:
			if expected == 0 {
				return fmt.Errorf("%w: %s already exists", ErrConflict, gameID)
			}
			v, err := strconv.ParseInt(cur, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad version %q: %v", ErrUnavailable, cur, err)
			}
			if v != expected {
				return fmt.Errorf("%w: have %d, expected %d", ErrConflict, v, expected)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "doc", string(doc), "version", next.Version)
			pipe.Publish(ctx, gameChannel(gameID), string(doc))
			return nil
		})
		return err
	}

	err = s.rdb.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer touched the key mid-transaction.
		return fmt.Errorf("%w: %s", ErrConflict, gameID)
	}
	if err != nil && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (s *RedisStore) Subscribe(ctx context.Context, gameID string, fn ChangeFunc) (func(), error) {
	s.mu.Lock()
	if _, running := s.subs[gameID]; !running {
		// First local subscriber for this game: open the server-side channel.
		ps := s.rdb.Subscribe(ctx, gameChannel(gameID))
		if _, err := ps.Receive(ctx); err != nil {
			ps.Close()
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: subscribe: %v", ErrUnavailable, err)
		}
		s.subs[gameID] = ps
		go s.readLoop(gameID, ps)
	}
	remove := s.notifier.add(gameID, fn)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			remove()
			s.mu.Lock()
			if s.notifier.count(gameID) == 0 {
				if ps, ok := s.subs[gameID]; ok {
					ps.Close()
					delete(s.subs, gameID)
				}
			}
			s.mu.Unlock()
		})
	}, nil
}

func (s *RedisStore) readLoop(gameID string, ps *redis.PubSub) {
	for msg := range ps.Channel() {
		var g engine.GameState
		if err := json.Unmarshal([]byte(msg.Payload), &g); err != nil {
			logrus.WithError(err).WithField("game_id", gameID).Warn("dropping undecodable game event")
			continue
		}
		s.notifier.publish(gameID, g)
	}
}

func (s *RedisStore) Close() error {
	s.mu.Lock()
	for id, ps := range s.subs {
		ps.Close()
		delete(s.subs, id)
	}
	s.mu.Unlock()
	return s.rdb.Close()
}
