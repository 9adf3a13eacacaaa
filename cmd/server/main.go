package main

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/kencorless/UpNDown/internal/auth"
	"github.com/kencorless/UpNDown/internal/config"
	"github.com/kencorless/UpNDown/internal/server"
	"github.com/kencorless/UpNDown/internal/store"
	gamesync "github.com/kencorless/UpNDown/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	st, err := openStore(cfg)
	if err != nil {
		logrus.Fatalf("open store: %v", err)
	}
	defer st.Close()

	games := gamesync.New(st, gamesync.WithHooks(gamesync.Hooks{
		OnConflict: func(gameID string, attempt int, err error) {
			logrus.WithFields(logrus.Fields{
				"game_id": gameID,
				"attempt": attempt,
			}).Debug("write lost race, retrying")
		},
	}))
	tokens := auth.NewTokens(cfg.TokenSecret)
	srv := server.New(games, tokens)

	logrus.WithFields(logrus.Fields{
		"addr":  cfg.ListenAddr,
		"store": cfg.Store,
	}).Info("listening")
	if err := http.ListenAndServe(cfg.ListenAddr, srv); err != nil {
		logrus.Fatalf("server: %v", err)
	}
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case "sqlite":
		return store.NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	case "postgres":
		return store.NewPostgresStore(context.Background(), cfg.PostgresDSN)
	default:
		return store.NewMemoryStore(), nil
	}
}
