package main

import (
	"context"
	"net/http"
	"time"

	"davinci-duel/internal/auth"
	"davinci-duel/internal/config"
	"davinci-duel/internal/game"
	"davinci-duel/internal/gamestate"
	"davinci-duel/internal/logging"
	"davinci-duel/internal/store"
	"davinci-duel/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("load server config failed")
	}

	st, err := store.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("ensure schema failed")
	}

	kv := gamestate.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := kv.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("redis ping failed")
	}

	tokens := auth.New(cfg.JWTSecret, kv, time.Duration(cfg.TokenTTLHours)*time.Hour)
	machine := game.NewMachine(gamestate.NewStore(kv), gamestate.NewRoomLocks(), st)
	wsServer := ws.NewServer(tokens, st, machine)

	r := newRouter(st, tokens, machine, wsServer)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}
