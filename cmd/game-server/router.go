package main

import (
	"net/http"

	"davinci-duel/internal/auth"
	"davinci-duel/internal/game"
	"davinci-duel/internal/store"
	"davinci-duel/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func newRouter(st *store.Store, tokens *auth.Service, machine *game.Machine, wsServer *ws.Server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler(st))

	// Game traffic: one persistent connection per player, token-checked at
	// upgrade time inside the handler.
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(apiLogMiddleware())

		r.Post("/users", signupHandler(st))
		r.Post("/auth/login", loginHandler(st, tokens))

		r.Group(func(r chi.Router) {
			r.Use(userAuthMiddleware(tokens))
			r.Post("/auth/logout", logoutHandler(st, tokens))
			r.Get("/users/me", meHandler(st))

			r.Get("/rooms", roomsListHandler(st))
			r.Post("/rooms", roomsCreateHandler(st))
			r.Get("/rooms/{room_id}", roomStatusHandler(st))
			r.Post("/rooms/{room_id}/join", roomJoinHandler(st))
			r.Post("/rooms/{room_id}/leave", roomLeaveHandler(st, machine))

			r.Get("/matches", matchesHandler(st))
		})
	})

	return r
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			writeHTTPError(w, http.StatusServiceUnavailable, "db_unavailable")
			return
		}
		writeJSON(w, map[string]any{"status": "ok"})
	}
}
