package main

import (
	"errors"
	"net/http"
	"strings"

	"davinci-duel/internal/auth"
	"davinci-duel/internal/store"
)

func signupHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Nickname string `json:"nickname"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		req.Nickname = strings.TrimSpace(req.Nickname)
		if req.Email == "" || req.Nickname == "" || len(req.Password) < 4 {
			writeHTTPError(w, http.StatusBadRequest, "invalid_signup")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		u, err := st.CreateUser(r.Context(), req.Email, req.Nickname, hash)
		if errors.Is(err, store.ErrDuplicate) {
			writeHTTPError(w, http.StatusConflict, "email_or_nickname_taken")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, u)
	}
}

func loginHandler(st *store.Store, tokens *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := st.GetUserByEmail(r.Context(), strings.TrimSpace(strings.ToLower(req.Email)))
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if auth.CheckPassword(u.PasswordHash, req.Password) != nil {
			writeHTTPError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		token, err := tokens.Issue(r.Context(), u.ID, u.Email)
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"token": token, "user": u})
	}
}

func logoutHandler(st *store.Store, tokens *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.GetUserByID(r.Context(), requestUserID(r))
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if err := tokens.Revoke(r.Context(), u.Email); err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"status": "ok"})
	}
}

func meHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.GetUserByID(r.Context(), requestUserID(r))
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusNotFound, "not_found")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, u)
	}
}
