package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"davinci-duel/internal/game"
	"davinci-duel/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

func roomsListHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := st.ListRooms(r.Context())
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if rooms == nil {
			rooms = []store.Room{}
		}
		writeJSON(w, map[string]any{"items": rooms})
	}
}

func roomsCreateHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeHTTPError(w, http.StatusBadRequest, "invalid_room_name")
			return
		}
		room, err := st.CreateRoom(r.Context(), req.Name, requestUserID(r))
		if errors.Is(err, store.ErrAlreadyInRoom) {
			writeHTTPError(w, http.StatusConflict, "already_in_room")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, room)
	}
}

func roomStatusHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDParam(w, r)
		if !ok {
			return
		}
		status, err := st.GetRoomStatus(r.Context(), roomID)
		if errors.Is(err, store.ErrNotFound) {
			writeHTTPError(w, http.StatusNotFound, "room_not_found")
			return
		}
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, status)
	}
}

func roomJoinHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDParam(w, r)
		if !ok {
			return
		}
		err := st.JoinRoom(r.Context(), roomID, requestUserID(r))
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeHTTPError(w, http.StatusNotFound, "room_not_found")
		case errors.Is(err, store.ErrRoomFull):
			writeHTTPError(w, http.StatusConflict, "room_full")
		case errors.Is(err, store.ErrAlreadyInRoom):
			writeHTTPError(w, http.StatusConflict, "already_in_room")
		case err != nil:
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
		default:
			writeJSON(w, map[string]any{"status": "ok"})
		}
	}
}

// roomLeaveHandler unseats the caller and drops any game state the room
// still holds: a two-player game cannot continue once a seat empties.
func roomLeaveHandler(st *store.Store, machine *game.Machine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID, ok := roomIDParam(w, r)
		if !ok {
			return
		}
		players, err := st.PlayersInRoom(r.Context(), roomID)
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		err = st.LeaveRoom(r.Context(), roomID, requestUserID(r))
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeHTTPError(w, http.StatusNotFound, "room_not_found")
			return
		case errors.Is(err, store.ErrNotInRoom):
			writeHTTPError(w, http.StatusConflict, "not_in_room")
			return
		case err != nil:
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if err := machine.Purge(r.Context(), roomID, players); err != nil {
			log.Error().Err(err).Int64("room_id", roomID).Msg("purge game state failed")
		}
		writeJSON(w, map[string]any{"status": "ok"})
	}
}

func matchesHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		matches, err := st.RecentMatches(r.Context(), limit)
		if err != nil {
			writeHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		if matches == nil {
			matches = []store.Match{}
		}
		writeJSON(w, map[string]any{"items": matches})
	}
}

func roomIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "room_id"), 10, 64)
	if err != nil || id <= 0 {
		writeHTTPError(w, http.StatusBadRequest, "invalid_room_id")
		return 0, false
	}
	return id, true
}
