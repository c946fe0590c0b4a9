package gamestate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"davinci-duel/internal/game"
)

// Store persists one serialized GameState blob per room plus the per-user
// ready flags, under the key scheme room:<id>:game and
// room:<id>:user:<uid>:ready.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

func gameKey(roomID int64) string {
	return fmt.Sprintf("room:%d:game", roomID)
}

func readyKey(roomID, userID int64) string {
	return fmt.Sprintf("room:%d:user:%d:ready", roomID, userID)
}

// Load returns the room's game state, or game.ErrNoGame when no game is
// running there.
func (s *Store) Load(ctx context.Context, roomID int64) (*game.GameState, error) {
	raw, err := s.kv.Get(ctx, gameKey(roomID))
	if errors.Is(err, ErrNotFound) {
		return nil, game.ErrNoGame
	}
	if err != nil {
		return nil, err
	}
	var st game.GameState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &st, nil
}

func (s *Store) Save(ctx context.Context, roomID int64, st *game.GameState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	return s.kv.Set(ctx, gameKey(roomID), string(raw), 0)
}

func (s *Store) Delete(ctx context.Context, roomID int64) error {
	return s.kv.Del(ctx, gameKey(roomID))
}

func (s *Store) SetReady(ctx context.Context, roomID, userID int64) error {
	return s.kv.Set(ctx, readyKey(roomID, userID), "true", 0)
}

func (s *Store) IsReady(ctx context.Context, roomID, userID int64) (bool, error) {
	val, err := s.kv.Get(ctx, readyKey(roomID, userID))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "true", nil
}

// ClearRoom removes the game blob and the ready flags of the given users.
func (s *Store) ClearRoom(ctx context.Context, roomID int64, userIDs []int64) error {
	keys := []string{gameKey(roomID)}
	for _, uid := range userIDs {
		keys = append(keys, readyKey(roomID, uid))
	}
	return s.kv.Del(ctx, keys...)
}
