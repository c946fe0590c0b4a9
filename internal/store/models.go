package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Room struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	MaxPlayers   int       `json:"max_players"`
	CurrentCount int       `json:"current_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type RoomStatus struct {
	Room  Room    `json:"room"`
	Users []int64 `json:"users"`
}

// Match records one finished game: who won in which room.
type Match struct {
	ID       string    `json:"id"`
	RoomID   int64     `json:"room_id"`
	WinnerID int64     `json:"winner_id"`
	LoserID  int64     `json:"loser_id"`
	EndedAt  time.Time `json:"ended_at"`
}
