package store

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound      = errors.New("not_found")
	ErrRoomFull      = errors.New("room_full")
	ErrAlreadyInRoom = errors.New("already_in_room")
	ErrNotInRoom     = errors.New("not_in_room")
	ErrDuplicate     = errors.New("duplicate")
)

// Store wraps DB access for users, lobby rooms and match history.
type Store struct {
	DB *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

// EnsureSchema creates the lobby tables when missing, so a fresh database
// works without a migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    nickname TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS rooms (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    max_players INT NOT NULL DEFAULT 2,
    current_count INT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS room_users (
    room_id BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL UNIQUE,
    joined_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (room_id, user_id)
);
CREATE TABLE IF NOT EXISTS matches (
    id TEXT PRIMARY KEY,
    room_id BIGINT NOT NULL,
    winner_id BIGINT NOT NULL,
    loser_id BIGINT NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
	return err
}

func (s *Store) CreateUser(ctx context.Context, email, nickname, passwordHash string) (*User, error) {
	row := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, nickname, password_hash) VALUES ($1,$2,$3)
		 ON CONFLICT DO NOTHING
		 RETURNING id, email, nickname, password_hash, created_at`,
		email, nickname, passwordHash)
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.DB.QueryRowContext(ctx,
		`SELECT id, email, nickname, password_hash, created_at FROM users WHERE email = $1`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.DB.QueryRowContext(ctx,
		`SELECT id, email, nickname, password_hash, created_at FROM users WHERE id = $1`, id))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Nickname, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Nickname resolves a display name; unknown users come back as empty.
func (s *Store) Nickname(ctx context.Context, userID int64) (string, error) {
	u, err := s.GetUserByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.Nickname, nil
}

// CreateRoom opens a lobby room and seats its creator.
func (s *Store) CreateRoom(ctx context.Context, name string, userID int64) (*Room, error) {
	if _, err := s.RoomIDByUser(ctx, userID); err == nil {
		return nil, ErrAlreadyInRoom
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var r Room
	row := tx.QueryRowContext(ctx,
		`INSERT INTO rooms (name, max_players, current_count) VALUES ($1, 2, 1)
		 RETURNING id, name, max_players, current_count, created_at`, name)
	if err := row.Scan(&r.ID, &r.Name, &r.MaxPlayers, &r.CurrentCount, &r.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_users (room_id, user_id) VALUES ($1,$2)`, r.ID, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &r, nil
}

// JoinRoom seats a user, enforcing the two-player capacity under a row lock.
func (s *Store) JoinRoom(ctx context.Context, roomID, userID int64) error {
	if _, err := s.RoomIDByUser(ctx, userID); err == nil {
		return ErrAlreadyInRoom
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count, maxPlayers int
	row := tx.QueryRowContext(ctx,
		`SELECT current_count, max_players FROM rooms WHERE id = $1 FOR UPDATE`, roomID)
	if err := row.Scan(&count, &maxPlayers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if count >= maxPlayers {
		return ErrRoomFull
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_users (room_id, user_id) VALUES ($1,$2)`, roomID, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET current_count = current_count + 1 WHERE id = $1`, roomID); err != nil {
		return err
	}
	return tx.Commit()
}

// LeaveRoom unseats a user; an emptied room is deleted.
func (s *Store) LeaveRoom(ctx context.Context, roomID, userID int64) error {
	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	row := tx.QueryRowContext(ctx,
		`SELECT current_count FROM rooms WHERE id = $1 FOR UPDATE`, roomID)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM room_users WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotInRoom
	}
	if count <= 1 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, roomID); err != nil {
			return err
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE rooms SET current_count = current_count - 1 WHERE id = $1`, roomID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) IsUserInRoom(ctx context.Context, userID, roomID int64) (bool, error) {
	var one int
	row := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM room_users WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) PlayersInRoom(ctx context.Context, roomID int64) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id FROM room_users WHERE room_id = $1 ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// RoomIDByUser finds the room a user currently occupies, if any.
func (s *Store) RoomIDByUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	row := s.DB.QueryRowContext(ctx,
		`SELECT room_id FROM room_users WHERE user_id = $1`, userID)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, max_players, current_count, created_at FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.MaxPlayers, &r.CurrentCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetRoomStatus(ctx context.Context, roomID int64) (*RoomStatus, error) {
	var r Room
	row := s.DB.QueryRowContext(ctx,
		`SELECT id, name, max_players, current_count, created_at FROM rooms WHERE id = $1`, roomID)
	if err := row.Scan(&r.ID, &r.Name, &r.MaxPlayers, &r.CurrentCount, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	users, err := s.PlayersInRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomStatus{Room: r, Users: users}, nil
}

// RecordMatch persists a finished game's outcome.
func (s *Store) RecordMatch(ctx context.Context, roomID, winnerID, loserID int64) (string, error) {
	id := NewID()
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO matches (id, room_id, winner_id, loser_id) VALUES ($1,$2,$3,$4)`,
		id, roomID, winnerID, loserID)
	return id, err
}

func (s *Store) RecentMatches(ctx context.Context, limit int) ([]Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, room_id, winner_id, loser_id, ended_at FROM matches ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.ID, &m.RoomID, &m.WinnerID, &m.LoserID, &m.EndedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
