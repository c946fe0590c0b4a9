package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"davinci-duel/internal/game"
	"davinci-duel/internal/gamestate"
	"davinci-duel/internal/store"
)

type fakeAuth struct{ tokens map[string]int64 }

func (a *fakeAuth) Verify(_ context.Context, bearer string) (int64, error) {
	id, ok := a.tokens[bearer]
	if !ok {
		return 0, errors.New("invalid_token")
	}
	return id, nil
}

type fakeLobby struct {
	mu      sync.Mutex
	members map[int64][]int64
	names   map[int64]string
	matches int
}

func newFakeLobby(names map[int64]string) *fakeLobby {
	return &fakeLobby{members: map[int64][]int64{}, names: names}
}

func (l *fakeLobby) IsUserInRoom(_ context.Context, userID, roomID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range l.members[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (l *fakeLobby) JoinRoom(_ context.Context, roomID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.members[roomID] = append(l.members[roomID], userID)
	return nil
}

func (l *fakeLobby) LeaveRoom(_ context.Context, roomID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.members[roomID][:0]
	for _, id := range l.members[roomID] {
		if id != userID {
			out = append(out, id)
		}
	}
	l.members[roomID] = out
	return nil
}

func (l *fakeLobby) RoomIDByUser(_ context.Context, userID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for roomID, ids := range l.members {
		for _, id := range ids {
			if id == userID {
				return roomID, nil
			}
		}
	}
	return 0, store.ErrNotFound
}

func (l *fakeLobby) Nickname(_ context.Context, userID int64) (string, error) {
	return l.names[userID], nil
}

func (l *fakeLobby) RecordMatch(_ context.Context, _, _, _ int64) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.matches++
	return "match-1", nil
}

func (l *fakeLobby) PlayersInRoom(_ context.Context, roomID int64) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int64{}, l.members[roomID]...), nil
}

func newTestWSServer(t *testing.T) (*httptest.Server, *fakeLobby) {
	t.Helper()
	lobby := newFakeLobby(map[int64]string{10: "alice", 20: "bob"})
	machine := game.NewMachine(gamestate.NewStore(gamestate.NewMemory()), gamestate.NewRoomLocks(), lobby)
	srv := NewServer(&fakeAuth{tokens: map[string]int64{"tok-a": 10, "tok-b": 20}}, lobby, machine)
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return ts, lobby
}

func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// waitFor reads events until one of the wanted type arrives, skipping
// unrelated chatter like join notices.
func waitFor(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var m map[string]any
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if m["type"] == typ {
			return m
		}
	}
}

func waitForChat(t *testing.T, conn *websocket.Conn, substr string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var m map[string]any
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for chat %q: %v", substr, err)
		}
		if m["type"] == "message" {
			if msg, _ := m["message"].(string); strings.Contains(msg, substr) {
				return
			}
		}
	}
}

func TestRejectsBadToken(t *testing.T) {
	ts, _ := newTestWSServer(t)
	conn := dialWS(t, ts, "bogus")

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m map[string]any
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("expected error event before close: %v", err)
	}
	if m["type"] != "error" {
		t.Fatalf("expected error event, got %v", m)
	}
}

func TestReadyFlowStartsGame(t *testing.T) {
	ts, _ := newTestWSServer(t)
	connA := dialWS(t, ts, "tok-a")
	connB := dialWS(t, ts, "tok-b")

	send(t, connA, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connA, "alice joined")
	send(t, connB, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connA, "bob joined")

	send(t, connA, RoomMessage{Type: "setReady", RoomID: 1})
	ready := waitFor(t, connA, "ready")
	if int64(ready["userId"].(float64)) != 10 {
		t.Fatalf("wrong ready user: %v", ready)
	}

	send(t, connB, RoomMessage{Type: "setReady", RoomID: 1})
	start := waitFor(t, connA, "gameStart")
	starter := int64(start["starterUserId"].(float64))
	if starter != 10 && starter != 20 {
		t.Fatalf("starter %d not seated", starter)
	}
	waitFor(t, connB, "gameStart")
	waitFor(t, connA, "nowTurn")
}

func TestInitialCardsDealPrivateHands(t *testing.T) {
	ts, _ := newTestWSServer(t)
	connA := dialWS(t, ts, "tok-a")
	connB := dialWS(t, ts, "tok-b")

	send(t, connA, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connA, "alice joined")
	send(t, connB, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connB, "bob joined")
	send(t, connA, RoomMessage{Type: "setReady", RoomID: 1})
	send(t, connB, RoomMessage{Type: "setReady", RoomID: 1})
	waitFor(t, connA, "gameStart")
	waitFor(t, connB, "gameStart")

	send(t, connA, InitialCardsMessage{Type: "initialCards", RoomID: 1, BlackCount: 2, WhiteCount: 2})
	send(t, connB, InitialCardsMessage{Type: "initialCards", RoomID: 1, BlackCount: 1, WhiteCount: 3})

	handA := waitFor(t, connA, "handDeck")
	handB := waitFor(t, connB, "handDeck")
	if len(handA["hand"].([]any)) != 4 || len(handB["hand"].([]any)) != 4 {
		t.Fatalf("expected four-card hands, got %v / %v", handA["hand"], handB["hand"])
	}
}

func TestReconnectRejoinResyncsGame(t *testing.T) {
	ts, _ := newTestWSServer(t)
	connA := dialWS(t, ts, "tok-a")
	connB := dialWS(t, ts, "tok-b")

	send(t, connA, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connA, "alice joined")
	send(t, connB, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connB, "bob joined")
	send(t, connA, RoomMessage{Type: "setReady", RoomID: 1})
	send(t, connB, RoomMessage{Type: "setReady", RoomID: 1})
	waitFor(t, connA, "gameStart")
	send(t, connA, InitialCardsMessage{Type: "initialCards", RoomID: 1, BlackCount: 2, WhiteCount: 2})
	send(t, connB, InitialCardsMessage{Type: "initialCards", RoomID: 1, BlackCount: 2, WhiteCount: 2})
	waitFor(t, connA, "handDeck")

	// drop the connection mid-game and come back on a fresh one
	_ = connA.Close()
	waitForChat(t, connB, "alice disconnected")

	connA2 := dialWS(t, ts, "tok-a")
	send(t, connA2, RoomMessage{Type: "joinRoom", RoomID: 1})
	snap := waitFor(t, connA2, "gameSync")
	if len(snap["hand"].([]any)) != 4 {
		t.Fatalf("resync should restore the full hand: %v", snap["hand"])
	}
	if snap["phase"] == string(game.PhaseChoose) {
		t.Fatalf("resync reported a fresh game: %v", snap["phase"])
	}
}

func TestChatRequiresMembership(t *testing.T) {
	ts, _ := newTestWSServer(t)
	connA := dialWS(t, ts, "tok-a")

	send(t, connA, ChatMessage{Type: "message", RoomID: 1, Message: "hello"})
	errEvent := waitFor(t, connA, "error")
	if msg, _ := errEvent["message"].(string); !strings.Contains(msg, "not in this room") {
		t.Fatalf("unexpected error message: %v", errEvent)
	}
}

func TestBadSplitReportsError(t *testing.T) {
	ts, _ := newTestWSServer(t)
	connA := dialWS(t, ts, "tok-a")
	connB := dialWS(t, ts, "tok-b")

	send(t, connA, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connA, "alice joined")
	send(t, connB, RoomMessage{Type: "joinRoom", RoomID: 1})
	waitForChat(t, connB, "bob joined")
	send(t, connA, RoomMessage{Type: "setReady", RoomID: 1})
	send(t, connB, RoomMessage{Type: "setReady", RoomID: 1})
	waitFor(t, connA, "gameStart")

	send(t, connA, InitialCardsMessage{Type: "initialCards", RoomID: 1, BlackCount: 3, WhiteCount: 2})
	errEvent := waitFor(t, connA, "error")
	if msg, _ := errEvent["message"].(string); !strings.Contains(msg, "add up to four") {
		t.Fatalf("unexpected error message: %v", errEvent)
	}
}
