package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"davinci-duel/internal/game"
	"davinci-duel/internal/store"
)

// Authenticator turns a bearer credential into a numeric player identity.
type Authenticator interface {
	Verify(ctx context.Context, bearer string) (int64, error)
}

// Lobby is the room-membership service the dispatcher consumes: who sits
// where is authoritative in relational storage, not here.
type Lobby interface {
	IsUserInRoom(ctx context.Context, userID, roomID int64) (bool, error)
	JoinRoom(ctx context.Context, roomID, userID int64) error
	LeaveRoom(ctx context.Context, roomID, userID int64) error
	RoomIDByUser(ctx context.Context, userID int64) (int64, error)
	Nickname(ctx context.Context, userID int64) (string, error)
	RecordMatch(ctx context.Context, roomID, winnerID, loserID int64) (string, error)
}

// Server is the transport-facing shell: it authenticates connections,
// routes named events into the state machine and fans results out to the
// acting player, a single opponent or the whole room.
type Server struct {
	upgrader websocket.Upgrader
	auth     Authenticator
	lobby    Lobby
	machine  *game.Machine
	sessions *SessionDirectory

	mu    sync.Mutex
	rooms map[int64]map[*Client]struct{}
}

func NewServer(auth Authenticator, lobby Lobby, machine *game.Machine) *Server {
	return &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		auth:     auth,
		lobby:    lobby,
		machine:  machine,
		sessions: NewSessionDirectory(),
		rooms:    map[int64]map[*Client]struct{}{},
	}
}

func (s *Server) Sessions() *SessionDirectory {
	return s.sessions
}

// HandleWS upgrades the connection and verifies the bearer credential
// before any event is accepted; a missing or invalid token terminates the
// connection immediately.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	bearer := r.URL.Query().Get("token")
	if bearer == "" {
		bearer = r.Header.Get("Authorization")
	}
	userID, err := s.auth.Verify(r.Context(), bearer)
	if err != nil {
		log.Warn().Err(err).Msg("ws auth rejected")
		_ = conn.WriteMessage(websocket.TextMessage, mustJSON(ErrorEvent{Type: "error", Message: "Authentication failed."}))
		_ = conn.Close()
		return
	}
	nickname, err := s.lobby.Nickname(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("nickname lookup failed")
	}

	client := newClient(conn, userID, nickname)
	s.sessions.Register(userID, client)
	log.Info().Int64("user_id", userID).Msg("ws connected")

	go client.writeLoop()
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	defer s.disconnect(c)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			c.emit(ErrorEvent{Type: "error", Message: "Malformed payload."})
			continue
		}
		s.dispatch(c, env.Type, msg)
	}
}

func (s *Server) dispatch(c *Client, event string, msg []byte) {
	ctx := context.Background()
	switch event {
	case "joinRoom":
		var m RoomMessage
		if decode(c, msg, &m) {
			s.handleJoinRoom(ctx, c, m.RoomID)
		}
	case "leaveRoom":
		var m RoomMessage
		if decode(c, msg, &m) {
			s.handleLeaveRoom(ctx, c, m.RoomID)
		}
	case "message":
		var m ChatMessage
		if decode(c, msg, &m) {
			s.handleChat(ctx, c, m)
		}
	case "setReady":
		var m RoomMessage
		if decode(c, msg, &m) {
			s.handleSetReady(ctx, c, m.RoomID)
		}
	case "initialCards":
		var m InitialCardsMessage
		if decode(c, msg, &m) {
			s.handleInitialCards(ctx, c, m)
		}
	case "arrangeDeck":
		var m ArrangeMessage
		if decode(c, msg, &m) {
			s.handleArrangeDeck(ctx, c, m)
		}
	case "drawCard":
		var m DrawMessage
		if decode(c, msg, &m) {
			s.handleDrawCard(ctx, c, m)
		}
	case "arrangeNewCard":
		var m ArrangeMessage
		if decode(c, msg, &m) {
			s.handleArrangeNewCard(ctx, c, m)
		}
	case "guessCard":
		var m GuessMessage
		if decode(c, msg, &m) {
			s.handleGuessCard(ctx, c, m)
		}
	case "endTurn":
		var m RoomMessage
		if decode(c, msg, &m) {
			s.handleEndTurn(ctx, c, m.RoomID)
		}
	default:
		c.emit(ErrorEvent{Type: "error", Message: "Unknown event: " + event})
	}
}

func decode(c *Client, msg []byte, out any) bool {
	if err := json.Unmarshal(msg, out); err != nil {
		c.emit(ErrorEvent{Type: "error", Message: "Malformed payload."})
		return false
	}
	return true
}

// fail reports a rejected action privately to the offending connection.
func (s *Server) fail(c *Client, err error) {
	c.emit(ErrorEvent{Type: "error", Message: errorMessage(err)})
}

func (s *Server) handleJoinRoom(ctx context.Context, c *Client, roomID int64) {
	inRoom, err := s.lobby.IsUserInRoom(ctx, c.userID, roomID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !inRoom {
		if err := s.lobby.JoinRoom(ctx, roomID, c.userID); err != nil {
			s.fail(c, err)
			return
		}
	}
	s.addToRoom(roomID, c)
	s.broadcast(roomID, ChatEvent{Type: "message", Sender: "System",
		Message: c.nickname + " joined the room."})

	// a game may already be running here; rebuild this player's view
	snap, err := s.machine.Resync(ctx, roomID, c.userID)
	if err != nil {
		if !errors.Is(err, game.ErrNoGame) && !errors.Is(err, game.ErrNotInGame) {
			log.Error().Err(err).Int64("room_id", roomID).Msg("resync failed")
		}
		return
	}
	c.emit(GameSyncEvent{Type: "gameSync", Phase: snap.Phase, Hand: snap.Hand,
		NeedArrange: snap.NeedArrange, PendingPlace: snap.PendingPlace,
		Drawn: snap.Drawn, Choices: snap.Choices, Opponent: snap.Opponent,
		TurnUserID: snap.Turn, BlackLen: snap.BlackLen, WhiteLen: snap.WhiteLen})
}

func (s *Server) handleLeaveRoom(ctx context.Context, c *Client, roomID int64) {
	if err := s.lobby.LeaveRoom(ctx, roomID, c.userID); err != nil {
		s.fail(c, err)
		return
	}
	s.removeFromRoom(roomID, c)
	s.broadcast(roomID, ChatEvent{Type: "message", Sender: "System",
		Message: c.nickname + " left the room."})
}

func (s *Server) handleChat(ctx context.Context, c *Client, m ChatMessage) {
	inRoom, err := s.lobby.IsUserInRoom(ctx, c.userID, m.RoomID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !inRoom {
		c.emit(ErrorEvent{Type: "error", Message: "You are not in this room."})
		return
	}
	s.broadcast(m.RoomID, ChatEvent{Type: "message", SenderID: c.userID,
		Sender: c.nickname, Message: m.Message})
}

func (s *Server) handleSetReady(ctx context.Context, c *Client, roomID int64) {
	res, err := s.machine.SetReady(ctx, roomID, c.userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.broadcast(roomID, ReadyEvent{Type: "ready", UserID: c.userID, Ready: true})
	if !res.Started {
		return
	}
	name, _ := s.lobby.Nickname(ctx, res.FirstTurn)
	s.broadcast(roomID, GameStartEvent{Type: "gameStart", StarterUserID: res.FirstTurn, StarterName: name})
	s.broadcast(roomID, NowTurnEvent{Type: "nowTurn", TurnUserID: res.FirstTurn, TurnName: name})
}

func (s *Server) handleInitialCards(ctx context.Context, c *Client, m InitialCardsMessage) {
	res, err := s.machine.ChooseInitialCards(ctx, m.RoomID, c.userID, m.BlackCount, m.WhiteCount)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !res.Dealt {
		return
	}
	for pid, hand := range res.Hands {
		if target, ok := s.sessions.Lookup(pid); ok {
			target.emit(HandDeckEvent{Type: "handDeck", Hand: hand, NeedArrange: res.NeedArrange[pid]})
		}
	}
	s.pushReveal(ctx, m.RoomID, res.Reveal)
}

func (s *Server) handleArrangeDeck(ctx context.Context, c *Client, m ArrangeMessage) {
	res, err := s.machine.ArrangeHand(ctx, m.RoomID, c.userID, normalizeOrder(m.NewOrder))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.emit(HandDeckEvent{Type: "handDeck", Hand: res.Hand, NeedArrange: false})
	s.pushReveal(ctx, m.RoomID, res.Reveal)
}

// pushReveal delivers the one-shot color exchange: each player privately
// receives the opponent's color array, then the turn is announced.
func (s *Server) pushReveal(ctx context.Context, roomID int64, info *game.RevealInfo) {
	if info == nil {
		return
	}
	for recipient, colors := range info.Colors {
		if target, ok := s.sessions.Lookup(recipient); ok {
			target.emit(OpponentColorsEvent{Type: "opponentColors", Colors: colors, TurnUserID: info.Turn})
		}
	}
	name, _ := s.lobby.Nickname(ctx, info.Turn)
	s.broadcast(roomID, NowTurnEvent{Type: "nowTurn", TurnUserID: info.Turn, TurnName: name})
}

func (s *Server) handleDrawCard(ctx context.Context, c *Client, m DrawMessage) {
	res, err := s.machine.Draw(ctx, m.RoomID, c.userID, game.Color(m.Color))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.emit(DrawCardEvent{Type: "drawCard", Card: res.Card, Placed: res.Placed,
		Index: res.Index, Hand: res.Hand, DeckLen: res.DeckLen})
	if res.Placed {
		s.broadcastExcept(m.RoomID, c, OpponentCardEvent{Type: "opponentCard",
			UserID: c.userID, Color: res.Card.Color, Index: res.Index,
			Colors: game.ColorArray(res.Hand)})
		return
	}
	c.emit(ArrangeCardEvent{Type: "arrangeCard", Card: res.Card, Choices: res.Choices, Hand: res.Hand})
}

func (s *Server) handleArrangeNewCard(ctx context.Context, c *Client, m ArrangeMessage) {
	res, err := s.machine.PlaceDrawn(ctx, m.RoomID, c.userID, normalizeOrder(m.NewOrder))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.emit(DrawCardEvent{Type: "drawCard", Card: res.Card, Placed: true,
		Index: res.Index, Hand: res.Hand})
	s.broadcastExcept(m.RoomID, c, OpponentCardEvent{Type: "opponentCard",
		UserID: c.userID, Color: res.Card.Color, Index: res.Index,
		Colors: game.ColorArray(res.Hand)})
}

func (s *Server) handleGuessCard(ctx context.Context, c *Client, m GuessMessage) {
	joker := m.CardNumber == -1
	res, err := s.machine.Guess(ctx, m.RoomID, c.userID, m.CardIndex, m.CardNumber, joker)
	if err != nil {
		s.fail(c, err)
		return
	}
	if res.Correct {
		s.broadcast(m.RoomID, CorrectGuessEvent{Type: "correctGuess", UserID: c.userID,
			CardIndex: res.Index, Card: res.Card})
	} else {
		s.broadcast(m.RoomID, WrongGuessEvent{Type: "wrongGuess", UserID: c.userID,
			CardIndex: res.Index, CardNumber: m.CardNumber})
		if res.Penalty != nil {
			s.broadcast(m.RoomID, CardFlippedEvent{Type: "cardFlipped", UserID: c.userID,
				Index: res.Penalty.Index, Card: res.Penalty.Card})
		}
		if !res.Finished {
			name, _ := s.lobby.Nickname(ctx, res.NextTurn)
			s.broadcast(m.RoomID, NowTurnEvent{Type: "nowTurn", TurnUserID: res.NextTurn, TurnName: name})
		}
	}
	if res.Finished {
		s.finishGame(ctx, m.RoomID, res)
	}
}

// finishGame records the outcome, tells each player privately whether they
// won, and forces both connections out of the room's broadcast group. The
// machine has already purged the persisted state and ready flags.
func (s *Server) finishGame(ctx context.Context, roomID int64, res *game.GuessResult) {
	matchID, err := s.lobby.RecordMatch(ctx, roomID, res.Winner, res.Loser)
	if err != nil {
		log.Error().Err(err).Int64("room_id", roomID).Msg("record match failed")
	}
	for _, pid := range res.Players {
		result := "lose"
		if pid == res.Winner {
			result = "win"
		}
		if target, ok := s.sessions.Lookup(pid); ok {
			target.emit(GameOverEvent{Type: "gameOver", Result: result,
				WinnerID: res.Winner, MatchID: matchID})
			s.removeFromRoom(roomID, target)
		}
	}
	log.Info().Int64("room_id", roomID).Int64("winner", res.Winner).Str("match_id", matchID).Msg("game finished")
}

func (s *Server) handleEndTurn(ctx context.Context, c *Client, roomID int64) {
	res, err := s.machine.EndTurn(ctx, roomID, c.userID)
	if err != nil {
		s.fail(c, err)
		return
	}
	name, _ := s.lobby.Nickname(ctx, res.Next)
	s.broadcast(roomID, NowTurnEvent{Type: "nowTurn", TurnUserID: res.Next, TurnName: name})
}

// disconnect tears down transport-side presence only: the session entry
// and broadcast membership go, the lobby seat and any running game state
// stay, so a reconnecting player resumes where they left off.
func (s *Server) disconnect(c *Client) {
	s.sessions.Unregister(c.userID, c)
	s.removeFromAllRooms(c)
	safeClose(c.send)
	_ = c.conn.Close()
	log.Info().Int64("user_id", c.userID).Msg("ws disconnected")

	roomID, err := s.lobby.RoomIDByUser(context.Background(), c.userID)
	if err == nil {
		s.broadcast(roomID, ChatEvent{Type: "message", Sender: "System",
			Message: c.nickname + " disconnected."})
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Int64("user_id", c.userID).Msg("room lookup on disconnect")
	}
}

func (s *Server) addToRoom(roomID int64, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	group, ok := s.rooms[roomID]
	if !ok {
		group = map[*Client]struct{}{}
		s.rooms[roomID] = group
	}
	group[c] = struct{}{}
}

func (s *Server) removeFromRoom(roomID int64, c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group, ok := s.rooms[roomID]; ok {
		delete(group, c)
		if len(group) == 0 {
			delete(s.rooms, roomID)
		}
	}
}

func (s *Server) removeFromAllRooms(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, group := range s.rooms {
		delete(group, c)
		if len(group) == 0 {
			delete(s.rooms, roomID)
		}
	}
}

func (s *Server) broadcast(roomID int64, event any) {
	s.broadcastExcept(roomID, nil, event)
}

func (s *Server) broadcastExcept(roomID int64, skip *Client, event any) {
	msg := mustJSON(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.rooms[roomID] {
		if c != skip {
			safeSend(c.send, msg)
		}
	}
}

func mustJSON(event any) []byte {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound event")
		return []byte(`{"type":"error","message":"Internal error."}`)
	}
	return msg
}
