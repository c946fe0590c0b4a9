package ws

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client is one authenticated connection. Writes go through the buffered
// send channel so slow readers never block a room's event handling.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	userID   int64
	nickname string
}

func newClient(conn *websocket.Conn, userID int64, nickname string) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan []byte, 16),
		userID:   userID,
		nickname: nickname,
	}
}

func (c *Client) UserID() int64 {
	return c.userID
}

func (c *Client) writeLoop() {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

// emit marshals and queues one event for this client. A full or closed
// channel drops the message rather than stalling the caller.
func (c *Client) emit(event any) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound event")
		return
	}
	safeSend(c.send, msg)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- msg:
	default:
	}
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}
