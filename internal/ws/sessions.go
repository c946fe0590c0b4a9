package ws

import "sync"

// SessionDirectory maps a player identity to their active connection, for
// targeted delivery. It is in-process only and rebuilt on restart; it
// carries no gameplay truth and is never consulted for legality.
type SessionDirectory struct {
	mu     sync.RWMutex
	byUser map[int64]*Client
}

func NewSessionDirectory() *SessionDirectory {
	return &SessionDirectory{byUser: map[int64]*Client{}}
}

// Register records the connection for a player, replacing any previous one.
func (d *SessionDirectory) Register(userID int64, c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byUser[userID] = c
}

// Unregister removes the player's entry, but only if it still points at
// this connection: a reconnect may already have replaced it.
func (d *SessionDirectory) Unregister(userID int64, c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.byUser[userID] == c {
		delete(d.byUser, userID)
	}
}

func (d *SessionDirectory) Lookup(userID int64) (*Client, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.byUser[userID]
	return c, ok
}
