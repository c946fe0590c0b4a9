package gamestate

import "sync"

// RoomLocks serializes mutations per room: every load-mutate-save cycle
// runs with the room's mutex held, so two connections racing on the same
// room apply in some serial order. Locks for distinct rooms are
// independent; entries are never evicted (a mutex is a few words and room
// ids are not adversarial).
type RoomLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: map[int64]*sync.Mutex{}}
}

func (r *RoomLocks) lock(roomID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[roomID] = m
	}
	return m
}

// With runs fn while holding the room's lock. fn must not call back into
// With for the same room.
func (r *RoomLocks) With(roomID int64, fn func() error) error {
	m := r.lock(roomID)
	m.Lock()
	defer m.Unlock()
	return fn()
}
