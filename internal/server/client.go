package server

import (
	"sync"

	c "github.com/classpad/boardsync/internal/common"
)

// wsConn is the slice of *websocket.Conn the member uses, so tests
// can stand in an in-process pipe.
type wsConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// member is one connected session within a room.
type member struct {
	id       string
	userID   string
	userName string
	room     *Room
	conn     wsConn
	alive    bool

	sync.Mutex // protects concurrent conn writes and alive
}

// thread-safe websocket writing
func (m *member) write(msg c.Message) {
	m.Lock()
	defer m.Unlock()
	if !m.alive {
		return
	}
	if err := m.conn.WriteJSON(msg); err != nil {
		m.alive = false
	}
}

func (m *member) isAlive() bool {
	m.Lock()
	defer m.Unlock()
	return m.alive
}

// interact reads messages until the connection dies, then leaves the
// room. Messages are handled in arrival order.
func (m *member) interact() {
	defer func() {
		m.room.leave(m)
		m.conn.Close()
	}()

	for m.isAlive() {
		var msg c.Message
		if err := m.conn.ReadJSON(&msg); err != nil {
			return
		}
		m.room.handle(m, msg)
	}
}
