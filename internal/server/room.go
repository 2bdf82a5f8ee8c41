package server

import (
	"log/slog"
	"sync"

	"github.com/classpad/boardsync/internal/board"
	c "github.com/classpad/boardsync/internal/common"
)

// Room holds the authoritative store for one roomId and fans every
// accepted mutation out to all other members. It enforces exactly one
// ordering guarantee: broadcast order equals arrival order. Two
// clients racing on the same record id are settled by whichever
// message reaches the room first; there is no cross-record causal
// ordering and no conflict detection beyond record replacement.
type Room struct {
	ID string

	store   *board.Store
	members map[string]*member
	onEmpty func(*Room)
	logger  *slog.Logger

	// serializes store application and fan-out so arrival order is
	// broadcast order
	mu sync.Mutex
}

func newRoom(id string, logger *slog.Logger) *Room {
	return &Room{
		ID:      id,
		store:   board.NewStore(),
		members: make(map[string]*member),
		logger:  logger,
	}
}

// join adds a member and replays the current document snapshot as
// init. Presence records are never part of the snapshot.
func (r *Room) join(m *member) {
	r.mu.Lock()
	r.members[m.id] = m
	n := len(r.members)
	m.write(c.Message{Kind: c.Init, Records: r.store.DocumentSnapshot()})
	r.mu.Unlock()

	r.logger.Info("member joined", "room", r.ID, "user", m.userID, "members", n)
}

// leave drops a member. The room's store stays in memory so a
// transient zero-member gap does not lose the board.
func (r *Room) leave(m *member) {
	r.mu.Lock()
	delete(r.members, m.id)
	n := len(r.members)
	r.mu.Unlock()

	r.logger.Info("member left", "room", r.ID, "user", m.userID, "members", n)
	if n == 0 && r.onEmpty != nil {
		r.onEmpty(r)
	}
}

func (r *Room) handle(m *member, msg c.Message) {
	switch msg.Kind {
	case c.GetBoard:
		// universal resync entry point: first join and every
		// client-detected reconnect land here
		r.mu.Lock()
		m.write(c.Message{Kind: c.Init, Records: r.store.DocumentSnapshot()})
		r.mu.Unlock()

	case c.Update:
		valid := c.FilterValid(msg.Records)
		if len(valid) == 0 {
			return
		}
		r.mu.Lock()
		r.store.Put(valid, board.SourceRemote)
		r.broadcastLocked(m, c.Message{Kind: c.Update, Records: valid})
		r.mu.Unlock()

	case c.Delete:
		if len(msg.Ids) == 0 {
			return
		}
		r.mu.Lock()
		r.store.Remove(msg.Ids, board.SourceRemote)
		r.broadcastLocked(m, c.Message{Kind: c.Delete, Ids: msg.Ids})
		r.mu.Unlock()

	case c.CursorKind:
		if msg.Cursor == nil {
			return
		}
		// relayed verbatim, never applied to the authoritative store
		r.mu.Lock()
		r.broadcastLocked(m, msg)
		r.mu.Unlock()

	default:
		r.logger.Warn("unknown message kind", "room", r.ID, "kind", msg.Kind)
	}
}

// broadcastLocked writes to every member except the sender. Delivery
// is best-effort; a failed write marks the member dead and its read
// loop tears it down.
func (r *Room) broadcastLocked(from *member, msg c.Message) {
	for id, m := range r.members {
		if id == from.id {
			continue
		}
		m.write(msg)
	}
}

func (r *Room) snapshot() []c.Record {
	return r.store.DocumentSnapshot()
}
