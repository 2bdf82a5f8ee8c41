package client

import (
	"sync"
	"time"

	"github.com/classpad/boardsync/internal/board"
	c "github.com/classpad/boardsync/internal/common"
)

// CursorInterval is the floor between cursor emissions. Pointer moves
// arriving faster than this are dropped, not queued.
const CursorInterval = 50 * time.Millisecond

// Broadcaster is the presence side channel: it samples outgoing
// pointer moves and materializes incoming cursor messages as
// ephemeral records in the local store. Presence never touches the
// durable document.
type Broadcaster struct {
	store    *board.Store
	tr       Transport
	userID   string
	userName string
	color    string

	ttl time.Duration
	now func() time.Time

	last time.Time
	mu   sync.Mutex
}

func newBroadcaster(store *board.Store, tr Transport, userID, userName string, ttl time.Duration) *Broadcaster {
	return &Broadcaster{
		store:    store,
		tr:       tr,
		userID:   userID,
		userName: userName,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Publish emits the local cursor position, rate-limited to one
// message per CursorInterval. Dropped while disconnected.
func (b *Broadcaster) Publish(x, y float64) {
	b.mu.Lock()
	now := b.now()
	if now.Sub(b.last) < CursorInterval {
		b.mu.Unlock()
		return
	}
	b.last = now
	b.mu.Unlock()

	if !b.tr.Connected() {
		return
	}
	_ = b.tr.Send(c.Message{Kind: c.CursorKind, Cursor: &c.CursorPayload{
		UserID:   b.userID,
		UserName: b.userName,
		Color:    b.color,
		Cursor:   c.Cursor{X: x, Y: y},
	}})
}

// Apply upserts the sender's presence record. The activity timestamp
// is kept monotonic per user so a reordered pair of cursor messages
// cannot move it backwards.
func (b *Broadcaster) Apply(p c.CursorPayload) {
	ts := b.now().UnixMilli()
	if prev, ok := b.store.Get(c.PresenceID(p.UserID)); ok {
		if pts := activity(prev); ts <= pts {
			ts = pts + 1
		}
	}
	b.store.Put([]c.Record{p.Record(ts)}, board.SourceRemote)
}

// Sweep drops presence records idle longer than the ttl. A zero ttl
// disables expiry, matching the reference behavior where a stale
// cursor lingers until overwritten.
func (b *Broadcaster) Sweep() {
	if b.ttl <= 0 {
		return
	}
	cutoff := b.now().Add(-b.ttl).UnixMilli()

	var stale []string
	for _, r := range b.store.Snapshot() {
		if r.Ephemeral() && activity(r) < cutoff {
			stale = append(stale, r.ID)
		}
	}
	b.store.Remove(stale, board.SourceRemote)
}

// activity reads lastActivityTimestamp, which is an int64 when set
// locally and a float64 after a JSON round trip.
func activity(r c.Record) int64 {
	switch v := r.Fields["lastActivityTimestamp"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
