package client

import (
	"log/slog"
	"sync"
	"time"

	"github.com/classpad/boardsync/internal/board"
	c "github.com/classpad/boardsync/internal/common"
)

// Session is one client's live membership in a room: a local store
// replica, the transport, and the loopback suppression that keeps
// remotely applied changes from being re-broadcast. Suppression rides
// the Source tag carried through each store mutation, so it is scoped
// to the mutation itself and a local edit racing a remote apply on
// another goroutine still goes out.
type Session struct {
	RoomID   string
	UserID   string
	UserName string

	store    *board.Store
	codec    *board.Codec
	tr       Transport
	presence *Broadcaster
	logger   *slog.Logger

	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

func newSession(roomID, userID, userName string, dial Dialer, ttl time.Duration, logger *slog.Logger) (*Session, error) {
	s := &Session{
		RoomID:   roomID,
		UserID:   userID,
		UserName: userName,
		store:    board.NewStore(),
		logger:   logger,
		done:     make(chan struct{}),
	}
	s.codec = board.NewCodec(s.store)

	tr, err := dial(roomID, userID, userName, Handlers{
		OnMessage: s.handleMessage,
		OnConnect: s.resync,
	})
	if err != nil {
		return nil, err
	}
	s.tr = tr
	s.presence = newBroadcaster(s.store, tr, userID, userName, ttl)
	s.store.Listen(s.onLocalChange)
	tr.Start()

	if ttl > 0 {
		go s.sweepLoop(ttl)
	}
	return s, nil
}

// Store exposes the local replica. The app layer reads from it and
// mutates it through Put/Delete below.
func (s *Session) Store() *board.Store {
	return s.store
}

// Put applies a locally authored upsert batch. The store listener
// sends it out as an update.
func (s *Session) Put(records []c.Record) {
	s.store.Put(records, board.SourceUser)
}

// Delete applies a locally authored removal batch.
func (s *Session) Delete(ids []string) {
	s.store.Remove(ids, board.SourceUser)
}

// MoveCursor publishes the local pointer position, sampled to at most
// one emission per CursorInterval.
func (s *Session) MoveCursor(x, y float64) {
	s.presence.Publish(x, y)
}

func (s *Session) State() State {
	return s.tr.State()
}

// onLocalChange runs synchronously on every store mutation. The codec
// drops remote-sourced notifications, so nothing a peer sent us is
// ever echoed back.
func (s *Session) onLocalChange(ch board.Change) {
	cs, ok := s.codec.Encode(ch)
	if !ok {
		return
	}
	if ups := cs.Upserts(); len(ups) > 0 {
		s.send(c.Message{Kind: c.Update, Records: ups})
	}
	if len(cs.RemovedIds) > 0 {
		s.send(c.Message{Kind: c.Delete, Ids: cs.RemovedIds})
	}
}

// send drops the message if the transport is down. There is no
// offline queue; the next get-board resyncs wholesale.
func (s *Session) send(m c.Message) {
	if !s.tr.Connected() {
		s.logger.Debug("dropping local change while disconnected", "room", s.RoomID, "kind", m.Kind)
		return
	}
	if err := s.tr.Send(m); err != nil {
		s.logger.Warn("send failed", "room", s.RoomID, "kind", m.Kind, "err", err)
	}
}

func (s *Session) handleMessage(m c.Message) {
	switch m.Kind {
	case c.Init, c.Update:
		s.apply(func() { s.store.Put(c.FilterValid(m.Records), board.SourceRemote) })
	case c.Delete:
		s.apply(func() { s.store.Remove(m.Ids, board.SourceRemote) })
	case c.CursorKind:
		if m.Cursor == nil || m.Cursor.UserID == s.UserID {
			// never apply our own echo
			return
		}
		s.apply(func() { s.presence.Apply(*m.Cursor) })
	}
}

// apply contains a remote application. A panic from a bad record is
// logged, never propagated, so one malformed message cannot take the
// read loop down.
func (s *Session) apply(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("remote apply failed", "room", s.RoomID, "panic", r)
		}
	}()
	fn()
}

// resync runs on every transition into Connected, first connection
// included. Requesting the full snapshot before treating local edits
// as authoritative is the sole reconciliation mechanism.
func (s *Session) resync() {
	if err := s.tr.Send(c.Message{Kind: c.GetBoard, RoomID: s.RoomID}); err != nil {
		s.logger.Warn("get-board failed", "room", s.RoomID, "err", err)
	}
}

func (s *Session) sweepLoop(ttl time.Duration) {
	t := time.NewTicker(ttl)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.presence.Sweep()
		case <-s.done:
			return
		}
	}
}

// Close tears the session down. A later Connect with the same
// roomId+userId builds a logically new session.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	return s.tr.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
