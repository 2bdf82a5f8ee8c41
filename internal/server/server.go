package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/classpad/boardsync/internal/board"
	c "github.com/classpad/boardsync/internal/common"
	"github.com/classpad/boardsync/internal/storage"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server owns the room map and the websocket surface. Rooms are
// created on first connection for a roomId and live for the process
// lifetime; snapshots go out through the SnapshotStore seam.
type Server struct {
	snapshots storage.SnapshotStore
	logger    *slog.Logger

	rooms map[string]*Room
	mu    sync.Mutex
}

func NewServer(snapshots storage.SnapshotStore, logger *slog.Logger) *Server {
	return &Server{
		snapshots: snapshots,
		logger:    logger,
		rooms:     make(map[string]*Room),
	}
}

// Room returns the room for id, creating and seeding it from the
// snapshot store on first use.
func (s *Server) Room(id string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		r = newRoom(id, s.logger)
		r.onEmpty = s.persist
		if records, err := s.snapshots.Load(context.Background(), id); err != nil {
			s.logger.Error("snapshot load failed", "room", id, "err", err)
		} else if len(records) > 0 {
			r.store.Put(c.FilterValid(records), board.SourceRemote)
		}
		s.rooms[id] = r
		s.logger.Info("room created", "room", id)
	}
	return r
}

// persist runs when the last member leaves.
func (s *Server) persist(r *Room) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, r.ID, r.snapshot()); err != nil {
		s.logger.Error("snapshot save failed", "room", r.ID, "err", err)
	}
}

// ws upgrades the connection and runs the member until it drops. The
// identity handshake is connection metadata: room in the path, uid
// and name in the query.
func (s *Server) ws(w http.ResponseWriter, req *http.Request) {
	roomID := mux.Vars(req)["room"]
	uid := req.URL.Query().Get("uid")
	if roomID == "" || uid == "" {
		http.Error(w, "missing room or uid", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "room", roomID, "err", err)
		return
	}

	room := s.Room(roomID)
	m := &member{
		id:       uuid.NewString(),
		userID:   uid,
		userName: req.URL.Query().Get("name"),
		room:     room,
		conn:     conn,
		alive:    true,
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go s.ping(conn, m)

	room.join(m)
	m.interact()
}

// ping keeps the read deadline honest so dead peers get reaped.
// WriteControl is safe to call concurrently with WriteJSON.
func (s *Server) ping(conn *websocket.Conn, m *member) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for range t.C {
		if !m.isAlive() {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{room}", s.ws)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}
