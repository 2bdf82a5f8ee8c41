package client

import (
	"log/slog"
	"sync"
	"time"
)

// Registry tracks live sessions keyed by roomId+userId so repeated
// Connect calls for the same membership reuse the existing transport
// instead of opening a second one. It is plain state handed to
// whoever needs it; there is no process-global instance.
type Registry struct {
	// PresenceTTL, when positive, expires remote cursors idle longer
	// than this. Zero keeps stale cursors around until overwritten.
	PresenceTTL time.Duration

	dial   Dialer
	logger *slog.Logger

	sessions map[string]*Session
	pending  map[string]chan struct{}
	mu       sync.Mutex
}

func NewRegistry(dial Dialer, logger *slog.Logger) *Registry {
	return &Registry{
		dial:     dial,
		logger:   logger,
		sessions: make(map[string]*Session),
		pending:  make(map[string]chan struct{}),
	}
}

// Connect returns the live session for (roomID, userID) or opens a
// new one. Idempotent per membership pair. Dialing happens outside
// the registry lock, reserved per key, so one slow dial never blocks
// other membership pairs; a concurrent Connect for the same pair
// waits for the in-flight dial instead of opening a second transport.
func (r *Registry) Connect(roomID, userID, userName string) (*Session, error) {
	key := roomID + "/" + userID

	for {
		r.mu.Lock()
		if s, ok := r.sessions[key]; ok && !s.isClosed() {
			r.mu.Unlock()
			return s, nil
		}
		if wait, ok := r.pending[key]; ok {
			r.mu.Unlock()
			<-wait
			continue
		}
		done := make(chan struct{})
		r.pending[key] = done
		r.mu.Unlock()

		s, err := newSession(roomID, userID, userName, r.dial, r.PresenceTTL, r.logger)

		r.mu.Lock()
		delete(r.pending, key)
		close(done)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		r.sessions[key] = s
		r.mu.Unlock()
		return s, nil
	}
}

// Disconnect closes and forgets the session for a membership pair.
func (r *Registry) Disconnect(roomID, userID string) error {
	key := roomID + "/" + userID

	r.mu.Lock()
	s, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return s.Close()
}
