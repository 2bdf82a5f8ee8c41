package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	c "github.com/classpad/boardsync/internal/common"
)

// ErrDisconnected is returned by Send while the transport has no live
// connection. Callers drop, they do not queue.
var ErrDisconnected = errors.New("transport disconnected")

// State is the connection lifecycle of a transport.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
	Reconnecting State = "reconnecting"
)

// Handlers are the session callbacks a transport drives. OnConnect
// fires on every successful (re)connection, before any message from
// that connection is delivered.
type Handlers struct {
	OnMessage func(c.Message)
	OnConnect func()
}

// Transport is the session's view of the wire.
type Transport interface {
	// Start begins delivering callbacks. Separate from dialing so the
	// session can finish wiring itself up first.
	Start()
	Send(msg c.Message) error
	Connected() bool
	State() State
	Close() error
}

// Dialer opens a transport for one room membership. The identity
// triple travels as connection-establishment metadata, not as a
// message.
type Dialer func(roomID, userID, userName string, h Handlers) (Transport, error)

// WSDialer returns a Dialer speaking websocket against base, e.g.
// "ws://localhost:8080".
func WSDialer(base string, logger *slog.Logger) Dialer {
	return func(roomID, userID, userName string, h Handlers) (Transport, error) {
		u := fmt.Sprintf("%s/ws/%s?uid=%s&name=%s",
			base, url.PathEscape(roomID), url.QueryEscape(userID), url.QueryEscape(userName))
		return DialWS(u, h, logger)
	}
}

// WSTransport is a websocket connection that reconnects itself with
// exponential backoff and re-fires OnConnect after every dial.
type WSTransport struct {
	url    string
	h      Handlers
	logger *slog.Logger

	conn   *websocket.Conn
	state  State
	closed bool

	mu sync.Mutex // protects conn writes and state
}

// DialWS connects to u. The read loop does not run until Start.
func DialWS(u string, h Handlers, logger *slog.Logger) (*WSTransport, error) {
	t := &WSTransport{url: u, h: h, logger: logger, state: Connecting}
	if err := t.dial(); err != nil {
		t.setState(Disconnected)
		return nil, err
	}
	return t, nil
}

func (t *WSTransport) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.url, err)
	}
	t.mu.Lock()
	t.conn = conn
	t.state = Connected
	t.mu.Unlock()
	return nil
}

// Start fires the initial OnConnect and begins the read loop.
func (t *WSTransport) Start() {
	if t.h.OnConnect != nil {
		t.h.OnConnect()
	}
	go t.readLoop()
}

func (t *WSTransport) readLoop() {
	for {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()

		var m c.Message
		if err := conn.ReadJSON(&m); err != nil {
			t.mu.Lock()
			closed := t.closed
			t.state = Reconnecting
			t.mu.Unlock()
			if closed {
				t.setState(Disconnected)
				return
			}

			t.logger.Warn("connection lost", "err", err)
			if err := t.reconnect(); err != nil {
				t.logger.Error("reconnect gave up", "err", err)
				t.setState(Disconnected)
				return
			}
			if t.h.OnConnect != nil {
				t.h.OnConnect()
			}
			continue
		}

		if t.h.OnMessage != nil {
			t.h.OnMessage(m)
		}
	}
}

func (t *WSTransport) reconnect() error {
	return backoff.Retry(func() error {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return backoff.Permanent(errors.New("transport closed"))
		}
		return t.dial()
	}, backoff.NewExponentialBackOff())
}

func (t *WSTransport) Send(m c.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Connected {
		return ErrDisconnected
	}
	if err := t.conn.WriteJSON(m); err != nil {
		t.state = Reconnecting
		return err
	}
	return nil
}

func (t *WSTransport) Connected() bool {
	return t.State() == Connected
}

func (t *WSTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *WSTransport) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *WSTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.state = Disconnected
	conn := t.conn
	t.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
