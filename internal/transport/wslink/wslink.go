// Package wslink implements the WebSocket half of C7's egress dispatcher:
// a single persistent connection to the controller, guarded by the
// disconnected -> connecting -> connected state machine spec §4.7 and §5
// require. Grounded on the teacher's pkg/sink/websocket/websocket.go
// (mutex-guarded single connection, lazy ensureConn), generalized so that
// concurrent senders observed mid-handshake block on a condition variable
// rather than each independently racing to dial (spec §5: "no send may
// observe the session in an intermediate state").
//
// The controller's actual token-auth handshake is delegated out of core
// (spec §6); this module dials a gorilla/websocket connection with HTTP
// Basic credentials attached and otherwise treats the wire protocol as
// opaque text commands.
package wslink

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/user/loxrelay"
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

// Session is a single persistent WebSocket connection to the controller.
// The zero value is not usable; construct with New.
type Session struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
	conn  *websocket.Conn

	baseURL  string
	user     string
	password string
	timeout  time.Duration
	log      loxrelay.Logger
}

// New builds a Session targeting host:port. Per spec §4.7, the scheme is
// https when port is 443, http otherwise; wsDial converts that to ws/wss.
func New(host string, port int, user, password string, log loxrelay.Logger) *Session {
	scheme := "http"
	if port == 443 {
		scheme = "https"
	}
	s := &Session{
		baseURL:  fmt.Sprintf("%s://%s", scheme, host),
		user:     user,
		password: password,
		timeout:  10 * time.Second,
		log:      log,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendCommand transmits one already-formatted command string over the
// session, establishing the connection first if needed. Concurrent callers
// that arrive while a connect attempt is underway block until it resolves
// rather than racing to dial themselves.
func (s *Session) SendCommand(ctx context.Context, command string) error {
	conn, err := s.ensureConnected(ctx)
	if err != nil {
		return err
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(command)); err != nil {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.state = Disconnected
		}
		s.mu.Unlock()
		return fmt.Errorf("wslink: send: %w", err)
	}
	return nil
}

func (s *Session) ensureConnected(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	for s.state == Connecting {
		s.cond.Wait()
	}
	if s.state == Connected && s.conn != nil {
		conn := s.conn
		s.mu.Unlock()
		return conn, nil
	}
	s.state = Connecting
	s.mu.Unlock()

	conn, err := s.dial(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = Disconnected
		s.cond.Broadcast()
		return nil, err
	}
	s.conn = conn
	s.state = Connected
	s.cond.Broadcast()
	return conn, nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("wslink: bad base url %q: %w", s.baseURL, err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}

	header := http.Header{}
	if s.user != "" || s.password != "" {
		basic := base64.StdEncoding.EncodeToString([]byte(s.user + ":" + s.password))
		header.Set("Authorization", "Basic "+basic)
	}

	dctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("wslink: dial %s: %w", u.String(), err)
	}
	return conn, nil
}

// Close tears down the connection, if any.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Closing
	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
	}
	s.state = Disconnected
	s.cond.Broadcast()
	return err
}
