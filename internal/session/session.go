// Package session owns the websocket connection of one room session: dial,
// atomic send, ordered receive with keepalive probing, and close discipline.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oskli/tinyrtc/internal/proto"
)

// State tracks the session lifecycle. Transitions only move forward:
// Disconnected -> Connecting -> Connected -> Closing -> Disconnected.
// There is no automatic reconnect; a new Dial starts a fresh session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "disconnected"
	}
}

var (
	// ErrClosed is returned by Send and Receive once the session is down.
	ErrClosed = errors.New("session: closed")
	// ErrKeepaliveTimeout is the terminal error of a session whose
	// keepalive probe went unanswered.
	ErrKeepaliveTimeout = errors.New("session: keepalive timeout")
)

// ConnectError wraps a failed dial (DNS, TLS or handshake).
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Options configures a dialed session. Zero timeouts fall back to the
// protocol defaults (30s quiet before a probe, 10s to answer it).
type Options struct {
	Origin      string
	UserAgent   string
	ReadTimeout time.Duration
	PongTimeout time.Duration
	Logger      zerolog.Logger
}

const (
	defaultReadTimeout = 30 * time.Second
	defaultPongTimeout = 10 * time.Second
)

// Session is a live websocket connection. One goroutine pumps inbound
// frames into a channel so Receive can wait with a timeout while the
// connection stays readable for pong frames.
type Session struct {
	conn *websocket.Conn
	log  zerolog.Logger
	id   string

	readTimeout time.Duration
	pongTimeout time.Duration

	frames chan proto.Envelope
	done   chan struct{}

	mu       sync.Mutex
	state    State
	closeErr error
	readErr  error

	closeOnce sync.Once
}

// Dial opens a websocket connection to endpoint and starts the receive
// pump. The "tc" subprotocol is always requested.
func Dial(ctx context.Context, endpoint string, opts Options) (*Session, error) {
	header := http.Header{}
	if opts.Origin != "" {
		header.Set("Origin", opts.Origin)
	}
	if opts.UserAgent != "" {
		header.Set("User-Agent", opts.UserAgent)
	}

	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{"tc"},
	})
	if err != nil {
		return nil, &ConnectError{Endpoint: endpoint, Err: err}
	}

	s := &Session{
		conn:        conn,
		id:          uuid.NewString(),
		readTimeout: opts.ReadTimeout,
		pongTimeout: opts.PongTimeout,
		frames:      make(chan proto.Envelope),
		done:        make(chan struct{}),
		state:       Connected,
	}
	if s.readTimeout <= 0 {
		s.readTimeout = defaultReadTimeout
	}
	if s.pongTimeout <= 0 {
		s.pongTimeout = defaultPongTimeout
	}
	s.log = opts.Logger.With().Str("session_id", s.id).Logger()
	s.log.Debug().Str("endpoint", endpoint).Msg("session connected")

	go s.readPump()
	return s, nil
}

// ID is the client-generated identifier used to correlate log lines.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) readPump() {
	defer close(s.frames)
	for {
		var env proto.Envelope
		if err := wsjson.Read(context.Background(), s.conn, &env); err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
		select {
		case s.frames <- env:
		case <-s.done:
			return
		}
	}
}

// Send serializes the envelope and writes it as a single frame. Fails with
// ErrClosed once the session is down.
func (s *Session) Send(ctx context.Context, env proto.Envelope) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != Connected {
		return ErrClosed
	}
	if err := wsjson.Write(ctx, s.conn, env); err != nil {
		return fmt.Errorf("send %s: %w", env.Type, err)
	}
	s.log.Debug().Str("tc", env.Type).Msg("frame sent")
	return nil
}

// Receive blocks until a frame arrives, ctx is cancelled, or the peer
// closes. A quiet period of readTimeout triggers exactly one transport
// ping; a pong missing for pongTimeout kills the session with
// ErrKeepaliveTimeout.
func (s *Session) Receive(ctx context.Context) (proto.Envelope, error) {
	timer := time.NewTimer(s.readTimeout)
	defer timer.Stop()

	for {
		select {
		case env, ok := <-s.frames:
			if !ok {
				return proto.Envelope{}, s.closedErr()
			}
			return env, nil
		case <-ctx.Done():
			return proto.Envelope{}, ctx.Err()
		case <-timer.C:
			s.log.Debug().Dur("quiet", s.readTimeout).Msg("no frames, probing with ping")
			if err := s.ping(ctx); err != nil {
				s.mu.Lock()
				s.closeErr = ErrKeepaliveTimeout
				s.mu.Unlock()
				_ = s.Close(websocket.StatusGoingAway, "keepalive timeout")
				return proto.Envelope{}, ErrKeepaliveTimeout
			}
			timer.Reset(s.readTimeout)
		}
	}
}

func (s *Session) ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, s.pongTimeout)
	defer cancel()
	return s.conn.Ping(pingCtx)
}

func (s *Session) closedErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closeErr != nil {
		return s.closeErr
	}
	if s.readErr != nil {
		switch websocket.CloseStatus(s.readErr) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return ErrClosed
		default:
			return fmt.Errorf("%w: %v", ErrClosed, s.readErr)
		}
	}
	return ErrClosed
}

// Close tears the connection down. Idempotent and safe to call from
// outside the receive loop; the underlying socket is released on every
// path.
func (s *Session) Close(code websocket.StatusCode, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = Closing
		s.mu.Unlock()

		close(s.done)
		err = s.conn.Close(code, reason)

		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		s.log.Debug().Int("code", int(code)).Str("reason", reason).Msg("session closed")
	})
	return err
}
