package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/oskli/tinyrtc/internal/proto"
)

// startWSServer runs handler for every accepted websocket connection and
// returns a ws:// URL pointing at it.
func startWSServer(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn)) string {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:       []string{"tc"},
			InsecureSkipVerify: true,
		})
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		handler(r.Context(), conn)
	}))
	t.Cleanup(ts.Close)

	return strings.Replace(ts.URL, "http", "ws", 1)
}

func dialTest(t *testing.T, url string, readTimeout, pongTimeout time.Duration) *Session {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Dial(ctx, url, Options{
		ReadTimeout: readTimeout,
		PongTimeout: pongTimeout,
		Logger:      zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(websocket.StatusNormalClosure, "test done") })
	return s
}

func TestReceiveFrame(t *testing.T) {
	url := startWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = wsjson.Write(ctx, conn, map[string]any{"tc": "ping"})
		// Keep reading so the connection stays open.
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})

	s := dialTest(t, url, time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	env, err := s.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if env.Type != proto.EventPing {
		t.Fatalf("unexpected frame: %+v", env)
	}
}

func TestSendAndEcho(t *testing.T) {
	url := startWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		// Echo every frame back.
		for {
			var v map[string]any
			if err := wsjson.Read(ctx, conn, &v); err != nil {
				return
			}
			if err := wsjson.Write(ctx, conn, v); err != nil {
				return
			}
		}
	})

	s := dialTest(t, url, time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	msg, err := proto.Msg("hello")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := s.Send(ctx, msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	env, err := s.Receive(ctx)
	if err != nil {
		t.Fatalf("receive echo: %v", err)
	}
	if env.Type != proto.EventMsg {
		t.Fatalf("unexpected echo: %+v", env)
	}
}

func TestKeepaliveTimeoutKillsSession(t *testing.T) {
	url := startWSServer(t, func(_ context.Context, conn *websocket.Conn) {
		// Accept and go silent without ever reading, so pings are never
		// answered.
		<-make(chan struct{})
		_ = conn
	})

	s := dialTest(t, url, 50*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := s.Receive(ctx)
	if !errors.Is(err, ErrKeepaliveTimeout) {
		t.Fatalf("expected keepalive timeout, got %v", err)
	}
	if got := s.State(); got != Disconnected {
		t.Fatalf("session not released after timeout: %v", got)
	}
	if err := s.Send(ctx, proto.Pong()); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after timeout should fail with ErrClosed, got %v", err)
	}
}

func TestKeepalivePongKeepsSessionAlive(t *testing.T) {
	url := startWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		// Reading keeps the transport answering pings; deliver a frame
		// only after a couple of quiet periods.
		go func() {
			for {
				if _, _, err := conn.Read(ctx); err != nil {
					return
				}
			}
		}()
		time.Sleep(150 * time.Millisecond)
		_ = wsjson.Write(ctx, conn, map[string]any{"tc": "sysmsg", "text": "late"})
		<-ctx.Done()
	})

	s := dialTest(t, url, 40*time.Millisecond, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	env, err := s.Receive(ctx)
	if err != nil {
		t.Fatalf("receive after quiet period: %v", err)
	}
	if env.Type != proto.EventSysMsg {
		t.Fatalf("unexpected frame: %+v", env)
	}
}

func TestReceiveAfterPeerClose(t *testing.T) {
	url := startWSServer(t, func(_ context.Context, conn *websocket.Conn) {
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	})

	s := dialTest(t, url, time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := s.Receive(ctx)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	url := startWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	})

	s := dialTest(t, url, time.Second, time.Second)

	if err := s.Close(websocket.StatusNormalClosure, "first"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(websocket.StatusNormalClosure, "second"); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if got := s.State(); got != Disconnected {
		t.Fatalf("state after close: %v", got)
	}
}

func TestDialFailureIsConnectError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := Dial(ctx, "ws://127.0.0.1:1/nope", Options{Logger: zerolog.Nop()})
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
}
