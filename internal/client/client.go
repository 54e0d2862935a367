// Package client implements the room session controller: it composes the
// transport session, the roster and the command builders into the
// connect -> join -> run -> disconnect lifecycle, and is the single writer
// of all roster and room state.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/oskli/tinyrtc/internal/config"
	"github.com/oskli/tinyrtc/internal/proto"
	"github.com/oskli/tinyrtc/internal/roster"
	"github.com/oskli/tinyrtc/internal/session"
	"github.com/oskli/tinyrtc/internal/webapi"
)

// Identity is the controller's view of itself in the room.
type Identity struct {
	Handle         int
	Nick           string
	Moderator      bool
	Owner          bool
	ConnectedSince time.Time
}

// RoomState is the per-connection room snapshot.
type RoomState struct {
	Name             string
	GreenRoom        bool
	PasswordRequired bool
	Settings         map[string]any
}

// RoomAPI is the HTTP metadata collaborator consumed by the controller.
type RoomAPI interface {
	RoomConnectInfo(ctx context.Context, room string) (webapi.ConnectInfo, error)
	RTCVersion(ctx context.Context, room string) (string, error)
	UserInfo(ctx context.Context, account string) (webapi.UserInfo, error)
}

// CaptchaSolver resolves a site key into a response token. The session
// stays connected while a solution is pending.
type CaptchaSolver interface {
	Solve(ctx context.Context, siteKey, pageURL string) (string, error)
}

// transport is the slice of session.Session the controller needs; tests
// substitute a fake.
type transport interface {
	Send(ctx context.Context, env proto.Envelope) error
	Receive(ctx context.Context) (proto.Envelope, error)
	Close(code websocket.StatusCode, reason string) error
}

// Deps are the external collaborators handed to New.
type Deps struct {
	API    RoomAPI
	Solver CaptchaSolver
	Logger zerolog.Logger
}

// Client drives one room session. All event handlers run on the receive
// loop goroutine, so roster and state mutations need no locking.
type Client struct {
	cfg    config.Config
	log    zerolog.Logger
	api    RoomAPI
	solver CaptchaSolver

	nick string

	identity Identity
	state    RoomState
	users    *roster.Roster

	sess     transport
	handlers map[string]handlerFunc
	seq      atomic.Int64
}

// New builds a controller for the named room. The configuration is the
// only source of credentials and feature toggles.
func New(room string, cfg config.Config, deps Deps) *Client {
	c := &Client{
		cfg:    cfg,
		log:    deps.Logger.With().Str("room", room).Logger(),
		api:    deps.API,
		solver: deps.Solver,
		nick:   cfg.Nickname,
		state:  RoomState{Name: room},
		users:  roster.New(),
	}
	c.handlers = c.routes()
	c.seq.Store(1)
	return c
}

// Identity returns the client's own view of itself. Zero until the joined
// event arrives.
func (c *Client) Identity() Identity { return c.identity }

// Room returns the current room state snapshot.
func (c *Client) Room() RoomState { return c.state }

// Roster exposes the participant roster for queries. Callers outside the
// dispatch loop must treat it as read-only.
func (c *Client) Roster() *roster.Roster { return c.users }

// Runtime reports how long the session has been connected.
func (c *Client) Runtime() time.Duration {
	if c.identity.ConnectedSince.IsZero() {
		return 0
	}
	return time.Since(c.identity.ConnectedSince)
}

// Connect resolves the room's join token, opens the transport session and
// sends the initial join command. Run must be called next.
func (c *Client) Connect(ctx context.Context) error {
	if c.api == nil {
		return ErrNotConnected
	}
	info, err := c.api.RoomConnectInfo(ctx, c.state.Name)
	if err != nil {
		return fmt.Errorf("acquire join token: %w", err)
	}

	version, err := c.api.RTCVersion(ctx, c.state.Name)
	if err != nil || version == "" {
		if err != nil {
			c.log.Debug().Err(err).Msg("rtc version lookup failed")
		}
		version = c.cfg.FallbackVersion
		c.log.Info().Str("version", version).Msg("using fallback protocol version")
	}

	if c.nick == "" {
		c.nick = randomNick()
	}

	sess, err := session.Dial(ctx, info.Endpoint, session.Options{
		Origin:      c.cfg.Origin,
		ReadTimeout: c.cfg.ReadTimeout,
		PongTimeout: c.cfg.PongTimeout,
		Logger:      c.log,
	})
	if err != nil {
		return err
	}
	c.sess = sess

	join, err := proto.Join(info.Token, c.state.Name, c.nick, useragent(version))
	if err != nil {
		_ = sess.Close(websocket.StatusGoingAway, "join build failed")
		return err
	}
	if err := c.send(ctx, join); err != nil {
		_ = sess.Close(websocket.StatusGoingAway, "join send failed")
		return err
	}

	c.identity.ConnectedSince = time.Now()
	c.log.Info().Str("nick", c.nick).Msg("joining room")
	return nil
}

// Run processes inbound events strictly in arrival order until the session
// ends. It returns nil on a caller-initiated disconnect or context
// cancellation, a *proto.CloseError when the server closed the room
// session, and the transport error otherwise.
func (c *Client) Run(ctx context.Context) error {
	if c.sess == nil {
		return ErrNotConnected
	}
	for {
		env, err := c.sess.Receive(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				_ = c.sess.Close(websocket.StatusGoingAway, "cancelled")
				return nil
			case errors.Is(err, session.ErrClosed):
				return nil
			default:
				return err
			}
		}
		if err := c.dispatch(ctx, env); err != nil {
			var closeErr *proto.CloseError
			if errors.As(err, &closeErr) {
				_ = c.sess.Close(websocket.StatusNormalClosure, closeErr.Error())
				return closeErr
			}
			c.log.Error().Err(err).Str("event", env.Type).Msg("fatal protocol error")
			_ = c.sess.Close(websocket.StatusProtocolError, "protocol violation")
			return err
		}
	}
}

// Disconnect performs a graceful close and resets the request counter.
// Safe to call from outside the dispatch loop.
func (c *Client) Disconnect() error {
	c.seq.Store(1)
	if c.sess == nil {
		return nil
	}
	return c.sess.Close(websocket.StatusGoingAway, "client disconnect")
}

func (c *Client) send(ctx context.Context, env proto.Envelope) error {
	if c.sess == nil {
		return ErrNotConnected
	}
	if err := c.sess.Send(ctx, env); err != nil {
		return err
	}
	c.seq.Add(1)
	return nil
}

func useragent(version string) string {
	return fmt.Sprintf("tinychat-client-webrtc-undefined_win32-%s", version)
}
