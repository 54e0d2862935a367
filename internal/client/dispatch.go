package client

import (
	"context"
	"sort"

	"github.com/oskli/tinyrtc/internal/proto"
)

type handlerFunc func(ctx context.Context, env proto.Envelope) error

// routes maps every recognized discriminator to its handler. Anything not
// listed here is reported as unhandled and otherwise ignored.
func (c *Client) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		proto.EventPing:              c.onPing,
		proto.EventClosed:            c.onClosed,
		proto.EventJoined:            c.onJoined,
		proto.EventRoomSettings:      c.onRoomSettings,
		proto.EventUserList:          c.onUserList,
		proto.EventJoin:              c.onJoin,
		proto.EventNick:              c.onNick,
		proto.EventQuit:              c.onQuit,
		proto.EventBan:               c.onBan,
		proto.EventUnban:             c.onUnban,
		proto.EventBanList:           c.onBanList,
		proto.EventMsg:               c.onMsg,
		proto.EventPrivateMsg:        c.onPrivateMsg,
		proto.EventPublish:           c.onPublish,
		proto.EventUnpublish:         c.onUnpublish,
		proto.EventSysMsg:            c.onSysMsg,
		proto.EventPassword:          c.onPassword,
		proto.EventPendingModeration: c.onPendingModeration,
		proto.EventModerAllow:        c.onModerAllow,
		proto.EventModerClose:        c.onModerClose,
		proto.EventCaptcha:           c.onCaptcha,
		proto.EventYutPlaylist:       c.onYutPlaylist,
		proto.EventYutPlay:           c.onYutPlay,
		proto.EventYutPause:          c.onYutPause,
		proto.EventYutStop:           c.onYutStop,

		// Reserved media-signaling events, intentionally no-ops.
		proto.EventIceServers:      c.onIgnored,
		proto.EventSDP:             c.onIgnored,
		proto.EventStreamConnected: c.onIgnored,
		proto.EventStreamClosed:    c.onIgnored,
	}
}

// dispatch resolves the envelope's handler. An unknown discriminator never
// terminates the session.
func (c *Client) dispatch(ctx context.Context, env proto.Envelope) error {
	h, ok := c.handlers[env.Type]
	if !ok {
		c.log.Warn().Str("event", env.Type).Msg("unhandled event")
		return nil
	}
	return h(ctx, env)
}

// SupportedEvents enumerates the recognized discriminators, sorted.
func (c *Client) SupportedEvents() []string {
	events := make([]string, 0, len(c.handlers))
	for name := range c.handlers {
		events = append(events, name)
	}
	sort.Strings(events)
	return events
}
