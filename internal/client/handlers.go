package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oskli/tinyrtc/internal/proto"
	"github.com/oskli/tinyrtc/internal/roster"
)

// anomaly reports a mutation targeting an absent roster handle. Non-fatal:
// the event is dropped and the session continues.
func (c *Client) anomaly(event string, handle int) {
	c.log.Warn().Str("event", event).Int("handle", handle).Msg("stale reference, no such user")
}

func (c *Client) onPing(ctx context.Context, _ proto.Envelope) error {
	// Application-level heartbeat, answered immediately. Distinct from
	// the transport keepalive ping.
	return c.send(ctx, proto.Pong())
}

func (c *Client) onClosed(_ context.Context, env proto.Envelope) error {
	var p proto.ClosedPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed closed event")
	}
	err := &proto.CloseError{Code: p.Code}
	c.log.Info().Int("code", p.Code).Msg(err.Error())
	return err
}

func (c *Client) onJoined(ctx context.Context, env proto.Envelope) error {
	var p proto.JoinedPayload
	if err := env.Decode(&p); err != nil {
		return err
	}
	if p.Self == nil {
		return &ProtocolViolationError{Event: proto.EventJoined, Field: "self"}
	}

	c.identity.Handle = p.Self.Handle
	c.identity.Moderator = p.Self.Mod
	c.identity.Owner = p.Self.Owner
	if p.Self.Nick != "" {
		c.identity.Nick = p.Self.Nick
	} else {
		c.identity.Nick = c.nick
	}
	c.users.Upsert(userFromEntry(*p.Self))

	c.log.Info().
		Int("handle", c.identity.Handle).
		Bool("mod", c.identity.Moderator).
		Bool("owner", c.identity.Owner).
		Msg("joined the room")

	for k, v := range p.Room {
		c.log.Debug().Interface(k, v).Msg("room info")
	}

	// Moderators keep a live view of the ban list.
	if c.identity.Moderator {
		return c.send(ctx, proto.BanList())
	}
	return nil
}

func (c *Client) onRoomSettings(_ context.Context, env proto.Envelope) error {
	var p proto.RoomSettingsPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed room_settings event")
		return nil
	}
	c.state.Settings = p.Room
	c.log.Debug().Int("keys", len(p.Room)).Msg("room settings changed")
	return nil
}

func (c *Client) onUserList(_ context.Context, env proto.Envelope) error {
	var p proto.UserListPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed userlist event")
		return nil
	}
	for _, entry := range p.Users {
		if entry.Handle == c.identity.Handle {
			continue
		}
		u := c.users.Upsert(userFromEntry(entry))
		c.log.Info().
			Int("handle", u.Handle).
			Str("nick", u.Nick).
			Str("role", u.Role().String()).
			Msg("present in room")
	}
	return nil
}

func (c *Client) onJoin(ctx context.Context, env proto.Envelope) error {
	var entry proto.UserEntry
	if err := env.Decode(&entry); err != nil {
		c.log.Warn().Err(err).Msg("malformed join event")
		return nil
	}
	u := c.users.Upsert(userFromEntry(entry))

	if u.Account != "" && c.api != nil {
		// Best effort enrichment; a collaborator failure never disturbs
		// the roster.
		info, err := c.api.UserInfo(ctx, u.Account)
		if err != nil {
			c.log.Debug().Err(err).Str("account", u.Account).Msg("account lookup failed")
		} else {
			u.AccountID = info.ID
			u.LastActive = time.Unix(info.LastActive, 0)
		}
	}

	c.log.Info().
		Int("handle", u.Handle).
		Str("nick", u.Nick).
		Str("account", u.Account).
		Str("role", u.Role().String()).
		Msg("joined")
	return nil
}

func (c *Client) onNick(_ context.Context, env proto.Envelope) error {
	var p proto.NickPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed nick event")
		return nil
	}
	u := c.users.Find(p.Handle)
	if u == nil {
		c.anomaly(proto.EventNick, p.Handle)
		return nil
	}
	old := u.Nick
	u.Nick = p.Nick
	if p.Handle == c.identity.Handle {
		c.identity.Nick = p.Nick
	}
	c.log.Info().Int("handle", p.Handle).Str("old", old).Str("new", p.Nick).Msg("nick changed")
	return nil
}

func (c *Client) onQuit(_ context.Context, env proto.Envelope) error {
	var p proto.QuitPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed quit event")
		return nil
	}
	u := c.users.Remove(p.Handle)
	if u == nil {
		// Absent handle on quit is not anomalous: the protocol emits
		// separate quit/close pairs for banned users.
		return nil
	}
	c.log.Info().Int("handle", p.Handle).Str("nick", u.Nick).Msg("left the room")
	return nil
}

func (c *Client) onBan(_ context.Context, env proto.Envelope) error {
	var p proto.BanPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed ban event")
		return nil
	}
	if !p.Success {
		c.log.Warn().Str("reason", p.Reason).Msg("ban failed")
		return nil
	}
	b := c.users.AddBanned(roster.BannedUser{ID: p.ID, Handle: p.Handle, Nick: p.Nick, Account: p.Account})
	c.log.Info().Str("nick", b.Nick).Str("account", b.Account).Msg("user banned")
	return nil
}

func (c *Client) onUnban(_ context.Context, env proto.Envelope) error {
	var p proto.UnbanPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed unban event")
		return nil
	}
	b := c.users.RemoveBanned(p.ID)
	if b == nil {
		c.log.Debug().Int("ban_id", p.ID).Msg("unban for unknown ban id")
		return nil
	}
	c.log.Info().Str("nick", b.Nick).Msg("user unbanned")
	return nil
}

func (c *Client) onBanList(_ context.Context, env proto.Envelope) error {
	var p proto.BanListPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed banlist event")
		return nil
	}
	if !p.Success {
		// A failed snapshot leaves the current set untouched.
		c.log.Warn().Str("reason", p.Reason).Msg("banlist request failed")
		return nil
	}
	// A snapshot replaces the set rather than merging into it.
	c.users.ClearBanned()
	for _, item := range p.Items {
		c.users.AddBanned(roster.BannedUser{ID: item.ID, Handle: item.Handle, Nick: item.Nick, Account: item.Account})
	}
	if len(p.Items) == 0 {
		c.log.Info().Msg("the banlist is empty")
	} else {
		c.log.Info().Int("entries", len(p.Items)).Msg("banlist loaded")
	}
	return nil
}

func (c *Client) onMsg(_ context.Context, env proto.Envelope) error {
	return c.chatMessage(env, false)
}

func (c *Client) onPrivateMsg(_ context.Context, env proto.Envelope) error {
	return c.chatMessage(env, true)
}

func (c *Client) chatMessage(env proto.Envelope, private bool) error {
	var p proto.MsgPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Str("event", env.Type).Msg("malformed message event")
		return nil
	}
	if p.Handle == c.identity.Handle {
		// Self-originated echo.
		return nil
	}
	u := c.users.Find(p.Handle)
	if u == nil {
		c.anomaly(env.Type, p.Handle)
		return nil
	}
	u.LastMessageAt = time.Now()

	text := strings.ReplaceAll(p.Text, "\n", " ")
	evt := c.log.Info().Str("nick", u.Nick).Str("text", text)
	if private {
		evt.Msg("private message")
	} else {
		evt.Msg("chat")
	}
	return nil
}

func (c *Client) onPublish(_ context.Context, env proto.Envelope) error {
	var p proto.HandlePayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed publish event")
		return nil
	}
	u := c.users.Find(p.Handle)
	if u == nil {
		c.anomaly(proto.EventPublish, p.Handle)
		return nil
	}
	u.Broadcasting = true
	// Broadcasting implies the user has left the green-room queue.
	u.Waiting = false
	c.log.Info().Int("handle", p.Handle).Str("nick", u.Nick).Msg("is broadcasting")
	return nil
}

func (c *Client) onUnpublish(_ context.Context, env proto.Envelope) error {
	var p proto.HandlePayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed unpublish event")
		return nil
	}
	u := c.users.Find(p.Handle)
	if u == nil {
		c.anomaly(proto.EventUnpublish, p.Handle)
		return nil
	}
	u.Broadcasting = false
	c.log.Info().Int("handle", p.Handle).Str("nick", u.Nick).Msg("stopped broadcasting")
	return nil
}

func (c *Client) onSysMsg(ctx context.Context, env proto.Envelope) error {
	var p proto.SysMsgPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed sysmsg event")
		return nil
	}
	c.log.Info().Str("text", p.Text).Msg("system message")

	switch ClassifySysMessage(p.Text) {
	case SysBanListChanged:
		if c.identity.Moderator {
			c.users.ClearBanned()
			return c.send(ctx, proto.BanList())
		}
	case SysGreenRoomEnabled:
		c.state.GreenRoom = true
	case SysGreenRoomDisabled:
		c.state.GreenRoom = false
	}
	return nil
}

func (c *Client) onPassword(_ context.Context, _ proto.Envelope) error {
	c.state.PasswordRequired = true
	c.log.Warn().Msg("room is password protected")
	return nil
}

func (c *Client) onPendingModeration(_ context.Context, env proto.Envelope) error {
	var p proto.HandlePayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed pending_moderation event")
		return nil
	}
	// A pending broadcast implies the green room is on, even if no sysmsg
	// said so.
	c.state.GreenRoom = true

	u := c.users.Find(p.Handle)
	if u == nil {
		c.anomaly(proto.EventPendingModeration, p.Handle)
		return nil
	}
	u.Waiting = true
	c.log.Info().Int("handle", p.Handle).Str("nick", u.Nick).Msg("waiting in the green room")
	return nil
}

func (c *Client) onModerAllow(_ context.Context, env proto.Envelope) error {
	var p proto.HandlePayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed stream_moder_allow event")
		return nil
	}
	if u := c.users.Find(p.Handle); u != nil {
		c.log.Debug().Int("handle", p.Handle).Str("nick", u.Nick).Msg("allowed to broadcast")
	}
	return nil
}

func (c *Client) onModerClose(_ context.Context, env proto.Envelope) error {
	var p proto.ModerClosePayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed stream_moder_close event")
		return nil
	}
	if !p.Success {
		c.log.Error().Str("reason", p.Reason).Msg("failed to close a broadcast")
		return nil
	}
	if u := c.users.Find(p.Handle); u != nil {
		c.log.Debug().Int("handle", p.Handle).Str("nick", u.Nick).Msg("broadcast closed")
	}
	return nil
}

func (c *Client) onCaptcha(ctx context.Context, env proto.Envelope) error {
	var p proto.CaptchaPayload
	if err := env.Decode(&p); err != nil || p.Key == "" {
		c.log.Warn().Msg("captcha event without site key")
		return nil
	}
	if !c.cfg.SolveCaptchas || c.solver == nil {
		c.log.Warn().Msg("captcha required, no solver configured")
		return nil
	}

	pageURL := fmt.Sprintf("%s/room/%s", c.cfg.BaseURL, c.state.Name)
	// Solving takes tens of seconds; keep the receive loop (and the
	// keepalive) running while the solver works.
	go func() {
		token, err := c.solver.Solve(ctx, p.Key, pageURL)
		if err != nil {
			c.log.Error().Err(err).Msg("captcha solve failed")
			return
		}
		if err := c.SendCaptchaToken(ctx, token); err != nil {
			c.log.Error().Err(err).Msg("captcha token send failed")
		}
	}()
	return nil
}

func (c *Client) onYutPlaylist(_ context.Context, env proto.Envelope) error {
	var p proto.MediaPlaylistPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed yut_playlist event")
		return nil
	}
	if !p.Success {
		c.log.Warn().Str("reason", p.Reason).Msg("playlist request failed")
		return nil
	}
	for _, item := range p.Items {
		c.log.Info().Str("video", item.ID).Str("title", item.Title).Msg("playlist item")
	}
	return nil
}

func (c *Client) onYutPlay(_ context.Context, env proto.Envelope) error {
	var p proto.MediaPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed yut_play event")
		return nil
	}
	nick := c.mediaNick(p.Handle)
	// Exact zero means started from the top; anything else is a seek
	// while playing.
	if p.Item.Offset == 0 {
		c.log.Info().Str("nick", nick).Str("video", p.Item.ID).Str("title", p.Item.Title).Msg("started video")
	} else {
		c.log.Info().Str("nick", nick).Str("video", p.Item.ID).Float64("offset", p.Item.Offset).Msg("seeked video")
	}
	return nil
}

func (c *Client) onYutPause(_ context.Context, env proto.Envelope) error {
	var p proto.MediaPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed yut_pause event")
		return nil
	}
	c.log.Info().Str("nick", c.mediaNick(p.Handle)).Str("video", p.Item.ID).Float64("offset", p.Item.Offset).Msg("paused video")
	return nil
}

func (c *Client) onYutStop(_ context.Context, env proto.Envelope) error {
	var p proto.MediaPayload
	if err := env.Decode(&p); err != nil {
		c.log.Warn().Err(err).Msg("malformed yut_stop event")
		return nil
	}
	c.log.Info().Str("video", p.Item.ID).Msg("video stopped")
	return nil
}

func (c *Client) onIgnored(_ context.Context, _ proto.Envelope) error {
	return nil
}

// mediaNick resolves the display nick of a media event's originator.
func (c *Client) mediaNick(handle *int) string {
	if handle == nil || *handle == c.identity.Handle {
		return "n/a"
	}
	if u := c.users.Find(*handle); u != nil {
		return u.Nick
	}
	return "n/a"
}

func userFromEntry(e proto.UserEntry) roster.User {
	return roster.User{
		Handle:  e.Handle,
		Nick:    e.Nick,
		Account: e.Account,
		Mod:     e.Mod,
		Owner:   e.Owner,
	}
}
