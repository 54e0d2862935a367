package client

import (
	"context"

	"github.com/oskli/tinyrtc/internal/proto"
)

// SendChat sends a chat message to the room.
func (c *Client) SendChat(ctx context.Context, text string) error {
	env, err := proto.Msg(text)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// SendPrivate sends a private message to the user behind handle.
func (c *Client) SendPrivate(ctx context.Context, handle int, text string) error {
	env, err := proto.PrivateMsg(handle, text)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// SetNick announces a new nickname for the client.
func (c *Client) SetNick(ctx context.Context, nick string) error {
	env, err := proto.Nick(nick)
	if err != nil {
		return err
	}
	if err := c.send(ctx, env); err != nil {
		return err
	}
	c.nick = nick
	return nil
}

// Kick removes a user from the room.
func (c *Client) Kick(ctx context.Context, handle int) error {
	env, err := proto.Kick(handle)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// Ban bans a user from the room. The roster mutation follows from the
// resulting ban event, not from this call.
func (c *Client) Ban(ctx context.Context, handle int) error {
	env, err := proto.Ban(handle)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// Unban lifts a ban by its server-issued id.
func (c *Client) Unban(ctx context.Context, banID int) error {
	env, err := proto.Unban(banID)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// RequestBanList asks for a fresh ban-list snapshot.
func (c *Client) RequestBanList(ctx context.Context) error {
	return c.send(ctx, proto.BanList())
}

// SendPassword submits the room password.
func (c *Client) SendPassword(ctx context.Context, password string) error {
	env, err := proto.Password(password)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// AllowBroadcast lets a green-room user start broadcasting.
func (c *Client) AllowBroadcast(ctx context.Context, handle int) error {
	env, err := proto.AllowBroadcast(handle)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// CloseBroadcast shuts down a user's broadcast.
func (c *Client) CloseBroadcast(ctx context.Context, handle int) error {
	env, err := proto.CloseBroadcast(handle)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// SendCaptchaToken submits a solved captcha response.
func (c *Client) SendCaptchaToken(ctx context.Context, token string) error {
	env, err := proto.Captcha(token)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// RequestPlaylist asks for the shared playlist.
func (c *Client) RequestPlaylist(ctx context.Context) error {
	return c.send(ctx, proto.YutPlaylist())
}

// AddPlaylistItem appends a video to the shared playlist.
func (c *Client) AddPlaylistItem(ctx context.Context, videoID string, duration float64, title, image string) error {
	env, err := proto.YutPlaylistAdd(videoID, duration, title, image)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// RemovePlaylistItem removes a video from the shared playlist.
func (c *Client) RemovePlaylistItem(ctx context.Context, videoID string, duration float64, title, image string) error {
	env, err := proto.YutPlaylistRemove(videoID, duration, title, image)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// SetPlaylistMode toggles the playlist's random/repeat behavior.
func (c *Client) SetPlaylistMode(ctx context.Context, random, repeat bool) error {
	return c.send(ctx, proto.YutPlaylistMode(random, repeat))
}

// PlayVideo starts a video, or seeks when offset is non-zero.
func (c *Client) PlayVideo(ctx context.Context, videoID string, duration float64, title string, offset float64) error {
	env, err := proto.YutPlay(videoID, duration, title, offset)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// PauseVideo pauses a video, or seeks while paused.
func (c *Client) PauseVideo(ctx context.Context, videoID string, duration, offset float64) error {
	env, err := proto.YutPause(videoID, duration, offset)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}

// StopVideo stops the playing video.
func (c *Client) StopVideo(ctx context.Context, videoID string, duration, offset float64) error {
	env, err := proto.YutStop(videoID, duration, offset)
	if err != nil {
		return err
	}
	return c.send(ctx, env)
}
