package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingParam is wrapped by command builders when a required parameter
// is absent.
var ErrMissingParam = errors.New("proto: missing parameter")

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParam, name)
}

func seal(tc string, v any) (Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s command: %w", tc, err)
	}
	return Envelope{Type: tc, Raw: raw}, nil
}

// Pong answers an application-level ping event. This is distinct from the
// transport-level keepalive ping.
func Pong() Envelope {
	env, _ := seal("pong", struct {
		TC string `json:"tc"`
	}{"pong"})
	return env
}

// Join builds the initial connect message sent right after the websocket
// handshake.
func Join(token, room, nick, useragent string) (Envelope, error) {
	switch {
	case token == "":
		return Envelope{}, missing("token")
	case room == "":
		return Envelope{}, missing("room")
	case nick == "":
		return Envelope{}, missing("nick")
	}
	return seal(EventJoin, struct {
		TC        string `json:"tc"`
		Useragent string `json:"useragent"`
		Token     string `json:"token"`
		Room      string `json:"room"`
		Nick      string `json:"nick"`
	}{EventJoin, useragent, token, room, nick})
}

// Nick builds a nickname change command.
func Nick(nick string) (Envelope, error) {
	if nick == "" {
		return Envelope{}, missing("nick")
	}
	return seal(EventNick, struct {
		TC   string `json:"tc"`
		Nick string `json:"nick"`
	}{EventNick, nick})
}

// Msg builds a room chat message.
func Msg(text string) (Envelope, error) {
	if text == "" {
		return Envelope{}, missing("text")
	}
	return seal(EventMsg, struct {
		TC   string `json:"tc"`
		Text string `json:"text"`
	}{EventMsg, text})
}

// PrivateMsg builds a private message to the user behind handle.
func PrivateMsg(handle int, text string) (Envelope, error) {
	if text == "" {
		return Envelope{}, missing("text")
	}
	if handle <= 0 {
		return Envelope{}, missing("handle")
	}
	return seal(EventPrivateMsg, struct {
		TC     string `json:"tc"`
		Text   string `json:"text"`
		Handle int    `json:"handle"`
	}{EventPrivateMsg, text, handle})
}

// Kick builds a kick command for the user behind handle.
func Kick(handle int) (Envelope, error) {
	if handle <= 0 {
		return Envelope{}, missing("handle")
	}
	return seal("kick", struct {
		TC     string `json:"tc"`
		Handle int    `json:"handle"`
	}{"kick", handle})
}

// Ban builds a ban command for the user behind handle.
func Ban(handle int) (Envelope, error) {
	if handle <= 0 {
		return Envelope{}, missing("handle")
	}
	return seal(EventBan, struct {
		TC     string `json:"tc"`
		Handle int    `json:"handle"`
	}{EventBan, handle})
}

// Unban builds an un-ban command for a server-issued ban id.
func Unban(banID int) (Envelope, error) {
	if banID <= 0 {
		return Envelope{}, missing("ban id")
	}
	return seal(EventUnban, struct {
		TC string `json:"tc"`
		ID int    `json:"id"`
	}{EventUnban, banID})
}

// BanList builds a ban-list request.
func BanList() Envelope {
	env, _ := seal("banlist", struct {
		TC string `json:"tc"`
	}{"banlist"})
	return env
}

// Password builds a room password submission.
func Password(password string) (Envelope, error) {
	if password == "" {
		return Envelope{}, missing("password")
	}
	return seal(EventPassword, struct {
		TC       string `json:"tc"`
		Password string `json:"password"`
	}{EventPassword, password})
}

// AllowBroadcast permits a green-room user to broadcast.
func AllowBroadcast(handle int) (Envelope, error) {
	if handle <= 0 {
		return Envelope{}, missing("handle")
	}
	return seal(EventModerAllow, struct {
		TC     string `json:"tc"`
		Handle int    `json:"handle"`
	}{EventModerAllow, handle})
}

// CloseBroadcast closes a user's running broadcast.
func CloseBroadcast(handle int) (Envelope, error) {
	if handle <= 0 {
		return Envelope{}, missing("handle")
	}
	return seal(EventModerClose, struct {
		TC     string `json:"tc"`
		Handle int    `json:"handle"`
	}{EventModerClose, handle})
}

// Captcha submits a solved captcha response token.
func Captcha(token string) (Envelope, error) {
	if token == "" {
		return Envelope{}, missing("token")
	}
	return seal(EventCaptcha, struct {
		TC    string `json:"tc"`
		Token string `json:"token"`
	}{EventCaptcha, token})
}

// YutPlaylist builds a playlist request.
func YutPlaylist() Envelope {
	env, _ := seal(EventYutPlaylist, struct {
		TC string `json:"tc"`
	}{EventYutPlaylist})
	return env
}

type playlistItem struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration"`
	Title    string  `json:"title"`
	Image    string  `json:"image"`
}

// YutPlaylistAdd adds a video to the shared playlist.
func YutPlaylistAdd(videoID string, duration float64, title, image string) (Envelope, error) {
	if videoID == "" {
		return Envelope{}, missing("video id")
	}
	return seal("yut_playlist_add", struct {
		TC   string       `json:"tc"`
		Item playlistItem `json:"item"`
	}{"yut_playlist_add", playlistItem{videoID, duration, title, image}})
}

// YutPlaylistRemove removes a video from the shared playlist.
func YutPlaylistRemove(videoID string, duration float64, title, image string) (Envelope, error) {
	if videoID == "" {
		return Envelope{}, missing("video id")
	}
	return seal("yut_playlist_remove", struct {
		TC   string       `json:"tc"`
		Item playlistItem `json:"item"`
	}{"yut_playlist_remove", playlistItem{videoID, duration, title, image}})
}

type playlistMode struct {
	Random bool `json:"random"`
	Repeat bool `json:"repeat"`
}

// YutPlaylistMode sets the playlist's random/repeat mode.
func YutPlaylistMode(random, repeat bool) Envelope {
	env, _ := seal("yut_playlist_mode", struct {
		TC   string       `json:"tc"`
		Mode playlistMode `json:"mode"`
	}{"yut_playlist_mode", playlistMode{random, repeat}})
	return env
}

// mediaStartItem is the item shape for starting a video from the top.
type mediaStartItem struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration"`
	Offset   float64 `json:"offset"`
	Title    string  `json:"title"`
}

// mediaSeekItem is the item shape for seeking into a playing video: no
// title, playlist/seek flags instead.
type mediaSeekItem struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration"`
	Offset   float64 `json:"offset"`
	Playlist bool    `json:"playlist"`
	Seek     bool    `json:"seek"`
}

type mediaOffsetItem struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration"`
	Offset   float64 `json:"offset"`
}

// YutPlay starts a video, or seeks into it when offset is non-zero. The two
// cases have different envelope shapes on the wire; the tie-break is exact
// numeric equality with zero, not an epsilon comparison.
func YutPlay(videoID string, duration float64, title string, offset float64) (Envelope, error) {
	if videoID == "" {
		return Envelope{}, missing("video id")
	}
	if offset != 0 {
		return seal(EventYutPlay, struct {
			TC   string        `json:"tc"`
			Item mediaSeekItem `json:"item"`
		}{EventYutPlay, mediaSeekItem{ID: videoID, Duration: duration, Offset: offset, Playlist: false, Seek: true}})
	}
	return seal(EventYutPlay, struct {
		TC   string         `json:"tc"`
		Item mediaStartItem `json:"item"`
	}{EventYutPlay, mediaStartItem{ID: videoID, Duration: duration, Offset: 0, Title: title}})
}

// YutPause pauses a video, or seeks while paused.
func YutPause(videoID string, duration, offset float64) (Envelope, error) {
	if videoID == "" {
		return Envelope{}, missing("video id")
	}
	return seal(EventYutPause, struct {
		TC   string          `json:"tc"`
		Item mediaOffsetItem `json:"item"`
	}{EventYutPause, mediaOffsetItem{videoID, duration, offset}})
}

// YutStop stops the currently playing video.
func YutStop(videoID string, duration, offset float64) (Envelope, error) {
	if videoID == "" {
		return Envelope{}, missing("video id")
	}
	return seal(EventYutStop, struct {
		TC   string          `json:"tc"`
		Item mediaOffsetItem `json:"item"`
	}{EventYutStop, mediaOffsetItem{videoID, duration, offset}})
}
