package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is one discrete JSON message unit on the wire, tagged with the
// "tc" discriminator field. Raw keeps the full message so type-specific
// fields can be decoded once the discriminator has been inspected.
type Envelope struct {
	Type string
	Raw  json.RawMessage
}

// ErrNoDiscriminator is returned for frames missing the "tc" field.
var ErrNoDiscriminator = errors.New("proto: envelope has no tc discriminator")

func (e *Envelope) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"tc"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}
	if tag.Type == "" {
		return ErrNoDiscriminator
	}
	e.Type = tag.Type
	e.Raw = append(e.Raw[:0], data...)
	return nil
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return nil, errors.New("proto: empty envelope")
	}
	return e.Raw, nil
}

// Decode unmarshals the envelope's full payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// Inbound event discriminators.
const (
	EventPing              = "ping"
	EventClosed            = "closed"
	EventJoined            = "joined"
	EventRoomSettings      = "room_settings"
	EventUserList          = "userlist"
	EventJoin              = "join"
	EventNick              = "nick"
	EventQuit              = "quit"
	EventBan               = "ban"
	EventUnban             = "unban"
	EventBanList           = "banlistmsg"
	EventMsg               = "msg"
	EventPrivateMsg        = "pvtmsg"
	EventPublish           = "publish"
	EventUnpublish         = "unpublish"
	EventSysMsg            = "sysmsg"
	EventPassword          = "password"
	EventPendingModeration = "pending_moderation"
	EventModerAllow        = "stream_moder_allow"
	EventModerClose        = "stream_moder_close"
	EventCaptcha           = "captcha"
	EventYutPlaylist       = "yut_playlist"
	EventYutPlay           = "yut_play"
	EventYutPause          = "yut_pause"
	EventYutStop           = "yut_stop"
	EventIceServers        = "iceservers"
	EventSDP               = "sdp"
	EventStreamConnected   = "stream_connected"
	EventStreamClosed      = "stream_closed"
)
