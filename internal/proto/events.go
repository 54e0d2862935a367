package proto

// UserEntry describes a room participant as reported by the server, either
// inside a userlist snapshot or as a standalone join event.
type UserEntry struct {
	Handle  int    `json:"handle"`
	Nick    string `json:"nick"`
	Account string `json:"account"`
	Mod     bool   `json:"mod"`
	Owner   bool   `json:"owner"`
}

// JoinedPayload confirms the client's own entry into the room. Self is
// structurally mandatory; Room is an informational snapshot.
type JoinedPayload struct {
	Self *UserEntry     `json:"self"`
	Room map[string]any `json:"room"`
}

// RoomSettingsPayload reports a change on the room's settings page.
type RoomSettingsPayload struct {
	Room map[string]any `json:"room"`
}

// UserListPayload is the roster snapshot received upon joining.
type UserListPayload struct {
	Users []UserEntry `json:"users"`
}

// NickPayload reports a nickname change.
type NickPayload struct {
	Handle int    `json:"handle"`
	Nick   string `json:"nick"`
}

// QuitPayload reports a user leaving the room.
type QuitPayload struct {
	Handle int `json:"handle"`
}

// HandlePayload carries just a user handle (publish, unpublish,
// pending_moderation, stream_moder_allow).
type HandlePayload struct {
	Handle int `json:"handle"`
}

// BanPayload reports the outcome of a ban issued by the client.
type BanPayload struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	ID      int    `json:"id"`
	Handle  int    `json:"handle"`
	Nick    string `json:"nick"`
	Account string `json:"account"`
}

// UnbanPayload reports the outcome of an un-ban issued by the client.
type UnbanPayload struct {
	Success bool   `json:"success"`
	ID      int    `json:"id"`
	Nick    string `json:"nick"`
}

// BanListPayload is a ban-list snapshot. Items is only meaningful when
// Success is true.
type BanListPayload struct {
	Success bool      `json:"success"`
	Reason  string    `json:"reason"`
	Items   []BanItem `json:"items"`
}

// BanItem is one entry of a ban-list snapshot, keyed by the server-issued
// ban id rather than the live handle.
type BanItem struct {
	ID      int    `json:"id"`
	Handle  int    `json:"handle"`
	Nick    string `json:"nick"`
	Account string `json:"account"`
}

// MsgPayload is a chat or private message.
type MsgPayload struct {
	Handle int    `json:"handle"`
	Text   string `json:"text"`
}

// SysMsgPayload is a free-text system notice.
type SysMsgPayload struct {
	Text string `json:"text"`
}

// ModerClosePayload acknowledges a broadcast-close request.
type ModerClosePayload struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
	Handle  int    `json:"handle"`
}

// CaptchaPayload carries the site key of a captcha challenge.
type CaptchaPayload struct {
	Key string `json:"key"`
}

// ClosedPayload carries the server's close code.
type ClosedPayload struct {
	Code int `json:"error"`
}

// MediaItem describes a shared media item (playlist entry or the currently
// playing video).
type MediaItem struct {
	ID       string  `json:"id"`
	Duration float64 `json:"duration"`
	Offset   float64 `json:"offset"`
	Title    string  `json:"title"`
	Image    string  `json:"image,omitempty"`
}

// MediaPayload is a yut_play/yut_pause/yut_stop event. Handle is absent on
// events not attributable to a user.
type MediaPayload struct {
	Handle *int      `json:"handle"`
	Item   MediaItem `json:"item"`
}

// MediaPlaylistPayload is a playlist snapshot.
type MediaPlaylistPayload struct {
	Success bool        `json:"success"`
	Reason  string      `json:"reason"`
	Items   []MediaItem `json:"items"`
}
