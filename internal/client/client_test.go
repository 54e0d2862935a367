package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/oskli/tinyrtc/internal/config"
	"github.com/oskli/tinyrtc/internal/proto"
)

type fakeTransport struct {
	sent   []proto.Envelope
	closed bool
	code   websocket.StatusCode
}

func (f *fakeTransport) Send(_ context.Context, env proto.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeTransport) Receive(ctx context.Context) (proto.Envelope, error) {
	<-ctx.Done()
	return proto.Envelope{}, ctx.Err()
}

func (f *fakeTransport) Close(code websocket.StatusCode, _ string) error {
	f.closed = true
	f.code = code
	return nil
}

func (f *fakeTransport) sentTypes() []string {
	types := make([]string, 0, len(f.sent))
	for _, env := range f.sent {
		types = append(types, env.Type)
	}
	return types
}

func newTestClient(t *testing.T) (*Client, *fakeTransport, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	logger := zerolog.New(buf)

	c := New("testroom", config.Default(), Deps{Logger: logger})
	ft := &fakeTransport{}
	c.sess = ft
	return c, ft, buf
}

func event(t *testing.T, raw string) proto.Envelope {
	t.Helper()

	var env proto.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("bad test event %s: %v", raw, err)
	}
	return env
}

func mustDispatch(t *testing.T, c *Client, raw string) {
	t.Helper()

	if err := c.dispatch(context.Background(), event(t, raw)); err != nil {
		t.Fatalf("dispatch %s: %v", raw, err)
	}
}

func TestJoinLifecycleScenario(t *testing.T) {
	c, ft, buf := newTestClient(t)

	// Client joins as a plain user: identity captured, no banlist request.
	mustDispatch(t, c, `{"tc":"joined","self":{"handle":7,"mod":false,"owner":false}}`)
	if c.Identity().Handle != 7 || c.Identity().Moderator {
		t.Fatalf("identity not captured: %+v", c.Identity())
	}
	if len(ft.sent) != 0 {
		t.Fatalf("non-moderator requested banlist: %v", ft.sentTypes())
	}

	// A lurker joins.
	mustDispatch(t, c, `{"tc":"join","handle":9,"nick":"bob","account":null}`)
	u := c.Roster().Find(9)
	if u == nil {
		t.Fatalf("handle 9 missing after join")
	}
	if u.Role().String() != "lurker" {
		t.Fatalf("expected lurker, got %v", u.Role())
	}

	// The lurker quits; handle 9 is gone.
	mustDispatch(t, c, `{"tc":"quit","handle":9}`)
	if c.Roster().Find(9) != nil {
		t.Fatalf("handle 9 still present after quit")
	}

	// A nick change for the departed handle is a logged anomaly, nothing
	// more.
	before := c.Roster().Len()
	mustDispatch(t, c, `{"tc":"nick","handle":9,"nick":"x"}`)
	if c.Roster().Len() != before {
		t.Fatalf("stale nick event mutated the roster")
	}
	if got := strings.Count(buf.String(), "stale reference"); got != 1 {
		t.Fatalf("expected exactly one anomaly report, got %d", got)
	}
}

func TestJoinedAsModeratorRequestsBanList(t *testing.T) {
	c, ft, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"joined","self":{"handle":3,"nick":"modnick","mod":true,"owner":false}}`)
	if !c.Identity().Moderator {
		t.Fatalf("moderator flag not captured")
	}
	if types := ft.sentTypes(); len(types) != 1 || types[0] != "banlist" {
		t.Fatalf("expected a banlist request, got %v", types)
	}
}

func TestJoinedWithoutSelfIsProtocolViolation(t *testing.T) {
	c, _, _ := newTestClient(t)

	err := c.dispatch(context.Background(), event(t, `{"tc":"joined","room":{}}`))
	var violation *ProtocolViolationError
	if err == nil || !strings.Contains(err.Error(), "self") {
		t.Fatalf("expected protocol violation, got %v", err)
	}
	if !errors.As(err, &violation) {
		t.Fatalf("expected *ProtocolViolationError, got %T", err)
	}
}

func TestUserListSkipsSelfAndIsIdempotent(t *testing.T) {
	c, _, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"joined","self":{"handle":1,"mod":false,"owner":false}}`)

	snapshot := `{"tc":"userlist","users":[
		{"handle":1,"nick":"me"},
		{"handle":2,"nick":"alice","account":"alice1","mod":true},
		{"handle":3,"nick":"bob"}]}`

	mustDispatch(t, c, snapshot)
	first := rosterHandles(c)

	mustDispatch(t, c, snapshot)
	second := rosterHandles(c)

	if len(first) != len(second) {
		t.Fatalf("userlist re-application changed roster: %v vs %v", first, second)
	}
	// Self entry from the snapshot was skipped; the joined event already
	// recorded the client itself.
	if c.Roster().Find(2) == nil || c.Roster().Find(3) == nil {
		t.Fatalf("snapshot entries missing: %v", second)
	}
	if self := c.Roster().Find(1); self != nil && self.Nick == "me" {
		t.Fatalf("self entry overwritten from snapshot")
	}
}

func TestPingAnswersWithPong(t *testing.T) {
	c, ft, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"ping"}`)
	if types := ft.sentTypes(); len(types) != 1 || types[0] != "pong" {
		t.Fatalf("expected a pong, got %v", types)
	}
}

func TestClosedSurfacesReason(t *testing.T) {
	c, _, _ := newTestClient(t)

	err := c.dispatch(context.Background(), event(t, `{"tc":"closed","error":4}`))
	var closeErr *proto.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected CloseError, got %v", err)
	}
	if closeErr.Code != proto.CloseBanned || !strings.Contains(closeErr.Error(), "banned") {
		t.Fatalf("unexpected close error: %v", closeErr)
	}
}

func TestUnknownEventDoesNotAbort(t *testing.T) {
	c, _, buf := newTestClient(t)

	if err := c.dispatch(context.Background(), event(t, `{"tc":"totally_new_event","x":1}`)); err != nil {
		t.Fatalf("unknown event returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "unhandled event") {
		t.Fatalf("unknown event not reported")
	}
}

func TestChatFiltersSelfEchoAndStampsTime(t *testing.T) {
	c, _, buf := newTestClient(t)

	mustDispatch(t, c, `{"tc":"joined","self":{"handle":7,"mod":false,"owner":false}}`)
	mustDispatch(t, c, `{"tc":"join","handle":9,"nick":"bob"}`)

	mustDispatch(t, c, `{"tc":"msg","handle":9,"text":"hi\nthere"}`)
	u := c.Roster().Find(9)
	if u.LastMessageAt.IsZero() {
		t.Fatalf("last message time not stamped")
	}
	if !strings.Contains(buf.String(), "hi there") {
		t.Fatalf("newlines not collapsed in chat log")
	}

	stamp := u.LastMessageAt
	mustDispatch(t, c, `{"tc":"msg","handle":7,"text":"own echo"}`)
	if strings.Contains(buf.String(), "own echo") {
		t.Fatalf("self echo was not filtered")
	}
	if u.LastMessageAt != stamp {
		t.Fatalf("self echo stamped a foreign user")
	}
}

func TestPrivateMessageFromUnknownHandle(t *testing.T) {
	c, _, buf := newTestClient(t)

	mustDispatch(t, c, `{"tc":"joined","self":{"handle":7,"mod":false,"owner":false}}`)
	mustDispatch(t, c, `{"tc":"pvtmsg","handle":55,"text":"who am i"}`)
	if !strings.Contains(buf.String(), "stale reference") {
		t.Fatalf("unknown sender not reported as anomaly")
	}
}

func TestPublishTogglesAndClearsGreenRoomWait(t *testing.T) {
	c, _, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"join","handle":4,"nick":"cam"}`)
	mustDispatch(t, c, `{"tc":"pending_moderation","handle":4}`)

	if !c.Room().GreenRoom {
		t.Fatalf("pending moderation should imply green room")
	}
	u := c.Roster().Find(4)
	if !u.Waiting {
		t.Fatalf("user not marked waiting")
	}

	mustDispatch(t, c, `{"tc":"publish","handle":4}`)
	if !u.Broadcasting || u.Waiting {
		t.Fatalf("publish must set broadcasting and clear waiting: %+v", u)
	}

	mustDispatch(t, c, `{"tc":"unpublish","handle":4}`)
	if u.Broadcasting {
		t.Fatalf("unpublish did not clear broadcasting")
	}
}

func TestBanListSnapshotReplaces(t *testing.T) {
	c, _, buf := newTestClient(t)

	mustDispatch(t, c, `{"tc":"ban","success":true,"id":100,"handle":9,"nick":"bad"}`)
	if got := len(c.Roster().Banned()); got != 1 {
		t.Fatalf("ban event not recorded: %d", got)
	}

	mustDispatch(t, c, `{"tc":"banlistmsg","success":true,"items":[
		{"id":200,"nick":"one"},{"id":201,"nick":"two"}]}`)
	banned := c.Roster().Banned()
	if len(banned) != 2 || banned[0].ID != 200 || banned[1].ID != 201 {
		t.Fatalf("snapshot did not replace the set: %+v", banned)
	}

	// A failed snapshot leaves the set unchanged and surfaces the reason.
	mustDispatch(t, c, `{"tc":"banlistmsg","success":false,"reason":"not a moderator"}`)
	if got := len(c.Roster().Banned()); got != 2 {
		t.Fatalf("failed snapshot mutated the set: %d", got)
	}
	if !strings.Contains(buf.String(), "not a moderator") {
		t.Fatalf("failure reason not surfaced")
	}
}

func TestUnbanRemovesRecord(t *testing.T) {
	c, _, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"ban","success":true,"id":100,"nick":"bad"}`)
	mustDispatch(t, c, `{"tc":"unban","success":true,"id":100,"nick":"bad"}`)
	if got := len(c.Roster().Banned()); got != 0 {
		t.Fatalf("unban left %d records", got)
	}
}

func TestSysMsgTogglesGreenRoom(t *testing.T) {
	c, _, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"sysmsg","text":"green room enabled"}`)
	if !c.Room().GreenRoom {
		t.Fatalf("green room not enabled")
	}
	mustDispatch(t, c, `{"tc":"sysmsg","text":"green room disabled"}`)
	if c.Room().GreenRoom {
		t.Fatalf("green room not disabled")
	}
}

func TestSysMsgBanTriggersBanListRefresh(t *testing.T) {
	c, ft, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"joined","self":{"handle":3,"mod":true,"owner":false}}`)
	ft.sent = nil

	mustDispatch(t, c, `{"tc":"sysmsg","text":"bob was banned by modnick"}`)
	if types := ft.sentTypes(); len(types) != 1 || types[0] != "banlist" {
		t.Fatalf("moderator did not refresh banlist: %v", types)
	}
}

func TestYutPlayStartVsSeek(t *testing.T) {
	c, _, buf := newTestClient(t)

	mustDispatch(t, c, `{"tc":"join","handle":4,"nick":"dj"}`)

	mustDispatch(t, c, `{"tc":"yut_play","handle":4,"item":{"id":"v1","duration":100,"offset":0,"title":"tune"}}`)
	if !strings.Contains(buf.String(), "started video") {
		t.Fatalf("offset 0 not classified as start")
	}

	mustDispatch(t, c, `{"tc":"yut_play","handle":4,"item":{"id":"v1","duration":100,"offset":33.5}}`)
	if !strings.Contains(buf.String(), "seeked video") {
		t.Fatalf("positive offset not classified as seek")
	}
}

func TestReservedMediaEventsAreSilent(t *testing.T) {
	c, ft, buf := newTestClient(t)

	for _, raw := range []string{
		`{"tc":"iceservers"}`,
		`{"tc":"sdp"}`,
		`{"tc":"stream_connected"}`,
		`{"tc":"stream_closed"}`,
	} {
		mustDispatch(t, c, raw)
	}
	if len(ft.sent) != 0 || strings.Contains(buf.String(), "unhandled") {
		t.Fatalf("reserved events must be registered no-ops")
	}
}

func TestRoomSettingsSnapshot(t *testing.T) {
	c, _, _ := newTestClient(t)

	mustDispatch(t, c, `{"tc":"room_settings","room":{"name":"testroom","greenroom":true}}`)
	if c.Room().Settings["name"] != "testroom" {
		t.Fatalf("settings snapshot not stored: %+v", c.Room().Settings)
	}
}

func TestSupportedEventsEnumerable(t *testing.T) {
	c, _, _ := newTestClient(t)

	events := c.SupportedEvents()
	for _, want := range []string{"ping", "closed", "joined", "userlist", "join",
		"nick", "quit", "ban", "unban", "banlistmsg", "msg", "pvtmsg",
		"publish", "unpublish", "sysmsg", "pending_moderation", "captcha",
		"yut_play", "sdp"} {
		if !containsString(events, want) {
			t.Errorf("supported events missing %q", want)
		}
	}
}

func TestDisconnectResetsCounterAndCloses(t *testing.T) {
	c, ft, _ := newTestClient(t)

	if err := c.SendChat(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := c.seq.Load(); got != 2 {
		t.Fatalf("request counter = %d, want 2", got)
	}

	if err := c.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if !ft.closed {
		t.Fatalf("disconnect did not close the session")
	}
	if got := c.seq.Load(); got != 1 {
		t.Fatalf("request counter not reset: %d", got)
	}
}

func rosterHandles(c *Client) []int {
	var handles []int
	for u := range c.Roster().All() {
		handles = append(handles, u.Handle)
	}
	return handles
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
