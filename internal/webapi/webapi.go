// Package webapi talks to the chat service's HTTP side-channel: room
// connect-info, version lookup, account login and the public user lookup.
// Every operation returns its own error; none of them touch a running
// websocket session.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://tinychat.com"

// Client is the HTTP collaborator bundle. The zero value is not usable;
// construct with New.
type Client struct {
	http *http.Client
	base string
	log  zerolog.Logger
}

// New builds a collaborator client. baseURL may be empty for the default
// service. The underlying http.Client carries a cookie jar so a login
// session survives across calls.
func New(baseURL string, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		base: baseURL,
		log:  logger,
	}
}

// HTTPClient exposes the shared cookie-carrying client for collaborators
// built on top (account login).
func (c *Client) HTTPClient() *http.Client { return c.http }

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.base }

// ConnectInfo is the room metadata needed to open a session.
type ConnectInfo struct {
	Token    string `json:"result"`
	Endpoint string `json:"endpoint"`
}

// RoomConnectInfo fetches the join token and websocket endpoint for room.
func (c *Client) RoomConnectInfo(ctx context.Context, room string) (ConnectInfo, error) {
	var info ConnectInfo
	u := fmt.Sprintf("%s/api/v1.0/room/token/%s", c.base, url.PathEscape(room))
	if err := c.getJSON(ctx, u, &info); err != nil {
		return ConnectInfo{}, fmt.Errorf("room connect info: %w", err)
	}
	if info.Token == "" || info.Endpoint == "" {
		return ConnectInfo{}, fmt.Errorf("room connect info: incomplete response for %q", room)
	}
	return info, nil
}

var rtcVersionRe = regexp.MustCompile(`tinychat-client-webrtc-[^"'\s-]*-([0-9]+\.[0-9]+\.[0-9]+-[0-9]+)`)

// RTCVersion scrapes the protocol version from the room page. Returns an
// empty string when the page gives no version; callers fall back to a
// configured constant.
func (c *Client) RTCVersion(ctx context.Context, room string) (string, error) {
	u := fmt.Sprintf("%s/room/%s", c.base, url.PathEscape(room))
	body, err := c.getBody(ctx, u)
	if err != nil {
		return "", fmt.Errorf("rtc version: %w", err)
	}
	m := rtcVersionRe.FindSubmatch(body)
	if m == nil {
		return "", nil
	}
	return string(m[1]), nil
}

// UserInfo is the public profile summary of a registered account.
type UserInfo struct {
	ID         int   `json:"tinychat_id"`
	LastActive int64 `json:"last_active"`
}

// UserInfo looks up the numeric id and last-active timestamp of account.
func (c *Client) UserInfo(ctx context.Context, account string) (UserInfo, error) {
	var info UserInfo
	u := fmt.Sprintf("%s/api/tcinfo?username=%s", c.base, url.QueryEscape(account))
	if err := c.getJSON(ctx, u, &info); err != nil {
		return UserInfo{}, fmt.Errorf("user info %q: %w", account, err)
	}
	return info, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	body, err := c.getBody(ctx, u)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) getBody(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
