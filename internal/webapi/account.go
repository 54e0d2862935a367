package webapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Account performs token-based login against the service's HTML login
// flow. The CSRF token is scraped from the sign-in page before the POST;
// the resulting auth cookies live in the shared cookie jar.
type Account struct {
	name     string
	password string
	api      *Client
	token    string
}

// ErrBadCredentials is returned when a login POST does not produce an auth
// cookie.
var ErrBadCredentials = errors.New("webapi: login rejected")

// NewAccount binds credentials to the collaborator client's HTTP session.
func NewAccount(name, password string, api *Client) *Account {
	return &Account{name: name, password: password, api: api}
}

// Name returns the account name.
func (a *Account) Name() string { return a.name }

// Login fetches a CSRF token if needed and posts the credential form.
func (a *Account) Login(ctx context.Context) error {
	if a.token == "" {
		if err := a.fetchToken(ctx); err != nil {
			return err
		}
	}

	form := url.Values{
		"login_username": {a.name},
		"login_password": {a.password},
		"remember":       {"1"},
		"next":           {a.api.BaseURL() + "/"},
		"_token":         {a.token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.api.BaseURL()+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.api.HTTPClient().Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	resp.Body.Close()

	if !a.LoggedIn() {
		return ErrBadCredentials
	}
	return nil
}

// LoggedIn checks for an unexpired auth cookie in the jar.
func (a *Account) LoggedIn() bool {
	base, err := url.Parse(a.api.BaseURL())
	if err != nil {
		return false
	}
	for _, c := range a.api.HTTPClient().Jar.Cookies(base) {
		if c.Name == "pass" {
			return true
		}
	}
	return false
}

// Logout expires the auth cookies.
func (a *Account) Logout() {
	base, err := url.Parse(a.api.BaseURL())
	if err != nil {
		return
	}
	expired := make([]*http.Cookie, 0, 3)
	for _, name := range []string{"user", "pass", "hash"} {
		expired = append(expired, &http.Cookie{
			Name:    name,
			Value:   "",
			Expires: time.Unix(0, 0),
			MaxAge:  -1,
		})
	}
	a.api.HTTPClient().Jar.SetCookies(base, expired)
	a.token = ""
}

func (a *Account) fetchToken(ctx context.Context) error {
	body, err := a.api.getBody(ctx, a.api.BaseURL()+"/start?#signin")
	if err != nil {
		return fmt.Errorf("fetch csrf token: %w", err)
	}
	token := csrfToken(body)
	if token == "" {
		return errors.New("webapi: csrf token not found on sign-in page")
	}
	a.token = token
	return nil
}

// csrfToken finds <meta name="csrf-token" content="..."> in an HTML page.
func csrfToken(page []byte) string {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return ""
	}
	var token string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if token != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "meta" {
			var name, content string
			for _, attr := range n.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if name == "csrf-token" {
				token = content
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return token
}
