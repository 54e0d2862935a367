package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultAntiCaptchaURL = "https://api.anti-captcha.com"

// AntiCaptcha solves reCAPTCHA challenges through the anti-captcha task
// API: create a task, then poll for its result.
type AntiCaptcha struct {
	key  string
	base string
	http *http.Client
	log  zerolog.Logger

	// poll cadence, shortened in tests
	initialWait  time.Duration
	pollInterval time.Duration
}

// ErrCaptchaUnsolved is returned when the service reports a task error.
var ErrCaptchaUnsolved = errors.New("webapi: captcha task failed")

// NewAntiCaptcha builds a solver for the given API key. baseURL may be
// empty for the public service.
func NewAntiCaptcha(key, baseURL string, logger zerolog.Logger) *AntiCaptcha {
	if baseURL == "" {
		baseURL = defaultAntiCaptchaURL
	}
	return &AntiCaptcha{
		key:          key,
		base:         baseURL,
		http:         &http.Client{Timeout: 3 * time.Minute},
		log:          logger,
		initialWait:  10 * time.Second,
		pollInterval: 5 * time.Second,
	}
}

type captchaTask struct {
	Type       string `json:"type"`
	WebsiteURL string `json:"websiteURL"`
	WebsiteKey string `json:"websiteKey"`
}

type createTaskRequest struct {
	ClientKey    string      `json:"clientKey"`
	Task         captchaTask `json:"task"`
	SoftID       int         `json:"softId"`
	LanguagePool string      `json:"languagePool"`
}

type taskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           int64  `json:"taskId"`
	Status           string `json:"status"`
	Solution         struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
	} `json:"solution"`
}

// Balance returns the account's remaining credit.
func (a *AntiCaptcha) Balance(ctx context.Context) (float64, error) {
	var out struct {
		ErrorID int     `json:"errorId"`
		Balance float64 `json:"balance"`
	}
	if err := a.post(ctx, "/getBalance", map[string]any{"clientKey": a.key}, &out); err != nil {
		return 0, err
	}
	if out.ErrorID > 1 {
		return 0, ErrCaptchaUnsolved
	}
	return out.Balance, nil
}

// Solve submits a NoCaptcha proxyless task for siteKey on pageURL and polls
// until a solution token is available or ctx expires.
func (a *AntiCaptcha) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	var created taskResponse
	err := a.post(ctx, "/createTask", createTaskRequest{
		ClientKey:    a.key,
		Task:         captchaTask{Type: "NoCaptchaTaskProxyless", WebsiteURL: pageURL, WebsiteKey: siteKey},
		LanguagePool: "en",
	}, &created)
	if err != nil {
		return "", err
	}
	if created.ErrorID > 1 {
		return "", fmt.Errorf("%w: %s", ErrCaptchaUnsolved, created.ErrorDescription)
	}

	a.log.Debug().Int64("task_id", created.TaskID).Msg("captcha task created")
	if err := sleepCtx(ctx, a.initialWait); err != nil {
		return "", err
	}

	for {
		var result taskResponse
		err := a.post(ctx, "/getTaskResult", map[string]any{
			"clientKey": a.key,
			"taskId":    created.TaskID,
		}, &result)
		if err != nil {
			return "", err
		}
		switch {
		case result.ErrorID > 1:
			return "", fmt.Errorf("%w: %s", ErrCaptchaUnsolved, result.ErrorDescription)
		case result.Status == "processing":
			if err := sleepCtx(ctx, a.pollInterval); err != nil {
				return "", err
			}
		default:
			return result.Solution.GRecaptchaResponse, nil
		}
	}
}

func (a *AntiCaptcha) post(ctx context.Context, path string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("anti-captcha %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("anti-captcha %s: decode: %w", path, err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
