// Package gateway is a thin authenticated client for a PostgREST-style
// hosted data platform: table queries, named serverless functions and
// realtime row-change subscriptions.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	auth       *Auth
}

// Auth holds the current bearer token. Safe for concurrent use.
type Auth struct {
	mu    sync.RWMutex
	token string
}

func (a *Auth) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		auth:       &Auth{},
	}
}

func (c *Client) Auth() *Auth { return c.auth }

// Error is a non-2xx platform response.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Message)
}

type functionEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Invoke calls a named serverless function with a JSON body and bearer
// token, returning the data half of the {data, error} envelope.
func (c *Client) Invoke(ctx context.Context, fn string, body interface{}, bearer string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode function body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/functions/v1/%s", c.baseURL, fn), &buf)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, raw)
	}

	var envelope functionEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		// Not every function wraps its payload; treat the body as data.
		return raw, nil
	}
	if envelope.Error != "" {
		return nil, &Error{Status: resp.StatusCode, Message: envelope.Error}
	}
	if envelope.Data != nil {
		return envelope.Data, nil
	}
	return raw, nil
}

func (c *Client) setHeaders(req *http.Request, bearer string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer == "" {
		bearer = c.auth.Token()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

func newError(status int, body []byte) *Error {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Error != "" {
			msg = parsed.Error
		}
	}
	return &Error{Status: status, Message: msg}
}
