package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TokenSource returns the bearer token for the backend. An empty token
// means the request goes out unauthenticated.
type TokenSource func() (string, error)

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	RatePerSec float64
	Burst      int
	Token      TokenSource
	HTTPClient *http.Client
}

// Client talks to the lead-management REST backend. Every endpoint wraps
// its payload in {"success":bool,"message":string,"data":...}.
type Client struct {
	base    *url.URL
	hc      *http.Client
	limiter *HostLimiter
	ua      string
	token   TokenSource
}

type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", cfg.BaseURL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "leaddesk-engine/1.0 (+local)"
	}
	return &Client{
		base:    base,
		hc:      hc,
		limiter: NewHostLimiter(cfg.RatePerSec, cfg.Burst),
		ua:      ua,
		token:   cfg.Token,
	}, nil
}

func (c *Client) endpoint(path, rawQuery string) string {
	u := *c.base
	escaped := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(path, "/")
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path = unescaped
		u.RawPath = escaped
	}
	u.RawQuery = rawQuery
	return u.String()
}

// do performs one request and decodes the envelope's data into out (when
// out is non-nil). It never retries.
func (c *Client) do(ctx context.Context, op, method, path, rawQuery string, out any) error {
	target := c.endpoint(path, rawQuery)

	if err := c.limiter.WaitURL(ctx, target); err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != nil {
		tok, err := c.token()
		if err == nil && strings.TrimSpace(tok) != "" {
			req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(tok))
		}
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := ""
		if decodeErr == nil {
			msg = firstNonEmpty(env.Message, env.Error)
		}
		return &ServerError{Op: op, Status: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if env.Success != nil && !*env.Success {
		return &ServerError{Op: op, Status: res.StatusCode, Message: firstNonEmpty(env.Message, env.Error)}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if s := strings.TrimSpace(x); s != "" {
			return s
		}
	}
	return ""
}

// IsCanceled reports whether err came from the caller giving up rather
// than from the backend.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
