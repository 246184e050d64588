// Package apiclient is a fasthttp client for the arbiter HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-arbiter/pkg/chessdto"
)

const actorHeader = "X-Actor-Id"

// HeaderProvider injects per-request headers.
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider
	actor   string

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithActor sends id as the caller identity on every request.
func WithActor(id string) Option {
	return func(c *Client) { c.actor = strings.TrimSpace(id) }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the transport dialer, e.g. with an in-memory listener.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx reply.
type APIError struct {
	Status int
	chessdto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("arbiter api error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

// Actor returns a copy of c that identifies as id.
func (c *Client) Actor(id string) *Client {
	cp := *c
	cp.actor = strings.TrimSpace(id)
	return &cp
}

func (c *Client) CreateGame(ctx context.Context) (*chessdto.CreateGameResponse, error) {
	var out chessdto.CreateGameResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/v1/games", nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Join(ctx context.Context, id uint64, secret string) (*chessdto.GameView, error) {
	var out chessdto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "join"), chessdto.JoinRequest{Secret: secret}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Move(ctx context.Context, id uint64, move string) (*chessdto.GameView, error) {
	var out chessdto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "moves"), chessdto.MoveRequest{Move: move}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Resign(ctx context.Context, id uint64) (*chessdto.GameView, error) {
	var out chessdto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodPost, gamePath(id, "resign"), nil, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Game(ctx context.Context, id uint64) (*chessdto.GameView, error) {
	var out chessdto.GameView
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, ""), nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context, offset, limit int) (*chessdto.ListResponse, error) {
	var out chessdto.ListResponse
	path := "/v1/games?offset=" + strconv.Itoa(offset) + "&limit=" + strconv.Itoa(limit)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Role(ctx context.Context, id uint64) (string, error) {
	var out chessdto.RoleResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, gamePath(id, "role"), nil, &out, true); err != nil {
		return "", err
	}
	return out.Role, nil
}

func (c *Client) PGN(ctx context.Context, id uint64) (string, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, gamePath(id, "pgn"), nil, true)
	return string(body), err
}

// BoardPNG fetches the rendered board. orientation "black" draws it from black's side.
func (c *Client) BoardPNG(ctx context.Context, id uint64, orientation string) ([]byte, error) {
	path := gamePath(id, "board.png")
	if orientation != "" {
		path += "?orientation=" + url.QueryEscape(orientation)
	}
	return c.do(ctx, fasthttp.MethodGet, path, nil, true)
}

func gamePath(id uint64, action string) string {
	p := "/v1/games/" + strconv.FormatUint(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any, retry bool) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}
	body, err := c.do(ctx, method, path, payload, retry)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// do sends the request, retrying transport errors and 5xx replies when retry is set.
func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.actor != "" {
		req.Header.Set(actorHeader, c.actor)
	}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if payload != nil {
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			var env chessdto.ErrorResponse
			if json.Unmarshal(resp.Body(), &env) == nil && env.Error.Code != "" {
				apiErr.DomainError = env.Error
			} else {
				apiErr.Message = truncate(string(resp.Body()), 512)
			}
			if !shouldRetryStatus(status) {
				return nil, apiErr
			}
			lastErr = apiErr
		} else {
			return append([]byte(nil), resp.Body()...), nil
		}

		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return nil, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
