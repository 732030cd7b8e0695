// Package solverclient talks to a running gifsolver HTTP server.
package solverclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/chess-gif-solver/pkg/solverdto"
)

// solveSlack is added to the search budget when waiting for POST /api/solve.
const solveSlack = 30 * time.Second

// APIError is a non-2xx response. DomainError is filled when the body carried one.
type APIError struct {
	Status int
	solverdto.DomainError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("solver api: status=%d code=%s: %s", e.Status, e.Code, truncate(e.Message, 512))
}

type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

// WithDial replaces the network dialer, for in-memory listeners.
func WithDial(dial func(addr string) (net.Conn, error)) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Minute, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 8},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (*solverdto.HealthResponse, error) {
	var out solverdto.HealthResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/healthz", nil, &out, true, c.defaultTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Board(ctx context.Context) (*solverdto.BoardState, error) {
	var out solverdto.BoardState
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/board", nil, &out, true, c.defaultTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LoadBoard(ctx context.Context, placement string) (*solverdto.BoardState, error) {
	var out solverdto.BoardState
	req := solverdto.LoadBoardRequest{Placement: placement}
	if err := c.doJSON(ctx, fasthttp.MethodPut, "/api/board", req, &out, false, c.defaultTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// Solve retries only while the server reports a solve already in progress; an engine
// failure is returned after the first attempt. A zero budget uses the server default.
func (c *Client) Solve(ctx context.Context, budget time.Duration) (*solverdto.SolveResult, error) {
	var out solverdto.SolveResult
	req := solverdto.SolveRequest{BudgetSeconds: budget.Seconds()}
	timeout := budget + solveSlack
	if budget <= 0 {
		timeout = 2 * solveSlack
	}
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/solve", req, &out, true, timeout); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) History(ctx context.Context, limit int) ([]solverdto.SolveResult, error) {
	var out solverdto.HistoryResponse
	path := "/api/solves"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &out, true, c.defaultTimeout); err != nil {
		return nil, err
	}
	return out.Solves, nil
}

func (c *Client) GetSolve(ctx context.Context, id string) (*solverdto.SolveResult, error) {
	var out solverdto.SolveResult
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/solves/"+id, nil, &out, true, c.defaultTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// Animation downloads the GIF behind a SolveResult.AnimationURL.
func (c *Client) Animation(ctx context.Context, animationURL string) ([]byte, error) {
	if strings.TrimSpace(animationURL) == "" {
		return nil, errors.New("solve has no animation")
	}
	return c.do(ctx, fasthttp.MethodGet, animationURL, nil, true, c.defaultTimeout)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool, timeout time.Duration) error {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}
	body, err := c.do(ctx, method, path, payload, retry, timeout)
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

func (c *Client) do(ctx context.Context, method, path string, payload []byte, retry bool, timeout time.Duration) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, computeDeadline(ctx, timeout))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			// A lost POST may already have reached the engine.
			if method != fasthttp.MethodGet {
				return nil, lastErr
			}
		} else if status := resp.StatusCode(); status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if jerr := json.Unmarshal(resp.Body(), &apiErr.DomainError); jerr != nil || apiErr.Code == "" {
				apiErr.Message = string(resp.Body())
			}
			if !shouldRetry(apiErr) {
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
	return nil, lastErr
}

func computeDeadline(ctx context.Context, timeout time.Duration) time.Time {
	clientDL := time.Now().Add(timeout)
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
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

// shouldRetry trusts the server's retryable flag. Status codes alone are not enough:
// a 502 or 504 from /api/solve means the engine already ran.
func shouldRetry(e *APIError) bool {
	return e.Retryable
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
