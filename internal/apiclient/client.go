// Package apiclient talks to the search HTTP API.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/park285/gaia-game-search/internal/query"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status   int
	Response searchdto.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Details != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s (%s)", e.Status, e.Response.Code, e.Response.Error, e.Response.Details)
	}
	return fmt.Sprintf("api error: status=%d code=%s: %s", e.Status, e.Response.Code, e.Response.Error)
}

// IsCode reports whether err is an *APIError carrying code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Response.Code == code
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

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
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

func (c *Client) Search(ctx context.Context, req query.SearchRequest, limit, offset int) (*searchdto.SearchResponse, error) {
	q, err := query.Encode(req)
	if err != nil {
		return nil, err
	}
	// q is already query-escaped.
	path := "/api/v1/search?q=" + q
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	if offset > 0 {
		path += "&offset=" + strconv.Itoa(offset)
	}
	var resp searchdto.SearchResponse
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Players(ctx context.Context, filter string) ([]string, error) {
	path := "/api/v1/players"
	if strings.TrimSpace(filter) != "" {
		path += "?q=" + url.QueryEscape(filter)
	}
	var names []string
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &names, true); err != nil {
		return nil, err
	}
	return names, nil
}

func (c *Client) Game(ctx context.Context, tableID int64) (*searchdto.Game, error) {
	var g searchdto.Game
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/v1/games/"+strconv.FormatInt(tableID, 10), nil, &g, true); err != nil {
		return nil, err
	}
	return &g, nil
}

// Ingest posts one bundle. Retrying is safe: a replay that already landed
// comes back as DUPLICATE_GAME.
func (c *Client) Ingest(ctx context.Context, b *searchdto.Bundle) (*searchdto.Game, error) {
	var g searchdto.Game
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/v1/games", b, &g, true); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 0 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			apiErr := &APIError{Status: status}
			if json.Unmarshal(resp.Body(), &apiErr.Response) != nil || apiErr.Response.Code == "" {
				apiErr.Response.Error = truncate(string(resp.Body()), 512)
			}
			if attempt == attempts || !shouldRetryStatus(status) {
				return apiErr
			}
			lastErr = apiErr
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
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
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond // 100ms, 200ms ...
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
