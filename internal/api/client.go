// Package api is the HTTP client for the railway backend. It applies the
// session's bearer token and maps responses onto the errors package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"railctl/internal/errors"
	"railctl/internal/log"
	"railctl/internal/session"

	"github.com/google/uuid"
)

// Client issues requests against one backend.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   *session.State
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for baseURL using sess for authentication.
func NewClient(baseURL string, sess *session.State, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.NewConfigError("invalid base url", baseURL, errors.InvalidConfig, err)
	}
	if sess == nil {
		if sess, err = session.New(nil); err != nil {
			return nil, err
		}
	}
	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: 15 * time.Second},
		session:   sess,
		userAgent: "railctl",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.State {
	return c.session
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type errorBody struct {
	Message string `json:"message"`
}

// Do sends a request and decodes a JSON response into out (may be nil).
//
// 401 and 403 expire the session for the generation the request was sent
// with and return a SessionExpiredError. Other non-2xx statuses return an
// APIError carrying the body's message or the status text. A cancelled
// ctx returns ctx.Err() unwrapped.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	snap := c.session.Snapshot()
	target := c.endpoint(path, query)
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "encode %s request", op)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrapf(err, "build %s request", op)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if snap.Token != "" {
		req.Header.Set("Authorization", "Bearer "+snap.Token)
	}

	logger := log.LogWithFields(log.F("request_id", reqID), log.F("op", op))
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.WithError(err).Debug("request failed")
		return errors.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	logger.With(log.F("status", resp.StatusCode), log.F("elapsed", time.Since(start).String())).Debug("response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.session.Expire(snap.Generation)
		return errors.NewSessionExpiredError(resp.StatusCode)

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var eb errorBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = json.Unmarshal(data, &eb)
		return errors.NewAPIError(resp.StatusCode, strings.TrimSpace(eb.Message))

	case resp.StatusCode == http.StatusNoContent || out == nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.Wrapf(err, "decode %s response", op)
	}
	return nil
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}
