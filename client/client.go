// Package client is the typed REST client of the Connect demo backend. It is
// the single client layer shared by the session and the command line tool:
// one method per endpoint, JSON in and out, and every failure reduced to an
// error whose message is what the user sees.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vocdoni/connect-client/api/apicommon"
	"github.com/vocdoni/connect-client/errors"
	"github.com/vocdoni/connect-client/metrics"
	"go.vocdoni.io/dvote/log"
)

const (
	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 30 * time.Second

	// RequestIDHeader carries a fresh UUID on every request.
	RequestIDHeader = "X-Request-ID"
	// IdempotencyKeyHeader carries a fresh UUID on the money moving requests.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// Client calls the backend REST API.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client is copied;
// the timeout and the instrumented transport are set on the copy. A nil
// client keeps the default one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per request timeout. Zero or negative values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMetrics records every request in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New returns a client for the backend at baseURL, for example
// http://localhost:6969.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http:    http.DefaultClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.http
	hc.Timeout = c.timeout
	if c.metrics != nil {
		hc.Transport = c.metrics.RoundTripper(hc.Transport)
	}
	c.http = &hc
	return c
}

// BaseURL returns the backend base URL without trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one backend call. Route is the path template; it is
// filled with params and used as the metrics label.
type request struct {
	method     string
	route      string
	params     []string
	query      url.Values
	body       any
	idempotent bool
}

// doJSON sends the request and decodes a JSON response into target when
// provided. Non-2xx responses become *errors.APIError.
func (c *Client) doJSON(ctx context.Context, r request, target any) error {
	path := apicommon.BuildPath(r.route, r.params...)
	fullURL := c.baseURL + path
	if len(r.query) > 0 {
		fullURL = fullURL + "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return errors.ErrEncoding.WithErr(err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(metrics.WithRoute(ctx, r.route), r.method, fullURL, bodyReader)
	if err != nil {
		return errors.ErrEncoding.Withf("build request %s %s: %v", r.method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	if r.idempotent {
		req.Header.Set(IdempotencyKeyHeader, uuid.NewString())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Debugw("request failed", "method", r.method, "path", path, "requestID", requestID, "error", err)
		return errors.ErrNetwork.WithErr(unwrapURLError(err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warnw("failed to close response body", "error", closeErr)
		}
	}()
	log.Debugw("request done", "method", r.method, "path", path, "status", resp.StatusCode,
		"requestID", requestID, "elapsed", time.Since(start).String())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.ErrNetwork.WithErr(err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.NewAPIError(resp.StatusCode, respBody)
	}

	if target == nil {
		return nil
	}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return errors.ErrEmptyResponse
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return errors.ErrDecoding.WithErr(err)
	}
	return nil
}

// unwrapURLError drops the "Post \"http://...\":" prefix added by net/http so
// the surfaced message stays short.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
