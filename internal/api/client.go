// internal/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 30 * time.Second

// Client handles communication with the OneMoreRev backend.
// Every request carries the session cookies held in the client's jar.
type Client struct {
	baseURL    string
	accessCode string
	httpClient *http.Client
	observer   Observer
	logger     *slog.Logger
	metrics    *metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added if missing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAccessCode sets the guest access code sent with every request.
func WithAccessCode(code string) Option {
	return func(c *Client) {
		c.accessCode = strings.TrimSpace(code)
	}
}

// WithObserver reports every request to o.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the logger used for request debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
		metrics:    newMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err == nil {
			c.httpClient.Jar = jar
		}
	}
	return c
}

// BaseURL returns the backend root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AccessCode returns the guest access code, if any.
func (c *Client) AccessCode() string {
	return c.accessCode
}

// Cookies returns the session cookies currently held for the backend.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(u)
}

// SetCookies restores previously saved session cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil || len(cookies) == 0 {
		return
	}
	c.httpClient.Jar.SetCookies(u, cookies)
}

// do performs one request. body is JSON-encoded when non-nil. A *[]byte out
// receives the raw body; otherwise a JSON response is decoded into out and a
// text response is stored in out when it is a *string.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	start := time.Now()
	status, err := c.roundTrip(ctx, method, path, query, body, out)
	c.record(ctx, RequestStat{
		Method:   method,
		Path:     path,
		Status:   status,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &Error{Method: method, Path: path, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	isJSON := isJSONContent(resp.Header.Get("Content-Type"))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, newStatusError(method, path, resp.StatusCode, raw, isJSON)
	}

	if out == nil || len(raw) == 0 {
		return resp.StatusCode, nil
	}
	if b, ok := out.(*[]byte); ok {
		*b = raw
		return resp.StatusCode, nil
	}
	if isJSON {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: "unexpected response shape", Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
		}
		return resp.StatusCode, nil
	}
	if v, ok := out.(*string); ok {
		*v = string(raw)
		return resp.StatusCode, nil
	}
	return resp.StatusCode, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: "expected JSON response", Err: ErrMalformedResponse}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + path
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	if c.accessCode != "" && q.Get("accessCode") == "" {
		q.Set("accessCode", c.accessCode)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) record(ctx context.Context, stat RequestStat) {
	c.metrics.record(ctx, stat)
	if c.observer != nil {
		c.observer.ObserveRequest(stat)
	}
	if c.logger != nil {
		c.logger.Debug("API request",
			"method", stat.Method,
			"path", stat.Path,
			"status", stat.Status,
			"duration", stat.Duration,
			"error", stat.Err,
		)
	}
}

func isJSONContent(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
