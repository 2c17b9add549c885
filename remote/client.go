// Package remote talks to the warehouse task server over HTTP. It implements
// the engine's Submitter, the object lookups, the container and label
// services and the task source used by the cache refresher.
//
// Lookups are idempotent and retried on transient failures. Fact submission
// is sent exactly once per call; retrying a failed submission is the
// operator's decision.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/goliatone/go-wizard"
	"github.com/goliatone/go-wizard/runner"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 2
)

// Client is an HTTP client for the task server.
type Client struct {
	base       string
	http       *http.Client
	logger     wizard.Logger
	timeout    time.Duration
	maxRetries int
	retry      runner.RetryStrategy
	headers    map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call, lookup retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets how many times a lookup is retried after a transient failure.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryStrategy sets the delay between lookup retries.
func WithRetryStrategy(s runner.RetryStrategy) Option {
	return func(c *Client) {
		if s != nil {
			c.retry = s
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l wizard.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHeader adds a header to every request, e.g. an authorization token.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("remote: invalid base url %q", baseURL)
	}
	c := &Client{
		base:       strings.TrimRight(u.String(), "/"),
		http:       &http.Client{},
		logger:     wizard.NewFmtLogger(io.Discard),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		retry: runner.ExponentialBackoffStrategy{
			Base:   200 * time.Millisecond,
			Factor: 2,
			Max:    2 * time.Second,
		},
		headers: map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Directory returns the lookups and services backed by this client.
func (c *Client) Directory() wizard.Directory {
	return wizard.Directory{
		Items:      lookup[wizard.Item]{c: c, path: "items", noun: "item"},
		Conditions: lookup[wizard.Condition]{c: c, path: "conditions", noun: "condition"},
		Containers: lookup[wizard.Container]{c: c, path: "containers", noun: "container"},
		Locations:  lookup[wizard.Location]{c: c, path: "locations", noun: "location"},
		Services:   c,
		Printer:    c,
	}
}

// query runs an idempotent GET through the runner, retrying transient failures.
func query[T any](ctx context.Context, c *Client, op, path string, params url.Values) (T, error) {
	h := runner.NewHandler(
		runner.WithTimeout(c.timeout),
		runner.WithMaxRetries(c.maxRetries),
		runner.WithRetryStrategy(c.retry),
		runner.WithRetryIf(IsTransient),
		runner.WithErrorHandler(func(err error) {
			c.logger.Debug("%s retry: %v", op, err)
		}),
	)
	return runner.Query(ctx, h, func(ctx context.Context) (T, error) {
		var out T
		err := c.do(ctx, op, http.MethodGet, path, params, nil, &out)
		return out, err
	})
}

// command runs a single non-idempotent POST bounded by the client timeout.
func command[T any](ctx context.Context, c *Client, op, path string, body any) (T, error) {
	h := runner.NewHandler(runner.WithTimeout(c.timeout))
	return runner.Query(ctx, h, func(ctx context.Context) (T, error) {
		var out T
		err := c.do(ctx, op, http.MethodPost, path, nil, body, &out)
		return out, err
	})
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.base + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, params), reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return unavailable(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable(op, err)
	}
	c.logger.Debug("%s %s %s -> %d in %s", op, method, req.URL.Path, resp.StatusCode, time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
