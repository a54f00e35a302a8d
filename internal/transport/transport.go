// Package transport executes HTTP-shaped requests against the backend,
// regardless of whether the client core runs inside the native shell or
// stands alone. Callers get a uniform {status, body} contract, an error
// taxonomy that distinguishes cancellation from failure, and a JSON
// convenience layer.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/bridge"
)

// Sentinel errors
var (
	// ErrAborted marks a request that was cancelled by its caller. It is
	// never a failure: callers filter it out before any user-facing error
	// handling.
	ErrAborted = errors.New("request aborted")

	// ErrDecode marks a response body that was expected to be JSON but
	// was not.
	ErrDecode = errors.New("invalid JSON response")
)

// StatusError reports a non-2xx response. The message is the response body
// when the backend sent one, else a synthesized "HTTP <status>".
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Request describes one HTTP-shaped call. Method defaults to GET.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Body   string
}

// Response is the uniform result of a successful call.
type Response struct {
	Status int
	Body   []byte
}

// backend performs the actual request in one execution environment.
type backend interface {
	execute(ctx context.Context, req Request) (*Response, error)
}

// Client routes requests through the native shell when one is present,
// falling back to direct HTTP. Backend selection happens once per client.
type Client struct {
	httpClient *http.Client
	detect     func() bridge.Shell
	header     map[string]string

	once sync.Once
	be   backend
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client used by the direct
// HTTP backend (e.g. to add a caching or logging round tripper).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithShellDetector replaces the native-shell detection, mainly for tests
// and for hosts that construct the shell themselves.
func WithShellDetector(detect func() bridge.Shell) Option {
	return func(c *Client) { c.detect = detect }
}

// WithDefaultHeader attaches a header to every request that does not set
// the same key itself (e.g. the install-id client identifier).
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) {
		if c.header == nil {
			c.header = map[string]string{}
		}
		c.header[key] = value
	}
}

// New creates a transport client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		detect:     bridge.Detect,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) backend() backend {
	c.once.Do(func() {
		if shell := c.detect(); shell != nil {
			c.be = &bridgeBackend{shell: shell}
			return
		}
		c.be = &fetchBackend{client: c.httpClient}
	})
	return c.be
}

// Do executes the request. A context cancelled before dispatch fails
// immediately with ErrAborted and no network activity; a mid-flight
// cancellation also surfaces as ErrAborted. Any status outside [200,300)
// returns a *StatusError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	for k, v := range c.header {
		if _, ok := req.Header[k]; ok {
			continue
		}
		if req.Header == nil {
			req.Header = map[string]string{}
		}
		req.Header[k] = v
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrAborted, req.Method, req.URL)
	}

	requestID := uuid.NewString()
	log.Debug().
		Str("requestID", requestID).
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("dispatching request")

	resp, err := c.backend().execute(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s %s", ErrAborted, req.Method, req.URL)
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.Status < 200 || resp.Status >= 300 {
		log.Debug().
			Str("requestID", requestID).
			Int("status", resp.Status).
			Msg("request rejected")
		return nil, &StatusError{Status: resp.Status, Body: string(resp.Body)}
	}

	return resp, nil
}

// DoJSON executes the request and decodes the body into out. An empty body
// leaves out untouched (a null result). A non-empty body that is not valid
// JSON fails with an error matching ErrDecode, distinct from transport
// failures.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}

	if len(resp.Body) == 0 {
		return nil
	}

	if err := unmarshalBody(resp.Body, out); err != nil {
		return err
	}

	return nil
}

// IsAborted reports whether err stems from caller-driven cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}
