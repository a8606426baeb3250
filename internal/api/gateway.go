// Package api is the single egress point for Shelf server traffic. Every
// request goes through the Gateway, which owns auth header attachment,
// request correlation, and expiry detection; callers never talk to the
// transport directly.
package api

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"

	"github.com/shelf-labs/shelfctl/internal/logging"
	"github.com/shelf-labs/shelfctl/internal/session"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const requestTimeout = 60 * time.Second

// Gateway dispatches HTTP requests to the Shelf API. Each dispatch is a
// single attempt; a failed request surfaces immediately rather than being
// retried behind the user's back.
type Gateway struct {
	httpClient   *nethttp.Client
	streamClient *nethttp.Client
	baseURL      string
	store        *session.Store
	hook         func()
	log          *logging.Logger
}

// NewGateway creates a Gateway for baseURL reading auth state from store.
func NewGateway(baseURL string, store *session.Store) (*Gateway, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	base := &nethttp.Client{
		Transport: newTransport(),
		Jar:       jar,
		Timeout:   requestTimeout,
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	// Single-shot policy. The default one holds 429/5xx responses back for
	// retry, but here every response goes straight to the caller.
	retryClient.CheckRetry = func(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
		return false, err
	}

	return &Gateway{
		httpClient:   retryClient.StandardClient(),
		streamClient: base,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		store:        store,
		log:          logging.New(),
	}, nil
}

// SetUnauthorizedHook registers the callback invoked when a request that
// carried a token comes back 401. A 401 on an anonymous request is an
// ordinary response.
func (g *Gateway) SetUnauthorizedHook(hook func()) {
	g.hook = hook
}

// BaseURL returns the configured API base URL without a trailing slash.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

func newTransport() *nethttp.Transport {
	tr := &nethttp.Transport{
		Proxy:               nethttp.ProxyFromEnvironment,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	_ = http2.ConfigureTransport(tr)
	return tr
}

// Dispatch performs a single request against path. The bearer token held at
// call time is attached when a session is active; every request gets a fresh
// correlation id. A non-2xx response is returned to the caller, not treated
// as an error. When a request that carried a token returns 401, the
// unauthorized hook fires before the response is returned.
func (g *Gateway) Dispatch(ctx context.Context, method, path string, body io.Reader, contentType string) (*nethttp.Response, error) {
	req, sess, err := g.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.log.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode == nethttp.StatusUnauthorized && sess.Active() && g.hook != nil {
		g.hook()
	}
	return resp, nil
}

// DispatchStream performs a single request whose body is read only as the
// bytes go out on the wire. The retrying client buffers plain reader bodies
// before sending, so streaming callers bypass it. Status handling, including
// 401, is the caller's; the unauthorized hook does not fire here.
func (g *Gateway) DispatchStream(ctx context.Context, method, path string, body io.Reader, contentType string) (*nethttp.Response, error) {
	req, _, err := g.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}

	resp, err := g.streamClient.Do(req)
	if err != nil {
		g.log.Debug().Str("method", method).Str("path", path).Err(err).Msg("request failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*nethttp.Request, session.Session, error) {
	req, err := nethttp.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, session.Session{}, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	sess := g.store.Get()
	if sess.Active() {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	g.log.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).Msg("dispatching request")
	return req, sess, nil
}

// ReadError drains and closes an error response and converts it to a
// StatusError carrying the most specific message the body provides.
func ReadError(resp *nethttp.Response) *StatusError {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		body = nil
	}
	return NewStatusError(resp.StatusCode, body)
}
