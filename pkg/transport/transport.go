// Package transport performs signed HTTP calls against the Twitter API.
//
// Every request is signed with OAuth 1.0a (HMAC-SHA1) using the four
// application and user credentials. The per-call timeout behaves like a
// socket timeout: it bounds the wait for response headers and each
// individual body read, not the lifetime of the connection. Long-lived
// streaming responses therefore stay open for as long as data keeps arriving
// within the timeout.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/twitter-api-client/pkg/logging"
	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog"
)

// ErrTimeout is returned when the server did not answer, or stopped sending
// data, within the call timeout.
var ErrTimeout = errors.New("transport timeout")

// Transport performs one HTTP call. Implementations inject authentication.
// The returned response body must be closed by the caller.
type Transport interface {
	Perform(ctx context.Context, method, rawURL string, params url.Values, timeout time.Duration) (*http.Response, error)
}

// Credentials are the OAuth 1.0a keys of the application and the user.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
}

// Validate checks that all four credentials are set.
func (c Credentials) Validate() error {
	switch {
	case c.ConsumerKey == "":
		return fmt.Errorf("consumer key is required")
	case c.ConsumerSecret == "":
		return fmt.Errorf("consumer secret is required")
	case c.AccessToken == "":
		return fmt.Errorf("access token is required")
	case c.AccessTokenSecret == "":
		return fmt.Errorf("access token secret is required")
	}
	return nil
}

// HTTPTransport is the default Transport backed by net/http and OAuth1.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
	logger    zerolog.Logger
}

// NewHTTPTransport creates a signing transport. base supplies the underlying
// RoundTripper (nil uses http.DefaultTransport); its Timeout is ignored.
func NewHTTPTransport(creds Credentials, base *http.Client, userAgent string) (*HTTPTransport, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if base == nil {
		base = &http.Client{}
	}
	// Strip the client-wide timeout; calls carry their own.
	base = &http.Client{
		Transport:     base.Transport,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}

	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, base)

	return &HTTPTransport{
		client:    config.Client(ctx, token),
		userAgent: userAgent,
		logger:    logging.NewLogger(logging.ComponentTransport),
	}, nil
}

// Perform sends a signed request. GET parameters travel in the query string,
// POST parameters as a form-encoded body.
func (t *HTTPTransport) Perform(ctx context.Context, method, rawURL string, params url.Values, timeout time.Duration) (*http.Response, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := newRequest(ctx, method, rawURL, params)
	if err != nil {
		cancel()
		return nil, err
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	body := &timeoutBody{timeout: timeout, cancel: cancel}
	if timeout > 0 {
		body.timer = time.AfterFunc(timeout, body.expire)
	}

	t.logger.Debug().
		Str("method", method).
		Str("url", rawURL).
		Dur("timeout", timeout).
		Msg("Performing request")

	resp, err := t.client.Do(req)
	body.stop()
	if err != nil {
		cancel()
		if body.fired.Load() {
			return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, timeout, err)
		}
		return nil, err
	}

	body.rc = resp.Body
	resp.Body = body
	return resp, nil
}

// CloseIdleConnections closes idle keep-alive connections.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
}

func newRequest(ctx context.Context, method, rawURL string, params url.Values) (*http.Request, error) {
	if method == http.MethodPost {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(params.Encode()))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	return req, nil
}

// timeoutBody arms the call timer only while a Read is blocked, so a slow
// consumer never trips it.
type timeoutBody struct {
	rc      io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	fired   atomic.Bool
}

func (b *timeoutBody) expire() {
	b.fired.Store(true)
	b.cancel()
}

func (b *timeoutBody) stop() {
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (b *timeoutBody) Read(p []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	n, err := b.rc.Read(p)
	b.stop()
	if err != nil && err != io.EOF && b.fired.Load() {
		err = fmt.Errorf("%w after %s: %v", ErrTimeout, b.timeout, err)
	}
	return n, err
}

func (b *timeoutBody) Close() error {
	b.stop()
	err := b.rc.Close()
	b.cancel()
	return err
}
