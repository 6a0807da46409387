// Package testutil provides testing utilities for the Twitter API client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock REST endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Method string
	Host   string
	Path   string
	Query  url.Values
	Form   url.Values
	Header http.Header
}

// MockTwitter is a configurable mock Twitter API server. Requests are routed
// by host and path, so one server can impersonate api.twitter.com and the
// streaming hosts at once (see Client).
type MockTwitter struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	requests []RecordedRequest
}

// NewMockTwitter creates and starts a new mock server.
func NewMockTwitter() *MockTwitter {
	mock := &MockTwitter{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		mock.mu.Lock()
		mock.requests = append(mock.requests, RecordedRequest{
			Method: r.Method,
			Host:   r.Host,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Form:   r.PostForm,
			Header: r.Header.Clone(),
		})
		handler, exists := mock.handlers[r.Host+r.URL.Path]
		mock.mu.Unlock()

		if !exists {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errors":[{"message":"Sorry, that page does not exist","code":34}]}`)
			return
		}
		handler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockTwitter) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockTwitter) Close() {
	m.server.CloseClientConnections()
	m.server.Close()
}

// Client returns an *http.Client that sends every request to the mock server
// while keeping the original Host header.
func (m *MockTwitter) Client() *http.Client {
	target, _ := url.Parse(m.server.URL)
	return &http.Client{Transport: &RewriteTransport{Target: target}}
}

// SetHandler sets a custom handler for a host and path,
// e.g. ("api.twitter.com", "/1.1/search/tweets.json").
func (m *MockTwitter) SetHandler(host, path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[host+path] = handler
}

// SetResponse configures a fixed response for a host and path.
func (m *MockTwitter) SetResponse(host, path string, resp MockResponse) {
	m.SetHandler(host, path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence serves the given responses in order; the last one repeats.
func (m *MockTwitter) SetSequence(host, path string, resps ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(host, path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := resps[next]
		if next < len(resps)-1 {
			next++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// SetStream serves a streaming endpoint that writes lines, flushing after each.
// With hold set the connection stays open until the client goes away.
func (m *MockTwitter) SetStream(host, path string, lines []string, hold bool) {
	m.SetHandler(host, path, StreamHandler(lines, hold))
}

// Requests returns a copy of all recorded requests.
func (m *MockTwitter) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockTwitter) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Reset clears all recorded requests.
func (m *MockTwitter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// StreamHandler writes newline-delimited lines with a flush after each one.
func StreamHandler(lines []string, hold bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\r\n", line)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if hold {
			<-r.Context().Done()
		}
	}
}

// NewJSONResponse creates a 200 OK response carrying body and rate limit
// headers with plenty of quota left.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type":           "application/json; charset=utf-8",
			"X-Rate-Limit-Limit":     "180",
			"X-Rate-Limit-Remaining": "179",
			"X-Rate-Limit-Reset":     fmt.Sprintf("%d", time.Now().Add(15*time.Minute).Unix()),
		},
	}
}

// NewExhaustedResponse creates a 429 response with the quota used up.
func NewExhaustedResponse(reset time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":[{"message":"Rate limit exceeded","code":88}]}`,
		Headers: map[string]string{
			"Content-Type":           "application/json; charset=utf-8",
			"X-Rate-Limit-Limit":     "180",
			"X-Rate-Limit-Remaining": "0",
			"X-Rate-Limit-Reset":     fmt.Sprintf("%d", reset.Unix()),
		},
	}
}

// RewriteTransport redirects requests to Target, preserving the Host header
// of the original URL.
type RewriteTransport struct {
	Target *url.URL
	Base   http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *RewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Host = req.URL.Host
	r.URL.Scheme = t.Target.Scheme
	r.URL.Host = t.Target.Host

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(r)
}
