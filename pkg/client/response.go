package client

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/Sternrassler/twitter-api-client/pkg/endpoints"
	"github.com/Sternrassler/twitter-api-client/pkg/ratelimit"
)

// Response is the result of Client.Request. It is either a *RestResponse or
// a *StreamResponse.
type Response interface {
	// Family reports which endpoint family produced the response.
	Family() endpoints.Family

	isResponse()
}

// RestResponse is a completed REST call with its body fully read.
type RestResponse struct {
	Resource   string
	StatusCode int
	Header     http.Header
	Body       []byte

	// FromCache is set when the response was served by the response cache.
	FromCache bool
}

// Family implements Response.
func (r *RestResponse) Family() endpoints.Family { return endpoints.FamilyREST }

func (r *RestResponse) isResponse() {}

// OK reports whether the status code is 2xx.
func (r *RestResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Quota parses the rate-limit headers of this response.
func (r *RestResponse) Quota() (ratelimit.Quota, error) {
	return ratelimit.ParseQuota(r.Header)
}

// Iterator parses the body and returns an iterator over its items.
func (r *RestResponse) Iterator() (*RestIterator, error) {
	return newRestIterator(r.Body)
}

// StreamResponse is an open streaming connection. It must be closed.
type StreamResponse struct {
	Resource   string
	StatusCode int
	Header     http.Header

	body      io.ReadCloser
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Family implements Response.
func (r *StreamResponse) Family() endpoints.Family { return endpoints.FamilyStreaming }

func (r *StreamResponse) isResponse() {}

// Iterator returns an iterator over the messages of the stream. Closing the
// iterator closes the stream.
func (r *StreamResponse) Iterator() *StreamIterator {
	return newStreamIterator(r)
}

// Close closes the connection. It is safe to call more than once and from
// another goroutine than the one reading the stream.
func (r *StreamResponse) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.closeErr = r.body.Close()
	})
	return r.closeErr
}
