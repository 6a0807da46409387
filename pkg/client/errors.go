package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrUnknownEndpoint is returned when a resource is not in the endpoint
	// registry. No request is sent.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrNotREST is returned when a REST-only operation is given a streaming
	// resource.
	ErrNotREST = errors.New("not a REST endpoint")

	// Done is returned by Iterator.Next when there are no more items.
	Done = errors.New("no more items")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 (REST) and 420 (streaming) responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents malformed JSON payloads.
	ErrorClassParse ErrorClass = "parse"
)

// UnknownEndpointError names the resource that is not registered.
type UnknownEndpointError struct {
	Resource string
}

// Error implements the error interface.
func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("%q is not a valid endpoint", e.Resource)
}

// Is makes errors.Is(err, ErrUnknownEndpoint) match.
func (e *UnknownEndpointError) Is(target error) bool {
	return target == ErrUnknownEndpoint
}

// StatusError is returned when a streaming connection is refused with a
// non-2xx status. REST responses are returned as-is whatever their status,
// since their error payloads are items in their own right.
type StatusError struct {
	Resource   string
	StatusCode int
	ErrorClass ErrorClass
	Body       []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("stream %s refused (%s, status %d %s): %s",
			e.Resource, e.ErrorClass, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
	}
	return fmt.Sprintf("stream %s refused (%s, status %d %s)",
		e.Resource, e.ErrorClass, e.StatusCode, http.StatusText(e.StatusCode))
}

// classifyStatus categorizes a response status for observability.
// Returns "" for successful statuses.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests || statusCode == 420:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}
