package client

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   ErrorClass
	}{
		{name: "ok", statusCode: http.StatusOK, expected: ""},
		{name: "not modified", statusCode: http.StatusNotModified, expected: ""},
		{name: "unauthorized", statusCode: http.StatusUnauthorized, expected: ErrorClassClient},
		{name: "not found", statusCode: http.StatusNotFound, expected: ErrorClassClient},
		{name: "enhance your calm", statusCode: 420, expected: ErrorClassRateLimit},
		{name: "too many requests", statusCode: http.StatusTooManyRequests, expected: ErrorClassRateLimit},
		{name: "internal error", statusCode: http.StatusInternalServerError, expected: ErrorClassServer},
		{name: "over capacity", statusCode: http.StatusServiceUnavailable, expected: ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyStatus(tt.statusCode))
		})
	}
}

func TestUnknownEndpointError(t *testing.T) {
	var err error = &UnknownEndpointError{Resource: "statuses/nope"}
	wrapped := fmt.Errorf("request: %w", err)

	assert.ErrorIs(t, wrapped, ErrUnknownEndpoint)
	assert.NotErrorIs(t, wrapped, ErrNotREST)

	var target *UnknownEndpointError
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, "statuses/nope", target.Resource)
	assert.Equal(t, `"statuses/nope" is not a valid endpoint`, err.Error())
}

func TestStatusError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *StatusError
		contains []string
	}{
		{
			name: "with body",
			err: &StatusError{
				Resource:   "statuses/filter",
				StatusCode: 420,
				ErrorClass: ErrorClassRateLimit,
				Body:       []byte("Exceeded connection limit for user"),
			},
			contains: []string{"statuses/filter", "rate_limit", "420", "Exceeded connection limit"},
		},
		{
			name: "without body",
			err: &StatusError{
				Resource:   "statuses/sample",
				StatusCode: http.StatusUnauthorized,
				ErrorClass: ErrorClassClient,
			},
			contains: []string{"statuses/sample", "client", "401", "Unauthorized"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}
