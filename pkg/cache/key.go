package cache

import (
	"net/url"
	"strings"
)

// CacheKey identifies a cached REST response.
type CacheKey struct {
	// Resource is the endpoint resource name (e.g. "trends/place").
	Resource string

	// Params are the request parameters.
	Params url.Values
}

// String generates a deterministic cache key string. Parameters are query
// encoded, so keys are sorted and separators inside values are escaped.
// Format: twitter:resource:param1=val1&param2=val2a&param2=val2b
//
// Example:
//
//	twitter:search/tweets:count=100&q=from%3Auser
func (k CacheKey) String() string {
	parts := []string{"twitter"}

	resource := strings.Trim(k.Resource, "/")
	if resource != "" {
		parts = append(parts, resource)
	}

	if query := k.Params.Encode(); query != "" {
		parts = append(parts, query)
	}

	return strings.Join(parts, ":")
}
