// Package ratelimit reports the REST rate limit quota of the Twitter API.
// It reads the x-rate-limit-* response headers and remembers the last quota
// seen per resource. Reporting is passive: nothing here delays or blocks a
// request.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Rate limit response headers.
const (
	HeaderRemaining = "X-Rate-Limit-Remaining"
	HeaderLimit     = "X-Rate-Limit-Limit"
	HeaderReset     = "X-Rate-Limit-Reset"
)

// RedisKeyPrefix prefixes the per-resource quota keys in Redis.
const RedisKeyPrefix = "twitter:rate_limit:"

// Quota is the REST rate limit reported by one response. Fields are nil when
// the response did not carry them. Limit and Reset are only populated once
// the window is exhausted (Remaining == 0).
type Quota struct {
	Remaining *int       `json:"remaining"`
	Limit     *int       `json:"limit"`
	Reset     *time.Time `json:"reset"`
}

// ParseQuota extracts the quota from response headers.
func ParseQuota(headers http.Header) (Quota, error) {
	var q Quota

	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return q, nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return Quota{}, fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}
	q.Remaining = &remaining

	if remaining != 0 {
		return q, nil
	}

	if limitStr := headers.Get(HeaderLimit); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return Quota{}, fmt.Errorf("parse %s header: %w", HeaderLimit, err)
		}
		q.Limit = &limit
	}

	if resetStr := headers.Get(HeaderReset); resetStr != "" {
		secs, err := strconv.ParseInt(resetStr, 10, 64)
		if err != nil {
			return Quota{}, fmt.Errorf("parse %s header: %w", HeaderReset, err)
		}
		reset := time.Unix(secs, 0)
		q.Reset = &reset
	}

	return q, nil
}

// IsEmpty returns true if no rate limit header was present.
func (q Quota) IsEmpty() bool {
	return q.Remaining == nil
}

// IsExhausted returns true if the window has no calls left.
func (q Quota) IsExhausted() bool {
	return q.Remaining != nil && *q.Remaining == 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time is unknown or has already passed.
func (q Quota) TimeUntilReset() time.Duration {
	if q.Reset == nil {
		return 0
	}
	d := time.Until(*q.Reset)
	if d < 0 {
		return 0
	}
	return d
}

// QuotaState is a quota together with the resource it was reported for.
type QuotaState struct {
	Resource  string    `json:"resource"`
	Quota     Quota     `json:"quota"`
	UpdatedAt time.Time `json:"updated_at"`
}

func redisKey(resource string) string {
	return RedisKeyPrefix + "resource:" + resource
}
