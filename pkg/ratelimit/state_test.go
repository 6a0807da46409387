package ratelimit

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestParseQuota(t *testing.T) {
	reset := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	tests := []struct {
		name          string
		headers       map[string]string
		wantRemaining *int
		wantLimit     *int
		wantReset     *time.Time
		wantErr       bool
	}{
		{
			name:    "no headers",
			headers: map[string]string{},
		},
		{
			name: "quota left hides limit and reset",
			headers: map[string]string{
				"x-rate-limit-remaining": "42",
				"x-rate-limit-limit":     "180",
				"x-rate-limit-reset":     strconv.FormatInt(reset.Unix(), 10),
			},
			wantRemaining: intPtr(42),
		},
		{
			name: "exhausted window reports limit and reset",
			headers: map[string]string{
				"x-rate-limit-remaining": "0",
				"x-rate-limit-limit":     "180",
				"x-rate-limit-reset":     strconv.FormatInt(reset.Unix(), 10),
			},
			wantRemaining: intPtr(0),
			wantLimit:     intPtr(180),
			wantReset:     &reset,
		},
		{
			name: "limit without remaining is ignored",
			headers: map[string]string{
				"x-rate-limit-limit": "180",
			},
		},
		{
			name: "invalid remaining",
			headers: map[string]string{
				"x-rate-limit-remaining": "lots",
			},
			wantErr: true,
		},
		{
			name: "invalid reset",
			headers: map[string]string{
				"x-rate-limit-remaining": "0",
				"x-rate-limit-reset":     "soon",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			q, err := ParseQuota(headers)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseQuota() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			if !equalInt(q.Remaining, tt.wantRemaining) {
				t.Errorf("Remaining = %v, want %v", deref(q.Remaining), deref(tt.wantRemaining))
			}
			if !equalInt(q.Limit, tt.wantLimit) {
				t.Errorf("Limit = %v, want %v", deref(q.Limit), deref(tt.wantLimit))
			}
			switch {
			case tt.wantReset == nil && q.Reset != nil:
				t.Errorf("Reset = %v, want nil", *q.Reset)
			case tt.wantReset != nil && (q.Reset == nil || !q.Reset.Equal(*tt.wantReset)):
				t.Errorf("Reset = %v, want %v", q.Reset, *tt.wantReset)
			}
		})
	}
}

func TestParseQuota_ResetIsLocalTime(t *testing.T) {
	headers := http.Header{}
	headers.Set(HeaderRemaining, "0")
	headers.Set(HeaderReset, "1700000000")

	q, err := ParseQuota(headers)
	if err != nil {
		t.Fatalf("ParseQuota() error = %v", err)
	}
	if q.Reset.Location() != time.Local {
		t.Errorf("Reset location = %v, want Local", q.Reset.Location())
	}
	if q.Reset.Unix() != 1700000000 {
		t.Errorf("Reset = %d, want 1700000000", q.Reset.Unix())
	}
}

func TestQuota_Helpers(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name          string
		quota         Quota
		wantEmpty     bool
		wantExhausted bool
		wantWait      bool
	}{
		{name: "empty", quota: Quota{}, wantEmpty: true},
		{name: "calls left", quota: Quota{Remaining: intPtr(3)}},
		{name: "exhausted", quota: Quota{Remaining: intPtr(0), Reset: &future}, wantExhausted: true, wantWait: true},
		{name: "exhausted reset passed", quota: Quota{Remaining: intPtr(0), Reset: &past}, wantExhausted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.quota.IsEmpty(); got != tt.wantEmpty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.wantEmpty)
			}
			if got := tt.quota.IsExhausted(); got != tt.wantExhausted {
				t.Errorf("IsExhausted() = %v, want %v", got, tt.wantExhausted)
			}
			if got := tt.quota.TimeUntilReset() > 0; got != tt.wantWait {
				t.Errorf("TimeUntilReset() > 0 = %v, want %v", got, tt.wantWait)
			}
		})
	}
}

func intPtr(v int) *int { return &v }

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
