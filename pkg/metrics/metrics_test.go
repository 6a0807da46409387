package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/twitter-api-client/pkg/client"
	"github.com/Sternrassler/twitter-api-client/pkg/transport"
)

type nopTransport struct{}

func (nopTransport) Perform(context.Context, string, string, url.Values, time.Duration) (*http.Response, error) {
	return nil, errors.New("unexpected call")
}

func TestHandler_ExposesClientMetrics(t *testing.T) {
	cfg := client.DefaultConfig(transport.Credentials{})
	cfg.Transport = nopTransport{}
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Request(context.Background(), "statuses/nope", nil); err == nil {
		t.Fatal("expected unknown endpoint error")
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `twitter_errors_total{class="unknown_endpoint"}`) {
		t.Errorf("expected twitter_errors_total in output, got:\n%s", body)
	}
}
