package cache

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis and skips the test if none runs.
// The integration build tag runs the same flows against a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager == nil {
		t.Fatal("NewManager returned nil")
	}
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	key := CacheKey{Resource: "trends/place", Params: url.Values{"id": []string{"1"}}}
	entry := NewEntry(http.StatusOK, http.Header{"Content-Type": []string{"application/json"}},
		[]byte(`[{"trends":[{"name":"#golang"}]}]`), 5*time.Minute)

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data mismatch: got %s, want %s", got.Data, entry.Data)
	}
	if got.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", got.StatusCode)
	}
	if got.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Headers not restored: %v", got.Headers)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	manager := NewManager(setupTestRedis(t))

	_, err := manager.Get(context.Background(), CacheKey{Resource: "help/tos"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestManager_Set_ExpiredEntryDropped(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := CacheKey{Resource: "help/tos"}

	entry := &CacheEntry{Data: []byte(`{}`), Expires: time.Now().Add(-time.Hour)}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss for expired entry, got %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()
	key := CacheKey{Resource: "help/tos"}

	if err := manager.Set(ctx, key, NewEntry(200, nil, []byte(`{}`), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}

func TestManager_Purge(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	ctx := context.Background()

	keys := []CacheKey{
		{Resource: "trends/place", Params: url.Values{"id": []string{"1"}}},
		{Resource: "trends/place", Params: url.Values{"id": []string{"23424977"}}},
		{Resource: "trends/place"},
	}
	other := CacheKey{Resource: "trends/placebo"}

	for _, key := range append(keys, other) {
		if err := manager.Set(ctx, key, NewEntry(200, nil, []byte(`[]`), time.Minute)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	deleted, err := manager.Purge(ctx, "trends/place")
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if deleted != len(keys) {
		t.Errorf("Purge deleted %d entries, want %d", deleted, len(keys))
	}
	if _, err := manager.Get(ctx, other); err != nil {
		t.Errorf("unrelated resource purged: %v", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(setupTestRedis(t))
	if err := manager.Set(context.Background(), CacheKey{Resource: "help/tos"}, nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}
