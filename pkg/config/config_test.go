package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/twitter-api-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TWITTER_CONSUMER_KEY", "ck")
	t.Setenv("TWITTER_CONSUMER_SECRET", "cs")
	t.Setenv("TWITTER_ACCESS_TOKEN", "at")
	t.Setenv("TWITTER_ACCESS_TOKEN_SECRET", "ats")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	setCredentialEnv(t)

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ck", s.ConsumerKey)
	assert.Equal(t, "ats", s.AccessTokenSecret)
	assert.Equal(t, "https", s.Scheme)
	assert.Equal(t, "twitter.com", s.Domain)
	assert.Equal(t, "1.1", s.Version)
	assert.Equal(t, 5*time.Second, s.RESTTimeout)
	assert.Equal(t, 90*time.Second, s.StreamTimeout)
	assert.Equal(t, 5*time.Second, s.PagerWait)
	assert.Zero(t, s.CacheTTL)
	assert.Equal(t, "info", s.LogLevel)
	assert.Nil(t, s.NewRedis())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setCredentialEnv(t)
	t.Setenv("TWITTER_REST_TIMEOUT", "2s")
	t.Setenv("TWITTER_STREAM_TIMEOUT", "2m")
	t.Setenv("TWITTER_REDIS_ADDR", "localhost:6379")
	t.Setenv("TWITTER_REDIS_DB", "3")
	t.Setenv("TWITTER_CACHE_TTL", "30s")
	t.Setenv("TWITTER_LOG_LEVEL", "debug")
	t.Setenv("TWITTER_LOG_PRETTY", "true")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, s.RESTTimeout)
	assert.Equal(t, 2*time.Minute, s.StreamTimeout)
	assert.Equal(t, 30*time.Second, s.CacheTTL)
	assert.Equal(t, 3, s.RedisDB)
	assert.Equal(t, logging.Config{Level: logging.LevelDebug, Pretty: true, Output: os.Stderr}, s.Logging())

	rdb := s.NewRedis()
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.Equal(t, "localhost:6379", rdb.Options().Addr)
	assert.Equal(t, 3, rdb.Options().DB)
}

func TestLoad_ConfigFile(t *testing.T) {
	setCredentialEnv(t)
	t.Setenv("TWITTER_STREAM_TIMEOUT", "45s")
	path := writeFile(t, "twitter.yml", `
user_agent: my-app/1.0
domain: example.test
rest_timeout: 3s
stream_timeout: 10m
pager_wait: 15s
`)

	s, err := Load(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, "my-app/1.0", s.UserAgent)
	assert.Equal(t, "example.test", s.Domain)
	assert.Equal(t, 3*time.Second, s.RESTTimeout)
	assert.Equal(t, 45*time.Second, s.StreamTimeout, "environment wins over the file")
	assert.Equal(t, 15*time.Second, s.PagerWait)
}

func TestLoad_EnvFile(t *testing.T) {
	keys := []string{"TWITTER_CONSUMER_KEY", "TWITTER_CONSUMER_SECRET", "TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_TOKEN_SECRET"}
	for _, k := range keys {
		require.Empty(t, os.Getenv(k), "test needs %s unset", k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
	// Already-set variables are not overridden by the file.
	t.Setenv("TWITTER_ACCESS_TOKEN", "from-env")

	path := writeFile(t, ".env", `
TWITTER_CONSUMER_KEY=file-ck
TWITTER_CONSUMER_SECRET=file-cs
TWITTER_ACCESS_TOKEN=file-at
TWITTER_ACCESS_TOKEN_SECRET=file-ats
`)

	s, err := Load(WithEnvFile(path))
	require.NoError(t, err)

	assert.Equal(t, "file-ck", s.ConsumerKey)
	assert.Equal(t, "from-env", s.AccessToken)
	assert.Equal(t, "file-ats", s.AccessTokenSecret)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		opts    []Option
		wantErr string
	}{
		{
			name:    "missing credentials",
			env:     map[string]string{"TWITTER_CONSUMER_KEY": ""},
			wantErr: "consumer key is required",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"TWITTER_REST_TIMEOUT": "soon"},
			wantErr: "decode settings",
		},
		{
			name:    "zero stream timeout",
			env:     map[string]string{"TWITTER_STREAM_TIMEOUT": "0s"},
			wantErr: "stream_timeout must be positive",
		},
		{
			name:    "cache without redis",
			env:     map[string]string{"TWITTER_CACHE_TTL": "1m"},
			wantErr: "redis_addr is required",
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"TWITTER_LOG_LEVEL": "chatty"},
			wantErr: "unknown log level",
		},
		{
			name:    "missing config file",
			opts:    []Option{WithConfigFile(filepath.Join(os.TempDir(), "does-not-exist.yml"))},
			wantErr: "read config file",
		},
		{
			name:    "missing env file",
			opts:    []Option{WithEnvFile(filepath.Join(os.TempDir(), "does-not-exist.env"))},
			wantErr: "load env file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCredentialEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings_ClientConfig(t *testing.T) {
	s := &Settings{
		ConsumerKey:       "ck",
		ConsumerSecret:    "cs",
		AccessToken:       "at",
		AccessTokenSecret: "ats",
		UserAgent:         "my-app/1.0",
		Scheme:            "https",
		Domain:            "twitter.com",
		Version:           "1.1",
		RESTTimeout:       time.Second,
		StreamTimeout:     time.Minute,
		CacheTTL:          time.Minute,
	}

	cfg := s.ClientConfig(nil)
	assert.Equal(t, s.Credentials(), cfg.Credentials)
	assert.Equal(t, "my-app/1.0", cfg.UserAgent)
	assert.Equal(t, time.Second, cfg.RESTTimeout)
	assert.Equal(t, time.Minute, cfg.StreamTimeout)
	assert.Zero(t, cfg.CacheTTL, "no cache without redis")

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer rdb.Close()
	cfg = s.ClientConfig(rdb)
	assert.Same(t, rdb, cfg.Redis)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
}
