// Package config loads client settings from an optional YAML file, a .env
// file and TWITTER_* environment variables, in increasing order of
// precedence.
//
//	TWITTER_CONSUMER_KEY=...
//	TWITTER_CONSUMER_SECRET=...
//	TWITTER_ACCESS_TOKEN=...
//	TWITTER_ACCESS_TOKEN_SECRET=...
//	TWITTER_REST_TIMEOUT=5s
//	TWITTER_CACHE_TTL=1m
//	TWITTER_REDIS_ADDR=localhost:6379
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Sternrassler/twitter-api-client/pkg/client"
	"github.com/Sternrassler/twitter-api-client/pkg/endpoints"
	"github.com/Sternrassler/twitter-api-client/pkg/logging"
	"github.com/Sternrassler/twitter-api-client/pkg/pagination"
	"github.com/Sternrassler/twitter-api-client/pkg/transport"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TWITTER"

// DefaultEnvFile is loaded when present and no other env file is given.
const DefaultEnvFile = ".env"

// Settings is the flat configuration of an application using the client.
type Settings struct {
	ConsumerKey       string `mapstructure:"consumer_key"`
	ConsumerSecret    string `mapstructure:"consumer_secret"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`

	UserAgent string `mapstructure:"user_agent"`
	Scheme    string `mapstructure:"scheme"`
	Domain    string `mapstructure:"domain"`
	Version   string `mapstructure:"version"`

	RESTTimeout   time.Duration `mapstructure:"rest_timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	PagerWait     time.Duration `mapstructure:"pager_wait"`

	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`

	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("consumer_key", "")
	v.SetDefault("consumer_secret", "")
	v.SetDefault("access_token", "")
	v.SetDefault("access_token_secret", "")
	v.SetDefault("user_agent", "")
	v.SetDefault("scheme", endpoints.Protocol)
	v.SetDefault("domain", endpoints.Domain)
	v.SetDefault("version", endpoints.Version)
	v.SetDefault("rest_timeout", client.DefaultRESTTimeout)
	v.SetDefault("stream_timeout", client.DefaultStreamTimeout)
	v.SetDefault("pager_wait", pagination.DefaultWait)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", time.Duration(0))
	v.SetDefault("log_level", string(logging.LevelInfo))
	v.SetDefault("log_pretty", false)
}

type loadOptions struct {
	configFile string
	envFile    string
}

// Option configures Load.
type Option func(*loadOptions)

// WithConfigFile reads a YAML (or any viper-supported) file first.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// WithEnvFile loads variables from path instead of ./.env. The file must
// exist.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// Load reads the settings and validates them. Variables already set in the
// environment win over the .env file.
func Load(opts ...Option) (*Settings, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := loadEnvFile(o.envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", o.configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(DefaultEnvFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(DefaultEnvFile); err != nil {
		return fmt.Errorf("load env file %s: %w", DefaultEnvFile, err)
	}
	return nil
}

// Validate checks credentials, durations and the log level.
func (s *Settings) Validate() error {
	if err := s.Credentials().Validate(); err != nil {
		return err
	}
	if s.RESTTimeout <= 0 {
		return fmt.Errorf("rest_timeout must be positive (got %s)", s.RESTTimeout)
	}
	if s.StreamTimeout <= 0 {
		return fmt.Errorf("stream_timeout must be positive (got %s)", s.StreamTimeout)
	}
	if s.PagerWait < 0 {
		return fmt.Errorf("pager_wait must not be negative (got %s)", s.PagerWait)
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative (got %s)", s.CacheTTL)
	}
	if s.CacheTTL > 0 && s.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when cache_ttl is set")
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// Credentials returns the OAuth credentials.
func (s *Settings) Credentials() transport.Credentials {
	return transport.Credentials{
		ConsumerKey:       s.ConsumerKey,
		ConsumerSecret:    s.ConsumerSecret,
		AccessToken:       s.AccessToken,
		AccessTokenSecret: s.AccessTokenSecret,
	}
}

// Logging returns the logger configuration. The level must have passed
// Validate.
func (s *Settings) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level, _ = logging.ParseLevel(s.LogLevel)
	cfg.Pretty = s.LogPretty
	return cfg
}

// NewRedis returns a client for RedisAddr, or nil when no address is set.
func (s *Settings) NewRedis() *redis.Client {
	if s.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: s.RedisAddr, DB: s.RedisDB})
}

// ClientConfig builds a client configuration. redisClient may be nil.
func (s *Settings) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(s.Credentials())
	cfg.UserAgent = s.UserAgent
	cfg.Scheme = s.Scheme
	cfg.Domain = s.Domain
	cfg.Version = s.Version
	cfg.RESTTimeout = s.RESTTimeout
	cfg.StreamTimeout = s.StreamTimeout
	cfg.Redis = redisClient
	if redisClient != nil {
		cfg.CacheTTL = s.CacheTTL
	}
	return cfg
}
