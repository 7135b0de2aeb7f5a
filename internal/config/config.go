package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/mr1hm/go-quake-heatmap/internal/feed"
)

type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Map       MapConfig
	Session   SessionConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type FeedConfig struct {
	BaseURL string
	Timeout time.Duration
}

type MapConfig struct {
	MapboxAPIKey string
}

type SessionConfig struct {
	TTL time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type RateLimitConfig struct {
	RPS int
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server_host"),
			Port: v.GetInt("server_port"),
		},
		Feed: FeedConfig{
			BaseURL: v.GetString("feed_base_url"),
			Timeout: v.GetDuration("feed_timeout"),
		},
		Map: MapConfig{
			MapboxAPIKey: v.GetString("mapbox_api_key"),
		},
		Session: SessionConfig{
			TTL: v.GetDuration("session_ttl"),
		},
		Worker: WorkerConfig{
			Count:      v.GetInt("worker_count"),
			BufferSize: v.GetInt("worker_buffer_size"),
		},
		DB: DatabaseConfig{
			Path: v.GetString("db_path"),
		},
		RateLimit: RateLimitConfig{
			RPS: v.GetInt("rate_limit_rps"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("log_level"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_port", 8080)

	v.SetDefault("feed_base_url", feed.DefaultBaseURL)
	v.SetDefault("feed_timeout", "15s")

	v.SetDefault("mapbox_api_key", "")
	v.SetDefault("session_ttl", "30m")

	v.SetDefault("worker_count", 2)
	v.SetDefault("worker_buffer_size", 20)

	v.SetDefault("db_path", "./data/quake-heatmap.db")
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("log_level", "info")
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed base url is required")
	}
	if c.Feed.Timeout < time.Second {
		return fmt.Errorf("feed timeout must be at least 1 second")
	}
	if c.Session.TTL < time.Minute {
		return fmt.Errorf("session ttl must be at least 1 minute")
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 1 {
		return fmt.Errorf("worker buffer size must be at least 1")
	}
	if c.RateLimit.RPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 req/s")
	}

	return nil
}
