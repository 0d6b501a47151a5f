package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	UpstreamURL       string
	UpstreamUserAgent string
	UpstreamTimeout   time.Duration

	// SlidingTTL controls memory residency of cached forecasts; it resets on
	// every hit. MaxTTL is the absolute ceiling on entry age from creation.
	SlidingTTL time.Duration
	MaxTTL     time.Duration

	StoreBackend  string // "redis" or "in_memory"
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	RequestTimeout time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Upstream struct {
		URL       string `yaml:"url"`
		UserAgent string `yaml:"user_agent"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"upstream"`

	Cache struct {
		SlidingTTL string `yaml:"sliding_ttl"`
		MaxTTL     string `yaml:"max_ttl"`
	} `yaml:"cache"`

	Store struct {
		Backend string `yaml:"backend"`
		Redis   struct {
			Addr     string `yaml:"addr"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"store"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev).
// STORE_BACKEND, REDIS_ADDR and REDIS_PASSWORD env vars override the file.
// Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.UpstreamURL = fc.Upstream.URL
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = "https://api.weather.gov"
	}
	cfg.UpstreamUserAgent = fc.Upstream.UserAgent
	if cfg.UpstreamUserAgent == "" {
		cfg.UpstreamUserAgent = "forecast-cache-service (contact: ops@example.com)"
	}
	cfg.UpstreamTimeout = parseDuration(fc.Upstream.Timeout, 5*time.Second)

	cfg.SlidingTTL = parseDuration(fc.Cache.SlidingTTL, 5*time.Second)
	cfg.MaxTTL = parseDuration(fc.Cache.MaxTTL, 30*time.Second)

	cfg.StoreBackend = strings.TrimSpace(strings.ToLower(os.Getenv("STORE_BACKEND")))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = strings.TrimSpace(strings.ToLower(fc.Store.Backend))
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "redis"
	}
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.Store.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisUsername = fc.Store.Redis.Username
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = fc.Store.Redis.Password
	}
	cfg.RedisDB = fc.Store.Redis.DB

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 10*time.Second)

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values. The
// sliding window must not exceed the absolute ceiling, and the request
// budget must cover both upstream calls.
func validate(cfg *Config) error {
	if cfg.SlidingTTL > cfg.MaxTTL {
		return fmt.Errorf("cache.sliding_ttl %v exceeds cache.max_ttl %v", cfg.SlidingTTL, cfg.MaxTTL)
	}
	switch cfg.StoreBackend {
	case "redis", "in_memory":
		// valid
	default:
		return fmt.Errorf("store.backend must be redis or in_memory, got %q", cfg.StoreBackend)
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = 2*cfg.UpstreamTimeout + time.Second
	}
	return nil
}
