package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUserAgent is the default User-Agent string sent with all HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:147.0) Gecko/20100101 Firefox/147.0"

type Config struct {
	MediaRoot             string  `mapstructure:"media_root"`
	AnimeName             string  `mapstructure:"anime_name"`
	Concurrency           int     `mapstructure:"concurrency"`
	ClientTimeout         string  `mapstructure:"client_timeout"` // Go duration string like "30s", "1m", etc.
	UserAgent             string  `mapstructure:"user_agent"`
	ProxyConnectionString string  `mapstructure:"proxy_connection_string"`
	RequestsPerSecond     float64 `mapstructure:"requests_per_second"` // 0 disables rate limiting
	KeepSegments          bool    `mapstructure:"keep_segments"`
	LogLevel              string  `mapstructure:"log_level"`
	Retry                 struct {
		MaxRetries     int    `mapstructure:"max_retries"`
		InitialBackoff string `mapstructure:"initial_backoff"`
		MaxBackoff     string `mapstructure:"max_backoff"`
	} `mapstructure:"retry"`
	Cache struct {
		Type  string `mapstructure:"type"` // "memory", "redis" or "none"
		Size  int    `mapstructure:"size"`
		TTL   string `mapstructure:"ttl"`
		Redis struct {
			Address  string `mapstructure:"address"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"cache"`
	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Sentry struct {
		DSN         string `mapstructure:"dsn"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"sentry"`
	Episodes []models.EpisodeDescriptor `mapstructure:"episodes"`
}

// NewViper returns a viper instance with defaults, environment binding and
// config file lookup set up. configFile overrides the search paths when non-empty.
// A .env file in the working directory is loaded into the environment first.
func NewViper(configFile string) *viper.Viper {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("Failed to load .env file")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variable support
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("log_level", "LOG_LEVEL")

	v.SetDefault("media_root", "")
	v.SetDefault("anime_name", "")
	v.SetDefault("concurrency", 8)
	v.SetDefault("client_timeout", "60s")
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("proxy_connection_string", "")
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("keep_segments", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_backoff", "500ms")
	v.SetDefault("retry.max_backoff", "10s")
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.size", 64)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.redis.address", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "localhost")
	v.SetDefault("metrics.port", 9090)

	return v
}

// FromViper reads the config file (if any) and resolves every value, including
// the media root. The returned Config is final: nothing is computed lazily later.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.MediaRoot == "" {
		root, err := DefaultMediaRoot()
		if err != nil {
			return nil, err
		}
		config.MediaRoot = root
	}
	config.MediaRoot = filepath.Clean(config.MediaRoot)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Load is a shorthand for FromViper(NewViper(configFile)).
func Load(configFile string) (*Config, error) {
	return FromViper(NewViper(configFile))
}

// Validate checks values that cannot be corrected with a default.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	switch c.Cache.Type {
	case "memory", "redis", "none", "":
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}
	return nil
}

// DefaultMediaRoot returns the user's video directory: XDG_VIDEOS_DIR when set,
// otherwise "Videos" under the home directory.
func DefaultMediaRoot() (string, error) {
	if dir := os.Getenv("XDG_VIDEOS_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve media root: %w", err)
	}
	return filepath.Join(home, "Videos"), nil
}
