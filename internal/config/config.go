// Package config loads runtime settings for the sleuth tools from an optional
// sleuth.yaml file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned by RequireAPIKey when no RITS key is configured.
var ErrMissingAPIKey = errors.New("RITS_API_KEY environment variable not set")

type Config struct {
	// RootDir is the project root every data folder is resolved against.
	RootDir string
	Log     LogConfig
	Redis   RedisConfig
	Cache   CacheConfig
	Remote  RemoteConfig
	Local   LocalConfig
}

type LogConfig struct {
	Level string // "debug" or "info"
	Env   string // "production" selects JSON output
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type CacheConfig struct {
	// DataTTL is how long a populated response is kept.
	DataTTL time.Duration
	// NoDataTTL is how long an empty or failed response is kept.
	NoDataTTL time.Duration
}

type RemoteConfig struct {
	APIKey        string
	MaxAttempts   int
	RateLimitWait time.Duration
}

type LocalConfig struct {
	ServerURL string
}

// Load reads configuration using a fresh viper instance. A missing config
// file is not an error; every key has a default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("sleuth")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("SLEUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Names used by the surrounding tooling, outside the SLEUTH_ prefix
	_ = v.BindEnv("remote.api_key", "RITS_API_KEY")
	_ = v.BindEnv("redis.address", "SLEUTH_REDIS_ADDRESS", "REDIS_ADDRESS")
	_ = v.BindEnv("local.server_url", "SLEUTH_LOCAL_SERVER_URL", "OLLAMA_HOST")
	_ = v.BindEnv("root_dir", "SLEUTH_ROOT_DIR", "SLEUTH_ROOT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("root_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "development")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.data_ttl", 30*24*time.Hour)
	v.SetDefault("cache.no_data_ttl", time.Hour)
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.max_attempts", 60)
	v.SetDefault("remote.rate_limit_wait", 60*time.Second)
	v.SetDefault("local.server_url", "http://localhost:11434")
}

func fromViper(v *viper.Viper) (*Config, error) {
	root := v.GetString("root_dir")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
	}

	cfg := &Config{
		RootDir: root,
		Log: LogConfig{
			Level: v.GetString("log.level"),
			Env:   v.GetString("log.env"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			DataTTL:   v.GetDuration("cache.data_ttl"),
			NoDataTTL: v.GetDuration("cache.no_data_ttl"),
		},
		Remote: RemoteConfig{
			APIKey:        v.GetString("remote.api_key"),
			MaxAttempts:   v.GetInt("remote.max_attempts"),
			RateLimitWait: v.GetDuration("remote.rate_limit_wait"),
		},
		Local: LocalConfig{
			ServerURL: v.GetString("local.server_url"),
		},
	}

	if cfg.Remote.MaxAttempts <= 0 {
		return nil, fmt.Errorf("remote.max_attempts must be positive, got %d", cfg.Remote.MaxAttempts)
	}

	return cfg, nil
}

// RequireAPIKey returns the configured RITS key or ErrMissingAPIKey.
func (c *Config) RequireAPIKey() (string, error) {
	if c.Remote.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	return c.Remote.APIKey, nil
}
