// Package config loads the application-level settings that live under the
// "custom" namespace of the service configuration. Framework settings (server,
// database, logging) are owned by go-bricks; everything UgaWatch-specific is
// read here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix is the prefix of environment variables mapped into the custom namespace.
// CUSTOM_TRENDING_LIMIT becomes custom.trending.limit and
// CUSTOM_PROGRESS_CACHE_TTL becomes custom.progress.cache.ttl.
const EnvPrefix = "CUSTOM_"

// DefaultConfigPaths lists the files searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.development.yaml",
	"/etc/ugawatch/config.yaml",
}

// Config is the root of the custom configuration tree.
type Config struct {
	Custom CustomConfig `koanf:"custom"`
}

// CustomConfig groups settings per module.
type CustomConfig struct {
	Trending      TrendingConfig      `koanf:"trending"`
	Progress      ProgressConfig      `koanf:"progress"`
	Downloads     DownloadsConfig     `koanf:"downloads"`
	TMDB          TMDBConfig          `koanf:"tmdb"`
	FCM           FCMConfig           `koanf:"fcm"`
	Secrets       SecretsConfig       `koanf:"secrets"`
	Notifications NotificationsConfig `koanf:"notifications"`
}

type TrendingConfig struct {
	Timezone string        `koanf:"timezone" validate:"required"`
	Limit    int           `koanf:"limit" validate:"min=1,max=500"`
	// Retention is how long raw view events stay unrolled; must cover the 7-day window plus today.
	Retention time.Duration `koanf:"retention" validate:"min=192h"`
	Interval  time.Duration `koanf:"interval" validate:"min=1m"`
}

// Location resolves the configured timezone, falling back to UTC.
func (t TrendingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type CacheConfig struct {
	TTL  time.Duration `koanf:"ttl" validate:"min=1s"`
	Size int           `koanf:"size" validate:"min=1"`
}

type ProgressConfig struct {
	Cache CacheConfig `koanf:"cache"`
	// Retention is how long completed (>=95%) records are kept before purge.
	Retention time.Duration `koanf:"retention" validate:"min=1h"`
	Interval  time.Duration `koanf:"interval" validate:"min=1m"`
}

type StoreConfig struct {
	Path     string `koanf:"path" validate:"required_without=InMemory"`
	InMemory bool   `koanf:"inmemory"`
}

type DownloadsConfig struct {
	Dir   string      `koanf:"dir" validate:"required"`
	Store StoreConfig `koanf:"store"`
}

type TMDBConfig struct {
	API     string        `koanf:"api" validate:"required,url"`
	Images  string        `koanf:"images" validate:"required,url"`
	Rate    float64       `koanf:"rate" validate:"gt=0"`
	Burst   int           `koanf:"burst" validate:"min=1"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`
}

type FCMConfig struct {
	Project  string        `koanf:"project"`
	Endpoint string        `koanf:"endpoint" validate:"required,url"`
	Timeout  time.Duration `koanf:"timeout" validate:"min=1s"`
}

type SecretsConfig struct {
	Provider string      `koanf:"provider" validate:"oneof=aws static"`
	Prefix   string      `koanf:"prefix" validate:"required_if=Provider aws"`
	Cache    CacheConfig `koanf:"cache"`
	Endpoint string      `koanf:"endpoint"`

	// Static values, used when Provider is "static".
	TMDBKey        string `koanf:"tmdbkey"`
	ServiceAccount string `koanf:"serviceaccount"`
}

type NotificationsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Default returns the configuration used before any file or environment override.
func Default() *Config {
	return &Config{
		Custom: CustomConfig{
			Trending: TrendingConfig{
				Timezone:  "UTC",
				Limit:     50,
				Retention: 8 * 24 * time.Hour,
				Interval:  time.Hour,
			},
			Progress: ProgressConfig{
				Cache:     CacheConfig{TTL: 2 * time.Minute, Size: 10000},
				Retention: 30 * 24 * time.Hour,
				Interval:  6 * time.Hour,
			},
			Downloads: DownloadsConfig{
				Dir:   "/data/downloads",
				Store: StoreConfig{Path: "/data/downloads/.store"},
			},
			TMDB: TMDBConfig{
				API:     "https://api.themoviedb.org/3",
				Images:  "https://image.tmdb.org/t/p",
				Rate:    20,
				Burst:   5,
				Timeout: 10 * time.Second,
			},
			FCM: FCMConfig{
				Endpoint: "https://fcm.googleapis.com/v1",
				Timeout:  10 * time.Second,
			},
			Secrets: SecretsConfig{
				Provider: "static",
				Cache:    CacheConfig{TTL: 5 * time.Minute, Size: 100},
			},
			Notifications: NotificationsConfig{
				Enabled: true,
			},
		},
	}
}

// Load layers defaults, the config file and CUSTOM_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// envKey maps CUSTOM_SECRETS_CACHE_TTL to custom.secrets.cache.ttl.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", ".")
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
