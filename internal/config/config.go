// Package config loads sldview configuration.
//
// Sources are layered, later ones winning: built-in defaults, a YAML file
// (sldview.yaml in the working directory unless a path is given),
// SLDVIEW_* environment variables and explicitly set command-line flags.
// Environment variables use a double underscore between sections, so
// SLDVIEW_FETCH__TIMEOUT sets fetch.timeout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	appName     = "sldview"
	envPrefix   = "SLDVIEW_"
	DefaultFile = "sldview.yaml"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the complete configuration.
type Config struct {
	Fetch  FetchConfig  `koanf:"fetch"`
	Cache  CacheConfig  `koanf:"cache"`
	Style  StyleConfig  `koanf:"style"`
	Viewer ViewerConfig `koanf:"viewer"`
	Server ServerConfig `koanf:"server"`
	Batch  BatchConfig  `koanf:"batch"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// FetchConfig bounds document retrieval.
type FetchConfig struct {
	Timeout   time.Duration `koanf:"timeout"`
	MaxBytes  int64         `koanf:"max_bytes"`
	Retries   int           `koanf:"retries"`
	UserAgent string        `koanf:"user_agent"`
}

// CacheConfig selects where compiled styles are kept.
type CacheConfig struct {
	Backend  string        `koanf:"backend"`
	Dir      string        `koanf:"dir"`
	TTL      time.Duration `koanf:"ttl"`
	RedisURL string        `koanf:"redis_url"`
}

// StyleConfig controls compilation.
type StyleConfig struct {
	Classification string `koanf:"classification"`
	SmoothRamps    bool   `koanf:"smooth_ramps"`
}

// ViewerConfig holds the viewer-level settings of built configs.
type ViewerConfig struct {
	Version       string  `koanf:"version"`
	Mode          string  `koanf:"mode"`
	BaseMap       string  `koanf:"base_map"`
	Opacity       float64 `koanf:"opacity"`
	CacheDuration string  `koanf:"cache_duration"`
	InstanceURL   string  `koanf:"instance_url"`
}

// ServerConfig configures `sldview serve`.
type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// BatchConfig configures `sldview batch`.
type BatchConfig struct {
	Concurrency int `koanf:"concurrency"`
}

// Defaults returns the built-in defaults as koanf keys.
func Defaults() map[string]any {
	return map[string]any{
		"fetch.timeout":          "30s",
		"fetch.max_bytes":        int64(10 << 20),
		"fetch.retries":          2,
		"fetch.user_agent":       "CKAN-TerriaView/1.0",
		"cache.backend":          BackendFile,
		"cache.dir":              DefaultCacheDir(),
		"cache.ttl":              "1h",
		"cache.redis_url":        "",
		"style.classification":   "bin",
		"style.smooth_ramps":     true,
		"viewer.version":         "8.0.0",
		"viewer.mode":            "3D",
		"viewer.base_map":        "basemap-positron",
		"viewer.opacity":         0.8,
		"viewer.cache_duration":  "5m",
		"viewer.instance_url":    "",
		"server.addr":            ":8080",
		"server.request_timeout": "60s",
		"batch.concurrency":      4,
	}
}

// flagKeys maps command-line flag names onto config keys. Flags not listed
// here are command options, not configuration.
var flagKeys = map[string]string{
	"timeout":        "fetch.timeout",
	"max-bytes":      "fetch.max_bytes",
	"retries":        "fetch.retries",
	"user-agent":     "fetch.user_agent",
	"cache":          "cache.backend",
	"cache-dir":      "cache.dir",
	"cache-ttl":      "cache.ttl",
	"redis-url":      "cache.redis_url",
	"classification": "style.classification",
	"smooth":         "style.smooth_ramps",
	"viewer-url":     "viewer.instance_url",
	"viewer-mode":    "viewer.mode",
	"opacity":        "viewer.opacity",
	"addr":           "server.addr",
	"concurrency":    "batch.concurrency",
}

// Load builds the configuration. path names a YAML file; when empty,
// sldview.yaml is used if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(path)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// SLDVIEW_CACHE__REDIS_URL -> cache.redis_url
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// findConfigFile returns the explicit path, or the default file when it
// exists in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}
	return ""
}

// DefaultCacheDir returns the cache directory using the XDG convention
// (~/.cache/sldview/).
func DefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, ".cache", appName)
}
