package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate rejects unknown enum values and non-positive limits.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Fetch.Timeout > 0, "fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	check(c.Fetch.MaxBytes > 0, "fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes)
	check(c.Fetch.Retries >= 0, "fetch.retries cannot be negative, got %d", c.Fetch.Retries)

	switch c.Cache.Backend {
	case BackendFile:
		check(c.Cache.Dir != "", "cache.dir is required for the file backend")
	case BackendRedis:
		check(c.Cache.RedisURL != "", "cache.redis_url is required for the redis backend")
	case BackendNone:
	default:
		check(false, "cache.backend must be file, redis or none, got %q", c.Cache.Backend)
	}
	check(c.Cache.TTL > 0, "cache.ttl must be positive, got %s", c.Cache.TTL)

	switch c.Style.Classification {
	case "bin", "auto":
	default:
		check(false, "style.classification must be bin or auto, got %q", c.Style.Classification)
	}

	check(c.Viewer.Opacity > 0 && c.Viewer.Opacity <= 1, "viewer.opacity must be in (0, 1], got %v", c.Viewer.Opacity)
	if c.Viewer.InstanceURL != "" {
		u, err := url.Parse(c.Viewer.InstanceURL)
		check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
			"viewer.instance_url must be an http(s) URL, got %q", c.Viewer.InstanceURL)
	}

	check(c.Server.Addr != "", "server.addr is required")
	check(c.Server.RequestTimeout > 0, "server.request_timeout must be positive, got %s", c.Server.RequestTimeout)
	check(c.Batch.Concurrency > 0, "batch.concurrency must be positive, got %d", c.Batch.Concurrency)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
