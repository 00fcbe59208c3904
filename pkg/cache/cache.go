// Package cache stores compiled styles between runs.
//
// Entries are opaque byte slices with an optional TTL. Three backends
// implement [Cache]:
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for servers running side by side
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// Keys come from a [Keyer] so that every option affecting a compile is part
// of the key.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by helpers that report a missing entry as an
// error rather than a boolean.
var ErrCacheMiss = errors.New("cache miss")

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the entry for key. A missing or expired entry is a miss
	// (false, nil error), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero or less never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// MustGet is Get with a miss reported as ErrCacheMiss.
func MustGet(ctx context.Context, c Cache, key string) ([]byte, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCacheMiss
	}
	return data, nil
}

// StyleKeyOpts are the compile options that change a cached style.
type StyleKeyOpts struct {
	Kind   string `json:"kind"`
	Mode   string `json:"mode"`
	Smooth bool   `json:"smooth"`
}

// Keyer generates cache keys.
type Keyer interface {
	// StyleKey is the key for the style compiled from source with opts.
	StyleKey(source string, opts StyleKeyOpts) string

	// DocumentKey is the key for an inline document, identified by content.
	DocumentKey(data []byte, opts StyleKeyOpts) string
}

// DefaultKeyer hashes every key component.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// StyleKey returns "style:<sha256>" over the source and options.
func (DefaultKeyer) StyleKey(source string, opts StyleKeyOpts) string {
	return hashKey("style", source, opts)
}

// DocumentKey returns "doc:<sha256>" over the content hash and options.
func (DefaultKeyer) DocumentKey(data []byte, opts StyleKeyOpts) string {
	return hashKey("doc", Hash(data), opts)
}
