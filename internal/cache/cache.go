// Package cache provides the read-through cache used by the services.
//
// Values are opaque byte slices; GetOrFetch and Store handle JSON encoding.
// The cache is a disposable view of the store: a failed lookup or write is
// logged and the caller falls back to the store.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores serialized values under string keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

const (
	BackendSturdyc = "sturdyc"
	BackendLRU     = "lru"
)

// Config configures a cache backend.
type Config struct {
	Backend string
	// Capacity is the maximum number of entries.
	Capacity int
	// NumShards only applies to sturdyc.
	NumShards int
	// TTL bounds how long an entry can outlive a missed invalidation.
	TTL time.Duration
	// EvictionPercentage only applies to sturdyc.
	EvictionPercentage int
}

// DefaultConfig returns a sturdyc configuration suitable for a single node.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSturdyc,
		Capacity:           10000,
		NumShards:          64,
		TTL:                24 * time.Hour,
		EvictionPercentage: 10,
	}
}

// Validate checks the settings required by the selected backend.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	switch c.Backend {
	case BackendSturdyc:
		if c.NumShards <= 0 {
			return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
		}
		if c.NumShards > c.Capacity {
			return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
		}
		if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
			return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
		}
	case BackendLRU:
	default:
		return &ConfigError{Field: "Backend", Message: fmt.Sprintf("unknown backend %q", c.Backend)}
	}
	return nil
}

// ConfigError describes an invalid cache setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

// New builds the configured backend wrapped with metrics.
func New(cfg Config) (Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		backend Cache
		err     error
	)
	switch cfg.Backend {
	case BackendLRU:
		backend, err = NewLRU(cfg)
	default:
		backend, err = NewSturdyc(cfg)
	}
	if err != nil {
		return nil, err
	}
	return NewInstrumented(backend), nil
}
