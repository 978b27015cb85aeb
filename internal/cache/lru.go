package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// LRU is a bounded least-recently-used cache with a per-entry TTL.
type LRU struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

type lruEntry struct {
	value   []byte
	expires time.Time
}

// NewLRU creates a golang-lru backed cache.
func NewLRU(cfg Config) (*LRU, error) {
	cfg.Backend = BackendLRU
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := lru.New(cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &LRU{cache: c, ttl: cfg.TTL, now: time.Now}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	e := v.(lruEntry)
	if l.now().After(e.expires) {
		l.cache.Remove(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte) error {
	l.cache.Add(key, lruEntry{value: value, expires: l.now().Add(l.ttl)})
	return nil
}

func (l *LRU) Delete(_ context.Context, key string) error {
	l.cache.Remove(key)
	return nil
}

func (l *LRU) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, k := range l.cache.Keys() {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			l.cache.Remove(key)
		}
	}
	return nil
}

// Len returns the number of cached entries, including expired ones not yet
// evicted.
func (l *LRU) Len() int {
	return l.cache.Len()
}
