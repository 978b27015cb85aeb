package cache

import (
	"context"
	"log/slog"

	"github.com/goccy/go-json"
)

// FetchFunc loads a value from the source of truth on a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// GetOrFetch returns the cached value for key or, on a miss, calls fetch and
// caches its result. Errors from fetch are returned as is and nothing is
// cached; cache faults are logged and never fail the read.
//
// When c is Generational the fetched value is dropped instead of cached if
// any invalidation ran while fetch was in flight, since it may predate the
// write that caused it. Other caches rely on the TTL for that window.
func GetOrFetch[T any](ctx context.Context, c Cache, key string, fetch FetchFunc[T]) (T, error) {
	gc, generational := c.(Generational)
	var gen uint64
	if generational {
		gen = gc.Generation()
	}

	raw, ok, err := c.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("cache get failed", "key", key, "error", err)
	case ok:
		var v T
		decodeErr := json.Unmarshal(raw, &v)
		if decodeErr == nil {
			return v, nil
		}
		slog.Warn("cache entry undecodable, refetching", "key", key, "error", decodeErr)
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	if !generational {
		Store(ctx, c, key, v)
		return v, nil
	}

	raw, err = json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return v, nil
	}
	if stored, err := gc.SetIfGeneration(ctx, key, raw, gen); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	} else if !stored {
		slog.Debug("cache fill skipped after concurrent invalidation", "key", key)
	}
	return v, nil
}

// Store encodes v and writes it under key, logging any failure.
func Store(ctx context.Context, c Cache, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.Set(ctx, key, raw); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}
