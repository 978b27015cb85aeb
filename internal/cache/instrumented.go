package cache

import (
	"context"
	"sync"

	"github.com/msomdec/recipe-box/internal/metrics"
)

// Generational is implemented by caches that count invalidations, so a
// read-through can tell whether its value was fetched before one ran.
type Generational interface {
	Generation() uint64
	// SetIfGeneration writes value only if no invalidation happened since
	// gen was read. It reports whether the value was written.
	SetIfGeneration(ctx context.Context, key string, value []byte, gen uint64) (bool, error)
}

// Instrumented counts lookups and invalidations of the wrapped cache and
// tracks an invalidation generation.
type Instrumented struct {
	next Cache

	mu  sync.Mutex
	gen uint64
}

var _ Generational = (*Instrumented)(nil)

// NewInstrumented wraps next.
func NewInstrumented(next Cache) *Instrumented {
	return &Instrumented{next: next}
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := i.next.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
	case ok:
		metrics.CacheRequests.WithLabelValues("hit").Inc()
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}
	return v, ok, err
}

func (i *Instrumented) Set(ctx context.Context, key string, value []byte) error {
	return i.next.Set(ctx, key, value)
}

func (i *Instrumented) Delete(ctx context.Context, key string) error {
	metrics.CacheInvalidations.WithLabelValues("key").Inc()
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gen++
	return i.next.Delete(ctx, key)
}

func (i *Instrumented) DeleteByPrefix(ctx context.Context, prefix string) error {
	metrics.CacheInvalidations.WithLabelValues("prefix").Inc()
	i.mu.Lock()
	defer i.mu.Unlock()
	i.gen++
	return i.next.DeleteByPrefix(ctx, prefix)
}

func (i *Instrumented) Generation() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.gen
}

func (i *Instrumented) SetIfGeneration(ctx context.Context, key string, value []byte, gen uint64) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.gen != gen {
		metrics.CacheRequests.WithLabelValues("stale").Inc()
		return false, nil
	}
	return true, i.next.Set(ctx, key, value)
}
