package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter is an in-memory per-key rate limiter. Each key gets its own
// token bucket; keys idle long enough to have refilled completely are
// forgotten, so recreating one never grants more than the bucket held.
// It is safe for concurrent use.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedEntry
	every    rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	once     sync.Once
}

type keyedEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

// NewKeyedLimiter allows burst events per key, refilling at r events per
// second. It starts a background goroutine that removes idle keys; call Stop
// to end it.
func NewKeyedLimiter(r float64, burst int) *KeyedLimiter {
	kl := &KeyedLimiter{
		limiters: make(map[string]*keyedEntry),
		every:    rate.Limit(r),
		burst:    burst,
		idle:     idleWindow(r, burst),
		stop:     make(chan struct{}),
	}
	go kl.cleanup()
	return kl
}

// minIdle bounds how often fast-refilling buckets are recreated.
const minIdle = 10 * time.Minute

// idleWindow is the time an empty bucket needs to refill, at least minIdle.
// A zero rate never refills, so such keys are never forgotten.
func idleWindow(r float64, burst int) time.Duration {
	if r <= 0 {
		return 0
	}
	full := time.Duration(float64(burst) / r * float64(time.Second))
	return max(full, minIdle)
}

// Allow reports whether key may proceed now, consuming one token if so.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, ok := kl.limiters[key]
	if !ok {
		e = &keyedEntry{limiter: rate.NewLimiter(kl.every, kl.burst)}
		kl.limiters[key] = e
	}
	e.last = time.Now()
	return e.limiter.Allow()
}

// Stop ends the cleanup goroutine.
func (kl *KeyedLimiter) Stop() {
	kl.once.Do(func() { close(kl.stop) })
}

func (kl *KeyedLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stop:
			return
		case <-ticker.C:
			if kl.idle == 0 {
				continue
			}
			kl.mu.Lock()
			cutoff := time.Now().Add(-kl.idle)
			for key, e := range kl.limiters {
				if e.last.Before(cutoff) {
					delete(kl.limiters, key)
				}
			}
			kl.mu.Unlock()
		}
	}
}
