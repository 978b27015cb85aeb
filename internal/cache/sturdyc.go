package cache

import (
	"context"
	"strings"

	"github.com/viccon/sturdyc"
)

// Sturdyc is a sharded in-memory cache backed by sturdyc.
type Sturdyc struct {
	client *sturdyc.Client[[]byte]
}

// NewSturdyc creates a sturdyc-backed cache.
func NewSturdyc(cfg Config) (*Sturdyc, error) {
	cfg.Backend = BackendSturdyc
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)
	return &Sturdyc{client: client}, nil
}

func (s *Sturdyc) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.client.Get(key)
	return v, ok, nil
}

func (s *Sturdyc) Set(_ context.Context, key string, value []byte) error {
	s.client.Set(key, value)
	return nil
}

func (s *Sturdyc) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

func (s *Sturdyc) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Len returns the number of cached entries.
func (s *Sturdyc) Len() int {
	return s.client.Size()
}
