package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Implementations own their schema bootstrap so the backend stays swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize fills in the default limit.
func (p Page) Normalize() Page {
	if p.Limit == 0 {
		p.Limit = DefaultPageLimit
	}
	return p
}

// Validate rejects non-positive limits and negative offsets.
func (p Page) Validate() error {
	if p.Limit <= 0 || p.Limit > MaxPageLimit {
		return NewError(ErrInvalidInput, "limit must be between 1 and 100")
	}
	if p.Offset < 0 {
		return NewError(ErrInvalidInput, "offset must not be negative")
	}
	return nil
}
