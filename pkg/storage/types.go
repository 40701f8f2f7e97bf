package storage

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the backing store cannot be used at all.
	ErrUnavailable = errors.New("storage: unavailable")
	// ErrQuotaExceeded indicates a write would exceed the configured capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrEmptyKey indicates a blank key.
	ErrEmptyKey = errors.New("storage: key must not be empty")
)

// Storage is a string key/value store. Remove of a missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Prober is implemented by backends that can report availability up front.
type Prober interface {
	Available(ctx context.Context) error
}

// Probe returns nil when s is usable. Backends without Prober are assumed
// available.
func Probe(ctx context.Context, s Storage) error {
	if s == nil {
		return ErrUnavailable
	}
	if p, ok := s.(Prober); ok {
		return p.Available(ctx)
	}
	return nil
}
