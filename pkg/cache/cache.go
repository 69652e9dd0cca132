package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Store keeps opaque blobs under string keys.
//
// GetMany returns ErrCacheMiss when any of the keys is absent, so a group
// written together with SetMany is read back whole or not at all.
type Store interface {
	GetMany(ctx context.Context, keys ...string) ([][]byte, error)
	SetMany(ctx context.Context, entries map[string][]byte, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
