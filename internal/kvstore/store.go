package kvstore

import (
	"context"
	"errors"
)

// Store is the opaque local key-value store used for session data and the
// best-effort cart cache.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
