// Package cache wraps the fast key-value store the service uses as its token
// ledger and announcement cache.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is the contract the rest of the service programs against.
//
// Del reports how many keys it actually removed, which makes it usable as an
// atomic take: concurrent deletes of the same key see the removal exactly
// once. An empty key set must be a no-op, never an error; some drivers
// reject an empty DEL and callers routinely pass the result of a Keys scan
// straight in.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
}
