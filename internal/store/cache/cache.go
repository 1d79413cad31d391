package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// CacheService is the caching contract used for the aggregated model
// listing. Values are marshalled to JSON by the implementation.
type CacheService interface {
	// Get retrieves a value and unmarshals it into the dest pointer.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}
