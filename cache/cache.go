// Package cache stores raw entitlement documents between requests.
//
// Documents are cached as the bytes that were uploaded, never as engines:
// every request re-normalizes and builds its own license.Engine.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a document stays cached when no TTL is configured.
const DefaultTTL = 30 * time.Minute

// Documents is the cache contract shared by Memory and Redis.
type Documents interface {
	Put(ctx context.Context, id string, raw []byte) error
	// Get reports ok=false for unknown or expired ids; err is for backend failures.
	Get(ctx context.Context, id string) (raw []byte, ok bool, err error)
	Del(ctx context.Context, id string) error
}
