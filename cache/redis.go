package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces document keys in Redis.
const DefaultKeyPrefix = "licenses:document:"

// Redis is a Documents cache shared between server instances.
type Redis struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

// NewRedis wraps rdb. An empty keyPrefix means DefaultKeyPrefix, ttl <= 0
// means DefaultTTL.
func NewRedis(rdb *redis.Client, keyPrefix string, ttl time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (r *Redis) key(id string) string { return r.keyNS + id }

func (r *Redis) Put(ctx context.Context, id string, raw []byte) error {
	return r.rdb.Set(ctx, r.key(id), raw, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, id string) ([]byte, bool, error) {
	val, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Del(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, r.key(id)).Err()
}

// Ping checks the connection, for startup.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
