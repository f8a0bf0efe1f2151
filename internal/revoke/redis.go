package revoke

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "wm:revoked:"

// Redis is a Store backed by a shared Redis instance, so revocations
// are visible to every API replica. Keys carry a TTL equal to the
// revoked token's remaining lifetime and disappear on their own.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures the Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedis constructs a Store around an existing client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Redeem claims the id with SET NX, so concurrent redemptions across
// replicas still resolve to a single winner.
func (r *Redis) Redeem(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" || ttl <= 0 {
		return false, nil
	}
	claimed, err := r.client.SetNX(ctx, r.prefix+id, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !claimed, nil
}
