package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suPer8Hu/im-archive/internal/archive"
)

const nameKeyPrefix = "directory:name:"

// nameMiss is cached for unknown users so repeated transcript builds do not
// hammer the directory for addresses it will never resolve.
const nameMiss = "\x00miss"

// CachedResolver is a Redis read-through cache in front of another resolver.
type CachedResolver struct {
	next archive.NameResolver
	rdb  *redis.Client
	ttl  time.Duration
}

var _ archive.NameResolver = (*CachedResolver)(nil)

func NewCachedResolver(next archive.NameResolver, rdb *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedResolver{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedResolver) DisplayName(ctx context.Context, user archive.Address) (string, error) {
	key := nameKeyPrefix + user.Bare

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		if cached == nameMiss {
			return "", fmt.Errorf("%w: user %s", archive.ErrNotFound, user.Bare)
		}
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Cache trouble is not a resolution failure; go to the source.
		return c.next.DisplayName(ctx, user)
	}

	name, err := c.next.DisplayName(ctx, user)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			_ = c.rdb.Set(ctx, key, nameMiss, c.ttl).Err()
		}
		return "", err
	}
	_ = c.rdb.Set(ctx, key, name, c.ttl).Err()
	return name, nil
}
