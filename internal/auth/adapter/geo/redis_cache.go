package geo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"
	"secure-auth/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "geo:"

// CachedLocator stores successful lookups of another GeoLocator in Redis.
// Cache errors are logged and the lookup falls through to the wrapped locator.
type CachedLocator struct {
	next repository.GeoLocator
	rdb  redis.Cmdable
	ttl  time.Duration
	log  logger.Logger
}

// NewCachedLocator wraps next with a Redis cache whose entries live for ttl.
func NewCachedLocator(next repository.GeoLocator, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedLocator {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedLocator{next: next, rdb: rdb, ttl: ttl, log: log.WithComponent("geo_cache")}
}

func (c *CachedLocator) Locate(ctx context.Context, ip string) (model.GeoResult, error) {
	key := cacheKeyPrefix + ip

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached model.GeoResult
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
		c.log.Warnf("Discarding malformed cache entry %s", key)
	case !errors.Is(err, redis.Nil):
		c.log.Debugf("Geo cache read failed: %v", err)
	}

	result, err := c.next.Locate(ctx, ip)
	if err != nil {
		return result, err
	}
	if result.Status == model.GeoAbsent {
		return result, nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Debugf("Geo cache write failed: %v", err)
	}
	return result, nil
}

var _ repository.GeoLocator = (*CachedLocator)(nil)
