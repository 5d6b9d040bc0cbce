// Package dossiercache caches the per-student dossier counts the group
// listing computes at read time. Counting hits the dossiers table once per
// member per page; the cache keeps the operator UI snappy on large groups.
package dossiercache

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	platformredis "scolaris/internal/platform/redis"
	"scolaris/pkg/domain"
)

const keyPrefix = "scolaris:dossiercount:"

// Counter is the authoritative count source.
type Counter interface {
	CountDossiersByStudent(ctx context.Context, studentID domain.StudentID) (int, error)
}

// Cache fronts a Counter with redis. With no redis client it degrades to
// calling through, so wiring stays unconditional.
type Cache struct {
	counter Counter
	redis   *platformredis.Client
	ttl     time.Duration
	group   singleflight.Group
}

// New constructs the cache. redis may be nil.
func New(counter Counter, redis *platformredis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{counter: counter, redis: redis, ttl: ttl}
}

// Count returns the student's dossier count, cached when redis is available.
// Concurrent misses for the same student collapse into one database count.
func (c *Cache) Count(ctx context.Context, studentID domain.StudentID) (int, error) {
	if c.redis == nil {
		return c.counter.CountDossiersByStudent(ctx, studentID)
	}

	key := keyPrefix + studentID.String()
	if raw, err := c.redis.Get(ctx, key).Result(); err == nil {
		if count, convErr := strconv.Atoi(raw); convErr == nil {
			return count, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		count, err := c.counter.CountDossiersByStudent(ctx, studentID)
		if err != nil {
			return 0, err
		}
		// Best effort; a failed SET just means the next read counts again.
		_ = c.redis.Set(ctx, key, strconv.Itoa(count), c.ttl).Err()
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Invalidate drops a student's cached count. Merges call this for the master
// because relocated dossiers change its count immediately.
func (c *Cache) Invalidate(ctx context.Context, studentID domain.StudentID) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, keyPrefix+studentID.String()).Err()
}
