// Package counter keeps per-platform event counters in Redis hashes.
package counter

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AdGenie/app/models"
)

const (
	connectionsLinkedKey = "connection:counters:linked"
	connectionsFailedKey = "connection:counters:failed"
	generationsKey       = "adgen:counters:generated"
)

// Counter is safe to use as a nil pointer; every call is then a no-op.
type Counter struct {
	rdb redis.Cmdable
}

func New(rdb redis.Cmdable) *Counter {
	return &Counter{rdb: rdb}
}

// Snapshot holds the counters of every kind by platform.
type Snapshot struct {
	ConnectionsLinked map[models.Platform]int64 `json:"connections_linked"`
	ConnectionsFailed map[models.Platform]int64 `json:"connections_failed"`
	Generations       map[models.Platform]int64 `json:"generations"`
}

// ConnectionLinked counts a completed connection attempt.
func (c *Counter) ConnectionLinked(ctx context.Context, platform models.Platform) {
	c.incr(ctx, connectionsLinkedKey, platform)
}

// ConnectionFailed counts an attempt that failed after its platform was known.
func (c *Counter) ConnectionFailed(ctx context.Context, platform models.Platform) {
	c.incr(ctx, connectionsFailedKey, platform)
}

// Generated counts a content generation.
func (c *Counter) Generated(ctx context.Context, platform models.Platform) {
	c.incr(ctx, generationsKey, platform)
}

func (c *Counter) incr(ctx context.Context, key string, platform models.Platform) {
	if c == nil || c.rdb == nil {
		return
	}
	// counters are best effort and never fail the request
	if err := c.rdb.HIncrBy(ctx, key, string(platform), 1).Err(); err != nil {
		log.Warnf("[Counter] HINCRBY %s %s: %v", key, platform, err)
	}
}

// Snapshot reads all counters.
func (c *Counter) Snapshot(ctx context.Context) (Snapshot, error) {
	s := Snapshot{
		ConnectionsLinked: map[models.Platform]int64{},
		ConnectionsFailed: map[models.Platform]int64{},
		Generations:       map[models.Platform]int64{},
	}
	if c == nil || c.rdb == nil {
		return s, nil
	}

	for key, dst := range map[string]map[models.Platform]int64{
		connectionsLinkedKey: s.ConnectionsLinked,
		connectionsFailedKey: s.ConnectionsFailed,
		generationsKey:       s.Generations,
	} {
		vals, err := c.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return s, err
		}
		for field, raw := range vals {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			dst[models.Platform(field)] = n
		}
	}
	return s, nil
}
