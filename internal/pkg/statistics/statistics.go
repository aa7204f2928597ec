// Package statistics collects the admin dashboard totals and keeps the last
// result in Redis for a short time.
package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AdGenie/app/models"
	"github.com/ManuelReschke/AdGenie/app/repository"
	"github.com/ManuelReschke/AdGenie/internal/pkg/metrics/counter"
)

const (
	CacheKeyDashboard = "statistics:dashboard"
	CacheExpiration   = 1 * time.Minute
)

type Collector struct {
	repos    *repository.Repositories
	counters *counter.Counter
	rdb      redis.Cmdable
	ttl      time.Duration
}

// NewCollector builds a collector. A nil rdb disables caching.
func NewCollector(repos *repository.Repositories, counters *counter.Counter, rdb redis.Cmdable, ttl time.Duration) *Collector {
	if ttl <= 0 {
		ttl = CacheExpiration
	}
	return &Collector{repos: repos, counters: counters, rdb: rdb, ttl: ttl}
}

// Dashboard returns the cached totals or computes and caches them.
func (c *Collector) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, CacheKeyDashboard).Bytes()
		if err == nil {
			var stats models.DashboardStats
			if json.Unmarshal(raw, &stats) == nil {
				return &stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warnf("[Statistics] read cache: %v", err)
		}
	}

	stats, err := c.Compute(ctx)
	if err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := c.rdb.Set(ctx, CacheKeyDashboard, raw, c.ttl).Err(); err != nil {
				log.Warnf("[Statistics] write cache: %v", err)
			}
		}
	}
	return stats, nil
}

// Compute reads the totals from the database and the event counters.
func (c *Collector) Compute(ctx context.Context) (*models.DashboardStats, error) {
	var (
		stats models.DashboardStats
		err   error
	)
	if stats.Users, err = c.repos.User.Count(); err != nil {
		return nil, err
	}
	if stats.Admins, err = c.repos.User.CountByRole(models.ROLE_ADMIN); err != nil {
		return nil, err
	}
	if stats.AccountLinks, err = c.repos.AccountLink.Count(); err != nil {
		return nil, err
	}
	if stats.Campaigns, err = c.repos.Campaign.Count(); err != nil {
		return nil, err
	}
	if stats.LinksByPlatform, err = c.repos.AccountLink.CountByPlatform(); err != nil {
		return nil, err
	}

	snap, err := c.counters.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	stats.ConnectionsLinked = snap.ConnectionsLinked
	stats.ConnectionsFailed = snap.ConnectionsFailed
	stats.Generations = snap.Generations
	stats.GeneratedAt = time.Now().UTC()
	return &stats, nil
}

// Invalidate drops the cached totals.
func (c *Collector) Invalidate(ctx context.Context) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, CacheKeyDashboard).Err(); err != nil {
		log.Warnf("[Statistics] invalidate: %v", err)
	}
}
