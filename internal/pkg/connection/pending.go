package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/AdGenie/app/models"
)

const (
	pendingKeyPrefix     = "pending_auth:"
	pendingUserKeyPrefix = "pending_auth_user:"
)

// PendingAuth marks an attempt that left for the provider and has not come back yet.
type PendingAuth struct {
	State     string          `json:"state"`
	UserID    uint            `json:"user_id"`
	Platform  models.Platform `json:"platform"`
	CreatedAt time.Time       `json:"created_at"`
}

// PendingStore keeps PendingAuth markers in Redis, keyed by state. A user has
// at most one open attempt per platform; starting another one for the same
// platform drops the previous marker.
type PendingStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewPendingStore(rdb redis.Cmdable, ttl time.Duration) *PendingStore {
	return &PendingStore{rdb: rdb, ttl: ttl}
}

func pendingKey(state string) string {
	return pendingKeyPrefix + state
}

func pendingUserKey(userID uint, platform models.Platform) string {
	return pendingUserKeyPrefix + strconv.FormatUint(uint64(userID), 10) + ":" + string(platform)
}

// Put stores p and replaces the user's previous attempt for the same platform.
func (s *PendingStore) Put(ctx context.Context, p PendingAuth) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, pendingKey(p.State), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("pending auth store: %w", err)
	}

	// SET ... GET swaps the index in one step; each previous state is
	// returned to exactly one caller, which drops its marker.
	prev, err := s.rdb.SetArgs(ctx, pendingUserKey(p.UserID, p.Platform), p.State, redis.SetArgs{
		TTL: s.ttl,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("pending auth index: %w", err)
	}
	if prev != "" && prev != p.State {
		if err := s.rdb.Del(ctx, pendingKey(prev)).Err(); err != nil {
			return fmt.Errorf("pending auth replace: %w", err)
		}
	}
	return nil
}

// Take returns the marker for state and deletes it in the same step. A marker
// can be taken once.
func (s *PendingStore) Take(ctx context.Context, state string) (*PendingAuth, error) {
	if state == "" {
		return nil, ErrUnknownPendingPlatform
	}
	raw, err := s.rdb.GetDel(ctx, pendingKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnknownPendingPlatform
	}
	if err != nil {
		return nil, fmt.Errorf("pending auth take: %w", err)
	}

	var p PendingAuth
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: corrupt marker: %v", ErrUnknownPendingPlatform, err)
	}

	// only clear the index if it still points at this attempt
	userKey := pendingUserKey(p.UserID, p.Platform)
	if cur, err := s.rdb.Get(ctx, userKey).Result(); err == nil && cur == state {
		s.rdb.Del(ctx, userKey)
	}
	return &p, nil
}
