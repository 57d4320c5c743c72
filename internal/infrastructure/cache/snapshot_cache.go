// Package cache keeps billing snapshots in Redis.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

const keyPrefix = "billing:snapshot:"

type SnapshotCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewSnapshotCache(rdb redis.Cmdable, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

func Key(userID string) string { return keyPrefix + userID }

func (c *SnapshotCache) Get(ctx context.Context, userID string) (*entity.BillingSnapshot, bool, error) {
	var snap entity.BillingSnapshot
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, Key(userID), &snap)
	if err != nil || !ok {
		return nil, false, err
	}
	return &snap, true, nil
}

func (c *SnapshotCache) Set(ctx context.Context, userID string, snap *entity.BillingSnapshot) error {
	return helpers.RedisSetJSON(ctx, c.rdb, Key(userID), snap, c.ttl)
}

func (c *SnapshotCache) Invalidate(ctx context.Context, userID string) error {
	return helpers.RedisDel(ctx, c.rdb, Key(userID))
}
