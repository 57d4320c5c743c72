package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/organizer-billing/internal/domain/entity"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/cache"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

func TestSnapshotCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := helpers.NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = rdb.Close() })

	c := cache.NewSnapshotCache(rdb, time.Minute)
	ctx := context.Background()
	userID := uuid.NewString()

	_, ok, err := c.Get(ctx, userID)
	require.NoError(t, err)
	require.False(t, ok)

	snap := &entity.BillingSnapshot{
		Profile: &entity.BillingProfile{
			ID:       uuid.NewString(),
			UserID:   userID,
			Identity: entity.LegalEntity{BusinessName: "Acme SAS", TaxID: "900123456-7", LegalRepresentative: "Carlos Ruiz"},
		},
		BankAccounts:     []entity.BankAccount{},
		Documents:        []entity.BillingDocument{},
		EntityTypeLocked: true,
		MissingDocuments: []entity.DocumentType{entity.DocumentRUT},
	}
	require.NoError(t, c.Set(ctx, userID, snap))

	got, ok, err := c.Get(ctx, userID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entity.EntityLegal, got.Profile.EntityType())
	require.Equal(t, snap.MissingDocuments, got.MissingDocuments)

	ttl, err := rdb.TTL(ctx, cache.Key(userID)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx, userID))
	_, ok, err = c.Get(ctx, userID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshotCache_StaleEntryIsMiss(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := helpers.NewRedisClient(addr, "", 0)
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	userID := uuid.NewString()
	require.NoError(t, rdb.Set(ctx, cache.Key(userID), "not-json", time.Minute).Err())

	c := cache.NewSnapshotCache(rdb, time.Minute)
	_, ok, err := c.Get(ctx, userID)
	require.NoError(t, err)
	require.False(t, ok)

	n, err := rdb.Exists(ctx, cache.Key(userID)).Result()
	require.NoError(t, err)
	require.Zero(t, n)
}
