// Command review is the back-office tool for KYC review: it searches billing
// profiles and records the verification decision on bank accounts.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/organizer-billing/config"
	"github.com/oksasatya/organizer-billing/internal/application"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/cache"
	pginfra "github.com/oksasatya/organizer-billing/internal/infrastructure/postgres"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/search"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-review", cfg.Env)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "search":
		es, esErr := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if esErr != nil {
			logger.WithError(esErr).Fatal("elasticsearch client")
		}
		err = runSearch(ctx, search.NewProfileIndex(es, cfg.ESBillingIndex), os.Args[2:], os.Stdout)
	case "set-status":
		pool, pgErr := pginfra.NewPool(ctx, cfg.PostgresDSN(), 2, 1, cfg.DBMaxConnLife)
		if pgErr != nil {
			logger.WithError(pgErr).Fatal("postgres")
		}
		defer pool.Close()

		// cached snapshots must not outlive the decision
		var snapshots application.SnapshotCache
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if pingErr := rdb.Ping(ctx).Err(); pingErr != nil {
			logger.WithError(pingErr).Warn("redis unavailable; cached snapshots expire on their own")
		} else {
			snapshots = cache.NewSnapshotCache(rdb, cfg.SnapshotCacheTTL)
		}

		svc := application.NewBankAccountService(pginfra.NewBillingRepository(pool), snapshots, nil, logger)
		err = runSetStatus(ctx, svc, os.Args[2:], os.Stdout)
	default:
		err = errUsage
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.WithError(err).Error("review command failed")
		os.Exit(1)
	}
}
