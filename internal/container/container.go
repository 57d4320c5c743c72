// Package container builds the process-wide dependency graph once at startup
// and hands it to the router and commands explicitly.
package container

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/organizer-billing/config"
	"github.com/oksasatya/organizer-billing/internal/application"
	repo "github.com/oksasatya/organizer-billing/internal/domain/repository"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/cache"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/gcs"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/organizer-billing/internal/infrastructure/postgres"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/s3store"
	"github.com/oksasatya/organizer-billing/internal/infrastructure/search"
	"github.com/oksasatya/organizer-billing/pkg/helpers"
)

// Container holds the constructed infrastructure clients and services.
// Optional clients (Redis, RabbitMQ, Elasticsearch) are nil when they could
// not be reached at startup; the services treat them as best-effort.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool *pgxpool.Pool
	Redis  *redis.Client
	GCS    *storage.Client
	Rabbit *helpers.RabbitPublisher
	ES     *elasticsearch.Client
	JWT    *helpers.JWTManager

	Profiles  repo.ProfileStore
	Documents repo.DocumentStore

	Onboarding *application.OnboardingService
	Accounts   *application.BankAccountService

	closers []func()
}

// New connects every backend named by cfg and wires the billing services.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		JWT:    helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTTL),
	}

	if err := c.initProfileStore(ctx); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.initDocumentStore(ctx); err != nil {
		c.Close()
		return nil, err
	}
	c.initOptional(ctx)

	var (
		snapshots application.SnapshotCache
		events    application.EventPublisher
		indexer   application.ProfileIndexer
	)
	if c.Redis != nil {
		snapshots = cache.NewSnapshotCache(c.Redis, cfg.SnapshotCacheTTL)
	}
	if c.Rabbit != nil {
		events = c.Rabbit
	}
	if c.ES != nil {
		idx := search.NewProfileIndex(c.ES, cfg.ESBillingIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("billing profile index not ready; indexing stays best-effort")
		}
		indexer = idx
	}

	c.Onboarding = application.NewOnboardingService(c.Profiles, c.Documents, snapshots, events, indexer, logger, application.OnboardingOptions{
		MaxUploadBytes:   cfg.UploadMaxBytes,
		StoreCallTimeout: cfg.StoreCallTimeout,
		RollbackTimeout:  cfg.RollbackTimeout,
	})
	c.Accounts = application.NewBankAccountService(c.Profiles, snapshots, events, logger)
	return c, nil
}

func (c *Container) initProfileStore(ctx context.Context) error {
	if c.Config.ProfileStore == "memory" {
		c.Logger.Warn("PROFILE_STORE=memory; billing data is lost on restart")
		c.Profiles = memory.NewBillingRepository()
		return nil
	}

	pool, err := pginfra.NewPool(ctx, c.Config.PostgresDSN(), c.Config.DBMaxConns, c.Config.DBMinConns, c.Config.DBMaxConnLife)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	c.PGPool = pool
	c.closers = append(c.closers, pool.Close)

	if err := pginfra.Migrate(c.Config.PostgresDSN(), c.Config.MigrationsDir, c.Logger); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	c.Profiles = pginfra.NewBillingRepository(pool)
	return nil
}

func (c *Container) initDocumentStore(ctx context.Context) error {
	switch c.Config.StorageDriver {
	case "memory":
		c.Logger.Warn("STORAGE_DRIVER=memory; uploaded documents are kept in process memory")
		c.Documents = memory.NewDocumentStore()
	case "s3":
		store, err := s3store.New(ctx, s3store.Options{
			Bucket:    c.Config.S3Bucket,
			Region:    c.Config.S3Region,
			Endpoint:  c.Config.S3Endpoint,
			AccessKey: c.Config.S3AccessKey,
			SecretKey: c.Config.S3SecretKey,
		})
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		c.Documents = store
	default:
		client, err := helpers.NewGCSClient(ctx, c.Config.GCSCredentialsJSONPath)
		if err != nil {
			return fmt.Errorf("gcs: %w", err)
		}
		c.GCS = client
		c.closers = append(c.closers, func() { _ = client.Close() })
		c.Documents = gcs.NewDocumentStore(client, c.Config.GCSBucket)
	}
	return nil
}

// initOptional connects the best-effort backends. A failure is logged and the
// matching feature is switched off.
func (c *Container) initOptional(ctx context.Context) {
	rdb := helpers.NewRedisClient(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		c.Logger.WithError(err).Warn("redis unavailable; snapshot cache, sessions and rate limiting disabled")
		_ = rdb.Close()
	} else {
		c.Redis = rdb
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	if c.Config.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(c.Config.RabbitMQURL, c.Config.RabbitMQBillingQueue)
		if err != nil {
			c.Logger.WithError(err).Warn("rabbitmq unavailable; billing events disabled")
		} else {
			c.Rabbit = pub
			c.closers = append(c.closers, pub.Close)
		}
	}

	if addrs := c.Config.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, c.Config.ElasticsearchUser, c.Config.ElasticsearchPass)
		if err != nil {
			c.Logger.WithError(err).Warn("elasticsearch client init failed; profile indexing disabled")
		} else {
			c.ES = es
		}
	}
}

// Close releases every client in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
