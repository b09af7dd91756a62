package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "primeflip/internal/blob/s3"
	"primeflip/internal/cache/redis"
	"primeflip/internal/catalog"
	"primeflip/internal/config"
	"primeflip/internal/domain"
	"primeflip/internal/notify"
	"primeflip/internal/platform/wfmarket"
	"primeflip/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Catalog   domain.CatalogStore
	Snapshots domain.SnapshotStore
	Users     domain.UserStore
	Trades    domain.TradeSessionStore

	// Cache / pub-sub
	Cache domain.OpportunityCache
	Bus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Marketplace client
	Market *wfmarket.Client

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Catalog = postgres.NewCatalogStore(pool)
	deps.Snapshots = postgres.NewSnapshotStore(pool)
	deps.Users = postgres.NewUserStore(pool)
	deps.Trades = postgres.NewTradeSessionStore(pool)

	// Seed the default catalog on first boot.
	if err := catalog.Ensure(ctx, deps.Catalog); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: seed catalog: %w", err)
	}

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Cache = redis.NewOpportunityCache(redisClient)
	deps.Bus = redis.NewSignalBus(redisClient)

	// --- S3 blob storage (optional; snapshot archival) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.Snapshots)
	}

	// --- Marketplace client ---
	deps.Market = wfmarket.NewClient(wfmarket.Config{
		BaseURL:           cfg.Market.BaseURL,
		UserAgent:         cfg.Market.UserAgent,
		RequestTimeout:    cfg.Market.RequestTimeout.Duration,
		MaxRetries:        cfg.Market.MaxRetries,
		BackoffBase:       cfg.Market.BackoffBase.Duration,
		BackoffCap:        cfg.Market.BackoffCap.Duration,
		RequestsPerSecond: cfg.Market.RequestsPerSecond,
	}, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
