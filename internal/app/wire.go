package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/0xphantasia/equilibrium/internal/blob/s3"
	"github.com/0xphantasia/equilibrium/internal/cache/redis"
	"github.com/0xphantasia/equilibrium/internal/config"
	"github.com/0xphantasia/equilibrium/internal/domain"
	"github.com/0xphantasia/equilibrium/internal/notify"
	"github.com/0xphantasia/equilibrium/internal/platform/coingecko"
	"github.com/0xphantasia/equilibrium/internal/quote"
	"github.com/0xphantasia/equilibrium/internal/server/handler"
	"github.com/0xphantasia/equilibrium/internal/store/local"
	"github.com/0xphantasia/equilibrium/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function. Optional subsystems (Redis, S3) leave their fields nil when not
// configured.
type Dependencies struct {
	PositionStore domain.PositionStore
	Quotes        *quote.Cache

	// Redis-backed, nil when redis is not configured.
	PriceCache  domain.PriceCache
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter

	// S3-backed, nil when s3 is not enabled.
	Archiver domain.SnapshotArchiver

	Notifier *notify.Notifier

	// Pingers feed the health endpoint, keyed by dependency name.
	Pingers map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- Position store: PostgreSQL when configured, local file otherwise ---
	if cfg.Postgres.Enabled() {
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

		deps.PositionStore = postgres.NewPositionStore(pgClient.Pool())
		deps.Pingers["postgres"] = pgClient.Ping
	} else {
		localStore, err := local.NewPositionStore(cfg.Local.Path)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: local store: %w", err)
		}
		deps.PositionStore = localStore
	}

	// --- Quote cache over the upstream price feed ---
	feed := coingecko.NewClient(cfg.PriceFeed.BaseURL, cfg.PriceFeed.Timeout.Duration)
	deps.Quotes = quote.New(feed, cfg.PriceFeed.CacheTTL.Duration, logger)

	// --- Redis (optional) ---
	if cfg.Redis.Enabled() {
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

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Pingers["redis"] = redisClient.Ping
	}

	// --- S3 snapshot archive (optional) ---
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

		deps.Archiver = s3blob.NewSnapshotArchiver(s3blob.NewWriter(s3Client))
		deps.Pingers["s3"] = s3Client.Health
	}

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
