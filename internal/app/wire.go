package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/quantfeed/costsim/internal/blob/s3"
	"github.com/quantfeed/costsim/internal/cache/redis"
	"github.com/quantfeed/costsim/internal/config"
	"github.com/quantfeed/costsim/internal/domain"
	"github.com/quantfeed/costsim/internal/feed"
	"github.com/quantfeed/costsim/internal/latency"
	"github.com/quantfeed/costsim/internal/pipeline"
	"github.com/quantfeed/costsim/internal/pricing"
	"github.com/quantfeed/costsim/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function. The
// persistence fields are nil outside full mode.
type Dependencies struct {
	Stream     *feed.Stream
	Pipeline   *pipeline.Pipeline
	Instrument *latency.Instrument

	EstimateStore domain.EstimateStore
	SnapshotCache domain.SnapshotCache
	EstimateBus   domain.EstimateBus
	BlobWriter    domain.BlobWriter
	Archiver      domain.Archiver
}

// needsPersistence returns true for modes that require the external
// postgres/redis/s3 backends.
func needsPersistence(mode string) bool {
	return mode == "full"
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

	deps := &Dependencies{}

	// --- Feed ---
	deps.Stream = feed.New(feed.Config{
		URL:        cfg.Feed.WsURL,
		MaxRetries: cfg.Feed.MaxRetries,
		RetryDelay: cfg.Feed.RetryDelay.Duration,
	}, logger)
	closers = append(closers, func() { _ = deps.Stream.Close() })

	// --- Estimators and pipeline ---
	deps.Instrument = latency.New(cfg.Latency.MaxSamples, logger)

	impactCfg := pricing.ImpactConfig{
		PermanentFactor:    cfg.Impact.PermanentFactor,
		TemporaryFactor:    cfg.Impact.TemporaryFactor,
		VolatilityScaling:  cfg.Impact.VolatilityScaling,
		ExecutionTimeframe: cfg.Impact.ExecutionTimeframeSec,
	}

	deps.Pipeline = pipeline.New(
		deps.Stream,
		pricing.NewFeeModel(logger),
		pricing.NewMakerTakerEstimator(),
		pricing.NewSlippageEstimator(logger),
		pricing.NewMarketImpactEstimator(impactCfg, logger),
		deps.Instrument,
		logger,
	)

	if !needsPersistence(cfg.Mode) {
		return deps, cleanup, nil
	}

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
	deps.EstimateStore = postgres.NewEstimateStore(pgClient.Pool())

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

	deps.SnapshotCache = redis.NewSnapshotCache(redisClient, cfg.Redis.CacheTTL.Duration)
	deps.EstimateBus = redis.NewEstimateBus(redisClient)

	// --- S3 blob storage (only when archiving is enabled) ---
	if cfg.Archive.Enabled {
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
		deps.Archiver = s3blob.NewEstimateArchiver(deps.BlobWriter, deps.EstimateStore, logger)
	}

	return deps, cleanup, nil
}
