package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	s3blob "github.com/cloudcurio/arbfinder/internal/blob/s3"
	"github.com/cloudcurio/arbfinder/internal/cache/redis"
	"github.com/cloudcurio/arbfinder/internal/config"
	"github.com/cloudcurio/arbfinder/internal/corpus"
	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/fees"
	"github.com/cloudcurio/arbfinder/internal/match"
	"github.com/cloudcurio/arbfinder/internal/score"
	"github.com/cloudcurio/arbfinder/internal/store/postgres"
	"github.com/cloudcurio/arbfinder/internal/valuation"
)

// Dependencies bundles every domain-level dependency the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Engine
	Corpus   *corpus.Index
	Matcher  *match.Matcher
	Agg      *aggregate.Aggregator
	Adjuster *valuation.Adjuster
	FeeModel *fees.Model
	Scorer   *score.Scorer

	// Stores (nil when postgres is disabled)
	ListingStore     domain.ListingStore
	ComparableStore  domain.ComparableStore
	OpportunityStore domain.OpportunityStore

	// Redis (nil when disabled)
	ValuationCache domain.ValuationCache
	SignalBus      domain.SignalBus

	// Blob storage (nil when S3 is disabled)
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Engine ---
	deps.Corpus = corpus.New(corpus.Config{
		Threshold:    cfg.Engine.SimilarityThreshold,
		HalflifeDays: cfg.Engine.HalflifeDays,
	})
	deps.Matcher = match.New(match.Config{Threshold: cfg.Engine.SimilarityThreshold}, logger)
	deps.Agg = aggregate.New(cfg.Engine.HalflifeDays)

	adjuster, err := valuation.New(valuationConfig(cfg), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: valuation: %w", err)
	}
	deps.Adjuster = adjuster

	deps.FeeModel = fees.New(feeSchedules(cfg), logger)
	deps.Scorer = score.New(score.Config{
		TargetMarginPct: cfg.Scorer.TargetMarginPct,
		MinMarginPct:    cfg.Scorer.MinMarginPct,
		MinConfidence:   cfg.Scorer.MinConfidence,
	}, logger)

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
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
		deps.ListingStore = postgres.NewListingStore(pool)
		deps.ComparableStore = postgres.NewComparableStore(pool)
		deps.OpportunityStore = postgres.NewOpportunityStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
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

		deps.ValuationCache = redis.NewValuationCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage ---
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
		deps.BlobReader = s3blob.NewReader(s3Client)
		// Archival needs the listing store for ListBefore + DeleteBefore.
		if store, ok := deps.ListingStore.(s3blob.ListingArchiveStore); ok {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.BlobReader, store)
		}
	}

	return deps, cleanup, nil
}

// valuationConfig translates the TOML category and damage sections into the
// adjuster's configuration.
func valuationConfig(cfg *config.Config) valuation.Config {
	conditions := make(map[string]valuation.ConditionTable)
	depreciation := make(map[string]valuation.DepreciationParams)
	for cat, cc := range cfg.Categories {
		depreciation[cat] = valuation.DepreciationParams{
			Model:    domain.DepreciationModel(cc.DepreciationModel),
			Rate:     cc.Rate,
			K:        cc.K,
			Floor:    cc.Floor,
			Slope:    cc.Slope,
			Midpoint: cc.Midpoint,
		}
		if len(cc.Conditions) > 0 {
			table := make(valuation.ConditionTable, len(cc.Conditions))
			for tag, mult := range cc.Conditions {
				table[domain.ConditionTag(tag)] = mult
			}
			conditions[cat] = table
		}
	}

	damage := make(valuation.DamageMatrix, len(cfg.Damage))
	for _, d := range cfg.Damage {
		damage[valuation.DamageKey{
			Type:     d.Type,
			Location: d.Location,
			Severity: d.Severity,
		}] = d.Deduction
	}

	return valuation.Config{
		HalflifeDays: cfg.Engine.HalflifeDays,
		Conditions:   conditions,
		Depreciation: depreciation,
		Damage:       damage,
	}
}

// feeSchedules converts the TOML fee section into domain schedules.
func feeSchedules(cfg *config.Config) map[string]domain.FeeSchedule {
	out := make(map[string]domain.FeeSchedule, len(cfg.Fees.Platforms))
	for id, s := range cfg.Fees.Platforms {
		out[id] = s.Schedule(id)
	}
	return out
}
