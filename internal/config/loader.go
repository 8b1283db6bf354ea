package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBFINDER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBFINDER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setInt(&cfg.Engine.SimilarityThreshold, "ARBFINDER_ENGINE_SIMILARITY_THRESHOLD")
	setFloat64(&cfg.Engine.HalflifeDays, "ARBFINDER_ENGINE_HALFLIFE_DAYS")

	// ── Scorer ──
	setFloat64(&cfg.Scorer.TargetMarginPct, "ARBFINDER_SCORER_TARGET_MARGIN_PCT")
	setFloat64(&cfg.Scorer.MinMarginPct, "ARBFINDER_SCORER_MIN_MARGIN_PCT")
	setFloat64(&cfg.Scorer.MinConfidence, "ARBFINDER_SCORER_MIN_CONFIDENCE")
	setBool(&cfg.Scorer.RankIncludeSkips, "ARBFINDER_SCORER_RANK_INCLUDE_SKIPS")
	setFloat64(&cfg.Scorer.RankMinMarginPct, "ARBFINDER_SCORER_RANK_MIN_MARGIN_PCT")

	// ── Fees ──
	setStr(&cfg.Fees.ResalePlatform, "ARBFINDER_FEES_RESALE_PLATFORM")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ARBFINDER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ARBFINDER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBFINDER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBFINDER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBFINDER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBFINDER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBFINDER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBFINDER_POSTGRES_SSLMODE")
	setStr(&cfg.Postgres.SSLMode, "ARBFINDER_POSTGRES_SSL_MODE") // compatibility alias
	setInt(&cfg.Postgres.PoolMaxConns, "ARBFINDER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBFINDER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBFINDER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBFINDER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBFINDER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBFINDER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBFINDER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBFINDER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBFINDER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBFINDER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBFINDER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBFINDER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBFINDER_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBFINDER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBFINDER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBFINDER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBFINDER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBFINDER_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setInt(&cfg.Pipeline.Workers, "ARBFINDER_PIPELINE_WORKERS")
	setInt(&cfg.Pipeline.ListingLimit, "ARBFINDER_PIPELINE_LISTING_LIMIT")
	setDuration(&cfg.Pipeline.ScanInterval, "ARBFINDER_PIPELINE_SCAN_INTERVAL")
	setDuration(&cfg.Pipeline.ArchiveInterval, "ARBFINDER_PIPELINE_ARCHIVE_INTERVAL")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "ARBFINDER_PIPELINE_ARCHIVE_RETENTION_DAYS")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBFINDER_MODE")
	setStr(&cfg.LogLevel, "ARBFINDER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
