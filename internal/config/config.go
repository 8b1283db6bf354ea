// Package config defines the top-level configuration for the arbfinder engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBFINDER_* environment variables.
type Config struct {
	Engine     EngineConfig              `toml:"engine"`
	Scorer     ScorerConfig              `toml:"scorer"`
	Fees       FeesConfig                `toml:"fees"`
	Categories map[string]CategoryConfig `toml:"categories"`
	Damage     []DamageEntry             `toml:"damage"`
	Postgres   PostgresConfig            `toml:"postgres"`
	Redis      RedisConfig               `toml:"redis"`
	S3         S3Config                  `toml:"s3"`
	Pipeline   PipelineConfig            `toml:"pipeline"`
	Mode       string                    `toml:"mode"`
	LogLevel   string                    `toml:"log_level"`
}

// EngineConfig holds the matching and aggregation parameters shared by the
// corpus index and the valuation flow.
type EngineConfig struct {
	// SimilarityThreshold is the token-set score (0-100) at or above which
	// two titles are considered the same item.
	SimilarityThreshold int `toml:"similarity_threshold"`
	// HalflifeDays controls the exponential decay weighting of comp ages.
	HalflifeDays float64 `toml:"halflife_days"`
}

// ScorerConfig holds the recommendation thresholds and the batch ranking
// policy. Margin thresholds are fractions of the acquisition price.
type ScorerConfig struct {
	TargetMarginPct  float64 `toml:"target_margin_pct"`
	MinMarginPct     float64 `toml:"min_margin_pct"`
	MinConfidence    float64 `toml:"min_confidence"`
	RankIncludeSkips bool    `toml:"rank_include_skips"`
	RankMinMarginPct float64 `toml:"rank_min_margin_pct"`
}

// FeesConfig selects the resale platform and carries every platform's fee
// schedule. Percentage components are fractions (0.10 == 10%).
type FeesConfig struct {
	ResalePlatform string                       `toml:"resale_platform"`
	Platforms      map[string]FeeScheduleConfig `toml:"platforms"`
}

// FeeScheduleConfig mirrors domain.FeeSchedule for TOML decoding.
type FeeScheduleConfig struct {
	InsertionFixed   float64 `toml:"insertion_fixed"`
	FinalValuePct    float64 `toml:"final_value_pct"`
	PaymentPct       float64 `toml:"payment_pct"`
	PaymentFixed     float64 `toml:"payment_fixed"`
	Cap              float64 `toml:"cap"`
	ShippingEstimate float64 `toml:"shipping_estimate"`
}

// Schedule converts the TOML shape into the domain schedule.
func (f FeeScheduleConfig) Schedule(platformID string) domain.FeeSchedule {
	return domain.FeeSchedule{
		PlatformID:       platformID,
		InsertionFixed:   f.InsertionFixed,
		FinalValuePct:    f.FinalValuePct,
		PaymentPct:       f.PaymentPct,
		PaymentFixed:     f.PaymentFixed,
		Cap:              f.Cap,
		ShippingEstimate: f.ShippingEstimate,
	}
}

// CategoryConfig holds one category's depreciation curve and optional
// condition-multiplier overrides. The "" (empty) category key is the fallback
// for categories without an explicit entry.
type CategoryConfig struct {
	// DepreciationModel is one of "linear", "exponential", "scurve".
	DepreciationModel string `toml:"depreciation_model"`

	// Linear: rate per month of age.
	Rate float64 `toml:"rate"`
	// Exponential: decay constant per month.
	K float64 `toml:"k"`
	// S-curve parameters.
	Floor    float64 `toml:"floor"`
	Slope    float64 `toml:"slope"`
	Midpoint float64 `toml:"midpoint"`

	// Conditions overrides specific tiers of the default condition table,
	// keyed by condition tag ("good", "fair", ...).
	Conditions map[string]float64 `toml:"conditions"`
}

// DamageEntry is one cell of the damage matrix: a (type, location, severity)
// key mapped to a deduction fraction in [0,1). "*" wildcards a dimension.
type DamageEntry struct {
	Type      string  `toml:"type"`
	Location  string  `toml:"location"`
	Severity  string  `toml:"severity"`
	Deduction float64 `toml:"deduction"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// PipelineConfig holds batch and watch-mode parameters.
type PipelineConfig struct {
	Workers              int      `toml:"workers"`
	ListingLimit         int      `toml:"listing_limit"`
	ScanInterval         duration `toml:"scan_interval"`
	ArchiveInterval      duration `toml:"archive_interval"`
	ArchiveRetentionDays int      `toml:"archive_retention_days"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "1h").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "1h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			SimilarityThreshold: 86,
			HalflifeDays:        90,
		},
		Scorer: ScorerConfig{
			TargetMarginPct:  0.20,
			MinMarginPct:     0.10,
			MinConfidence:    0.60,
			RankIncludeSkips: false,
			RankMinMarginPct: 0,
		},
		Fees: FeesConfig{
			ResalePlatform: "ebay",
			Platforms: map[string]FeeScheduleConfig{
				"ebay": {
					FinalValuePct: 0.1325,
					PaymentFixed:  0.30,
				},
			},
		},
		Categories: map[string]CategoryConfig{
			"": {
				DepreciationModel: "exponential",
				K:                 0.02,
			},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbfinder",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbfinder-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Pipeline: PipelineConfig{
			Workers:              8,
			ListingLimit:         0,
			ScanInterval:         duration{time.Hour},
			ArchiveInterval:      duration{24 * time.Hour},
			ArchiveRetentionDays: 30,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"watch":  true,
	"ingest": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validDepreciationModels enumerates the accepted depreciation curve names.
var validDepreciationModels = map[string]bool{
	"linear":      true,
	"exponential": true,
	"scurve":      true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, watch, ingest, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Engine
	if c.Engine.SimilarityThreshold < 1 || c.Engine.SimilarityThreshold > 100 {
		errs = append(errs, fmt.Sprintf("engine: similarity_threshold must be 1-100, got %d", c.Engine.SimilarityThreshold))
	}
	if c.Engine.HalflifeDays <= 0 {
		errs = append(errs, "engine: halflife_days must be > 0")
	}

	// Scorer
	if c.Scorer.TargetMarginPct <= 0 {
		errs = append(errs, "scorer: target_margin_pct must be > 0")
	}
	if c.Scorer.MinMarginPct <= 0 {
		errs = append(errs, "scorer: min_margin_pct must be > 0")
	}
	if c.Scorer.MinMarginPct > c.Scorer.TargetMarginPct {
		errs = append(errs, "scorer: min_margin_pct must not exceed target_margin_pct")
	}
	if c.Scorer.MinConfidence <= 0 || c.Scorer.MinConfidence > 1 {
		errs = append(errs, "scorer: min_confidence must be in (0,1]")
	}

	// Fees
	if c.Fees.ResalePlatform == "" {
		errs = append(errs, "fees: resale_platform must not be empty")
	} else if _, ok := c.Fees.Platforms[c.Fees.ResalePlatform]; !ok {
		errs = append(errs, fmt.Sprintf("fees: no schedule configured for resale_platform %q", c.Fees.ResalePlatform))
	}
	for id, s := range c.Fees.Platforms {
		if s.FinalValuePct < 0 || s.FinalValuePct >= 1 {
			errs = append(errs, fmt.Sprintf("fees: platform %q final_value_pct must be in [0,1), got %.3f", id, s.FinalValuePct))
		}
		if s.PaymentPct < 0 || s.PaymentPct >= 1 {
			errs = append(errs, fmt.Sprintf("fees: platform %q payment_pct must be in [0,1), got %.3f", id, s.PaymentPct))
		}
	}

	// Categories
	for cat, cc := range c.Categories {
		if !validDepreciationModels[cc.DepreciationModel] {
			errs = append(errs, fmt.Sprintf("categories: %q depreciation_model %q (valid: linear, exponential, scurve)", cat, cc.DepreciationModel))
		}
		for tag, mult := range cc.Conditions {
			if !domain.ConditionTag(tag).Valid() {
				errs = append(errs, fmt.Sprintf("categories: %q unknown condition tag %q", cat, tag))
			}
			if mult < 0 || mult > 1 {
				errs = append(errs, fmt.Sprintf("categories: %q condition %q multiplier must be in [0,1], got %.3f", cat, tag, mult))
			}
		}
	}

	// Damage
	for i, d := range c.Damage {
		if d.Type == "" || d.Severity == "" {
			errs = append(errs, fmt.Sprintf("damage: entry %d must set type and severity", i))
		}
		if d.Deduction < 0 || d.Deduction >= 1 {
			errs = append(errs, fmt.Sprintf("damage: entry %d deduction must be in [0,1), got %.3f", i, d.Deduction))
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Ingest and full modes consume the bus; they cannot run without Redis.
	mode := strings.ToLower(c.Mode)
	if (mode == "ingest" || mode == "full") && !c.Redis.Enabled {
		errs = append(errs, fmt.Sprintf("redis: must be enabled for mode %q", c.Mode))
	}
	// Batch modes read listings from the store.
	if (mode == "scan" || mode == "watch" || mode == "full") && !c.Postgres.Enabled {
		errs = append(errs, fmt.Sprintf("postgres: must be enabled for mode %q", c.Mode))
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if !c.Postgres.Enabled {
			errs = append(errs, "s3: archival requires postgres to be enabled")
		}
	}

	// Pipeline
	if c.Pipeline.Workers < 1 {
		errs = append(errs, "pipeline: workers must be >= 1")
	}
	if c.Pipeline.ScanInterval.Duration <= 0 {
		errs = append(errs, "pipeline: scan_interval must be > 0")
	}
	if c.Pipeline.ArchiveRetentionDays < 1 {
		errs = append(errs, "pipeline: archive_retention_days must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
