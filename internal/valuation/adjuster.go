// Package valuation turns a comp aggregate into a condition-, age-, and
// damage-adjusted fair value estimate with a confidence score.
package valuation

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	"github.com/cloudcurio/arbfinder/internal/domain"
)

// confidenceSaturation is the sample count at which the sample-size factor of
// confidence reaches 1.
const confidenceSaturation = 20.0

// Config configures the adjuster. Category maps may carry a "" entry as the
// fallback for categories without an explicit override.
type Config struct {
	HalflifeDays float64
	Conditions   map[string]ConditionTable
	Depreciation map[string]DepreciationParams
	Damage       DamageMatrix
}

// Adjuster applies the condition table, depreciation curve, and damage matrix
// for a listing's category to the comp aggregate.
type Adjuster struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Adjuster. Condition tables are merged over the default table
// up front so per-category overrides may be partial.
func New(cfg Config, logger *slog.Logger) (*Adjuster, error) {
	if cfg.HalflifeDays <= 0 {
		cfg.HalflifeDays = aggregate.DefaultHalflifeDays
	}
	merged := make(map[string]ConditionTable, len(cfg.Conditions)+1)
	merged[""] = DefaultConditionTable()
	for cat, table := range cfg.Conditions {
		merged[cat] = table.Merge()
	}
	for cat, table := range merged {
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("valuation: condition table for category %q: %w", cat, err)
		}
	}
	cfg.Conditions = merged

	if err := cfg.Damage.Validate(); err != nil {
		return nil, err
	}
	for cat, p := range cfg.Depreciation {
		if !p.Model.Valid() {
			return nil, fmt.Errorf("valuation: category %q depreciation model %q: %w", cat, p.Model, domain.ErrCategoryConfig)
		}
	}

	return &Adjuster{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "adjuster")),
	}, nil
}

// Adjust produces the ValuationResult for a listing given its comp aggregate.
//
// An empty candidate set is not a failure: the result is PENDING with no
// estimate and zero confidence. Invalid listing attributes fail the result
// with the error attached as a kind; the error is also returned so batch
// callers can report it.
func (a *Adjuster) Adjust(listing domain.ListingRecord, stats aggregate.Stats, now time.Time) (domain.ValuationResult, error) {
	res := domain.ValuationResult{
		ListingID:  listing.ID,
		Status:     domain.ValuationPending,
		ComputedAt: now,
	}

	if stats.SampleCount == 0 {
		res.Confidence = 0
		return res, nil
	}

	if !listing.Condition.Valid() {
		err := fmt.Errorf("valuation: listing %s condition %q: %w", listing.ID, listing.Condition, domain.ErrInvalidInput)
		return a.fail(res, err), err
	}
	if listing.Attributes.AgeMonths < 0 {
		err := fmt.Errorf("valuation: listing %s age %.1f: %w", listing.ID, listing.Attributes.AgeMonths, domain.ErrInvalidInput)
		return a.fail(res, err), err
	}

	params, err := a.depreciationFor(listing.CategoryPath)
	if err != nil {
		return a.fail(res, err), err
	}

	base := stats.Median
	depreciated, err := Depreciate(base, listing.Attributes.AgeMonths, params)
	if err != nil {
		return a.fail(res, err), err
	}

	table := a.conditionsFor(listing.CategoryPath)
	condMult, err := table.Multiplier(listing.Condition)
	if err != nil {
		return a.fail(res, err), err
	}

	totalDeduction := a.cfg.Damage.Combined(listing.Attributes.Damage)

	fair := depreciated * condMult * (1 - totalDeduction)

	depMult := 1.0
	if base > 0 {
		depMult = depreciated / base
	}
	res.Adjustments = []domain.Adjustment{
		{Name: "depreciation:" + string(params.Model), Multiplier: depMult},
		{Name: "condition:" + string(listing.Condition), Multiplier: condMult},
		{Name: "damage", Multiplier: 1 - totalDeduction},
	}
	res.DepreciationModel = params.Model
	res.FairValue = &fair
	res.Confidence = a.confidence(stats)
	res.Status = domain.ValuationComputed

	a.logger.Debug("valuation computed",
		slog.String("listing_id", listing.ID),
		slog.Float64("base", base),
		slog.Float64("fair_value", fair),
		slog.Float64("confidence", res.Confidence),
	)
	return res, nil
}

// confidence combines a saturating sample-size factor with a recency factor.
func (a *Adjuster) confidence(stats aggregate.Stats) float64 {
	if stats.SampleCount == 0 {
		return 0
	}
	size := math.Min(1, float64(stats.SampleCount)/confidenceSaturation)
	recency := math.Exp(-stats.AvgAgeDays / a.cfg.HalflifeDays)
	return size * recency
}

func (a *Adjuster) fail(res domain.ValuationResult, err error) domain.ValuationResult {
	res.Status = domain.ValuationFailed
	res.FairValue = nil
	res.Confidence = 0
	res.FailureKind = domain.KindOf(err)
	return res
}

func (a *Adjuster) conditionsFor(category string) ConditionTable {
	if t, ok := a.cfg.Conditions[category]; ok {
		return t
	}
	return a.cfg.Conditions[""]
}

func (a *Adjuster) depreciationFor(category string) (DepreciationParams, error) {
	if p, ok := a.cfg.Depreciation[category]; ok {
		return p, nil
	}
	if p, ok := a.cfg.Depreciation[""]; ok {
		return p, nil
	}
	return DepreciationParams{}, fmt.Errorf("valuation: no depreciation config for category %q: %w", category, domain.ErrCategoryConfig)
}
