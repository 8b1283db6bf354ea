package valuation

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	"github.com/cloudcurio/arbfinder/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAdjuster(t *testing.T) *Adjuster {
	t.Helper()
	adj, err := New(Config{
		HalflifeDays: 90,
		Depreciation: map[string]DepreciationParams{
			"": {Model: domain.DepreciationExponential, K: 0.02},
		},
		Damage: DamageMatrix{
			{Type: "scratch", Location: "*", Severity: "minor"}: 0.10,
		},
	}, testLogger())
	require.NoError(t, err)
	return adj
}

func listing(condition domain.ConditionTag, ageMonths float64) domain.ListingRecord {
	return domain.ListingRecord{
		ID:        "lst-1",
		Title:     "nintendo switch oled",
		Price:     200,
		Currency:  "USD",
		Condition: condition,
		Attributes: domain.ListingAttributes{
			AgeMonths: ageMonths,
		},
	}
}

func TestAdjustComputed(t *testing.T) {
	adj := testAdjuster(t)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	stats := aggregate.Stats{
		Median:      300,
		SampleCount: 20,
		AvgAgeDays:  0,
	}
	res, err := adj.Adjust(listing(domain.ConditionGood, 12), stats, now)
	require.NoError(t, err)

	assert.Equal(t, domain.ValuationComputed, res.Status)
	require.NotNil(t, res.FairValue)

	// median * exp(-0.02*12) * 0.65, no damage.
	want := 300 * math.Exp(-0.24) * 0.65
	assert.InDelta(t, want, *res.FairValue, 1e-9)

	// Fully saturated sample of fresh comps gives full confidence.
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)

	require.Len(t, res.Adjustments, 3)
	assert.Equal(t, "depreciation:exponential", res.Adjustments[0].Name)
	assert.InDelta(t, math.Exp(-0.24), res.Adjustments[0].Multiplier, 1e-9)
	assert.Equal(t, "condition:good", res.Adjustments[1].Name)
	assert.Equal(t, 0.65, res.Adjustments[1].Multiplier)
	assert.Equal(t, "damage", res.Adjustments[2].Name)
	assert.Equal(t, 1.0, res.Adjustments[2].Multiplier)
}

func TestAdjustAppliesDamage(t *testing.T) {
	adj := testAdjuster(t)
	now := time.Now()

	l := listing(domain.ConditionNew, 0)
	l.Attributes.Damage = []domain.DamageDescriptor{
		{Type: "scratch", Location: "screen", Severity: "minor"},
	}
	stats := aggregate.Stats{Median: 100, SampleCount: 20}

	res, err := adj.Adjust(l, stats, now)
	require.NoError(t, err)
	require.NotNil(t, res.FairValue)
	assert.InDelta(t, 90.0, *res.FairValue, 1e-9)
}

func TestAdjustNoCompsIsPending(t *testing.T) {
	adj := testAdjuster(t)

	res, err := adj.Adjust(listing(domain.ConditionGood, 12), aggregate.Stats{}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.ValuationPending, res.Status)
	assert.Nil(t, res.FairValue)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestAdjustInvalidCondition(t *testing.T) {
	adj := testAdjuster(t)
	stats := aggregate.Stats{Median: 100, SampleCount: 5}

	res, err := adj.Adjust(listing("mint", 12), stats, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.ValuationFailed, res.Status)
	assert.Equal(t, domain.KindInvalidInput, res.FailureKind)
	assert.Nil(t, res.FairValue)
}

func TestAdjustNegativeAge(t *testing.T) {
	adj := testAdjuster(t)
	stats := aggregate.Stats{Median: 100, SampleCount: 5}

	res, err := adj.Adjust(listing(domain.ConditionGood, -3), stats, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.ValuationFailed, res.Status)
}

func TestAdjustMissingCategoryConfig(t *testing.T) {
	// No "" fallback: categories outside the map are configuration errors.
	adj, err := New(Config{
		Depreciation: map[string]DepreciationParams{
			"electronics": {Model: domain.DepreciationLinear, Rate: 0.01},
		},
	}, testLogger())
	require.NoError(t, err)

	l := listing(domain.ConditionGood, 12)
	l.CategoryPath = "furniture"
	stats := aggregate.Stats{Median: 100, SampleCount: 5}

	res, err := adj.Adjust(l, stats, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCategoryConfig)
	assert.Equal(t, domain.ValuationFailed, res.Status)
	assert.Equal(t, domain.KindConfigurationError, res.FailureKind)
}

func TestAdjustConfidenceScalesWithSampleAndAge(t *testing.T) {
	adj := testAdjuster(t)
	now := time.Now()

	few := aggregate.Stats{Median: 100, SampleCount: 5, AvgAgeDays: 0}
	many := aggregate.Stats{Median: 100, SampleCount: 20, AvgAgeDays: 0}
	old := aggregate.Stats{Median: 100, SampleCount: 20, AvgAgeDays: 90}

	resFew, err := adj.Adjust(listing(domain.ConditionGood, 0), few, now)
	require.NoError(t, err)
	resMany, err := adj.Adjust(listing(domain.ConditionGood, 0), many, now)
	require.NoError(t, err)
	resOld, err := adj.Adjust(listing(domain.ConditionGood, 0), old, now)
	require.NoError(t, err)

	assert.InDelta(t, 0.25, resFew.Confidence, 1e-9)
	assert.InDelta(t, 1.0, resMany.Confidence, 1e-9)
	assert.InDelta(t, math.Exp(-1), resOld.Confidence, 1e-9)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Run("invalid condition override", func(t *testing.T) {
		_, err := New(Config{
			Conditions: map[string]ConditionTable{
				"electronics": {domain.ConditionPoor: 1.5},
			},
		}, testLogger())
		assert.ErrorIs(t, err, domain.ErrCategoryConfig)
	})

	t.Run("invalid damage deduction", func(t *testing.T) {
		_, err := New(Config{
			Damage: DamageMatrix{{Type: "x", Location: "y", Severity: "z"}: -0.1},
		}, testLogger())
		assert.ErrorIs(t, err, domain.ErrCategoryConfig)
	})

	t.Run("unknown depreciation model", func(t *testing.T) {
		_, err := New(Config{
			Depreciation: map[string]DepreciationParams{"": {Model: "parabolic"}},
		}, testLogger())
		assert.ErrorIs(t, err, domain.ErrCategoryConfig)
	})
}
