package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

func sale(price float64, ts time.Time) domain.ComparableRecord {
	return domain.ComparableRecord{Title: "x", SalePrice: price, SaleTimestamp: ts, Source: "ebay"}
}

func TestReduceEmpty(t *testing.T) {
	agg := New(0)
	_, err := agg.Reduce(nil, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReducePercentiles(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	agg := New(90)

	// All same-day sales so the decay weights are equal.
	comps := []domain.ComparableRecord{
		sale(100, now), sale(110, now), sale(120, now), sale(130, now),
	}
	stats, err := agg.Reduce(comps, now)
	require.NoError(t, err)

	assert.InDelta(t, 115.0, stats.Median, 1e-9)
	assert.InDelta(t, 107.5, stats.P25, 1e-9)
	assert.InDelta(t, 122.5, stats.P75, 1e-9)
	assert.InDelta(t, 115.0, stats.Avg, 1e-9)
	assert.Equal(t, 4, stats.SampleCount)
	assert.InDelta(t, 0.0, stats.AvgAgeDays, 1e-9)
}

func TestReduceDecayFavorsRecent(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	agg := New(90)

	// A recent high sale and an old low sale. The unweighted mean is 100;
	// decay pulls the weighted mean toward the recent price.
	comps := []domain.ComparableRecord{
		sale(150, now),
		sale(50, now.AddDate(0, 0, -180)),
	}
	stats, err := agg.Reduce(comps, now)
	require.NoError(t, err)

	assert.Greater(t, stats.Avg, 100.0)
	assert.Less(t, stats.Avg, 150.0)
	assert.InDelta(t, 90.0, stats.AvgAgeDays, 1e-9)
}

func TestReduceTrendSlope(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	agg := New(90)

	t.Run("rising prices give a positive slope", func(t *testing.T) {
		// Price rises by 1 per day as the sale date approaches now.
		comps := []domain.ComparableRecord{
			sale(100, now.AddDate(0, 0, -20)),
			sale(110, now.AddDate(0, 0, -10)),
			sale(120, now),
		}
		stats, err := agg.Reduce(comps, now)
		require.NoError(t, err)
		require.NotNil(t, stats.TrendSlope)
		assert.InDelta(t, 1.0, *stats.TrendSlope, 1e-9)
	})

	t.Run("nil below three samples", func(t *testing.T) {
		comps := []domain.ComparableRecord{sale(100, now), sale(120, now)}
		stats, err := agg.Reduce(comps, now)
		require.NoError(t, err)
		assert.Nil(t, stats.TrendSlope)
	})

	t.Run("nil when all sales share a timestamp", func(t *testing.T) {
		comps := []domain.ComparableRecord{sale(100, now), sale(110, now), sale(120, now)}
		stats, err := agg.Reduce(comps, now)
		require.NoError(t, err)
		assert.Nil(t, stats.TrendSlope)
	})
}

func TestReduceFutureTimestampClamped(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	agg := New(90)

	// Clock skew: a sale "from the future" gets age zero, not a boosted weight.
	comps := []domain.ComparableRecord{
		sale(100, now.Add(6*time.Hour)),
		sale(100, now),
	}
	stats, err := agg.Reduce(comps, now)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, stats.Avg, 1e-9)
	assert.InDelta(t, 0.0, stats.AvgAgeDays, 1e-9)
}

func TestWeight(t *testing.T) {
	agg := New(90)

	assert.InDelta(t, 1.0, agg.Weight(0), 1e-9)
	// One decay constant: exp(-1).
	assert.InDelta(t, 0.3679, agg.Weight(90), 1e-4)
	// Negative ages clamp to zero.
	assert.InDelta(t, 1.0, agg.Weight(-5), 1e-9)
	// Monotonically decreasing.
	assert.Greater(t, agg.Weight(10), agg.Weight(20))
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}

	assert.InDelta(t, 10.0, Percentile(sorted, 0), 1e-9)
	assert.InDelta(t, 40.0, Percentile(sorted, 1), 1e-9)
	assert.InDelta(t, 25.0, Percentile(sorted, 0.5), 1e-9)
	assert.InDelta(t, 17.5, Percentile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 30.0, Percentile([]float64{30}, 0.5), 1e-9)
	assert.True(t, Percentile(nil, 0.5) != Percentile(nil, 0.5)) // NaN
}
