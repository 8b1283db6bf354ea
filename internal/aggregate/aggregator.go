// Package aggregate reduces a set of comparable sales to summary statistics.
// Exponential time-decay weights apply to the mean only; the median and the
// P25/P75 percentiles use the linear-interpolation (R-7) method over the raw
// sorted sale prices, unweighted. A trend slope over sale time rounds out the
// stats.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// DefaultHalflifeDays is the default time-decay constant, in days.
const DefaultHalflifeDays = 90.0

// minTrendSamples is the smallest sample for which a trend slope is defined.
const minTrendSamples = 3

// Stats is the reduced summary of a candidate set.
type Stats struct {
	Avg         float64
	Median      float64
	P25         float64
	P75         float64
	SampleCount int
	// TrendSlope is the OLS slope of sale price vs sale time, in currency
	// units per day. Nil when SampleCount < 3 or all sales share a timestamp.
	TrendSlope *float64
	// AvgAgeDays is the unweighted mean comp age, used for the recency factor
	// of valuation confidence.
	AvgAgeDays float64
}

// Aggregator reduces comp sets with exponential time-decay weighting.
type Aggregator struct {
	halflifeDays float64
}

// New creates an Aggregator. A non-positive halflife falls back to
// DefaultHalflifeDays.
func New(halflifeDays float64) *Aggregator {
	if halflifeDays <= 0 {
		halflifeDays = DefaultHalflifeDays
	}
	return &Aggregator{halflifeDays: halflifeDays}
}

// Weight returns the decay weight exp(-ageDays/halflife) for a comp of the
// given age. Negative ages (clock skew) are treated as zero.
func (a *Aggregator) Weight(ageDays float64) float64 {
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / a.halflifeDays)
}

// Reduce computes Stats over a non-empty candidate set as of now. Each comp
// is weighted by its decay weight for the mean; median and percentiles use
// the linear-interpolation (R-7) method over the sorted sale prices.
func (a *Aggregator) Reduce(comps []domain.ComparableRecord, now time.Time) (Stats, error) {
	if len(comps) == 0 {
		return Stats{}, fmt.Errorf("aggregate: empty candidate set: %w", domain.ErrInvalidInput)
	}

	prices := make([]float64, 0, len(comps))
	var weightedSum, weightTotal, ageSum float64
	for _, c := range comps {
		age := now.Sub(c.SaleTimestamp).Hours() / 24
		if age < 0 {
			age = 0
		}
		w := a.Weight(age)
		weightedSum += w * c.SalePrice
		weightTotal += w
		ageSum += age
		prices = append(prices, c.SalePrice)
	}
	sort.Float64s(prices)

	stats := Stats{
		Avg:         weightedSum / weightTotal,
		Median:      Percentile(prices, 0.50),
		P25:         Percentile(prices, 0.25),
		P75:         Percentile(prices, 0.75),
		SampleCount: len(comps),
		AvgAgeDays:  ageSum / float64(len(comps)),
	}
	stats.TrendSlope = trendSlope(comps, now)
	return stats, nil
}

// Percentile computes the p-th quantile (p in [0,1]) of an ascending-sorted
// slice using the linear-interpolation method (Hyndman-Fan R-7): the rank is
// h = (n-1)p and the result interpolates between the two bracketing values.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	frac := h - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// trendSlope fits price = a + b*t by ordinary least squares, with t in days
// relative to now. Returns nil when the slope is undefined.
func trendSlope(comps []domain.ComparableRecord, now time.Time) *float64 {
	if len(comps) < minTrendSamples {
		return nil
	}
	n := float64(len(comps))
	var sumT, sumP float64
	for _, c := range comps {
		sumT += c.SaleTimestamp.Sub(now).Hours() / 24
		sumP += c.SalePrice
	}
	meanT := sumT / n
	meanP := sumP / n

	var cov, varT float64
	for _, c := range comps {
		dt := c.SaleTimestamp.Sub(now).Hours()/24 - meanT
		cov += dt * (c.SalePrice - meanP)
		varT += dt * dt
	}
	if varT == 0 {
		return nil
	}
	slope := cov / varT
	return &slope
}
