// Package score converts a valuation plus net resale proceeds into a margin
// and a categorical buy recommendation, and ranks the results.
package score

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudcurio/arbfinder/internal/domain"
)

// Default recommendation thresholds. Margin thresholds are fractions of the
// acquisition price.
const (
	DefaultTargetMarginPct = 0.20
	DefaultMinMarginPct    = 0.10
	DefaultMinConfidence   = 0.60
)

// Config holds the recommendation policy thresholds.
type Config struct {
	TargetMarginPct float64
	MinMarginPct    float64
	MinConfidence   float64
}

// Scorer is a pure function of its inputs: identical valuation, proceeds, and
// acquisition price always produce an identical opportunity.
type Scorer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Scorer, defaulting any unset threshold.
func New(cfg Config, logger *slog.Logger) *Scorer {
	if cfg.TargetMarginPct <= 0 {
		cfg.TargetMarginPct = DefaultTargetMarginPct
	}
	if cfg.MinMarginPct <= 0 {
		cfg.MinMarginPct = DefaultMinMarginPct
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = DefaultMinConfidence
	}
	return &Scorer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scorer")),
	}
}

// opportunityID derives a stable ID from the listing, the comp group version
// the valuation was computed against, and the resale platform. Re-scoring the
// same state yields the same ID, so repeated scans stay idempotent.
func opportunityID(result domain.ValuationResult, platform string) string {
	name := fmt.Sprintf("%s|%s|%d|%s", result.ListingID, result.CompGroupKey, result.CompGroupVersion, platform)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// Score builds the opportunity for one listing.
//
// A nil fair value estimate yields SKIP with reason insufficient_data. A
// non-positive acquisition price is invalid input and produces no
// opportunity.
func (s *Scorer) Score(result domain.ValuationResult, platform string, netProceeds, acquisitionPrice float64, now time.Time) (domain.ArbitrageOpportunity, error) {
	if acquisitionPrice <= 0 {
		return domain.ArbitrageOpportunity{}, fmt.Errorf(
			"score: listing %s acquisition price %.2f: %w",
			result.ListingID, acquisitionPrice, domain.ErrInvalidInput,
		)
	}

	opp := domain.ArbitrageOpportunity{
		ID:               opportunityID(result, platform),
		ListingID:        result.ListingID,
		Platform:         platform,
		AcquisitionPrice: acquisitionPrice,
		Confidence:       result.Confidence,
		DetectedAt:       now,
	}

	if result.FairValue == nil {
		opp.Recommendation = domain.RecommendSkip
		opp.Reason = domain.SkipInsufficientData
		return opp, nil
	}

	opp.FairValue = *result.FairValue
	opp.NetProceeds = netProceeds
	opp.MarginAbsolute = netProceeds - acquisitionPrice
	opp.MarginPct = opp.MarginAbsolute / acquisitionPrice

	switch {
	case opp.MarginPct >= s.cfg.TargetMarginPct && opp.Confidence >= s.cfg.MinConfidence:
		opp.Recommendation = domain.RecommendBuy
	case opp.MarginPct >= s.cfg.MinMarginPct && opp.MarginPct < s.cfg.TargetMarginPct:
		opp.Recommendation = domain.RecommendWatch
	case opp.MarginPct >= s.cfg.TargetMarginPct:
		// Margin is there but the evidence is not.
		opp.Recommendation = domain.RecommendSkip
		opp.Reason = domain.SkipLowConfidence
	default:
		opp.Recommendation = domain.RecommendSkip
		opp.Reason = domain.SkipBelowMinMargin
	}

	s.logger.Debug("opportunity scored",
		slog.String("listing_id", result.ListingID),
		slog.Float64("margin_pct", opp.MarginPct),
		slog.String("recommendation", string(opp.Recommendation)),
	)
	return opp, nil
}
