// Package service composes the engine packages into the per-listing valuation
// and deal-scoring flows used by the pipeline and application modes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	"github.com/cloudcurio/arbfinder/internal/corpus"
	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/match"
	"github.com/cloudcurio/arbfinder/internal/valuation"
)

// ValuationService runs the match → aggregate → adjust pipeline for one
// listing and caches results keyed by the comp group version they were
// computed against. A cached result whose group has since advanced is stale
// by construction of the key: it can no longer be fetched, so Value
// recomputes instead of serving it.
type ValuationService struct {
	corpus   *corpus.Index
	matcher  *match.Matcher
	agg      *aggregate.Aggregator
	adjuster *valuation.Adjuster
	cache    domain.ValuationCache // optional
	logger   *slog.Logger
	now      func() time.Time
}

// NewValuationService creates a ValuationService. cache may be nil, in which
// case every call recomputes.
func NewValuationService(
	idx *corpus.Index,
	matcher *match.Matcher,
	agg *aggregate.Aggregator,
	adjuster *valuation.Adjuster,
	cache domain.ValuationCache,
	logger *slog.Logger,
) *ValuationService {
	return &ValuationService{
		corpus:   idx,
		matcher:  matcher,
		agg:      agg,
		adjuster: adjuster,
		cache:    cache,
		logger:   logger.With(slog.String("component", "valuation_service")),
		now:      time.Now,
	}
}

// Value computes (or returns a cached, still-current) valuation for the
// listing. Failures are reported both in the result status and as the
// returned error so batch callers can isolate them per listing.
func (s *ValuationService) Value(ctx context.Context, listing domain.ListingRecord) (domain.ValuationResult, error) {
	now := s.now()

	candidates, err := s.matcher.Match(listing.Title, listing.CategoryPath, s.corpus.Groups())
	if err != nil {
		res := domain.ValuationResult{
			ListingID:   listing.ID,
			Status:      domain.ValuationFailed,
			FailureKind: domain.KindOf(err),
			ComputedAt:  now,
		}
		return res, fmt.Errorf("valuation_service: listing %s: %w", listing.ID, err)
	}

	if len(candidates) == 0 {
		// Insufficient data: a valid zero-confidence result, not a failure.
		return domain.ValuationResult{
			ListingID:  listing.ID,
			Status:     domain.ValuationPending,
			Confidence: 0,
			ComputedAt: now,
		}, nil
	}

	groupKey := candidates[0].GroupKey
	groupVersion := candidates[0].GroupVersion

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, listing.ID, groupVersion)
		if cacheErr == nil && cached.Status == domain.ValuationComputed {
			return cached, nil
		}
		if cacheErr != nil && !errors.Is(cacheErr, domain.ErrNotFound) {
			s.logger.Warn("valuation cache read failed",
				slog.String("listing_id", listing.ID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	comps := make([]domain.ComparableRecord, 0, len(candidates))
	for _, c := range candidates {
		comps = append(comps, c.Record)
	}

	stats, err := s.agg.Reduce(comps, now)
	if err != nil {
		res := domain.ValuationResult{
			ListingID:   listing.ID,
			Status:      domain.ValuationFailed,
			FailureKind: domain.KindOf(err),
			ComputedAt:  now,
		}
		return res, fmt.Errorf("valuation_service: listing %s: %w", listing.ID, err)
	}

	res, err := s.adjuster.Adjust(listing, stats, now)
	res.CompGroupKey = groupKey
	res.CompGroupVersion = groupVersion
	if err != nil {
		return res, fmt.Errorf("valuation_service: listing %s: %w", listing.ID, err)
	}

	if s.cache != nil && res.Status == domain.ValuationComputed {
		if putErr := s.cache.Put(ctx, res); putErr != nil {
			s.logger.Warn("valuation cache write failed",
				slog.String("listing_id", listing.ID),
				slog.String("error", putErr.Error()),
			)
		}
	}
	return res, nil
}

// Stale reports whether a previously computed result is stale: its comp
// group's aggregate version has advanced since the computation. Stale results
// must be recomputed via Value, never served.
func (s *ValuationService) Stale(res domain.ValuationResult) bool {
	if res.Status != domain.ValuationComputed || res.CompGroupKey == "" {
		return false
	}
	current, ok := s.corpus.Version(res.CompGroupKey)
	if !ok {
		return true
	}
	return current != res.CompGroupVersion
}

// Refresh returns res unchanged while it is current, and a recomputed result
// (marking the old one stale in the log) when the group advanced.
func (s *ValuationService) Refresh(ctx context.Context, listing domain.ListingRecord, res domain.ValuationResult) (domain.ValuationResult, error) {
	if !s.Stale(res) {
		return res, nil
	}
	s.logger.Debug("stale valuation recomputed",
		slog.String("listing_id", res.ListingID),
		slog.Int64("computed_against", res.CompGroupVersion),
	)
	res.Status = domain.ValuationStale
	return s.Value(ctx, listing)
}
