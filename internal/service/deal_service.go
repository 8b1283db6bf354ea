package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/fees"
	"github.com/cloudcurio/arbfinder/internal/score"
)

// Scored opportunities go out twice: a pub/sub fan-out for live consumers and
// a durable stream the alert/UI collaborators replay with their own clients.
const (
	dealsChannel = "deals"
	dealsStream  = "deals"
)

// DealConfig holds the deal-scoring parameters.
type DealConfig struct {
	// ResalePlatform is the platform whose fee schedule models the
	// hypothetical exit sale.
	ResalePlatform string
	// RankPolicy filters and orders batch output.
	RankPolicy score.RankPolicy
}

// DealService converts valuations into fee-aware opportunities, persists
// them, and publishes them for the alerts/UI collaborators.
type DealService struct {
	fees   *fees.Model
	scorer *score.Scorer
	opps   domain.OpportunityStore // optional
	bus    domain.SignalBus        // optional
	cfg    DealConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewDealService creates a DealService. opps and bus may be nil for
// library-style use without persistence or publishing.
func NewDealService(
	feeModel *fees.Model,
	scorer *score.Scorer,
	opps domain.OpportunityStore,
	bus domain.SignalBus,
	cfg DealConfig,
	logger *slog.Logger,
) *DealService {
	return &DealService{
		fees:   feeModel,
		scorer: scorer,
		opps:   opps,
		bus:    bus,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "deal_service")),
		now:    time.Now,
	}
}

// Evaluate scores one listing's valuation into an opportunity. A missing fee
// schedule or invalid acquisition price fails only this computation; callers
// batch-processing listings keep going.
func (s *DealService) Evaluate(ctx context.Context, listing domain.ListingRecord, result domain.ValuationResult) (domain.ArbitrageOpportunity, error) {
	var netProceeds float64
	if result.FairValue != nil {
		var err error
		netProceeds, err = s.fees.NetProceeds(s.cfg.ResalePlatform, *result.FairValue)
		if err != nil {
			return domain.ArbitrageOpportunity{}, fmt.Errorf("deal_service: listing %s: %w", listing.ID, err)
		}
	}

	opp, err := s.scorer.Score(result, s.cfg.ResalePlatform, netProceeds, listing.Price, s.now())
	if err != nil {
		return domain.ArbitrageOpportunity{}, fmt.Errorf("deal_service: listing %s: %w", listing.ID, err)
	}
	return opp, nil
}

// Record persists an opportunity, publishes it on the deals channel, and
// appends it to the durable deals stream. Bus failures are logged, not
// returned: the store is the source of truth.
func (s *DealService) Record(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	if s.opps != nil {
		if err := s.opps.Insert(ctx, opp); err != nil {
			return fmt.Errorf("deal_service: insert opportunity %s: %w", opp.ID, err)
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":          "deal_scored",
			"opp_id":         opp.ID,
			"listing_id":     opp.ListingID,
			"recommendation": opp.Recommendation,
			"margin_pct":     opp.MarginPct,
			"margin_abs":     opp.MarginAbsolute,
			"confidence":     opp.Confidence,
			"reason":         opp.Reason,
		})
		if err := s.bus.Publish(ctx, dealsChannel, evt); err != nil {
			s.logger.Warn("deal publish failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.StreamAppend(ctx, dealsStream, evt); err != nil {
			s.logger.Warn("deal stream append failed",
				slog.String("opp_id", opp.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("opportunity recorded",
		slog.String("opp_id", opp.ID),
		slog.String("listing_id", opp.ListingID),
		slog.String("recommendation", string(opp.Recommendation)),
		slog.Float64("margin_pct", opp.MarginPct),
	)
	return nil
}

// Rank orders a batch of opportunities per the configured policy.
func (s *DealService) Rank(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	return score.Rank(opps, s.cfg.RankPolicy)
}

// ListRecent returns the most recently detected opportunities.
func (s *DealService) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if s.opps == nil {
		return nil, nil
	}
	opps, err := s.opps.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("deal_service: list recent: %w", err)
	}
	return opps, nil
}
