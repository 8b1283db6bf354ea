// Package pipeline runs the valuation engine over listing batches and streams,
// coordinating ingestion, scanning, and cold-storage archival.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/service"
)

// defaultWorkers bounds batch parallelism when the config leaves it unset.
const defaultWorkers = 8

// BatchConfig configures a batch valuation run.
type BatchConfig struct {
	Workers      int
	ListingLimit int
}

// ListingFailure captures one listing's failure inside a batch. Failures are
// reported alongside results; they never abort the batch.
type ListingFailure struct {
	ListingID string           `json:"listing_id"`
	Kind      domain.ErrorKind `json:"kind"`
	Err       string           `json:"error"`
}

// BatchResult is the outcome of one batch run.
type BatchResult struct {
	Valuations    []domain.ValuationResult
	Opportunities []domain.ArbitrageOpportunity // ranked per the deal policy
	Failures      []ListingFailure
}

// BatchRunner values and scores every active listing using a bounded worker
// pool. Each listing is an independent unit of work; cancellation is checked
// between units, never inside one.
type BatchRunner struct {
	listings domain.ListingStore
	valSvc   *service.ValuationService
	dealSvc  *service.DealService
	cfg      BatchConfig
	logger   *slog.Logger
}

// NewBatchRunner creates a BatchRunner.
func NewBatchRunner(
	listings domain.ListingStore,
	valSvc *service.ValuationService,
	dealSvc *service.DealService,
	cfg BatchConfig,
	logger *slog.Logger,
) *BatchRunner {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &BatchRunner{
		listings: listings,
		valSvc:   valSvc,
		dealSvc:  dealSvc,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "batch_runner")),
	}
}

// Run loads active listings and processes them concurrently. The returned
// error is non-nil only for whole-batch problems (store unavailable,
// cancellation); per-listing errors land in BatchResult.Failures.
func (r *BatchRunner) Run(ctx context.Context) (BatchResult, error) {
	listings, err := r.listings.ListActive(ctx, domain.ListOpts{Limit: r.cfg.ListingLimit})
	if err != nil {
		return BatchResult{}, err
	}
	return r.RunListings(ctx, listings)
}

// RunListings processes an explicit listing set. Output order follows input
// order: each worker writes to its own listing's slot, so completion order
// never shows through, and Rank's stable tie-breaking reflects the order
// listings arrived in.
func (r *BatchRunner) RunListings(ctx context.Context, listings []domain.ListingRecord) (BatchResult, error) {
	var (
		processed = make([]bool, len(listings))
		vals      = make([]domain.ValuationResult, len(listings))
		opps      = make([]*domain.ArbitrageOpportunity, len(listings))
		failures  = make([]*ListingFailure, len(listings))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, listing := range listings {
		// Cooperative cancellation between listing units.
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, opp, err := r.processOne(ctx, listing)
			processed[i] = true
			vals[i] = res
			if err != nil {
				failures[i] = &ListingFailure{
					ListingID: listing.ID,
					Kind:      domain.KindOf(err),
					Err:       err.Error(),
				}
				return nil // per-listing isolation
			}
			opps[i] = opp
			return nil
		})
	}

	waitErr := g.Wait()

	var result BatchResult
	for i := range listings {
		if !processed[i] {
			continue
		}
		result.Valuations = append(result.Valuations, vals[i])
		if failures[i] != nil {
			result.Failures = append(result.Failures, *failures[i])
		}
		if opps[i] != nil {
			result.Opportunities = append(result.Opportunities, *opps[i])
		}
	}

	if waitErr != nil {
		return result, waitErr
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	result.Opportunities = r.dealSvc.Rank(result.Opportunities)
	r.logger.Info("batch complete",
		slog.Int("listings", len(listings)),
		slog.Int("opportunities", len(result.Opportunities)),
		slog.Int("failures", len(result.Failures)),
	)
	return result, nil
}

func (r *BatchRunner) processOne(ctx context.Context, listing domain.ListingRecord) (domain.ValuationResult, *domain.ArbitrageOpportunity, error) {
	res, err := r.valSvc.Value(ctx, listing)
	if err != nil {
		return res, nil, err
	}

	opp, err := r.dealSvc.Evaluate(ctx, listing, res)
	if err != nil {
		return res, nil, err
	}

	if err := r.dealSvc.Record(ctx, opp); err != nil {
		r.logger.Warn("record opportunity failed",
			slog.String("listing_id", listing.ID),
			slog.String("error", err.Error()),
		)
	}
	return res, &opp, nil
}
