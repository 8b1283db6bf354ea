package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/pipeline"
	"github.com/cloudcurio/arbfinder/internal/score"
	"github.com/cloudcurio/arbfinder/internal/service"
)

// ScanMode restores the comp corpus, runs one batch valuation over the stored
// listings, logs the ranked opportunities, and exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	a.restoreCorpus(ctx, deps)

	runner := a.buildBatchRunner(deps)
	result, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	for i, opp := range result.Opportunities {
		a.logger.InfoContext(ctx, "deal",
			slog.Int("rank", i+1),
			slog.String("listing_id", opp.ListingID),
			slog.String("recommendation", string(opp.Recommendation)),
			slog.Float64("fair_value", opp.FairValue),
			slog.Float64("acquisition_price", opp.AcquisitionPrice),
			slog.Float64("margin_pct", opp.MarginPct),
			slog.Float64("confidence", opp.Confidence),
		)
	}
	a.logger.InfoContext(ctx, "scan complete",
		slog.Int("valuations", len(result.Valuations)),
		slog.Int("deals", len(result.Opportunities)),
		slog.Int("failures", len(result.Failures)),
	)
	return nil
}

// WatchMode restores the corpus and runs the scan loop on the configured
// interval until cancelled. The archive sweep also runs when S3 is wired.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting watch mode",
		slog.Duration("scan_interval", a.cfg.Pipeline.ScanInterval.Duration),
	)

	a.restoreCorpus(ctx, deps)

	orch := pipeline.NewOrchestrator(
		a.buildBatchRunner(deps),
		nil,
		deps.Archiver,
		deps.Corpus,
		a.orchestratorConfig(),
		a.logger,
	)
	return orch.Run(ctx)
}

// IngestMode consumes the comp and listing streams without scanning. Use it
// for dedicated collector-facing replicas.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode")

	if deps.SignalBus == nil {
		return fmt.Errorf("ingest mode: signal bus is not wired")
	}

	a.restoreCorpus(ctx, deps)

	ingestor := pipeline.NewIngestor(
		deps.Corpus,
		deps.ComparableStore,
		deps.ListingStore,
		deps.SignalBus,
		a.logger,
	)
	err := ingestor.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// FullMode runs everything: stream ingestion, interval scans, and archival.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	if deps.SignalBus == nil {
		return fmt.Errorf("full mode: signal bus is not wired")
	}

	a.restoreCorpus(ctx, deps)

	ingestor := pipeline.NewIngestor(
		deps.Corpus,
		deps.ComparableStore,
		deps.ListingStore,
		deps.SignalBus,
		a.logger,
	)
	orch := pipeline.NewOrchestrator(
		a.buildBatchRunner(deps),
		ingestor,
		deps.Archiver,
		deps.Corpus,
		a.orchestratorConfig(),
		a.logger,
	)
	return orch.Run(ctx)
}

// buildBatchRunner composes the valuation and deal services over the wired
// dependencies.
func (a *App) buildBatchRunner(deps *Dependencies) *pipeline.BatchRunner {
	valSvc := service.NewValuationService(
		deps.Corpus, deps.Matcher, deps.Agg, deps.Adjuster, deps.ValuationCache, a.logger,
	)
	dealSvc := service.NewDealService(
		deps.FeeModel, deps.Scorer, deps.OpportunityStore, deps.SignalBus,
		service.DealConfig{
			ResalePlatform: a.cfg.Fees.ResalePlatform,
			RankPolicy: score.RankPolicy{
				IncludeSkips: a.cfg.Scorer.RankIncludeSkips,
				MinMarginPct: a.cfg.Scorer.RankMinMarginPct,
			},
		},
		a.logger,
	)
	return pipeline.NewBatchRunner(
		deps.ListingStore, valSvc, dealSvc,
		pipeline.BatchConfig{
			Workers:      a.cfg.Pipeline.Workers,
			ListingLimit: a.cfg.Pipeline.ListingLimit,
		},
		a.logger,
	)
}

func (a *App) orchestratorConfig() pipeline.OrchestratorConfig {
	return pipeline.OrchestratorConfig{
		ScanInterval:    a.cfg.Pipeline.ScanInterval.Duration,
		ArchiveInterval: a.cfg.Pipeline.ArchiveInterval.Duration,
		RetentionDays:   a.cfg.Pipeline.ArchiveRetentionDays,
	}
}

// restoreCorpus warms the in-memory comp arena on startup. The newest S3
// corpus snapshot is preferred because it preserves category partitioning;
// otherwise comps are replayed from the store into the default category.
// Failures downgrade to a cold start, never abort the mode.
func (a *App) restoreCorpus(ctx context.Context, deps *Dependencies) {
	if deps.BlobReader != nil {
		if ok := a.restoreFromSnapshot(ctx, deps); ok {
			return
		}
	}

	if deps.ComparableStore == nil {
		return
	}
	comps, err := deps.ComparableStore.ListSince(ctx, time.Time{})
	if err != nil {
		a.logger.WarnContext(ctx, "corpus restore from store failed, starting cold",
			slog.String("error", err.Error()),
		)
		return
	}
	added, err := deps.Corpus.AddBatch("", comps)
	if err != nil {
		a.logger.WarnContext(ctx, "some comps rejected during corpus restore",
			slog.String("error", err.Error()),
		)
	}
	a.logger.InfoContext(ctx, "corpus restored from store",
		slog.Int("comps", added),
		slog.Int("groups", deps.Corpus.Len()),
	)
}

// restoreFromSnapshot loads the most recent corpus snapshot object and replays
// its groups. Returns false when no usable snapshot exists.
func (a *App) restoreFromSnapshot(ctx context.Context, deps *Dependencies) bool {
	infos, err := deps.BlobReader.List(ctx, "corpus/")
	if err != nil || len(infos) == 0 {
		return false
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path > infos[j].Path })
	latest := infos[0].Path

	body, err := deps.BlobReader.Get(ctx, latest)
	if err != nil {
		a.logger.WarnContext(ctx, "corpus snapshot read failed",
			slog.String("path", latest),
			slog.String("error", err.Error()),
		)
		return false
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return false
	}
	var groups []domain.ComparableGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		a.logger.WarnContext(ctx, "corpus snapshot decode failed",
			slog.String("path", latest),
			slog.String("error", err.Error()),
		)
		return false
	}

	var comps int
	for _, g := range groups {
		added, _ := deps.Corpus.AddBatch(g.Category, g.Records)
		comps += added
	}
	a.logger.InfoContext(ctx, "corpus restored from snapshot",
		slog.String("path", latest),
		slog.Int("comps", comps),
		slog.Int("groups", deps.Corpus.Len()),
	)
	return true
}
