package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudcurio/arbfinder/internal/corpus"
	"github.com/cloudcurio/arbfinder/internal/domain"
)

// OrchestratorConfig holds the loop timings.
type OrchestratorConfig struct {
	// ScanInterval is the delay between watch-mode batch runs.
	ScanInterval time.Duration
	// ArchiveInterval is the delay between archival sweeps.
	ArchiveInterval time.Duration
	// RetentionDays is how long listings stay in the store before moving to
	// cold storage.
	RetentionDays int
}

// Orchestrator coordinates the long-running pipeline goroutines: stream
// ingestion, periodic batch scans, and cold-storage archival.
type Orchestrator struct {
	batch    *BatchRunner
	ingestor *Ingestor       // optional
	archiver domain.Archiver // optional
	corpus   *corpus.Index
	cfg      OrchestratorConfig
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. ingestor and archiver may be nil
// when the bus or object storage is not wired; the corresponding loops are
// skipped.
func NewOrchestrator(
	batch *BatchRunner,
	ingestor *Ingestor,
	archiver domain.Archiver,
	idx *corpus.Index,
	cfg OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Hour
	}
	if cfg.ArchiveInterval <= 0 {
		cfg.ArchiveInterval = 24 * time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Orchestrator{
		batch:    batch,
		ingestor: ingestor,
		archiver: archiver,
		corpus:   idx,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Run starts every sub-loop in an errgroup and blocks until ctx is cancelled
// or a loop fails with a non-context error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline starting",
		slog.Duration("scan_interval", o.cfg.ScanInterval),
		slog.Int("retention_days", o.cfg.RetentionDays),
	)

	g, ctx := errgroup.WithContext(ctx)

	if o.ingestor != nil {
		g.Go(func() error {
			err := o.ingestor.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("ingestor: %w", err)
		})
	}

	g.Go(func() error {
		err := o.scanLoop(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("scan loop: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiveLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archive loop: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline stopped cleanly")
	return nil
}

// scanLoop runs a batch immediately, then on every tick.
func (o *Orchestrator) scanLoop(ctx context.Context) error {
	o.runScan(ctx)

	ticker := time.NewTicker(o.cfg.ScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			o.runScan(ctx)
		}
	}
}

func (o *Orchestrator) runScan(ctx context.Context) {
	result, err := o.batch.Run(ctx)
	if err != nil {
		o.logger.Error("batch scan failed", slog.String("error", err.Error()))
		return
	}
	o.logger.Info("batch scan done",
		slog.Int("valuations", len(result.Valuations)),
		slog.Int("deals", len(result.Opportunities)),
		slog.Int("failures", len(result.Failures)),
	)
}

// archiveLoop periodically moves aged listings to cold storage and snapshots
// the corpus alongside them.
func (o *Orchestrator) archiveLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.cfg.ArchiveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -o.cfg.RetentionDays)
			moved, err := o.archiver.ArchiveListings(ctx, cutoff)
			if err != nil {
				o.logger.Error("listing archive failed", slog.String("error", err.Error()))
				continue
			}
			path, err := o.archiver.SnapshotCorpus(ctx, o.corpus.Groups())
			if err != nil {
				o.logger.Error("corpus snapshot failed", slog.String("error", err.Error()))
				continue
			}
			o.logger.Info("archive sweep done",
				slog.Int64("listings_archived", moved),
				slog.String("corpus_snapshot", path),
			)
		}
	}
}
