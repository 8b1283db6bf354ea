package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cloudcurio/arbfinder/internal/corpus"
	"github.com/cloudcurio/arbfinder/internal/domain"
)

// Bus channels the collector collaborator publishes on.
const (
	compsChannel    = "comps"
	listingsChannel = "listings"
)

// compBatch is the JSON shape of one inbound comp batch.
type compBatch struct {
	Category string                    `json:"category"`
	Comps    []domain.ComparableRecord `json:"comps"`
}

// Ingestor consumes listing and comp streams from the signal bus, feeding the
// corpus index and the stores. It owns all corpus mutation.
type Ingestor struct {
	corpus   *corpus.Index
	comps    domain.ComparableStore // optional
	listings domain.ListingStore    // optional
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewIngestor creates an Ingestor. Stores may be nil when running without
// persistence.
func NewIngestor(
	idx *corpus.Index,
	comps domain.ComparableStore,
	listings domain.ListingStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		corpus:   idx,
		comps:    comps,
		listings: listings,
		bus:      bus,
		logger:   logger.With(slog.String("component", "ingestor")),
	}
}

// Run subscribes to both inbound channels and blocks until ctx is cancelled.
func (i *Ingestor) Run(ctx context.Context) error {
	compCh, err := i.bus.Subscribe(ctx, compsChannel)
	if err != nil {
		return fmt.Errorf("ingest: subscribe %s: %w", compsChannel, err)
	}
	listingCh, err := i.bus.Subscribe(ctx, listingsChannel)
	if err != nil {
		return fmt.Errorf("ingest: subscribe %s: %w", listingsChannel, err)
	}

	i.logger.Info("ingestor started")
	defer i.logger.Info("ingestor stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return i.consume(ctx, compCh, i.handleComps) })
	g.Go(func() error { return i.consume(ctx, listingCh, i.handleListing) })
	return g.Wait()
}

func (i *Ingestor) consume(ctx context.Context, ch <-chan []byte, handle func(context.Context, []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ch:
			if !ok {
				return nil
			}
			if err := handle(ctx, data); err != nil {
				i.logger.Warn("ingest message failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// handleComps bins each comp into the corpus and mirrors it to the store
// under the group key it landed in.
func (i *Ingestor) handleComps(ctx context.Context, data []byte) error {
	var batch compBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("ingest: decode comp batch: %w", err)
	}

	var added int
	for _, comp := range batch.Comps {
		key, err := i.corpus.Add(batch.Category, comp)
		if err != nil {
			i.logger.Warn("comp rejected",
				slog.String("title", comp.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		added++
		if i.comps != nil {
			if err := i.comps.InsertBatch(ctx, key, []domain.ComparableRecord{comp}); err != nil {
				i.logger.Warn("comp store insert failed",
					slog.String("group_key", key),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	i.logger.Debug("comp batch ingested",
		slog.String("category", batch.Category),
		slog.Int("accepted", added),
		slog.Int("received", len(batch.Comps)),
	)
	return nil
}

func (i *Ingestor) handleListing(ctx context.Context, data []byte) error {
	var listing domain.ListingRecord
	if err := json.Unmarshal(data, &listing); err != nil {
		return fmt.Errorf("ingest: decode listing: %w", err)
	}
	if listing.ID == "" || listing.Title == "" {
		return fmt.Errorf("ingest: listing missing id or title: %w", domain.ErrInvalidInput)
	}
	if i.listings != nil {
		if err := i.listings.Upsert(ctx, listing); err != nil {
			return fmt.Errorf("ingest: upsert listing %s: %w", listing.ID, err)
		}
	}
	return nil
}
