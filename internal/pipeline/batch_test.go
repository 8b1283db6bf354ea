package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	"github.com/cloudcurio/arbfinder/internal/corpus"
	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/fees"
	"github.com/cloudcurio/arbfinder/internal/match"
	"github.com/cloudcurio/arbfinder/internal/score"
	"github.com/cloudcurio/arbfinder/internal/service"
	"github.com/cloudcurio/arbfinder/internal/valuation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memListingStore is an in-memory ListingStore for tests.
type memListingStore struct {
	mu       sync.Mutex
	listings []domain.ListingRecord
	listErr  error
}

func (s *memListingStore) Upsert(_ context.Context, l domain.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listings {
		if s.listings[i].ID == l.ID {
			s.listings[i] = l
			return nil
		}
	}
	s.listings = append(s.listings, l)
	return nil
}

func (s *memListingStore) UpsertBatch(ctx context.Context, ls []domain.ListingRecord) error {
	for _, l := range ls {
		if err := s.Upsert(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (s *memListingStore) GetByID(_ context.Context, id string) (domain.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.listings {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.ListingRecord{}, domain.ErrNotFound
}

func (s *memListingStore) ListActive(_ context.Context, opts domain.ListOpts) ([]domain.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := s.listings
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *memListingStore) ListBefore(_ context.Context, before time.Time, _ int) ([]domain.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ListingRecord
	for _, l := range s.listings {
		if l.Timestamp.Before(before) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memListingStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []domain.ListingRecord
	var n int64
	for _, l := range s.listings {
		if l.Timestamp.Before(before) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	s.listings = kept
	return n, nil
}

func (s *memListingStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.listings)), nil
}

var _ domain.ListingStore = (*memListingStore)(nil)

func newRunner(t *testing.T, store domain.ListingStore, idx *corpus.Index) *BatchRunner {
	t.Helper()
	adj, err := valuation.New(valuation.Config{
		Depreciation: map[string]valuation.DepreciationParams{
			"": {Model: domain.DepreciationExponential, K: 0.02},
		},
	}, testLogger())
	require.NoError(t, err)

	valSvc := service.NewValuationService(
		idx,
		match.New(match.Config{}, testLogger()),
		aggregate.New(0),
		adj,
		nil,
		testLogger(),
	)
	dealSvc := service.NewDealService(
		fees.New(map[string]domain.FeeSchedule{
			"ebay": {FinalValuePct: 0.10, PaymentFixed: 0.30},
		}, testLogger()),
		score.New(score.Config{}, testLogger()),
		nil, nil,
		service.DealConfig{
			ResalePlatform: "ebay",
			RankPolicy:     score.RankPolicy{IncludeSkips: true},
		},
		testLogger(),
	)
	return NewBatchRunner(store, valSvc, dealSvc, BatchConfig{Workers: 4}, testLogger())
}

func seededIndex(t *testing.T, titles map[string][]float64) *corpus.Index {
	t.Helper()
	idx := corpus.New(corpus.Config{})
	now := time.Now()
	for title, prices := range titles {
		for _, p := range prices {
			_, err := idx.Add("", domain.ComparableRecord{
				Title: title, SalePrice: p, SaleTimestamp: now, Source: "ebay",
			})
			require.NoError(t, err)
		}
	}
	return idx
}

func TestBatchRun(t *testing.T) {
	idx := seededIndex(t, map[string][]float64{
		"nintendo switch oled": {240, 250, 260},
	})
	store := &memListingStore{listings: []domain.ListingRecord{
		{ID: "lst-1", Title: "nintendo switch oled", Price: 100, Condition: domain.ConditionGood},
		{ID: "lst-2", Title: "unmatched antique clock", Price: 50, Condition: domain.ConditionGood},
	}}

	result, err := newRunner(t, store, idx).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.Valuations, 2)
	assert.Empty(t, result.Failures)
	// Both listings produce an opportunity: one scored on comps, one SKIP for
	// insufficient data (the policy includes skips).
	assert.Len(t, result.Opportunities, 2)
}

func TestBatchPerListingIsolation(t *testing.T) {
	idx := seededIndex(t, map[string][]float64{
		"nintendo switch oled": {240, 250, 260},
	})
	store := &memListingStore{listings: []domain.ListingRecord{
		{ID: "good", Title: "nintendo switch oled", Price: 100, Condition: domain.ConditionGood},
		{ID: "bad", Title: "nintendo switch oled", Price: 100, Condition: "mint"},
	}}

	result, err := newRunner(t, store, idx).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad", result.Failures[0].ListingID)
	assert.Equal(t, domain.KindInvalidInput, result.Failures[0].Kind)
	// The good listing still made it through.
	require.Len(t, result.Opportunities, 1)
	assert.Equal(t, "good", result.Opportunities[0].ListingID)
}

func TestBatchStoreErrorAborts(t *testing.T) {
	idx := corpus.New(corpus.Config{})
	store := &memListingStore{listErr: errors.New("db down")}

	_, err := newRunner(t, store, idx).Run(context.Background())
	assert.Error(t, err)
}

func TestBatchRanksOpportunities(t *testing.T) {
	idx := seededIndex(t, map[string][]float64{
		"nintendo switch oled": {240, 250, 260},
		"dyson v8 vacuum":      {100, 110, 120},
	})
	store := &memListingStore{listings: []domain.ListingRecord{
		// Thin margin on the vacuum, fat margin on the console.
		{ID: "thin", Title: "dyson v8 vacuum", Price: 60, Condition: domain.ConditionGood},
		{ID: "fat", Title: "nintendo switch oled", Price: 40, Condition: domain.ConditionGood},
	}}

	result, err := newRunner(t, store, idx).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Opportunities, 2)
	assert.Equal(t, "fat", result.Opportunities[0].ListingID)
	assert.Greater(t, result.Opportunities[0].MarginPct, result.Opportunities[1].MarginPct)
}

func TestBatchOutputFollowsInputOrder(t *testing.T) {
	idx := seededIndex(t, map[string][]float64{
		"nintendo switch oled": {240, 250, 260},
	})

	// Identical listings score to fully tied opportunities, so ranking falls
	// back to stable order. That order must be the input order, not the order
	// workers happened to finish in.
	var listings []domain.ListingRecord
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		listings = append(listings, domain.ListingRecord{
			ID: id, Title: "nintendo switch oled", Price: 100, Condition: domain.ConditionGood,
		})
	}

	result, err := newRunner(t, &memListingStore{listings: listings}, idx).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Valuations, len(ids))
	require.Len(t, result.Opportunities, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, result.Valuations[i].ListingID)
		assert.Equal(t, id, result.Opportunities[i].ListingID)
	}
}

func TestBatchCancelledContext(t *testing.T) {
	idx := corpus.New(corpus.Config{})
	store := &memListingStore{listings: []domain.ListingRecord{
		{ID: "lst-1", Title: "x y z", Price: 10, Condition: domain.ConditionGood},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, store, idx).Run(ctx)
	// ListActive on the fake succeeds; cancellation surfaces from the workers.
	assert.ErrorIs(t, err, context.Canceled)
}
