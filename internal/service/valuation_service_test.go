package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcurio/arbfinder/internal/aggregate"
	"github.com/cloudcurio/arbfinder/internal/corpus"
	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/cloudcurio/arbfinder/internal/match"
	"github.com/cloudcurio/arbfinder/internal/valuation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memCache is an in-memory ValuationCache for tests.
type memCache struct {
	entries map[string]domain.ValuationResult
	puts    int
	gets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]domain.ValuationResult)}
}

func cacheKey(listingID string, version int64) string {
	return fmt.Sprintf("%s:%d", listingID, version)
}

func (c *memCache) Put(_ context.Context, res domain.ValuationResult) error {
	c.puts++
	c.entries[cacheKey(res.ListingID, res.CompGroupVersion)] = res
	return nil
}

func (c *memCache) Get(_ context.Context, listingID string, version int64) (domain.ValuationResult, error) {
	c.gets++
	res, ok := c.entries[cacheKey(listingID, version)]
	if !ok {
		return domain.ValuationResult{}, domain.ErrNotFound
	}
	return res, nil
}

func (c *memCache) Invalidate(_ context.Context, listingID string) error {
	for k := range c.entries {
		delete(c.entries, k)
	}
	return nil
}

var _ domain.ValuationCache = (*memCache)(nil)

func newService(t *testing.T, cache domain.ValuationCache) (*ValuationService, *corpus.Index) {
	t.Helper()
	adj, err := valuation.New(valuation.Config{
		Depreciation: map[string]valuation.DepreciationParams{
			"": {Model: domain.DepreciationExponential, K: 0.02},
		},
	}, testLogger())
	require.NoError(t, err)

	idx := corpus.New(corpus.Config{})
	svc := NewValuationService(
		idx,
		match.New(match.Config{}, testLogger()),
		aggregate.New(0),
		adj,
		cache,
		testLogger(),
	)
	return svc, idx
}

func seedComps(t *testing.T, idx *corpus.Index, title string, prices ...float64) string {
	t.Helper()
	now := time.Now()
	var key string
	for _, p := range prices {
		k, err := idx.Add("", domain.ComparableRecord{
			Title: title, SalePrice: p, SaleTimestamp: now, Source: "ebay",
		})
		require.NoError(t, err)
		key = k
	}
	return key
}

func testListing() domain.ListingRecord {
	return domain.ListingRecord{
		ID:        "lst-1",
		Title:     "nintendo switch oled",
		Price:     150,
		Condition: domain.ConditionGood,
	}
}

func TestValueComputes(t *testing.T) {
	svc, idx := newService(t, nil)
	seedComps(t, idx, "nintendo switch oled", 240, 250, 260)

	res, err := svc.Value(context.Background(), testListing())
	require.NoError(t, err)

	assert.Equal(t, domain.ValuationComputed, res.Status)
	require.NotNil(t, res.FairValue)
	// median 250 * good 0.65, age 0 so no depreciation.
	assert.InDelta(t, 162.5, *res.FairValue, 1e-9)
	assert.NotEmpty(t, res.CompGroupKey)
	assert.Equal(t, int64(3), res.CompGroupVersion)
	assert.Greater(t, res.Confidence, 0.0)
}

func TestValueNoCompsIsPending(t *testing.T) {
	svc, _ := newService(t, nil)

	res, err := svc.Value(context.Background(), testListing())
	require.NoError(t, err)

	assert.Equal(t, domain.ValuationPending, res.Status)
	assert.Nil(t, res.FairValue)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestValueEmptyTitleFails(t *testing.T) {
	svc, _ := newService(t, nil)

	l := testListing()
	l.Title = ""
	res, err := svc.Value(context.Background(), l)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.ValuationFailed, res.Status)
	assert.Equal(t, domain.KindInvalidInput, res.FailureKind)
}

func TestValueUsesCache(t *testing.T) {
	cache := newMemCache()
	svc, idx := newService(t, cache)
	seedComps(t, idx, "nintendo switch oled", 240, 250, 260)
	ctx := context.Background()

	first, err := svc.Value(ctx, testListing())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)

	second, err := svc.Value(ctx, testListing())
	require.NoError(t, err)

	// Served from cache: no second write, identical result.
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, first.CompGroupVersion, second.CompGroupVersion)
	assert.Equal(t, *first.FairValue, *second.FairValue)
	assert.Equal(t, first.ComputedAt, second.ComputedAt)
}

func TestValueRecomputesAfterVersionAdvance(t *testing.T) {
	cache := newMemCache()
	svc, idx := newService(t, cache)
	seedComps(t, idx, "nintendo switch oled", 240, 250, 260)
	ctx := context.Background()

	first, err := svc.Value(ctx, testListing())
	require.NoError(t, err)
	assert.Equal(t, int64(3), first.CompGroupVersion)

	// A new comp advances the group version; the old cache key no longer hits.
	seedComps(t, idx, "nintendo switch oled", 400)

	second, err := svc.Value(ctx, testListing())
	require.NoError(t, err)
	assert.Equal(t, int64(4), second.CompGroupVersion)
	assert.Equal(t, 2, cache.puts)
	assert.NotEqual(t, *first.FairValue, *second.FairValue)
}

func TestStale(t *testing.T) {
	svc, idx := newService(t, nil)
	seedComps(t, idx, "nintendo switch oled", 240, 250, 260)
	ctx := context.Background()

	res, err := svc.Value(ctx, testListing())
	require.NoError(t, err)
	assert.False(t, svc.Stale(res))

	seedComps(t, idx, "nintendo switch oled", 400)
	assert.True(t, svc.Stale(res))

	// Pending results carry no group and are never stale.
	assert.False(t, svc.Stale(domain.ValuationResult{Status: domain.ValuationPending}))

	// A vanished group is stale.
	gone := res
	gone.CompGroupKey = "deadbeefdeadbeef"
	assert.True(t, svc.Stale(gone))
}

func TestRefresh(t *testing.T) {
	svc, idx := newService(t, nil)
	seedComps(t, idx, "nintendo switch oled", 240, 250, 260)
	ctx := context.Background()

	res, err := svc.Value(ctx, testListing())
	require.NoError(t, err)

	// Current results come back unchanged.
	same, err := svc.Refresh(ctx, testListing(), res)
	require.NoError(t, err)
	assert.Equal(t, res, same)

	// After the group advances, Refresh recomputes.
	seedComps(t, idx, "nintendo switch oled", 400)
	fresh, err := svc.Refresh(ctx, testListing(), res)
	require.NoError(t, err)
	assert.Equal(t, domain.ValuationComputed, fresh.Status)
	assert.Greater(t, fresh.CompGroupVersion, res.CompGroupVersion)
}
