package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ListingStore persists live listings from the collector.
type ListingStore interface {
	Upsert(ctx context.Context, listing ListingRecord) error
	UpsertBatch(ctx context.Context, listings []ListingRecord) error
	GetByID(ctx context.Context, id string) (ListingRecord, error)
	ListActive(ctx context.Context, opts ListOpts) ([]ListingRecord, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]ListingRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// ComparableStore persists historical sale records.
type ComparableStore interface {
	InsertBatch(ctx context.Context, groupKey string, comps []ComparableRecord) error
	ListByGroup(ctx context.Context, groupKey string, opts ListOpts) ([]ComparableRecord, error)
	ListSince(ctx context.Context, since time.Time) ([]ComparableRecord, error)
	Count(ctx context.Context) (int64, error)
}

// OpportunityStore persists scored arbitrage opportunities.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
	ListByRecommendation(ctx context.Context, rec Recommendation, opts ListOpts) ([]ArbitrageOpportunity, error)
}
