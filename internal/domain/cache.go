package domain

import "context"

// ValuationCache caches derived valuations keyed by (listing_id, group
// version). A version advance in the underlying group changes the key, so
// stale entries can never be served by accident.
type ValuationCache interface {
	Put(ctx context.Context, result ValuationResult) error
	Get(ctx context.Context, listingID string, groupVersion int64) (ValuationResult, error)
	Invalidate(ctx context.Context, listingID string) error
}

// SignalBus carries messages between this process and its collaborators.
// Inbound listing/comp batches arrive on pub/sub channels; scored
// opportunities fan out on a pub/sub channel for live consumers and are
// mirrored onto a durable stream that alert/UI collaborators replay with
// their own clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
