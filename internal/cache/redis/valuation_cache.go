package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudcurio/arbfinder/internal/domain"
	"github.com/redis/go-redis/v9"
)

const valuationTTL = 6 * time.Hour

// ValuationCache implements domain.ValuationCache using JSON-serialized
// results keyed by listing ID and comp group version.
//
// Key schema:
//
//	val:{listingID}:{version} - JSON-encoded ValuationResult
//	val:idx:{listingID}       - set of versions cached for the listing
//
// Because the version is part of the key, a result computed against an old
// aggregate can never be fetched once the group advances. Invalidate uses the
// index set to clear every version for a listing.
type ValuationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewValuationCache creates a ValuationCache backed by the given Client.
func NewValuationCache(c *Client) *ValuationCache {
	return &ValuationCache{rdb: c.Underlying(), ttl: valuationTTL}
}

func valKey(listingID string, version int64) string {
	return fmt.Sprintf("val:%s:%d", listingID, version)
}

func valIndexKey(listingID string) string { return "val:idx:" + listingID }

// Put stores a valuation result under its listing ID and group version.
func (c *ValuationCache) Put(ctx context.Context, res domain.ValuationResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: marshal valuation %s: %w", res.ListingID, err)
	}

	key := valKey(res.ListingID, res.CompGroupVersion)

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, data, c.ttl)
	pipe.SAdd(ctx, valIndexKey(res.ListingID), res.CompGroupVersion)
	pipe.Expire(ctx, valIndexKey(res.ListingID), c.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: put valuation %s: %w", res.ListingID, err)
	}
	return nil
}

// Get retrieves a valuation computed against exactly the given group version.
// It returns domain.ErrNotFound when no such result is cached.
func (c *ValuationCache) Get(ctx context.Context, listingID string, groupVersion int64) (domain.ValuationResult, error) {
	data, err := c.rdb.Get(ctx, valKey(listingID, groupVersion)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ValuationResult{}, domain.ErrNotFound
		}
		return domain.ValuationResult{}, fmt.Errorf("redis: get valuation %s: %w", listingID, err)
	}

	var res domain.ValuationResult
	if err := json.Unmarshal(data, &res); err != nil {
		return domain.ValuationResult{}, fmt.Errorf("redis: unmarshal valuation %s: %w", listingID, err)
	}
	return res, nil
}

// Invalidate removes every cached version for a listing.
func (c *ValuationCache) Invalidate(ctx context.Context, listingID string) error {
	versions, err := c.rdb.SMembers(ctx, valIndexKey(listingID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: invalidate valuation %s: %w", listingID, err)
	}

	keys := make([]string, 0, len(versions)+1)
	for _, v := range versions {
		keys = append(keys, "val:"+listingID+":"+v)
	}
	keys = append(keys, valIndexKey(listingID))

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate valuation %s: %w", listingID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ValuationCache = (*ValuationCache)(nil)
