package accumulator

import (
	"context"

	"hivebridge/internal/store"
)

// FeedCache regenerates the feed cache table from authoritative data
// during initial sync, matching FeedCache.rebuild.
type FeedCache struct{}

// NewFeedCache constructs a FeedCache accumulator.
func NewFeedCache() *FeedCache {
	return &FeedCache{}
}

// Rebuild regenerates the entire feed cache table.
func (FeedCache) Rebuild(ctx context.Context, q store.Querier) error {
	return store.RebuildFeedCache(ctx, q)
}
