package sync

import (
	"context"
	"fmt"
	"log"
)

// initialSync implements spec.md §4.G step 2: replay checkpoint files,
// fast-sync the remainder up to the last irreversible block, then build
// the Cached-Post and feed caches from scratch.
func (o *Orchestrator) initialSync(ctx context.Context) error {
	if err := o.replayCheckpoints(ctx); err != nil {
		return fmt.Errorf("replay checkpoints: %w", err)
	}

	lastIrr, err := o.Upstream.LastIrreversible(ctx)
	if err != nil {
		return fmt.Errorf("last irreversible: %w", err)
	}
	if err := o.fastSyncTo(ctx, lastIrr, true); err != nil {
		return fmt.Errorf("fast-sync to %d: %w", lastIrr, err)
	}

	if err := o.buildCaches(ctx); err != nil {
		return fmt.Errorf("build caches: %w", err)
	}
	return nil
}

// buildCaches implements spec.md §4.G step 2.c: repeatedly flush the
// Cached-Post Engine's missing-post dirty set until it produces no more
// inserts, then rebuild the feed cache from authoritative data.
func (o *Orchestrator) buildCaches(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := o.Cached.DirtyMissing(ctx, o.Store.Pool(), cacheBuildBatchSize)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		counts, err := o.Cached.Flush(ctx, o.Store.Pool())
		if err != nil {
			return err
		}
		log.Printf("[sync] cache build: inserted %d cached posts", counts.Insert)
		if counts.Insert == 0 {
			break
		}
	}
	return o.FeedCache.Rebuild(ctx, o.Store.Pool())
}
