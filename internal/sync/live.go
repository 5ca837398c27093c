package sync

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

// steadyState implements spec.md §4.G step 3 forever: catch up any gap
// to the last irreversible block, clear the payout backlog, then
// live-tail until the stream ends (gap too large, in-trail fork, or ctx
// cancellation), re-entering the loop afterward. An unrecoverable fork
// (ErrForkInDB) is handled by truncating the stored head via verifyHead
// and re-entering fast-sync from there.
func (o *Orchestrator) steadyState(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastIrr, err := o.Upstream.LastIrreversible(ctx)
		if err != nil {
			return err
		}
		if err := o.fastSyncTo(ctx, lastIrr, false); err != nil {
			return err
		}

		if err := o.processPayoutBacklog(ctx); err != nil {
			return err
		}

		head, err := o.Store.HeadNum(ctx)
		if err != nil {
			return err
		}

		blocksCh, errCh := o.Upstream.StreamBlocks(ctx, head+1, o.TrailBlocks, streamMaxGap)
		if err := o.consumeStream(ctx, blocksCh); err != nil {
			return err
		}

		if err := <-errCh; err != nil {
			if errors.Is(err, upstream.ErrForkInDB) {
				log.Printf("[sync] fork detected at live head, truncating and re-syncing: %v", err)
				if verr := o.verifyHead(ctx); verr != nil {
					return verr
				}
				continue
			}
			return err
		}
		// stream ended benignly (gap grew past streamMaxGap, or a fork was
		// absorbed inside the trail queue); loop back into fast-sync.
	}
}

func (o *Orchestrator) consumeStream(ctx context.Context, blocks <-chan upstream.RawBlock) error {
	for blk := range blocks {
		if err := o.applyLiveBlock(ctx, blk); err != nil {
			return err
		}
	}
	return nil
}

// applyLiveBlock implements spec.md §4.G step 3.b/c: project one block
// transactionally, mark touched posts dirty on the Cached-Post Engine,
// flush the Follow, Cached-Post, and Accounts accumulators, and advance
// the checkpoint, all within the block's own transaction. Periodic
// housekeeping (chain state refresh, stale-account refresh) runs
// standalone afterward since it spans independent reads.
func (o *Orchestrator) applyLiveBlock(ctx context.Context, blk upstream.RawBlock) error {
	num, err := blk.BlockNum()
	if err != nil {
		return err
	}

	tx, err := o.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	result, err := o.Processor.Apply(ctx, tx, blk, false)
	if err != nil {
		return err
	}
	for _, url := range result.DirtyURLs {
		if err := o.Cached.Dirty(ctx, tx, url); err != nil {
			return err
		}
	}
	if err := o.Follow.Flush(ctx, tx); err != nil {
		return err
	}
	if _, err := o.Cached.Flush(ctx, tx); err != nil {
		return err
	}
	if _, err := o.Accounts.Flush(ctx, tx, num, 0); err != nil {
		return err
	}
	if err := store.SetCheckpoint(ctx, tx, o.ServiceName, num); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if num%chainStateRefreshEvery == 0 {
		if err := o.refreshChainState(ctx, num); err != nil {
			log.Printf("[sync] chain state refresh failed at block %d: %v", num, err)
		}
	}
	if num%staleAccountFlushEvery == 0 {
		if err := o.refreshStaleAccounts(ctx, num); err != nil {
			log.Printf("[sync] stale account refresh failed at block %d: %v", num, err)
		}
	}
	return nil
}

// processPayoutBacklog implements spec.md §4.G step 3.c's payout sweep:
// mark posts whose payout_at has passed dirty, flush them, and recompute
// each community's pending payout total.
func (o *Orchestrator) processPayoutBacklog(ctx context.Context) error {
	n, err := o.Cached.DirtyPaidouts(ctx, o.Store.Pool(), time.Now())
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if _, err := o.Cached.Flush(ctx, o.Store.Pool()); err != nil {
		return err
	}
	return store.RecalcPendingPayouts(ctx, o.Store.Pool())
}

// refreshChainState pulls extended dynamic global properties and writes
// the singleton ChainState row, matching spec.md §4.G step 3.c's
// 20-block cadence.
func (o *Orchestrator) refreshChainState(ctx context.Context, num uint64) error {
	ext, err := o.Upstream.GDGPExtended(ctx)
	if err != nil {
		return err
	}
	dgpoJSON, err := json.Marshal(ext.DGPO)
	if err != nil {
		return err
	}
	return store.UpdateChainState(ctx, o.Store.Pool(), store.ChainStateRow{
		BlockNum:      num,
		SteemPerMvest: ext.SteemPerMvest,
		USDPerSteem:   ext.USDPerSteem,
		SBDPerSteem:   ext.SBDPerSteem,
		DGPOJSON:      string(dgpoJSON),
	})
}

// refreshStaleAccounts marks the least-recently-refreshed accounts dirty
// and flushes a bucketed slice of them, matching spec.md §4.G step 3.c's
// 1200-block cadence and spec.md §9 Open Question ii's period-bucketed
// flush definition (id mod period == block_num mod period).
func (o *Orchestrator) refreshStaleAccounts(ctx context.Context, num uint64) error {
	if err := o.Accounts.DirtyOldest(ctx, o.Store.Pool(), staleAccountFlushBatch); err != nil {
		return err
	}
	_, err := o.Accounts.Flush(ctx, o.Store.Pool(), num, staleAccountFlushEvery)
	return err
}
