package sync

import (
	"context"
	"fmt"
	"log"

	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

// fastSyncTo advances the stored head to targetHead by fetching and
// applying ranges of fastSyncRangeSize blocks, each range committed as
// one transaction, matching spec.md §4.G steps 2.b/3.a.
func (o *Orchestrator) fastSyncTo(ctx context.Context, targetHead uint64, isInitialSync bool) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		head, err := o.Store.HeadNum(ctx)
		if err != nil {
			return err
		}
		if head >= targetHead {
			return nil
		}

		lo := head + 1
		hi := lo + fastSyncRangeSize
		if hi > targetHead+1 {
			hi = targetHead + 1
		}

		blocks, err := o.Upstream.GetBlocksRange(ctx, lo, hi)
		if err != nil {
			return fmt.Errorf("sync: fast-sync range [%d,%d): %w", lo, hi, err)
		}
		if err := o.applyBlockRange(ctx, blocks, isInitialSync); err != nil {
			return err
		}
		log.Printf("[sync] fast-sync applied blocks %d..%d", lo, hi-1)
	}
}

// applyBlockRange commits one fast-sync range as a single transaction,
// flushing the Accounts and Follow accumulators at the range boundary
// and advancing the checkpoint, matching spec.md §5's batching rule.
func (o *Orchestrator) applyBlockRange(ctx context.Context, blocks []upstream.RawBlock, isInitialSync bool) error {
	if len(blocks) == 0 {
		return nil
	}

	tx, err := o.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lastNum uint64
	for _, blk := range blocks {
		if _, err := o.Processor.Apply(ctx, tx, blk, isInitialSync); err != nil {
			return err
		}
		lastNum, err = blk.BlockNum()
		if err != nil {
			return err
		}
	}

	if _, err := o.Accounts.Flush(ctx, tx, lastNum, 0); err != nil {
		return err
	}
	if err := o.Follow.Flush(ctx, tx); err != nil {
		return err
	}
	if err := store.SetCheckpoint(ctx, tx, o.ServiceName, lastNum); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
