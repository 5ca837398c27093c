// Package sync implements the Sync Orchestrator: the checkpoint-replay
// → fast-sync → live-tail state machine that drives every other
// component, grounded on the teacher's internal/ingester.Service
// (forward/backward mode selection, batch-size tiering, continuity
// checks, reorg handling) generalized to spec.md §4.G's three phases.
package sync

import (
	"context"
	"fmt"
	"log"

	"hivebridge/internal/accumulator"
	"hivebridge/internal/blockproc"
	"hivebridge/internal/cachedpost"
	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

const (
	// fastSyncRangeSize is the block range size for fast-sync and
	// checkpoint-replay chunks (spec.md §4.G 2.a/2.b, §5 "initial-sync
	// batches wrap N blocks (≤1000)").
	fastSyncRangeSize = 1000

	// streamMaxGap bounds how far live-tail may fall behind head before
	// aborting back to fast-sync (spec.md §4.A's max_gap parameter). Not
	// one of spec.md §6's configuration options, so it is fixed at the
	// same size as a fast-sync range: falling a full range behind live
	// tail means fast-sync is strictly more efficient anyway.
	streamMaxGap = fastSyncRangeSize

	// chainStateRefreshEvery/staleAccountFlushEvery are the live-mode
	// housekeeping cadences named in spec.md §4.G step 3.c.
	chainStateRefreshEvery  = 20
	staleAccountFlushEvery  = 1200
	staleAccountFlushBatch  = 500
	cacheBuildBatchSize     = 1000
)

// Orchestrator owns every other component and drives the three-phase
// state machine of spec.md §4.G. There is no process-wide hidden state:
// every dependency is constructed by the caller and passed in (spec.md
// §9's "Singletons... become explicitly constructed components").
type Orchestrator struct {
	Store     *store.Store
	Upstream  *upstream.Client
	Accounts  *accumulator.Accounts
	Posts     *accumulator.Posts
	Follow    *accumulator.Follow
	FeedCache *accumulator.FeedCache
	Processor *blockproc.Processor
	Cached    *cachedpost.Engine

	ServiceName   string
	CheckpointDir string
	TrailBlocks   int
}

// New constructs an Orchestrator from its already-wired dependencies.
func New(st *store.Store, uc *upstream.Client, accounts *accumulator.Accounts, posts *accumulator.Posts,
	follow *accumulator.Follow, feedCache *accumulator.FeedCache, processor *blockproc.Processor,
	cached *cachedpost.Engine, serviceName, checkpointDir string, trailBlocks int) *Orchestrator {
	return &Orchestrator{
		Store: st, Upstream: uc, Accounts: accounts, Posts: posts, Follow: follow,
		FeedCache: feedCache, Processor: processor, Cached: cached,
		ServiceName: serviceName, CheckpointDir: checkpointDir, TrailBlocks: trailBlocks,
	}
}

// Run executes the full state machine: initialize, then either initial
// sync (fresh store) or head-verification recovery (existing store),
// then the steady-state loop forever (or until ctx is canceled).
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.initialize(ctx); err != nil {
		return fmt.Errorf("sync: initialize: %w", err)
	}

	head, err := o.Store.HeadNum(ctx)
	if err != nil {
		return fmt.Errorf("sync: read head: %w", err)
	}

	if head == 0 {
		log.Printf("[sync] starting initial sync")
		if err := o.initialSync(ctx); err != nil {
			return fmt.Errorf("sync: initial sync: %w", err)
		}
	} else {
		log.Printf("[sync] recovering from stored head %d", head)
		if err := o.verifyHead(ctx); err != nil {
			return fmt.Errorf("sync: verify head: %w", err)
		}
	}

	return o.steadyState(ctx)
}

// initialize opens the schema and loads the Accounts id<->name map,
// matching spec.md §4.G step 1.
func (o *Orchestrator) initialize(ctx context.Context) error {
	if err := o.Store.Migrate(ctx); err != nil {
		return err
	}
	return o.Accounts.LoadIDs(ctx, o.Store.Pool())
}

// verifyHead implements Blocks.verify_head: on non-initial start,
// confirm the stored head block's hash matches upstream at that number,
// truncating the stored head (and retrying one block lower) until
// linked, matching spec.md §4.G's recovery step.
func (o *Orchestrator) verifyHead(ctx context.Context) error {
	for {
		head, err := o.Store.HeadNum(ctx)
		if err != nil {
			return err
		}
		if head == 0 {
			return nil
		}
		storedHash, err := o.Store.GetBlockHashByNum(ctx, head)
		if err != nil {
			return err
		}
		blk, present, err := o.Upstream.GetBlock(ctx, head)
		if err != nil {
			return err
		}
		if present && blk.BlockID == storedHash {
			return nil
		}
		log.Printf("[sync] stored head %d does not link to upstream, truncating", head)
		if err := o.Store.RollbackFromHeight(ctx, head); err != nil {
			return err
		}
	}
}

// HeadState reports {upstream_head, indexer_head, diff} for the
// out-of-scope API server's readiness probe (SPEC_FULL.md §4.G
// expansion, grounded on hive/indexer/core.py's head_state).
func (o *Orchestrator) HeadState(ctx context.Context) (upstreamHead, indexerHead uint64, diff int64, err error) {
	indexerHead, err = o.Store.HeadNum(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	upstreamHead, err = o.Upstream.HeadBlock(ctx)
	if err != nil {
		return 0, indexerHead, 0, err
	}
	diff = int64(upstreamHead) - int64(indexerHead)
	return upstreamHead, indexerHead, diff, nil
}
