package sync

import (
	"context"
	"log"
)

// Shutdown performs the best-effort cleanup spec.md §5 requires when the
// process is interrupted mid fast-sync: the Follow accumulator's pending
// edge/reblog mutations and follower-count deltas are flushed (skipping
// them would leave follower counts permanently off by the in-flight
// delta), the Accounts accumulator's dirty set is left unflushed (it is
// fully reconstructible from chain state on the next run), and the
// Cached-Post Engine's dirty sets are flushed on a best-effort basis.
// Call this from the process's signal handler, with a short-lived
// context independent of the one Run was canceled with.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	if err := o.Follow.Flush(ctx, o.Store.Pool()); err != nil {
		log.Printf("[sync] shutdown: follow flush failed: %v", err)
	}
	if _, err := o.Cached.Flush(ctx, o.Store.Pool()); err != nil {
		log.Printf("[sync] shutdown: cached-post flush failed (best effort): %v", err)
	}
}
