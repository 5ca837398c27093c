package accumulator

import (
	"context"

	"hivebridge/internal/store"
)

// FollowOp is a decoded `follow` custom_json payload item:
// ["follow", {follower, following, what}].
type FollowOp struct {
	Follower  string
	Following string
	What      []string // subset of {"blog", "ignore"}; empty = unfollow
}

// ReblogOp is a decoded `reblog` custom_json payload item.
type ReblogOp struct {
	Account  string
	Author   string
	Permlink string
	Delete   bool
}

// Follow is the Follow accumulator: processes follow/reblog custom_json
// subtypes, maintaining tri-valued follow state and follower/following
// count deltas (applied, never recomputed, per spec.md §4.B).
type Follow struct {
	accounts *Accounts

	pendingEdges    []store.FollowMutation
	pendingReblogs  []store.ReblogMutation
	followerDelta   map[int64]int64
	followingDelta  map[int64]int64
}

// NewFollow constructs a Follow accumulator.
func NewFollow(accounts *Accounts) *Follow {
	return &Follow{
		accounts:       accounts,
		followerDelta:  make(map[int64]int64),
		followingDelta: make(map[int64]int64),
	}
}

// ProcessFollow stages a follow/unfollow/ignore op. The count delta is
// computed against the edge's latest state: the most recent mutation
// already staged for the same edge if there is one, otherwise the stored
// state, so multiple ops touching the same edge before a flush net out
// correctly.
func (f *Follow) ProcessFollow(ctx context.Context, q store.Querier, op FollowOp, blockNum uint64) error {
	followerID, ok := f.accounts.ID(op.Follower)
	if !ok {
		return nil // unregistered follower: drop silently
	}
	followingID, ok := f.accounts.ID(op.Following)
	if !ok {
		return nil
	}

	newState := 0
	for _, w := range op.What {
		switch w {
		case "blog":
			newState = 1
		case "ignore":
			newState = 2
		}
	}

	prevState := -1
	for i := len(f.pendingEdges) - 1; i >= 0; i-- {
		if e := f.pendingEdges[i]; e.FollowerID == followerID && e.FollowingID == followingID {
			prevState = e.State
			break
		}
	}
	if prevState < 0 {
		var err error
		prevState, err = store.GetFollowState(ctx, q, followerID, followingID)
		if err != nil {
			return err
		}
	}
	if prevState == newState {
		return nil
	}

	if prevState == 1 {
		f.followerDelta[followingID]--
		f.followingDelta[followerID]--
	}
	if newState == 1 {
		f.followerDelta[followingID]++
		f.followingDelta[followerID]++
	}

	f.pendingEdges = append(f.pendingEdges, store.FollowMutation{
		FollowerID:  followerID,
		FollowingID: followingID,
		State:       newState,
		BlockNum:    blockNum,
	})
	return nil
}

// ProcessReblog stages a reblog/un-reblog op.
func (f *Follow) ProcessReblog(ctx context.Context, q store.Querier, op ReblogOp, blockNum uint64) error {
	accountID, ok := f.accounts.ID(op.Account)
	if !ok {
		return nil
	}
	postID, err := store.ResolvePostID(ctx, q, op.Author, op.Permlink)
	if err != nil {
		return nil // unresolvable post: drop silently
	}
	f.pendingReblogs = append(f.pendingReblogs, store.ReblogMutation{
		AccountID: accountID,
		PostID:    postID,
		BlockNum:  blockNum,
		Remove:    op.Delete,
	})
	return nil
}

// Flush applies pending edge mutations, reblog mutations, and follower
// count deltas atomically, matching Follow.flush(trx).
func (f *Follow) Flush(ctx context.Context, q store.Querier) error {
	if err := store.FlushFollowEdges(ctx, q, f.pendingEdges); err != nil {
		return err
	}
	if err := store.FlushReblogs(ctx, q, f.pendingReblogs); err != nil {
		return err
	}
	if err := store.AdjustFollowCounts(ctx, q, f.followerDelta, f.followingDelta); err != nil {
		return err
	}

	f.pendingEdges = nil
	f.pendingReblogs = nil
	f.followerDelta = make(map[int64]int64)
	f.followingDelta = make(map[int64]int64)
	return nil
}
