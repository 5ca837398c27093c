package accumulator

import (
	"context"
	"testing"

	"hivebridge/internal/store/storetest"
)

// TestFollowProcessAndFlush drives the Follow accumulator end-to-end
// against a fake store: a follow, then an unfollow, asserting the edge
// state and the follower/following counts net back to zero rather than
// going negative (global invariant 5).
func TestFollowProcessAndFlush(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	accounts := NewAccounts(nil, nil)
	if err := accounts.Register(ctx, fake, []string{"alice", "bob"}, 100); err != nil {
		t.Fatalf("register: %v", err)
	}
	aliceID, _ := accounts.ID("alice")
	bobID, _ := accounts.ID("bob")

	follow := NewFollow(accounts)

	if err := follow.ProcessFollow(ctx, fake, FollowOp{Follower: "alice", Following: "bob", What: []string{"blog"}}, 100); err != nil {
		t.Fatalf("process follow: %v", err)
	}
	if err := follow.Flush(ctx, fake); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := fake.FollowState(aliceID, bobID); got != 1 {
		t.Fatalf("follow state = %d, want 1", got)
	}
	if got := fake.FollowerCount(bobID); got != 1 {
		t.Fatalf("bob.follower_count = %d, want 1", got)
	}
	if got := fake.FollowingCount(aliceID); got != 1 {
		t.Fatalf("alice.following_count = %d, want 1", got)
	}

	if err := follow.ProcessFollow(ctx, fake, FollowOp{Follower: "alice", Following: "bob"}, 101); err != nil {
		t.Fatalf("process unfollow: %v", err)
	}
	if err := follow.Flush(ctx, fake); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := fake.FollowState(aliceID, bobID); got != 0 {
		t.Fatalf("follow state after unfollow = %d, want 0", got)
	}
	if got := fake.FollowerCount(bobID); got != 0 {
		t.Fatalf("bob.follower_count after unfollow = %d, want 0", got)
	}
	if got := fake.FollowingCount(aliceID); got != 0 {
		t.Fatalf("alice.following_count after unfollow = %d, want 0", got)
	}
}
