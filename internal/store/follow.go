package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FollowMutation is one pending follow/ignore/clear edge change.
type FollowMutation struct {
	FollowerID  int64
	FollowingID int64
	State       int
	BlockNum    uint64
}

// FlushFollowEdges applies pending edge mutations in one batch. State 0
// (cleared) still upserts the row rather than deleting it, preserving
// `created_at` for audit purposes, matching the tri-valued state model
// of spec.md §3.
func FlushFollowEdges(ctx context.Context, q Querier, muts []FollowMutation) error {
	if len(muts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range muts {
		batch.Queue(`
			INSERT INTO app.follows (follower_id, following_id, state, block_num, created_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (follower_id, following_id) DO UPDATE SET
				state = EXCLUDED.state,
				block_num = EXCLUDED.block_num`,
			m.FollowerID, m.FollowingID, m.State, m.BlockNum)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range muts {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store: flush follow edges: %w", err)
		}
	}
	return nil
}

// GetFollowState returns the current state of a follow edge, or
// models.FollowCleared if no row exists.
func GetFollowState(ctx context.Context, q Querier, followerID, followingID int64) (int, error) {
	var state int
	err := q.QueryRow(ctx, `
		SELECT state FROM app.follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID).Scan(&state)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return state, err
}

// ReblogMutation is a pending reblog add/remove.
type ReblogMutation struct {
	AccountID int64
	PostID    int64
	BlockNum  uint64
	Remove    bool
}

// FlushReblogs applies pending reblog/feed-cache mutations in one batch.
// A reblog both inserts into Reblog and FeedCache; un-reblog removes
// from both, per spec.md §4.B.
func FlushReblogs(ctx context.Context, q Querier, muts []ReblogMutation) error {
	if len(muts) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range muts {
		if m.Remove {
			batch.Queue(`DELETE FROM app.reblogs WHERE account_id = $1 AND post_id = $2`, m.AccountID, m.PostID)
			batch.Queue(`DELETE FROM app.feed_cache WHERE account_id = $1 AND post_id = $2`, m.AccountID, m.PostID)
			continue
		}
		batch.Queue(`
			INSERT INTO app.reblogs (account_id, post_id, block_num, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (account_id, post_id) DO NOTHING`,
			m.AccountID, m.PostID, m.BlockNum)
		batch.Queue(`
			INSERT INTO app.feed_cache (account_id, post_id, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (account_id, post_id) DO NOTHING`,
			m.AccountID, m.PostID)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	n := 0
	for _, m := range muts {
		if m.Remove {
			n += 2
		} else {
			n += 2
		}
	}
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store: flush reblogs: %w", err)
		}
	}
	return nil
}

// InsertFeedCacheForOwnPost adds an author's own post to their feed
// cache, called by the Posts accumulator whenever a root post is
// registered.
func InsertFeedCacheForOwnPost(ctx context.Context, q Querier, accountID, postID int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.feed_cache (account_id, post_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id, post_id) DO NOTHING`, accountID, postID)
	return err
}

// RebuildFeedCache regenerates the entire feed cache table from
// authoritative Post+Reblog data, used during initial sync
// (FeedCache.rebuild in spec.md §4.B).
func RebuildFeedCache(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, `TRUNCATE app.feed_cache`); err != nil {
		return fmt.Errorf("store: truncate feed_cache: %w", err)
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO app.feed_cache (account_id, post_id, created_at)
		SELECT a.id, p.id, p.created_at
		FROM app.posts p
		JOIN app.accounts a ON a.name = p.author
		WHERE p.depth = 0 AND NOT p.is_deleted`); err != nil {
		return fmt.Errorf("store: rebuild feed_cache from posts: %w", err)
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO app.feed_cache (account_id, post_id, created_at)
		SELECT r.account_id, r.post_id, r.created_at
		FROM app.reblogs r
		ON CONFLICT (account_id, post_id) DO NOTHING`); err != nil {
		return fmt.Errorf("store: rebuild feed_cache from reblogs: %w", err)
	}
	return nil
}
