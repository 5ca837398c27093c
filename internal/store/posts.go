package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// NewPost is a not-yet-persisted post row as assembled by Posts.register.
type NewPost struct {
	Author    string
	Permlink  string
	ParentID  *int64
	Depth     int
	Category  string
	Community string
	BlockNum  uint64
}

// InsertPosts inserts new (author, permlink) rows, ignoring rows whose
// live pair already exists (pure edits), and returns the ids assigned in
// submission order (0 for rows that were ignored as edits).
func InsertPosts(ctx context.Context, q Querier, posts []NewPost) ([]int64, error) {
	ids := make([]int64, len(posts))
	if len(posts) == 0 {
		return ids, nil
	}

	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(`
			INSERT INTO app.posts (author, permlink, parent_id, depth, category, community, block_num, created_at)
			VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NOW())
			ON CONFLICT (author, permlink) WHERE NOT is_deleted DO NOTHING
			RETURNING id`,
			p.Author, p.Permlink, p.ParentID, p.Depth, p.Category, p.Community, p.BlockNum)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for i := range posts {
		var id int64
		err := br.QueryRow().Scan(&id)
		if err == pgx.ErrNoRows {
			continue // pure edit of an existing live post
		}
		if err != nil {
			return nil, fmt.Errorf("store: insert posts: %w", err)
		}
		ids[i] = id
	}
	return ids, nil
}

// ResolvePostID looks up the live post id for (author, permlink).
func ResolvePostID(ctx context.Context, q Querier, author, permlink string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		SELECT id FROM app.posts WHERE author = $1 AND permlink = $2 AND NOT is_deleted`,
		author, permlink).Scan(&id)
	return id, err
}

// PostTuple is a resolved (id, author, permlink) triple, the return shape
// of Posts.urls_to_tuples.
type PostTuple struct {
	ID       int64
	Author   string
	Permlink string
}

// ResolvePostTuples resolves "author/permlink" strings to PostTuple rows,
// silently omitting urls that don't resolve to a live post.
func ResolvePostTuples(ctx context.Context, q Querier, authorPermlinks [][2]string) ([]PostTuple, error) {
	var out []PostTuple
	for _, ap := range authorPermlinks {
		var t PostTuple
		t.Author, t.Permlink = ap[0], ap[1]
		err := q.QueryRow(ctx, `
			SELECT id FROM app.posts WHERE author = $1 AND permlink = $2 AND NOT is_deleted`,
			ap[0], ap[1]).Scan(&t.ID)
		if err == pgx.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store: resolve post tuple %s/%s: %w", ap[0], ap[1], err)
		}
		out = append(out, t)
	}
	return out, nil
}

// PostTuplesByIDs resolves a batch of post ids to PostTuple rows, used by
// the Cached-Post Engine's flush to map dirty ids back to (author,
// permlink) before calling the upstream client's get_content_batch.
func PostTuplesByIDs(ctx context.Context, q Querier, ids []int64) ([]PostTuple, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id, author, permlink FROM app.posts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PostTuple
	for rows.Next() {
		var t PostTuple
		if err := rows.Scan(&t.ID, &t.Author, &t.Permlink); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkPostsDeleted marks the given (author, permlink) pairs as deleted.
func MarkPostsDeleted(ctx context.Context, q Querier, authorPermlinks [][2]string) error {
	if len(authorPermlinks) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ap := range authorPermlinks {
		batch.Queue(`
			UPDATE app.posts SET is_deleted = TRUE
			WHERE author = $1 AND permlink = $2 AND NOT is_deleted`,
			ap[0], ap[1])
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range authorPermlinks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store: mark posts deleted: %w", err)
		}
	}
	return nil
}

// SetPostMuted flips the is_muted flag for a post, used by the community
// engine's mutePost/unmutePost actions.
func SetPostMuted(ctx context.Context, q Querier, postID int64, muted bool) error {
	_, err := q.Exec(ctx, `UPDATE app.posts SET is_muted = $2 WHERE id = $1`, postID, muted)
	return err
}

// SetPostPinned flips the is_pinned flag for a post.
func SetPostPinned(ctx context.Context, q Querier, postID int64, pinned bool) error {
	_, err := q.Exec(ctx, `UPDATE app.posts SET is_pinned = $2 WHERE id = $1`, postID, pinned)
	return err
}

// IsPostPinned reports whether a post is currently pinned (used by
// pinPost/unpinPost permission checks).
func IsPostPinned(ctx context.Context, q Querier, postID int64) (bool, error) {
	var pinned bool
	err := q.QueryRow(ctx, `SELECT is_pinned FROM app.posts WHERE id = $1`, postID).Scan(&pinned)
	return pinned, err
}

// PostCommunity returns a post's community tag, empty if none.
func PostCommunity(ctx context.Context, q Querier, postID int64) (string, error) {
	var community string
	err := q.QueryRow(ctx, `SELECT COALESCE(community, '') FROM app.posts WHERE id = $1`, postID).Scan(&community)
	return community, err
}
