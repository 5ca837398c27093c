package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DirtyMissingPostIDs selects live Post ids with no CachedPost
// companion, for CachedPost.dirty_missing.
func DirtyMissingPostIDs(ctx context.Context, q Querier, limit int) ([]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT p.id FROM app.posts p
		LEFT JOIN app.cached_posts cp ON cp.post_id = p.id
		WHERE NOT p.is_deleted AND cp.post_id IS NULL
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DirtyPaidoutPostIDs selects posts whose payout_at has passed and are
// not yet marked paid out, for CachedPost.dirty_paidouts.
func DirtyPaidoutPostIDs(ctx context.Context, q Querier, asOf time.Time) ([]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT post_id FROM app.cached_posts
		WHERE NOT is_paidout AND payout_at IS NOT NULL AND payout_at <= $1`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CachedPostUpsert is one row to be written by the Cached-Post Engine's
// flush.
type CachedPostUpsert struct {
	PostID    int64
	Title     string
	Preview   string
	ImgURL    string
	Payout    float64
	Promoted  float64
	PayoutAt  time.Time
	IsNSFW    bool
	IsPaidout bool
	RShares   int64
	Votes     string
	JSONMeta  string
	SCTrend   float64
	SCHot     float64
}

// UpsertCachedPosts writes a batch of CachedPost rows in one SendBatch
// round trip, grounded on api_v2.go's batched-upsert idiom.
func UpsertCachedPosts(ctx context.Context, q Querier, rows []CachedPostUpsert) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO app.cached_posts
				(post_id, title, preview, img_url, payout, promoted, payout_at,
				 is_nsfw, is_paidout, rshares, votes, json_meta, sc_trend, sc_hot, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
			ON CONFLICT (post_id) DO UPDATE SET
				title = EXCLUDED.title,
				preview = EXCLUDED.preview,
				img_url = EXCLUDED.img_url,
				payout = EXCLUDED.payout,
				promoted = EXCLUDED.promoted,
				payout_at = EXCLUDED.payout_at,
				is_nsfw = EXCLUDED.is_nsfw,
				is_paidout = EXCLUDED.is_paidout,
				rshares = EXCLUDED.rshares,
				votes = EXCLUDED.votes,
				json_meta = EXCLUDED.json_meta,
				sc_trend = EXCLUDED.sc_trend,
				sc_hot = EXCLUDED.sc_hot,
				updated_at = NOW()`,
			r.PostID, r.Title, r.Preview, r.ImgURL, r.Payout, r.Promoted, r.PayoutAt,
			r.IsNSFW, r.IsPaidout, r.RShares, r.Votes, r.JSONMeta, r.SCTrend, r.SCHot)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store: upsert cached posts: %w", err)
		}
	}
	return nil
}

// PostAuthorByID resolves a post's author name from its id.
func PostAuthorByID(ctx context.Context, q Querier, postID int64) (string, error) {
	var author string
	err := q.QueryRow(ctx, `SELECT author FROM app.posts WHERE id = $1`, postID).Scan(&author)
	return author, err
}
