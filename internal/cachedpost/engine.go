// Package cachedpost implements the Cached-Post Engine: it reconciles
// CachedPost snapshots with authoritative upstream content, payouts, and
// votes, grounded on hive/indexer/cached_post.py's dirty-set/flush
// pattern (the same shape as internal/accumulator's accumulators).
package cachedpost

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

// AuthorDirtyMarker is the narrow capability the engine needs from the
// Accounts accumulator to refresh an author's reputation/follow counts
// after their post is reconciled, matching spec.md §4.E's closing
// sentence.
type AuthorDirtyMarker interface {
	Dirty(name string)
}

// Engine owns three dirty sets keyed by post id (missing, touched,
// paidout) and flushes their union against the Upstream Client's
// get_content_batch, matching spec.md §4.E.
type Engine struct {
	upstream    *upstream.Client
	accounts    AuthorDirtyMarker
	serviceName string

	missing map[int64]bool
	touched map[int64]bool
	paidout map[int64]bool
}

// New constructs a Cached-Post Engine.
func New(uc *upstream.Client, accounts AuthorDirtyMarker, serviceName string) *Engine {
	return &Engine{
		upstream:    uc,
		accounts:    accounts,
		serviceName: serviceName,
		missing:     make(map[int64]bool),
		touched:     make(map[int64]bool),
		paidout:     make(map[int64]bool),
	}
}

// DirtyMissing selects Post ids with no CachedPost companion (initial
// sync or recovery) and stages them for insertion, matching
// CachedPost.dirty_missing. Returns the number staged.
func (e *Engine) DirtyMissing(ctx context.Context, q store.Querier, limit int) (int, error) {
	ids, err := store.DirtyMissingPostIDs(ctx, q, limit)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		e.missing[id] = true
	}
	return len(ids), nil
}

// Dirty marks a post touched by this block (comment edit or vote),
// matching CachedPost.dirty(url). url is "author/permlink".
func (e *Engine) Dirty(ctx context.Context, q store.Querier, url string) error {
	parts := strings.SplitN(url, "/", 2)
	if len(parts) != 2 {
		return nil
	}
	id, err := store.ResolvePostID(ctx, q, parts[0], parts[1])
	if err != nil {
		return nil // unresolvable url: drop silently, matches register's edit tolerance
	}
	e.touched[id] = true
	return nil
}

// DirtyPaidouts marks posts whose payout_at has passed and are not yet
// marked paid out, matching CachedPost.dirty_paidouts(date).
func (e *Engine) DirtyPaidouts(ctx context.Context, q store.Querier, asOf time.Time) (int, error) {
	ids, err := store.DirtyPaidoutPostIDs(ctx, q, asOf)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		e.paidout[id] = true
	}
	return len(ids), nil
}

// FlushCounts reports how many rows each bucket produced, for
// observability (spec.md §4.E).
type FlushCounts struct {
	Insert int
	Update int
	Payout int
	Upvote int
}

// Flush takes the union of the three dirty sets, fetches authoritative
// content in batches, computes sc_trend/sc_hot locally, and emits the
// corresponding upsert. Authors of flushed posts are marked dirty on the
// Accounts accumulator. Matches CachedPost.flush.
func (e *Engine) Flush(ctx context.Context, q store.Querier) (FlushCounts, error) {
	ids := make([]int64, 0, len(e.missing)+len(e.touched)+len(e.paidout))
	seen := make(map[int64]bool)
	for _, set := range []map[int64]bool{e.missing, e.touched, e.paidout} {
		for id := range set {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return FlushCounts{}, nil
	}

	tuples, err := store.PostTuplesByIDs(ctx, q, ids)
	if err != nil {
		return FlushCounts{}, err
	}

	keys := make([]upstream.ContentKey, 0, len(tuples))
	for _, t := range tuples {
		keys = append(keys, upstream.ContentKey{Author: t.Author, Permlink: t.Permlink})
	}
	contents, err := e.upstream.GetContentBatch(ctx, keys)
	if err != nil {
		return FlushCounts{}, err
	}

	var counts FlushCounts
	var rows []store.CachedPostUpsert
	authors := make(map[string]bool)

	for i, t := range tuples {
		if i >= len(contents) {
			break
		}
		ct := contents[i]
		if ct.Author == "" {
			// Post-lookup miss on cached fetch: warn, remove from batch,
			// continue (spec.md §7).
			log.Printf("[cachedpost] lookup miss for post id=%d %s/%s", t.ID, t.Author, t.Permlink)
			if lerr := store.LogIndexingError(ctx, q, e.serviceName, 0, "", "cachedpost_lookup_miss",
				fmt.Sprintf("post id=%d %s/%s", t.ID, t.Author, t.Permlink)); lerr != nil {
				log.Printf("[cachedpost] failed to log lookup miss: %v", lerr)
			}
			continue
		}

		row, err := buildUpsert(t.ID, ct)
		if err != nil {
			log.Printf("[cachedpost] skip post id=%d: %v", t.ID, err)
			continue
		}
		rows = append(rows, row)
		authors[ct.Author] = true
		counts.Upvote += len(ct.ActiveVotes)

		switch {
		case e.missing[t.ID]:
			counts.Insert++
		case e.paidout[t.ID]:
			counts.Payout++
		default:
			counts.Update++
		}
	}

	if err := store.UpsertCachedPosts(ctx, q, rows); err != nil {
		return FlushCounts{}, err
	}

	if e.accounts != nil {
		for author := range authors {
			e.accounts.Dirty(author)
		}
	}

	e.missing = make(map[int64]bool)
	e.touched = make(map[int64]bool)
	e.paidout = make(map[int64]bool)

	return counts, nil
}

func buildUpsert(postID int64, ct upstream.Content) (store.CachedPostUpsert, error) {
	created, err := time.Parse("2006-01-02T15:04:05", ct.Created)
	if err != nil {
		created = time.Time{}
	}
	payoutAt, err := time.Parse("2006-01-02T15:04:05", ct.CashoutTime)
	if err != nil {
		payoutAt = time.Time{}
	}

	payout := 0.0
	for _, v := range []string{ct.PendingPayoutValue, ct.TotalPayoutValue, ct.CuratorPayoutValue} {
		if v == "" {
			continue
		}
		amt, aerr := upstream.AssetAmount(v)
		if aerr == nil {
			payout += amt
		}
	}

	title, preview, imgURL, isNSFW := extractPresentation(ct)

	var votesBuf strings.Builder
	for _, v := range ct.ActiveVotes {
		votesBuf.WriteString(v.Voter)
		votesBuf.WriteByte(',')
		votesBuf.WriteString(strconv.FormatInt(v.Rshares, 10))
		votesBuf.WriteByte(',')
		votesBuf.WriteString(strconv.FormatInt(v.Percent, 10))
		votesBuf.WriteByte('\n')
	}

	return store.CachedPostUpsert{
		PostID:    postID,
		Title:     title,
		Preview:   preview,
		ImgURL:    imgURL,
		Payout:    payout,
		PayoutAt:  payoutAt,
		IsNSFW:    isNSFW,
		IsPaidout: ct.IsPaidout,
		RShares:   ct.NetRshares,
		Votes:     votesBuf.String(),
		JSONMeta:  ct.JSONMetadata,
		SCTrend:   ScTrend(ct.NetRshares, created.Unix()),
		SCHot:     ScHot(ct.NetRshares, created.Unix()),
	}, nil
}

const previewLen = 300

// extractPresentation derives title/preview/nsfw from the authoritative
// content body, matching the source's lightweight body-to-preview
// truncation (no markdown/html rendering in scope here). No image URL is
// extracted: imgURL is always returned empty.
func extractPresentation(ct upstream.Content) (title, preview, imgURL string, isNSFW bool) {
	title = ct.Title
	body := strings.TrimSpace(ct.Body)
	if len(body) > previewLen {
		preview = body[:previewLen]
	} else {
		preview = body
	}
	isNSFW = strings.Contains(strings.ToLower(ct.JSONMetadata), "\"nsfw\":true") ||
		strings.Contains(strings.ToLower(ct.Category), "nsfw")
	return title, preview, imgURL, isNSFW
}
