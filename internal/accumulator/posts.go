package accumulator

import (
	"context"
	"strings"

	"hivebridge/internal/store"
)

// PostValidator is the narrow capability Posts needs from the Community
// Op Engine to decide whether an author may post into a community
// category, per spec.md §4.D's is_post_valid rule. Passing this in at
// construction keeps the dependency one-way (spec.md §9).
type PostValidator interface {
	IsPostValid(ctx context.Context, q store.Querier, community, author string, isRootPost bool) (bool, error)
}

// CommentOp is a decoded `comment` operation.
type CommentOp struct {
	Author         string
	Permlink       string
	ParentAuthor   string
	ParentPermlink string
}

// Posts is the Posts accumulator.
type Posts struct {
	accounts  *Accounts
	validator PostValidator
}

// NewPosts constructs a Posts accumulator.
func NewPosts(accounts *Accounts, validator PostValidator) *Posts {
	return &Posts{accounts: accounts, validator: validator}
}

// Register inserts new (author, permlink) rows for root posts and
// comments, ignoring pure edits, resolving parent_id/depth/category and
// community per spec.md §4.B. Returns the "author/permlink" urls of
// newly-registered posts (for dirty-post tracking in live mode).
func (p *Posts) Register(ctx context.Context, q store.Querier, ops []CommentOp, blockNum uint64) ([]string, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	var newPosts []store.NewPost
	var urls []string

	for _, op := range ops {
		isRoot := op.ParentAuthor == ""
		np := store.NewPost{
			Author:   op.Author,
			Permlink: op.Permlink,
			BlockNum: blockNum,
		}

		if isRoot {
			np.Depth = 0
			np.Category = firstTag(op.ParentPermlink) // root ops carry the tag in parent_permlink
			if np.Category == "" {
				np.Category = op.ParentPermlink
			}
		} else {
			parentID, parentDepth, parentCategory, err := p.resolveParent(ctx, q, op.ParentAuthor, op.ParentPermlink)
			if err != nil {
				continue // parent not found: drop silently, matches "ignore pure edits" tolerance
			}
			id := parentID
			np.ParentID = &id
			np.Depth = parentDepth + 1
			np.Category = parentCategory
		}

		if IsCommunityName(np.Category) {
			allowed, err := p.validator.IsPostValid(ctx, q, np.Category, op.Author, isRoot)
			if err != nil {
				return nil, err
			}
			if allowed {
				np.Community = np.Category
			}
		}

		newPosts = append(newPosts, np)
		urls = append(urls, op.Author+"/"+op.Permlink)
	}

	ids, err := store.InsertPosts(ctx, q, newPosts)
	if err != nil {
		return nil, err
	}

	var registeredURLs []string
	for i, id := range ids {
		if id == 0 {
			continue // pure edit, nothing new registered
		}
		registeredURLs = append(registeredURLs, urls[i])
		if p.accounts != nil {
			p.accounts.Dirty(newPosts[i].Author)
		}
		if newPosts[i].ParentID == nil {
			if accID, ok := p.accounts.ID(newPosts[i].Author); ok {
				if err := store.InsertFeedCacheForOwnPost(ctx, q, accID, id); err != nil {
					return nil, err
				}
			}
		}
	}
	return registeredURLs, nil
}

func (p *Posts) resolveParent(ctx context.Context, q store.Querier, author, permlink string) (id int64, depth int, category string, err error) {
	row := q.QueryRow(ctx, `
		SELECT id, depth, category FROM app.posts
		WHERE author = $1 AND permlink = $2 AND NOT is_deleted`, author, permlink)
	err = row.Scan(&id, &depth, &category)
	return id, depth, category, err
}

func firstTag(jsonMetaOrTag string) string {
	// parent_permlink IS the category for root posts on this chain; kept
	// as a named helper for clarity at call sites.
	return strings.ToLower(strings.TrimSpace(jsonMetaOrTag))
}

// Delete marks posts identified by (author, permlink) as deleted,
// matching Posts.delete.
func (p *Posts) Delete(ctx context.Context, q store.Querier, ops [][2]string) error {
	if len(ops) == 0 {
		return nil
	}
	return store.MarkPostsDeleted(ctx, q, ops)
}

// URLsToTuples resolves a set of "author/permlink" urls to PostTuple
// rows, matching Posts.urls_to_tuples.
func (p *Posts) URLsToTuples(ctx context.Context, q store.Querier, urls []string) ([]store.PostTuple, error) {
	pairs := make([][2]string, 0, len(urls))
	for _, u := range urls {
		parts := strings.SplitN(u, "/", 2)
		if len(parts) != 2 {
			continue
		}
		pairs = append(pairs, [2]string{parts[0], parts[1]})
	}
	return store.ResolvePostTuples(ctx, q, pairs)
}
