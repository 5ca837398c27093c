// Package blockproc implements the Block Processor: single-block
// transactional projection that decodes chain operations, registers
// accounts and posts, and dispatches custom_json ops, grounded on
// indexer.go's processBlock/processTransaction pair (insert-block,
// then walk transactions) generalized to this domain's operation set
// (spec.md §4.F).
package blockproc

import (
	"context"
	"fmt"

	"hivebridge/internal/accumulator"
	"hivebridge/internal/customop"
	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

// Processor wires the accumulators and dispatcher needed to apply one
// decoded block within a caller-managed transaction.
type Processor struct {
	accounts   *accumulator.Accounts
	posts      *accumulator.Posts
	dispatcher *customop.Dispatcher
}

// New constructs a Processor.
func New(accounts *accumulator.Accounts, posts *accumulator.Posts, dispatcher *customop.Dispatcher) *Processor {
	return &Processor{accounts: accounts, posts: posts, dispatcher: dispatcher}
}

// Result carries the dirty post urls produced by one block, consumed by
// the Cached-Post Engine in live mode; isInitialSync callers may ignore
// it (spec.md §4.F).
type Result struct {
	DirtyURLs []string
}

// accountCreateOpTypes collect account names to register, matching
// spec.md §4.F step 2's first bullet.
var accountCreateOpTypes = map[string]bool{
	"pow": true, "pow2": true,
	"account_create": true, "account_create_with_delegation": true,
}

// Apply decodes and projects a single block within q (a transaction in
// both live and initial-sync mode; spec.md §5 brackets each block, or
// each batch of blocks, in one logical transaction), performing steps
// 1-5 of spec.md §4.F in order.
func (p *Processor) Apply(ctx context.Context, q store.Querier, blk upstream.RawBlock, isInitialSync bool) (Result, error) {
	num, err := blk.BlockNum()
	if err != nil {
		return Result{}, fmt.Errorf("blockproc: block num: %w", err)
	}
	ts, err := blk.ParsedTimestamp()
	if err != nil {
		return Result{}, fmt.Errorf("blockproc: block %d timestamp: %w", num, err)
	}

	var accountNames []string
	var commentOps []accumulator.CommentOp
	var deleteOps [][2]string
	var customOps []customop.RawCustomJSON
	var dirtyURLs []string
	opCount := 0

	for _, tx := range blk.Transactions {
		for _, op := range tx.Operations {
			opType, _ := op[0].(string)
			payload, _ := op[1].(map[string]any)
			opCount++

			switch {
			case accountCreateOpTypes[opType]:
				if name := strField(payload, "new_account_name"); name != "" {
					accountNames = append(accountNames, name)
				} else if name := strField(payload, "name"); name != "" {
					// ops without new_account_name (pow/pow2) fall back to a
					// top-level "name" field; no other payload field is read.
					accountNames = append(accountNames, name)
				}

			case opType == "comment":
				author := strField(payload, "author")
				permlink := strField(payload, "permlink")
				if author == "" || permlink == "" {
					continue
				}
				commentOps = append(commentOps, accumulator.CommentOp{
					Author:         author,
					Permlink:       permlink,
					ParentAuthor:   strField(payload, "parent_author"),
					ParentPermlink: strField(payload, "parent_permlink"),
				})
				if !isInitialSync {
					p.accounts.Dirty(author)
					dirtyURLs = append(dirtyURLs, author+"/"+permlink)
				}

			case opType == "delete_comment":
				author := strField(payload, "author")
				permlink := strField(payload, "permlink")
				if author != "" && permlink != "" {
					deleteOps = append(deleteOps, [2]string{author, permlink})
				}

			case opType == "custom_json":
				customOps = append(customOps, decodeCustomJSON(payload))

			case opType == "vote":
				author := strField(payload, "author")
				permlink := strField(payload, "permlink")
				voter := strField(payload, "voter")
				if author == "" || permlink == "" {
					continue
				}
				if !isInitialSync {
					if voter != "" {
						p.accounts.Dirty(voter)
					}
					dirtyURLs = append(dirtyURLs, author+"/"+permlink)
				}

			default:
				// ignored op type
			}
		}
	}

	if err := store.InsertBlock(ctx, q, num, blk.BlockID, blk.Previous, len(blk.Transactions), opCount, ts); err != nil {
		return Result{}, err
	}

	if err := p.accounts.Register(ctx, q, accountNames, num); err != nil {
		return Result{}, fmt.Errorf("blockproc: register accounts: %w", err)
	}

	if _, err := p.posts.Register(ctx, q, commentOps, num); err != nil {
		return Result{}, fmt.Errorf("blockproc: register posts: %w", err)
	}
	if err := p.posts.Delete(ctx, q, deleteOps); err != nil {
		return Result{}, fmt.Errorf("blockproc: delete posts: %w", err)
	}

	for _, op := range customOps {
		p.dispatcher.Dispatch(ctx, q, op, num)
	}

	return Result{DirtyURLs: dirtyURLs}, nil
}

func strField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	v, _ := payload[key].(string)
	return v
}

func decodeCustomJSON(payload map[string]any) customop.RawCustomJSON {
	out := customop.RawCustomJSON{
		ID:   strField(payload, "id"),
		JSON: strField(payload, "json"),
	}
	out.RequiredAuths = strSliceField(payload, "required_auths")
	out.RequiredPostingAuths = strSliceField(payload, "required_posting_auths")
	return out
}

func strSliceField(payload map[string]any, key string) []string {
	raw, _ := payload[key].([]any)
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
