// Package customop implements the Custom-Op Dispatcher: it classifies
// custom_json operations by id and routes them to the Follow
// accumulator or the Community Op Engine, grounded on
// hive/indexer/custom_data.py and CustomOp.process_ops.
package customop

import (
	"context"
	"encoding/json"
	"log"

	"hivebridge/internal/accumulator"
	"hivebridge/internal/community"
	"hivebridge/internal/store"
)

// CommunityProcessor is the narrow capability the dispatcher needs from
// the Community Op Engine.
type CommunityProcessor interface {
	Process(ctx context.Context, q store.Querier, actor, action string, params map[string]any, blockNum uint64) (bool, error)
}

// RawCustomJSON is one custom_json operation as decoded off the wire.
type RawCustomJSON struct {
	ID              string
	JSON            string
	RequiredAuths   []string
	RequiredPostingAuths []string
}

// actor returns the posting account responsible for the op (the first
// required_posting_auth, falling back to required_auth), matching the
// original's preference for posting-authority custom_json ops.
func (r RawCustomJSON) actor() (string, bool) {
	if len(r.RequiredPostingAuths) > 0 {
		return r.RequiredPostingAuths[0], true
	}
	if len(r.RequiredAuths) > 0 {
		return r.RequiredAuths[0], true
	}
	return "", false
}

// Dispatcher routes custom_json ops to the Follow accumulator and the
// Community Op Engine, dropping unknown ids and malformed payloads with
// a log line, never aborting the block (spec.md §4.C).
type Dispatcher struct {
	follow    *accumulator.Follow
	community CommunityProcessor
}

// New constructs a Dispatcher.
func New(follow *accumulator.Follow, communityEngine CommunityProcessor) *Dispatcher {
	return &Dispatcher{follow: follow, community: communityEngine}
}

// NewWithEngine is a convenience constructor wiring the concrete
// *community.Engine in, used by the orchestrator's main wiring.
func NewWithEngine(follow *accumulator.Follow, engine *community.Engine) *Dispatcher {
	return New(follow, engine)
}

// Dispatch routes a single custom_json op, matching CustomOp.process_op.
func (d *Dispatcher) Dispatch(ctx context.Context, q store.Querier, op RawCustomJSON, blockNum uint64) {
	switch op.ID {
	case "follow":
		d.dispatchFollow(ctx, q, op, blockNum)
	case "reblog":
		d.dispatchReblog(ctx, q, op, blockNum)
	case "community":
		d.dispatchCommunity(ctx, q, op, blockNum)
	default:
		// unknown id: silently dropped per spec.md §4.C
	}
}

func (d *Dispatcher) dispatchFollow(ctx context.Context, q store.Querier, op RawCustomJSON, blockNum uint64) {
	var payload [2]json.RawMessage
	if err := json.Unmarshal([]byte(op.JSON), &payload); err != nil {
		log.Printf("customop: drop malformed follow op: %v", err)
		return
	}
	var body struct {
		Follower  string   `json:"follower"`
		Following string   `json:"following"`
		What      []string `json:"what"`
	}
	if err := json.Unmarshal(payload[1], &body); err != nil {
		log.Printf("customop: drop malformed follow body: %v", err)
		return
	}
	if body.Follower == "" || body.Following == "" {
		return
	}
	if err := d.follow.ProcessFollow(ctx, q, accumulator.FollowOp{
		Follower:  body.Follower,
		Following: body.Following,
		What:      body.What,
	}, blockNum); err != nil {
		log.Printf("customop: follow op failed: %v", err)
	}
}

func (d *Dispatcher) dispatchReblog(ctx context.Context, q store.Querier, op RawCustomJSON, blockNum uint64) {
	var payload [2]json.RawMessage
	if err := json.Unmarshal([]byte(op.JSON), &payload); err != nil {
		log.Printf("customop: drop malformed reblog op: %v", err)
		return
	}
	var body struct {
		Account  string `json:"account"`
		Author   string `json:"author"`
		Permlink string `json:"permlink"`
		Delete   string `json:"delete"`
	}
	if err := json.Unmarshal(payload[1], &body); err != nil {
		log.Printf("customop: drop malformed reblog body: %v", err)
		return
	}
	if body.Account == "" || body.Author == "" || body.Permlink == "" {
		return
	}
	if err := d.follow.ProcessReblog(ctx, q, accumulator.ReblogOp{
		Account:  body.Account,
		Author:   body.Author,
		Permlink: body.Permlink,
		Delete:   body.Delete == "delete",
	}, blockNum); err != nil {
		log.Printf("customop: reblog op failed: %v", err)
	}
}

func (d *Dispatcher) dispatchCommunity(ctx context.Context, q store.Querier, op RawCustomJSON, blockNum uint64) {
	actor, ok := op.actor()
	if !ok {
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(op.JSON), &items); err != nil {
		log.Printf("customop: drop malformed community payload: %v", err)
		return
	}
	for _, item := range items {
		var pair [2]json.RawMessage
		if err := json.Unmarshal(item, &pair); err != nil {
			log.Printf("customop: drop malformed community op item: %v", err)
			continue
		}
		var action string
		if err := json.Unmarshal(pair[0], &action); err != nil {
			log.Printf("customop: drop community op with non-string action: %v", err)
			continue
		}
		var params map[string]any
		if err := json.Unmarshal(pair[1], &params); err != nil {
			log.Printf("customop: drop community op with non-object params: %v", err)
			continue
		}
		applied, err := d.community.Process(ctx, q, actor, action, params, blockNum)
		if err != nil {
			log.Printf("customop: community op %q failed: %v", action, err)
		} else if !applied {
			log.Printf("customop: community op %q dropped", action)
		}
	}
}
