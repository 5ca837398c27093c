package community

import (
	"context"
	"encoding/json"
	"fmt"

	"hivebridge/internal/store"
)

// Engine resolves, permission-checks, and applies community custom_json
// ops against the relational store, grounded on
// CommunityOp.process/_validate_permissions/_validate_op.
type Engine struct{}

// NewEngine constructs a community Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Process validates, resolves, permission-checks, and applies one
// community op. It never returns an error for a rejected op — rejections
// are reported via the returned bool so the custom-op dispatcher can log
// and move on without aborting the block, matching the original's
// try/except around CommunityOp.process.
func (e *Engine) Process(ctx context.Context, q store.Querier, actor, action string, params map[string]any, blockNum uint64) (applied bool, err error) {
	op, err := ParseOp(action, params)
	if err != nil {
		return false, nil
	}

	communityID, err := store.CommunityIDByName(ctx, q, op.Community)
	if err != nil {
		return false, nil // unknown community: silently dropped
	}

	actorID, actorRole, err := e.resolveActor(ctx, q, communityID, actor)
	if err != nil {
		return false, nil
	}

	if op.Permlink != "" {
		postID, perr := store.ResolvePostID(ctx, q, op.Account, op.Permlink)
		if perr != nil {
			return false, nil
		}
		postCommunity, perr := store.PostCommunity(ctx, q, postID)
		if perr != nil || postCommunity != op.Community {
			return false, nil
		}
	}

	actorCtx := ActorContext{ActorRole: actorRole}

	switch op.Action {
	case ActionSetRole:
		targetID, terr := store.ResolveAccountID(ctx, q, op.Account)
		if terr != nil {
			return false, nil // target account does not exist: op dropped
		}
		targetRole, terr := store.GetUserRole(ctx, q, communityID, targetID)
		if terr != nil {
			return false, nil
		}
		actorCtx.TargetRole = targetRole
		actorCtx.SameAsTarget = op.Account == actor
	case ActionPinPost, ActionUnpinPost:
		postID, perr := store.ResolvePostID(ctx, q, op.Account, op.Permlink)
		if perr != nil {
			return false, nil
		}
		pinned, perr := store.IsPostPinned(ctx, q, postID)
		if perr != nil {
			return false, nil
		}
		actorCtx.PostPinned = pinned
	case ActionSubscribe, ActionUnsubscribe:
		subscribed, serr := store.IsSubscribed(ctx, q, communityID, actorID)
		if serr != nil {
			return false, nil
		}
		actorCtx.Subscribed = subscribed
	}

	if err := CheckPermission(op, actorCtx); err != nil {
		return false, nil
	}

	if err := e.apply(ctx, q, communityID, actor, op, blockNum); err != nil {
		return false, err
	}

	details, _ := json.Marshal(params)
	if err := store.InsertModLog(ctx, q, actor, op.Community, op.Action, string(details), blockNum); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) resolveActor(ctx context.Context, q store.Querier, communityID int64, actor string) (id int64, role int, err error) {
	id, err = store.ResolveAccountID(ctx, q, actor)
	if err != nil {
		return 0, 0, err
	}
	role, err = store.GetUserRole(ctx, q, communityID, id)
	return id, role, err
}

func (e *Engine) apply(ctx context.Context, q store.Querier, communityID int64, actor string, op ParsedOp, blockNum uint64) error {
	switch op.Action {
	case ActionUpdateSettings:
		settingsJSON, err := json.Marshal(op.Settings)
		if err != nil {
			return err
		}
		return store.UpdateCommunitySettings(ctx, q, communityID, string(settingsJSON))
	case ActionSubscribe:
		actorID, err := store.ResolveAccountID(ctx, q, actor)
		if err != nil {
			return err
		}
		return store.SetSubscribed(ctx, q, communityID, actorID, true)
	case ActionUnsubscribe:
		actorID, err := store.ResolveAccountID(ctx, q, actor)
		if err != nil {
			return err
		}
		return store.SetSubscribed(ctx, q, communityID, actorID, false)
	case ActionSetRole:
		targetID, err := store.ResolveAccountID(ctx, q, op.Account)
		if err != nil {
			return err
		}
		return store.SetUserRole(ctx, q, communityID, targetID, op.RoleID, blockNum)
	case ActionSetUserTitle:
		actorID, err := store.ResolveAccountID(ctx, q, actor)
		if err != nil {
			return err
		}
		return store.SetUserTitle(ctx, q, communityID, actorID, op.Title, blockNum)
	case ActionMutePost:
		postID, err := store.ResolvePostID(ctx, q, op.Account, op.Permlink)
		if err != nil {
			return err
		}
		return store.SetPostMuted(ctx, q, postID, true)
	case ActionUnmutePost:
		postID, err := store.ResolvePostID(ctx, q, op.Account, op.Permlink)
		if err != nil {
			return err
		}
		return store.SetPostMuted(ctx, q, postID, false)
	case ActionPinPost:
		postID, err := store.ResolvePostID(ctx, q, op.Account, op.Permlink)
		if err != nil {
			return err
		}
		return store.SetPostPinned(ctx, q, postID, true)
	case ActionUnpinPost:
		postID, err := store.ResolvePostID(ctx, q, op.Account, op.Permlink)
		if err != nil {
			return err
		}
		return store.SetPostPinned(ctx, q, postID, false)
	case ActionFlagPost:
		return store.InsertFlag(ctx, q, actor, op.Community, op.Account, op.Permlink, op.Notes, blockNum)
	default:
		return fmt.Errorf("community: no apply rule for action %q", op.Action)
	}
}
