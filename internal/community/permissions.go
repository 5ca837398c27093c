package community

import "fmt"

// ActorContext is the resolved, DB-dependent state needed to evaluate
// the permission matrix for one op, matching the inputs
// CommunityOp._validate_permissions reads via Community.get_user_role
// and Community.is_pinned/is_subscribed.
type ActorContext struct {
	ActorRole    int
	TargetRole   int // only meaningful for setRole when account != actor
	SameAsTarget bool
	PostPinned   bool
	Subscribed   bool
}

// CheckPermission applies the exact-match permission matrix of
// spec.md §4.D, grounded on CommunityOp._validate_permissions.
func CheckPermission(op ParsedOp, ctx ActorContext) error {
	switch op.Action {
	case ActionSetRole:
		if ctx.ActorRole < RoleMod {
			return fmt.Errorf("community: only mods and up can alter roles")
		}
		if ctx.ActorRole <= op.RoleID {
			return fmt.Errorf("community: cannot promote to or above own rank")
		}
		if !ctx.SameAsTarget {
			if ctx.TargetRole >= ctx.ActorRole {
				return fmt.Errorf("community: cannot modify higher-role user")
			}
			if ctx.TargetRole == op.RoleID {
				return fmt.Errorf("community: role would not change")
			}
		}
	case ActionUpdateSettings:
		if ctx.ActorRole < RoleAdmin {
			return fmt.Errorf("community: only admins can update settings")
		}
	case ActionSetUserTitle:
		if ctx.ActorRole < RoleMod {
			return fmt.Errorf("community: only mods can set user titles")
		}
	case ActionMutePost, ActionUnmutePost:
		if ctx.ActorRole < RoleMod {
			return fmt.Errorf("community: only mods can mute/unmute posts")
		}
	case ActionPinPost:
		if ctx.PostPinned {
			return fmt.Errorf("community: post is already pinned")
		}
		if ctx.ActorRole < RoleMod {
			return fmt.Errorf("community: only mods can pin posts")
		}
	case ActionUnpinPost:
		if !ctx.PostPinned {
			return fmt.Errorf("community: post is already not pinned")
		}
		if ctx.ActorRole < RoleMod {
			return fmt.Errorf("community: only mods can unpin posts")
		}
	case ActionFlagPost:
		if ctx.ActorRole <= RoleMuted {
			return fmt.Errorf("community: muted users cannot flag posts")
		}
	case ActionSubscribe:
		if ctx.Subscribed {
			return fmt.Errorf("community: already subscribed")
		}
	case ActionUnsubscribe:
		if !ctx.Subscribed {
			return fmt.Errorf("community: already unsubscribed")
		}
	default:
		return fmt.Errorf("community: no permission rule for action %q", op.Action)
	}
	return nil
}

// IsPostValid applies the post-validity rule of spec.md §4.D (used by
// Posts.register), matching Community.is_post_valid.
func IsPostValid(typeID, role int, isRootPost bool) bool {
	switch typeID {
	case 2: // journal
		if isRootPost {
			return role >= RoleMember
		}
		return role >= RoleGuest
	case 3: // council
		return role >= RoleMember
	default: // topic, or unrecognized
		return role > RoleMuted
	}
}
