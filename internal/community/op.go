// Package community implements the Community Op Engine: validation and
// application of community governance custom_json ops, grounded
// directly on hive/indexer/community.py's CommunityOp/Community
// classes.
package community

import (
	"fmt"
	"strings"
)

// Role levels, mirroring models.Role* constants (kept local to avoid an
// import cycle with internal/models' broader entity surface).
const (
	RoleOwner  = 8
	RoleAdmin  = 6
	RoleMod    = 4
	RoleMember = 2
	RoleGuest  = 0
	RoleMuted  = -2
)

// roleByName is the exact-match role vocabulary accepted in setRole ops.
var roleByName = map[string]int{
	"owner": RoleOwner, "admin": RoleAdmin, "mod": RoleMod,
	"member": RoleMember, "guest": RoleGuest, "muted": RoleMuted,
}

// Action names, matching CommunityOp.COMMANDS / SCHEMA keys.
const (
	ActionUpdateSettings = "updateSettings"
	ActionSubscribe      = "subscribe"
	ActionUnsubscribe    = "unsubscribe"
	ActionSetRole        = "setRole"
	ActionSetUserTitle   = "setUserTitle"
	ActionMutePost       = "mutePost"
	ActionUnmutePost     = "unmutePost"
	ActionPinPost        = "pinPost"
	ActionUnpinPost      = "unpinPost"
	ActionFlagPost       = "flagPost"
)

// schema is the exact required-key set per action, matching
// CommunityOp.SCHEMA.
var schema = map[string][]string{
	ActionUpdateSettings: {"community", "settings"},
	ActionSubscribe:      {"community"},
	ActionUnsubscribe:    {"community"},
	ActionSetRole:        {"community", "account", "role"},
	ActionSetUserTitle:   {"community", "title"},
	ActionMutePost:       {"community", "account", "permlink", "notes"},
	ActionUnmutePost:     {"community", "account", "permlink", "notes"},
	ActionPinPost:        {"community", "account", "permlink"},
	ActionUnpinPost:      {"community", "account", "permlink"},
	ActionFlagPost:       {"community", "account", "permlink", "notes"},
}

// allowedSettingsKeys is the exact set of keys accepted inside a
// `settings` object.
var allowedSettingsKeys = map[string]bool{
	"title": true, "about": true, "description": true, "flag_text": true,
	"language": true, "nsfw": true, "bg_color": true, "bg_color2": true,
	"primary_tag": true,
}

// ParsedOp is a community op that has passed structural and field-format
// validation but not yet the DB-dependent resolution/permission checks
// (community/account/permlink existence, role gating).
type ParsedOp struct {
	Action    string
	Community string
	Account   string
	Permlink  string
	Role      string
	RoleID    int
	Notes     string
	Title     string
	Settings  map[string]string
}

// ParseOp validates the op envelope [action, params] and its exact
// required-key schema, then validates field formats that don't require
// DB access, matching CommunityOp._validate_raw_op/_read_schema and its
// per-field readers.
func ParseOp(action string, params map[string]any) (ParsedOp, error) {
	requiredKeys, known := schema[action]
	if !known {
		return ParsedOp{}, fmt.Errorf("community: invalid action %q", action)
	}

	required := make(map[string]bool, len(requiredKeys))
	for _, k := range requiredKeys {
		required[k] = true
	}
	for k := range params {
		if !required[k] {
			return ParsedOp{}, fmt.Errorf("community: extraneous key %q for action %q", k, action)
		}
	}
	for _, k := range requiredKeys {
		if _, ok := params[k]; !ok {
			return ParsedOp{}, fmt.Errorf("community: missing key %q for action %q", k, action)
		}
	}

	op := ParsedOp{Action: action}
	var err error

	if required["community"] {
		if op.Community, err = readKeyStr(params, "community"); err != nil {
			return ParsedOp{}, err
		}
	}
	if required["account"] {
		if op.Account, err = readKeyStr(params, "account"); err != nil {
			return ParsedOp{}, err
		}
	}
	if required["permlink"] {
		if op.Permlink, err = readKeyStr(params, "permlink"); err != nil {
			return ParsedOp{}, err
		}
	}
	if required["role"] {
		role, err := readKeyStr(params, "role")
		if err != nil {
			return ParsedOp{}, err
		}
		roleID, ok := roleByName[role]
		if !ok {
			return ParsedOp{}, fmt.Errorf("community: invalid role %q", role)
		}
		op.Role, op.RoleID = role, roleID
	}
	if required["notes"] {
		notes, err := readKeyStr(params, "notes")
		if err != nil {
			return ParsedOp{}, err
		}
		if len(notes) > 120 {
			return ParsedOp{}, fmt.Errorf("community: notes must be 120 characters or fewer")
		}
		notes = strings.TrimSpace(notes)
		if notes == "" {
			return ParsedOp{}, fmt.Errorf("community: notes cannot be blank")
		}
		op.Notes = notes
	}
	if required["title"] {
		title, _ := params["title"].(string)
		title = strings.TrimSpace(title)
		if len(title) > 32 {
			return ParsedOp{}, fmt.Errorf("community: user title must be 32 characters or fewer")
		}
		op.Title = title
	}
	if required["settings"] {
		settings, err := readSettings(params["settings"])
		if err != nil {
			return ParsedOp{}, err
		}
		op.Settings = settings
	}

	return op, nil
}

func readKeyStr(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("community: key %q missing", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("community: key %q was not a string", key)
	}
	if s == "" {
		return "", fmt.Errorf("community: key %q was blank", key)
	}
	return s, nil
}

func readSettings(v any) (map[string]string, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("community: settings must be an object")
	}
	out := make(map[string]string, len(obj))
	for k, raw := range obj {
		if !allowedSettingsKeys[k] {
			return nil, fmt.Errorf("community: settings key %q not allowed", k)
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("community: settings key %q must be a string", k)
		}
		out[k] = s
	}
	return out, nil
}
