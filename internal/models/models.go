// Package models holds the domain types projected out of chain operations.
// They mirror the logical entities of the relational store, not its DDL.
package models

import "time"

// Block is one unit of chain advancement, created by the block processor
// and never mutated once stored.
type Block struct {
	Num       uint64    `json:"num"`
	Hash      string    `json:"hash"`
	PrevHash  string    `json:"prev_hash"`
	TxCount   int       `json:"tx_count"`
	OpCount   int       `json:"op_count"`
	Timestamp time.Time `json:"timestamp"`
}

// Account is created on first observation of a name. Metadata is refreshed
// lazily by the Accounts accumulator.
type Account struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Metadata        string    `json:"metadata"`
	FollowerCount   int64     `json:"follower_count"`
	FollowingCount  int64     `json:"following_count"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	Rank            int64     `json:"rank"`
	CreatedAt       time.Time `json:"created_at"`
}

// Post is a comment or root post. (author, permlink) is unique among
// non-deleted posts.
type Post struct {
	ID         int64     `json:"id"`
	Author     string    `json:"author"`
	Permlink   string    `json:"permlink"`
	ParentID   *int64    `json:"parent_id,omitempty"`
	Depth      int       `json:"depth"`
	Category   string    `json:"category"`
	Community  string    `json:"community,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	IsDeleted  bool      `json:"is_deleted"`
	IsMuted    bool      `json:"is_muted"`
	IsPinned   bool      `json:"is_pinned"`
}

// CachedPost is a denormalized snapshot of a post's presentation state.
// Authoritative source is the upstream node; sc_trend/sc_hot are derived
// locally.
type CachedPost struct {
	PostID     int64     `json:"post_id"`
	Title      string    `json:"title"`
	Preview    string    `json:"preview"`
	ImgURL     string    `json:"img_url"`
	Payout     float64   `json:"payout"`
	Promoted   float64   `json:"promoted"`
	PayoutAt   time.Time `json:"payout_at"`
	IsNSFW     bool      `json:"is_nsfw"`
	IsPaidout  bool      `json:"is_paidout"`
	RShares    int64     `json:"rshares"`
	Votes      string    `json:"votes"` // delimited "voter,rshares,percent,..." entries, newline separated
	JSONMeta   string    `json:"json_meta"`
	SCTrend    float64   `json:"sc_trend"`
	SCHot      float64   `json:"sc_hot"`
}

// Follow states.
const (
	FollowCleared = 0
	FollowActive  = 1
	FollowIgnore  = 2
)

// FollowEdge is a directed follow/ignore relationship.
type FollowEdge struct {
	FollowerID  int64     `json:"follower_id"`
	FollowingID int64     `json:"following_id"`
	State       int       `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reblog records an account resharing a post.
type Reblog struct {
	AccountID int64     `json:"account_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedCacheEntry drives blog/feed queries: one row per (author, own post)
// and per (account, reblogged post).
type FeedCacheEntry struct {
	AccountID int64     `json:"account_id"`
	PostID    int64     `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Community role levels. Absence of a Role row means ROLE_GUEST.
const (
	RoleMuted  = -2
	RoleGuest  = 0
	RoleMember = 2
	RoleMod    = 4
	RoleAdmin  = 6
	RoleOwner  = 8
)

// Community types, derived from name[5] ('1'|'2'|'3').
const (
	CommunityTypeTopic   = 1
	CommunityTypeJournal = 2
	CommunityTypeCouncil = 3
)

// Community is co-identified with the Account of the same name: its ID
// always equals that account's ID.
type Community struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	TypeID         int       `json:"type_id"`
	Settings       string    `json:"settings"` // JSON object
	Subscribers    int64     `json:"subscribers"`
	PendingPayout  float64   `json:"pending_payout"`
	CreatedAt      time.Time `json:"created_at"`
}

// Role is an account's permission level within a community.
type Role struct {
	CommunityID int64  `json:"community_id"`
	AccountID   int64  `json:"account_id"`
	RoleID      int    `json:"role_id"`
	Title       string `json:"title,omitempty"`
}

// Flag is an append-only audit record of a flagPost action.
type Flag struct {
	ID        int64     `json:"id"`
	Account   string    `json:"account"`
	Community string    `json:"community"`
	Author    string    `json:"author"`
	Permlink  string    `json:"permlink"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ModLog is an append-only audit record of a moderation action applied by
// the Community Op Engine.
type ModLog struct {
	ID        int64     `json:"id"`
	Account   string    `json:"account"`
	Community string    `json:"community"`
	Action    string    `json:"action"`
	Details   string    `json:"details"` // JSON-encoded op payload
	CreatedAt time.Time `json:"created_at"`
}

// ChainState is the singleton row tracking the last-seen upstream dynamic
// global properties and derived price units.
type ChainState struct {
	BlockNum      uint64 `json:"block_num"`
	SteemPerMvest string `json:"steem_per_mvest"`
	USDPerSteem   string `json:"usd_per_steem"`
	SBDPerSteem   string `json:"sbd_per_steem"`
	DGPOJSON      string `json:"dgpo_json"`
}

// IndexingError is an append-only diagnostic row for dropped/skipped
// conditions that must never abort block processing.
type IndexingError struct {
	ID          int64     `json:"id"`
	ServiceName string    `json:"service_name"`
	BlockNum    uint64    `json:"block_num"`
	TxID        string    `json:"tx_id,omitempty"`
	Kind        string    `json:"kind"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// The upstream wire shapes (RawBlock/RawTransaction) live in
// internal/upstream, which owns decoding straight off the JSON-RPC
// client; this package only holds the relational entities derived from
// them.
