// Package accumulator implements the in-memory dirty-set accumulators
// that translate chain operations into batched relational mutations:
// Accounts, Posts, Follow, and FeedCache, grounded on
// hive/indexer/accounts.py, hive/indexer/posts.py, and
// hive/indexer/follow.py's accumulator pattern (dirty set + flush).
package accumulator

import (
	"context"
	"regexp"

	"hivebridge/internal/store"
	"hivebridge/internal/upstream"
)

// communityNamePattern matches account names that double as communities
// (spec.md §3's Community entity).
var communityNamePattern = regexp.MustCompile(`^hive-[123]\d{4,6}$`)

// IsCommunityName reports whether name matches the community pattern.
func IsCommunityName(name string) bool {
	return communityNamePattern.MatchString(name)
}

// CommunityTypeFromName derives a community's type_id from name[5], per
// spec.md §3 (1=topic, 2=journal, 3=council).
func CommunityTypeFromName(name string) int {
	if !IsCommunityName(name) {
		return 0
	}
	return int(name[5] - '0')
}

// CommunityAutoRegistrar is the narrow capability Accounts needs to
// auto-register a community when a matching name is first observed,
// keeping the dependency one-way per spec.md §9's design note (avoiding
// a Posts<->Community mutual reference).
type CommunityAutoRegistrar interface {
	AutoRegister(ctx context.Context, q store.Querier, communityID int64, name string, blockNum uint64) error
}

// Accounts is the Accounts accumulator: dirty set of names pending a
// metadata refresh, plus the process-local id<->name map (spec.md §9's
// "no process-wide hidden state" — this map is owned by the
// orchestrator-constructed Accounts value, not a singleton).
type Accounts struct {
	ids        map[string]int64
	dirty      map[string]bool
	communities CommunityAutoRegistrar
	upstream   *upstream.Client
}

// NewAccounts constructs an Accounts accumulator. communities may be nil if the
// caller doesn't need auto-registration wired in yet (tests).
func NewAccounts(uc *upstream.Client, communities CommunityAutoRegistrar) *Accounts {
	return &Accounts{
		ids:         make(map[string]int64),
		dirty:       make(map[string]bool),
		communities: communities,
		upstream:    uc,
	}
}

// LoadIDs populates the in-memory id<->name map at startup.
func (a *Accounts) LoadIDs(ctx context.Context, q store.Querier) error {
	ids, err := store.LoadAccountIDs(ctx, q)
	if err != nil {
		return err
	}
	a.ids = ids
	return nil
}

// ID returns the cached id for name, and whether it was found.
func (a *Accounts) ID(name string) (int64, bool) {
	id, ok := a.ids[name]
	return id, ok
}

// Register inserts any unseen names (assigning monotonic ids),
// auto-registering a Community for names matching the pattern, and
// updates the in-memory id map. Matches Accounts.register.
func (a *Accounts) Register(ctx context.Context, q store.Querier, names []string, blockNum uint64) error {
	var unseen []string
	for _, n := range names {
		if _, ok := a.ids[n]; !ok {
			unseen = append(unseen, n)
		}
	}
	if len(unseen) == 0 {
		return nil
	}

	assigned, err := store.RegisterAccounts(ctx, q, unseen, blockNum)
	if err != nil {
		return err
	}
	for name, id := range assigned {
		a.ids[name] = id
	}

	if a.communities != nil {
		for _, name := range unseen {
			if !IsCommunityName(name) {
				continue
			}
			id := a.ids[name]
			if err := a.communities.AutoRegister(ctx, q, id, name, blockNum); err != nil {
				return err
			}
		}
	}
	return nil
}

// Dirty marks name for a metadata refresh on the next flush.
func (a *Accounts) Dirty(name string) {
	a.dirty[name] = true
}

// DirtyOldest marks the n least-recently-refreshed accounts dirty,
// matching Accounts.dirty_oldest.
func (a *Accounts) DirtyOldest(ctx context.Context, q store.Querier, n int) error {
	names, err := store.DirtyOldestAccounts(ctx, q, n)
	if err != nil {
		return err
	}
	for _, name := range names {
		a.dirty[name] = true
	}
	return nil
}

// Flush pulls fresh account records from the upstream client for the
// dirty set (optionally restricted to a `period` time-bucket per
// spec.md §9 Open Question ii: accounts whose id mod period equals
// blockNum mod period) and writes the refreshed metadata in one batch.
func (a *Accounts) Flush(ctx context.Context, q store.Querier, blockNum uint64, period int) (int, error) {
	if len(a.dirty) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(a.dirty))
	for name := range a.dirty {
		if period > 0 {
			id, ok := a.ids[name]
			if !ok || id%int64(period) != int64(blockNum)%int64(period) {
				continue
			}
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return 0, nil
	}

	accounts, err := a.upstream.GetAccounts(ctx, names)
	if err != nil {
		return 0, err
	}

	updates := make([]store.AccountMetadataUpdate, 0, len(accounts))
	for _, acc := range accounts {
		updates = append(updates, store.AccountMetadataUpdate{Name: acc.Name, Metadata: acc.Metadata})
	}
	if err := store.FlushAccountMetadata(ctx, q, updates); err != nil {
		return 0, err
	}

	for _, name := range names {
		delete(a.dirty, name)
	}
	return len(updates), nil
}
