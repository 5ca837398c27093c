package community

import (
	"context"

	"hivebridge/internal/store"
)

// Registrar satisfies internal/accumulator's CommunityAutoRegistrar and
// PostValidator interfaces, keeping the dependency one-way: accumulator
// depends on these two methods, never on the rest of this package
// (spec.md §9).
type Registrar struct{}

// NewRegistrar constructs a Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{}
}

// AutoRegister creates a Community row the first time an account name
// matching the community pattern is observed, grounded on
// Accounts.register's community auto-creation branch.
func (r *Registrar) AutoRegister(ctx context.Context, q store.Querier, communityID int64, name string, blockNum uint64) error {
	typeID := communityTypeFromName(name)
	return store.CreateCommunity(ctx, q, communityID, name, typeID, blockNum)
}

// IsPostValid resolves the author's role within community and applies
// the post-validity rule, satisfying accumulator.PostValidator.
func (r *Registrar) IsPostValid(ctx context.Context, q store.Querier, community, author string, isRootPost bool) (bool, error) {
	communityID, err := store.CommunityIDByName(ctx, q, community)
	if err != nil {
		return false, nil // unregistered community: not a valid posting target
	}
	typeID, err := store.CommunityTypeByName(ctx, q, community)
	if err != nil {
		return false, nil
	}
	authorID, err := store.ResolveAccountID(ctx, q, author)
	if err != nil {
		return false, nil
	}
	role, err := store.GetUserRole(ctx, q, communityID, authorID)
	if err != nil {
		return false, err
	}
	return IsPostValid(typeID, role, isRootPost), nil
}

// communityTypeFromName derives type_id from name[5] (1=topic,
// 2=journal, 3=council), duplicated from accumulator.CommunityTypeFromName
// to avoid an import cycle (accumulator's in-package tests import this
// package, so this package cannot import accumulator).
func communityTypeFromName(name string) int {
	if len(name) < 6 {
		return 0
	}
	return int(name[5] - '0')
}
