package accumulator

import (
	"context"
	"testing"

	"hivebridge/internal/community"
	"hivebridge/internal/store/storetest"
)

// TestAccountsRegisterAutoRegistersCommunity drives Accounts.Register
// against a real community.Registrar and a fake store: registering a
// hive-NNNNNN-shaped name must co-create a Community row at the same id
// and install the owner Role, matching global invariant 4.
func TestAccountsRegisterAutoRegistersCommunity(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	registrar := community.NewRegistrar()
	accounts := NewAccounts(nil, registrar)

	if err := accounts.Register(ctx, fake, []string{"hive-123456"}, 200); err != nil {
		t.Fatalf("register: %v", err)
	}

	communityID, ok := accounts.ID("hive-123456")
	if !ok {
		t.Fatalf("expected hive-123456 to be registered as an account")
	}
	if !fake.HasCommunity(communityID) {
		t.Fatalf("expected a community row for id %d", communityID)
	}
	if got := fake.Role(communityID, communityID); got != community.RoleOwner {
		t.Fatalf("owner role = %d, want %d", got, community.RoleOwner)
	}
}
