package community

import (
	"context"
	"testing"

	"hivebridge/internal/store/storetest"
)

// TestEngineProcessSetRoleUnknownAccountDropped regression-tests the
// setRole path against a nonexistent target account: the op must be
// dropped (applied=false, err=nil), never reach store.SetUserRole with
// an unresolved id, and never return an error that would abort the
// block's transaction.
func TestEngineProcessSetRoleUnknownAccountDropped(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	alice := fake.SeedAccount("alice")
	fake.SeedCommunity(alice, "hive-123456", 1)
	fake.SeedRole(alice, alice, RoleOwner)

	e := NewEngine()
	applied, err := e.Process(ctx, fake, "alice", ActionSetRole, map[string]any{
		"community": "hive-123456", "account": "ghost", "role": "mod",
	}, 201)
	if err != nil {
		t.Fatalf("expected a dropped op, not an error: %v", err)
	}
	if applied {
		t.Fatalf("expected setRole naming a nonexistent account to be dropped")
	}
}

// TestEngineProcessSetRoleGatedByActorRole exercises S3: an op from an
// under-privileged actor is dropped; the same op from the owner applies.
func TestEngineProcessSetRoleGatedByActorRole(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	alice := fake.SeedAccount("alice")
	bob := fake.SeedAccount("bob")
	fake.SeedAccount("carol")
	fake.SeedCommunity(alice, "hive-123456", 1)
	fake.SeedRole(alice, alice, RoleOwner)

	e := NewEngine()
	params := map[string]any{"community": "hive-123456", "account": "bob", "role": "mod"}

	applied, err := e.Process(ctx, fake, "carol", ActionSetRole, params, 201)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatalf("expected setRole from a guest actor to be dropped")
	}
	if got := fake.Role(alice, bob); got != RoleGuest {
		t.Fatalf("bob's role = %d, want unchanged %d", got, RoleGuest)
	}

	applied, err = e.Process(ctx, fake, "alice", ActionSetRole, params, 202)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatalf("expected setRole from the owner to succeed")
	}
	if got := fake.Role(alice, bob); got != RoleMod {
		t.Fatalf("bob's role = %d, want %d", got, RoleMod)
	}
	if fake.ModLogCount() != 1 {
		t.Fatalf("mod_log entries = %d, want 1", fake.ModLogCount())
	}
}
