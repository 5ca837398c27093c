package community

import "testing"

func TestCheckPermissionSetRole(t *testing.T) {
	// S3: carol (role=guest=0) tries to set bob to mod; must fail.
	op := ParsedOp{Action: ActionSetRole, RoleID: RoleMod}
	err := CheckPermission(op, ActorContext{ActorRole: RoleGuest, TargetRole: RoleGuest})
	if err == nil {
		t.Fatalf("expected guest setRole to fail")
	}

	// alice (owner=8) sets bob (guest=0) to mod(4): succeeds.
	err = CheckPermission(op, ActorContext{ActorRole: RoleOwner, TargetRole: RoleGuest})
	if err != nil {
		t.Fatalf("expected owner setRole to succeed: %v", err)
	}

	// Cannot promote to or above own rank.
	err = CheckPermission(ParsedOp{Action: ActionSetRole, RoleID: RoleMod}, ActorContext{ActorRole: RoleMod, TargetRole: RoleGuest})
	if err == nil {
		t.Fatalf("expected promote-to-own-rank to fail")
	}

	// Cannot modify a higher-role user.
	err = CheckPermission(ParsedOp{Action: ActionSetRole, RoleID: RoleGuest}, ActorContext{ActorRole: RoleMod, TargetRole: RoleAdmin})
	if err == nil {
		t.Fatalf("expected modify-higher-role to fail")
	}
}

func TestCheckPermissionPinPost(t *testing.T) {
	if err := CheckPermission(ParsedOp{Action: ActionPinPost}, ActorContext{ActorRole: RoleMod, PostPinned: true}); err == nil {
		t.Fatalf("expected already-pinned to fail")
	}
	if err := CheckPermission(ParsedOp{Action: ActionPinPost}, ActorContext{ActorRole: RoleGuest, PostPinned: false}); err == nil {
		t.Fatalf("expected insufficient-role pin to fail")
	}
	if err := CheckPermission(ParsedOp{Action: ActionPinPost}, ActorContext{ActorRole: RoleMod, PostPinned: false}); err != nil {
		t.Fatalf("expected valid pin to succeed: %v", err)
	}
}

func TestCheckPermissionSubscribe(t *testing.T) {
	if err := CheckPermission(ParsedOp{Action: ActionSubscribe}, ActorContext{Subscribed: true}); err == nil {
		t.Fatalf("expected double-subscribe to fail")
	}
	if err := CheckPermission(ParsedOp{Action: ActionUnsubscribe}, ActorContext{Subscribed: false}); err == nil {
		t.Fatalf("expected unsubscribe-when-not-subscribed to fail")
	}
}

func TestIsPostValid(t *testing.T) {
	cases := []struct {
		name       string
		typeID     int
		role       int
		isRootPost bool
		want       bool
	}{
		{"journal root needs member", 2, RoleGuest, true, false},
		{"journal root member ok", 2, RoleMember, true, true},
		{"journal comment guest ok", 2, RoleGuest, false, true},
		{"council comment needs member", 3, RoleGuest, false, false},
		{"council comment member ok", 3, RoleMember, false, true},
		{"topic muted rejected", 1, RoleMuted, true, false},
		{"topic guest ok", 1, RoleGuest, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPostValid(tc.typeID, tc.role, tc.isRootPost); got != tc.want {
				t.Errorf("IsPostValid(%d,%d,%v) = %v, want %v", tc.typeID, tc.role, tc.isRootPost, got, tc.want)
			}
		})
	}
}
