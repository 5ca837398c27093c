package blockproc

import "testing"

func TestStrField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload map[string]any
		key     string
		want    string
	}{
		{name: "nil payload", payload: nil, key: "author", want: ""},
		{name: "missing key", payload: map[string]any{"permlink": "x"}, key: "author", want: ""},
		{name: "wrong type", payload: map[string]any{"author": 5}, key: "author", want: ""},
		{name: "present", payload: map[string]any{"author": "alice"}, key: "author", want: "alice"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := strField(tc.payload, tc.key)
			if got != tc.want {
				t.Fatalf("strField(%v, %q)=%q want %q", tc.payload, tc.key, got, tc.want)
			}
		})
	}
}

func TestStrSliceField(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"required_posting_auths": []any{"alice", "bob"},
		"mixed":                  []any{"alice", 5, "bob"},
		"empty":                  []any{},
	}

	got := strSliceField(payload, "required_posting_auths")
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("strSliceField(required_posting_auths)=%v", got)
	}

	if got := strSliceField(payload, "mixed"); len(got) != 2 {
		t.Fatalf("strSliceField(mixed) should drop non-string entries, got %v", got)
	}

	if got := strSliceField(payload, "empty"); got != nil {
		t.Fatalf("strSliceField(empty)=%v want nil", got)
	}

	if got := strSliceField(payload, "missing"); got != nil {
		t.Fatalf("strSliceField(missing)=%v want nil", got)
	}
}

func TestDecodeCustomJSON(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"id":                      "follow",
		"json":                    `[["follow",{"follower":"alice","following":"bob","what":["blog"]}]]`,
		"required_auths":          []any{},
		"required_posting_auths":  []any{"alice"},
	}

	op := decodeCustomJSON(payload)
	if op.ID != "follow" {
		t.Fatalf("ID=%q want follow", op.ID)
	}
	if len(op.RequiredPostingAuths) != 1 || op.RequiredPostingAuths[0] != "alice" {
		t.Fatalf("RequiredPostingAuths=%v", op.RequiredPostingAuths)
	}
	if len(op.RequiredAuths) != 0 {
		t.Fatalf("RequiredAuths=%v want empty", op.RequiredAuths)
	}
}

func TestAccountCreateOpTypesClassification(t *testing.T) {
	t.Parallel()

	for _, opType := range []string{"pow", "pow2", "account_create", "account_create_with_delegation"} {
		if !accountCreateOpTypes[opType] {
			t.Fatalf("%q should be classified as an account-create op", opType)
		}
	}
	if accountCreateOpTypes["comment"] {
		t.Fatalf("comment should not be classified as an account-create op")
	}
}
