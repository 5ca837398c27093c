package customop

import "testing"

func TestRawCustomJSONActor(t *testing.T) {
	cases := []struct {
		name string
		op   RawCustomJSON
		want string
		ok   bool
	}{
		{"posting auth preferred", RawCustomJSON{RequiredPostingAuths: []string{"alice"}, RequiredAuths: []string{"bob"}}, "alice", true},
		{"falls back to active auth", RawCustomJSON{RequiredAuths: []string{"bob"}}, "bob", true},
		{"no auths", RawCustomJSON{}, "", false},
	}
	for _, tc := range cases {
		got, ok := tc.op.actor()
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: actor() = (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}
