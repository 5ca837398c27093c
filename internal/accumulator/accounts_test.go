package accumulator

import "testing"

func TestIsCommunityName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"hive-123456", true},
		{"hive-100000", true},
		{"hive-40000", false},     // leading digit not in {1,2,3}
		{"hive-4000000", false},   // leading digit not in {1,2,3}
		{"hive-400000000", false}, // too many digits
		{"hive-999", false},       // too few digits
		{"hive-523456", false},    // leading digit not in {1,2,3}
		{"alice", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsCommunityName(tc.name); got != tc.want {
			t.Errorf("IsCommunityName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCommunityTypeFromName(t *testing.T) {
	cases := []struct {
		name string
		want int
	}{
		{"hive-123456", 1},
		{"hive-223456", 2},
		{"hive-323456", 3},
		{"alice", 0},
	}
	for _, tc := range cases {
		if got := CommunityTypeFromName(tc.name); got != tc.want {
			t.Errorf("CommunityTypeFromName(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestAccountsIDBeforeLoad(t *testing.T) {
	a := NewAccounts(nil, nil)
	if _, ok := a.ID("alice"); ok {
		t.Errorf("ID(alice) on empty accumulator should be not-found")
	}
}
