package cachedpost

import "testing"

func TestRshareScoreSign(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		rshares  int64
		wantSign int
	}{
		{name: "zero", rshares: 0, wantSign: 0},
		{name: "positive", rshares: 1_000_000, wantSign: 1},
		{name: "negative", rshares: -1_000_000, wantSign: -1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := rshareScore(tc.rshares)
			switch tc.wantSign {
			case 0:
				if got != 0 {
					t.Fatalf("rshareScore(0)=%v want 0", got)
				}
			case 1:
				if got <= 0 {
					t.Fatalf("rshareScore(%d)=%v want positive", tc.rshares, got)
				}
			case -1:
				if got >= 0 {
					t.Fatalf("rshareScore(%d)=%v want negative", tc.rshares, got)
				}
			}
		})
	}
}

func TestScTrendMonotonicInRshares(t *testing.T) {
	t.Parallel()

	low := ScTrend(100, 1_600_000_000)
	high := ScTrend(1_000_000, 1_600_000_000)
	if !(high > low) {
		t.Fatalf("ScTrend should increase with net rshares: low=%v high=%v", low, high)
	}
}

func TestScHotMonotonicInRshares(t *testing.T) {
	t.Parallel()

	low := ScHot(100, 1_600_000_000)
	high := ScHot(1_000_000, 1_600_000_000)
	if !(high > low) {
		t.Fatalf("ScHot should increase with net rshares: low=%v high=%v", low, high)
	}
}

func TestScoresFavorNewerPostsAtEqualRshares(t *testing.T) {
	t.Parallel()

	older := int64(1_600_000_000)
	newer := older + 3600

	if !(ScTrend(500, newer) > ScTrend(500, older)) {
		t.Fatalf("ScTrend should score a newer post higher at equal rshares")
	}
	if !(ScHot(500, newer) > ScHot(500, older)) {
		t.Fatalf("ScHot should score a newer post higher at equal rshares")
	}
}

func TestScHotDecaysFasterThanScTrend(t *testing.T) {
	t.Parallel()

	base := int64(1_600_000_000)
	later := base + 3600 // one hour later, same rshares

	trendDelta := ScTrend(500, later) - ScTrend(500, base)
	hotDelta := ScHot(500, later) - ScHot(500, base)

	if !(hotDelta > trendDelta) {
		t.Fatalf("hot ranking should move more per unit time than trend: trendDelta=%v hotDelta=%v", trendDelta, hotDelta)
	}
}
