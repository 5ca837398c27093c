package cachedpost

import "math"

// Decay constants (seconds), grounded on the reference chain's trending
// and hot rankings: both derive from a signed log of net rshares plus a
// time term that decays at a different rate for each ranking, per
// spec.md §6's "decay constant ~480,000 seconds" and its monotonicity
// requirement (increasing rshares increases score; equal rshares, newer
// posts score higher).
const (
	trendDecaySeconds = 480000.0
	hotDecaySeconds    = 10000.0
)

// rshareScore is the signed log10 component shared by both rankings.
func rshareScore(netRshares int64) float64 {
	if netRshares == 0 {
		return 0
	}
	sign := 1.0
	v := netRshares
	if v < 0 {
		sign = -1
		v = -v
	}
	return sign * math.Log10(math.Max(float64(v), 1))
}

// ScTrend computes the trending score: mild decay, favoring overall
// rshares accumulation over post age.
func ScTrend(netRshares int64, createdAtUnix int64) float64 {
	return rshareScore(netRshares) + float64(createdAtUnix)/trendDecaySeconds
}

// ScHot computes the hot score: steep decay, favoring recency over raw
// rshares.
func ScHot(netRshares int64, createdAtUnix int64) float64 {
	return rshareScore(netRshares) + float64(createdAtUnix)/hotDecaySeconds
}
