package upstream

import (
	"fmt"
	"log"
	"sort"
	"sync"
)

// ClientStats tracks per-method cumulative call time and flags calls
// exceeding their expected budget, grounded directly on
// steem_client.py's ClientStats class. Logged only, never raised
// (spec.md §4.A "Performance monitoring").
type ClientStats struct {
	mu      sync.Mutex
	stats   map[string]*methodStat
	ttlMs   float64
	fastest float64
	hasFast bool
}

type methodStat struct {
	ms    float64
	calls int64
}

// parSteemd holds expected per-call budgets in ms, from PAR_STEEMD.
var parSteemd = map[string]float64{
	"get_dynamic_global_properties": 20,
	"get_block":                     50,
	"get_blocks_batch":              5,
	"get_accounts":                  3,
	"get_content":                   4,
	"get_order_book":                20,
	"get_feed_history":              20,
}

const (
	parHTTPOverheadMs = 75
	parThreshold      = 1.1
)

// NewClientStats constructs an empty stats tracker.
func NewClientStats() *ClientStats {
	return &ClientStats{stats: make(map[string]*methodStat)}
}

// Log records one call's elapsed time and flags it if it exceeds
// PAR_THRESHOLD times its expected budget.
func (c *ClientStats) Log(method string, ms float64, batchSize int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addToStats(method, ms, batchSize)
	c.checkTiming(method, ms, batchSize)
	if !c.hasFast || ms < c.fastest {
		c.fastest = ms
		c.hasFast = true
	}
}

func (c *ClientStats) addToStats(method string, ms float64, batchSize int) {
	s, ok := c.stats[method]
	if !ok {
		s = &methodStat{}
		c.stats[method] = s
	}
	s.ms += ms
	s.calls += int64(batchSize)
	c.ttlMs += ms
}

func (c *ClientStats) checkTiming(method string, ms float64, batchSize int) {
	if method == "get_block" && batchSize > 1 {
		method = "get_blocks_batch"
	}
	par, ok := parSteemd[method]
	if !ok || batchSize == 0 {
		return
	}
	per := (ms - parHTTPOverheadMs) / float64(batchSize)
	over := per / par
	if over >= parThreshold {
		log.Printf("[upstream] %dms %s[%d] -- %.1fx par (%.0f/%.0f)", int(ms), method, batchSize, over, per, par)
	}
}

// Summary renders the same top-40-by-total-time report as
// ClientStats.print, as a string for callers that want to log it.
func (c *ClientStats) Summary() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.stats) == 0 {
		return ""
	}
	type row struct {
		method string
		ms     float64
		calls  int64
	}
	rows := make([]row, 0, len(c.stats))
	for m, s := range c.stats {
		rows = append(rows, row{m, s.ms, s.calls})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ms > rows[j].ms })
	if len(rows) > 40 {
		rows = rows[:40]
	}

	out := fmt.Sprintf("[upstream] total time: %ds\n", int(c.ttlMs/1000))
	for _, r := range rows {
		out += fmt.Sprintf("%5.1f%% %9.0fms %7.2favg %8dx -- %s\n",
			100*r.ms/c.ttlMs, r.ms, r.ms/float64(r.calls), r.calls, r.method)
	}
	return out
}
