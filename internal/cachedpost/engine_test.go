package cachedpost

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hivebridge/internal/store/storetest"
	"hivebridge/internal/upstream"
)

// TestEnginePayoutSweepFlush exercises S6: a CachedPost past its
// payout_at is picked up by DirtyPaidouts and, once flushed against
// authoritative upstream content, ends up is_paidout with the summed
// payout value.
func TestEnginePayoutSweepFlush(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	postID := fake.SeedPost("alice", "my-post", "hive-123456")
	payoutAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fake.SeedCachedPost(postID, payoutAt, false)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode rpc request: %v", err)
		}
		result := map[string]any{
			"author":               "alice",
			"permlink":             "my-post",
			"title":                "hello",
			"body":                 "world",
			"json_metadata":        "{}",
			"category":             "test",
			"created":              "2023-12-01T00:00:00",
			"cashout_time":         "2024-01-01T00:00:00",
			"net_rshares":          float64(1000),
			"pending_payout_value": "0.000 HBD",
			"total_payout_value":   "1.500 HBD",
			"curator_payout_value": "0.500 HBD",
			"is_paidout":           true,
			"active_votes":         []any{},
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	defer srv.Close()

	uc, err := upstream.New(srv.URL, 10, 4)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer uc.Close()

	engine := New(uc, nil, "hivebridge-test")

	n, err := engine.DirtyPaidouts(ctx, fake, payoutAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("dirty paidouts: %v", err)
	}
	if n != 1 {
		t.Fatalf("dirty paidouts = %d, want 1", n)
	}

	counts, err := engine.Flush(ctx, fake)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if counts.Payout != 1 {
		t.Fatalf("payout count = %d, want 1", counts.Payout)
	}

	row, ok := fake.GetCachedPost(postID)
	if !ok {
		t.Fatalf("expected a cached post row for id %d", postID)
	}
	if !row.IsPaidout {
		t.Fatalf("expected cached post marked is_paidout")
	}
	if row.Payout != 2.0 {
		t.Fatalf("payout = %v, want 2.0", row.Payout)
	}
}
