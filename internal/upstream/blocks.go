package upstream

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// RawBlock is the upstream's wire representation of a block.
type RawBlock struct {
	BlockID      string           `json:"block_id"`
	Previous     string           `json:"previous"`
	Timestamp    string           `json:"timestamp"`
	Transactions []RawTransaction `json:"transactions"`
}

// RawTransaction is one transaction within a RawBlock. Operations are
// kept as raw [type, payload] pairs; only a narrow subset is consumed
// downstream (spec.md §1).
type RawTransaction struct {
	TransactionID string  `json:"transaction_id"`
	Operations    [][2]any `json:"operations"`
}

// BlockNum extracts the block number from the first 4 bytes of the hex
// block_id, matching int(block_id[:8], base=16) in the original source.
func (b RawBlock) BlockNum() (uint64, error) {
	if len(b.BlockID) < 8 {
		return 0, fmt.Errorf("upstream: block_id too short: %q", b.BlockID)
	}
	n, ok := new(big.Int).SetString(b.BlockID[:8], 16)
	if !ok {
		return 0, fmt.Errorf("upstream: invalid block_id prefix: %q", b.BlockID[:8])
	}
	return n.Uint64(), nil
}

// ParsedTimestamp parses the block's wall-clock timestamp.
func (b RawBlock) ParsedTimestamp() (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05", b.Timestamp)
}

// GetBlock fetches a single block by number. May legitimately return a
// zero-value RawBlock (ok=false) for not-yet-produced blocks — this is
// NOT retried as an empty-response failure, matching the source's
// get_block exemption.
func (c *Client) GetBlock(ctx context.Context, num uint64) (RawBlock, bool, error) {
	var raw map[string]any
	if err := c.exec(ctx, "get_block", []any{num}, &raw); err != nil {
		return RawBlock{}, false, err
	}
	if raw == nil || raw["block_id"] == nil {
		return RawBlock{}, false, nil
	}
	blk, err := DecodeRawBlock(raw)
	return blk, true, err
}

// DecodeRawBlock decodes the untyped wire shape returned by get_block (or
// read from a checkpoint replay file, which stores blocks in the same
// shape) into a RawBlock. Exported for the Sync Orchestrator's checkpoint
// replay (spec.md §4.G step 2.a).
func DecodeRawBlock(raw map[string]any) (RawBlock, error) {
	var blk RawBlock
	if v, ok := raw["block_id"].(string); ok {
		blk.BlockID = v
	}
	if v, ok := raw["previous"].(string); ok {
		blk.Previous = v
	}
	if v, ok := raw["timestamp"].(string); ok {
		blk.Timestamp = v
	}
	txs, _ := raw["transactions"].([]any)
	for _, t := range txs {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		tx := RawTransaction{}
		if id, ok := tm["transaction_id"].(string); ok {
			tx.TransactionID = id
		}
		ops, _ := tm["operations"].([]any)
		for _, o := range ops {
			pair, ok := o.([]any)
			if !ok || len(pair) != 2 {
				continue
			}
			opType, _ := pair[0].(string)
			payload, _ := pair[1].(map[string]any)
			tx.Operations = append(tx.Operations, [2]any{opType, payload})
		}
		blk.Transactions = append(blk.Transactions, tx)
	}
	return blk, nil
}

// GetBlocksRange fetches blocks [lbound, ubound) (half-open), retrying
// until every requested block number is present and deduplicating by
// decoded block_id prefix, matching get_blocks_range.
func (c *Client) GetBlocksRange(ctx context.Context, lbound, ubound uint64) ([]RawBlock, error) {
	if ubound <= lbound {
		return nil, nil
	}
	required := make(map[uint64]bool, ubound-lbound)
	for n := lbound; n < ubound; n++ {
		required[n] = true
	}
	blocks := make(map[uint64]RawBlock, len(required))

	for len(blocks) < len(required) {
		var missing []uint64
		for n := range required {
			if _, have := blocks[n]; !have {
				missing = append(missing, n)
			}
		}

		fetched, err := c.fetchBlocksParallel(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, blk := range fetched {
			num, err := blk.BlockNum()
			if err != nil {
				continue
			}
			if _, dup := blocks[num]; dup {
				continue
			}
			blocks[num] = blk
		}
		if len(blocks) < len(required) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}
	}

	out := make([]RawBlock, 0, len(required))
	for n := lbound; n < ubound; n++ {
		out = append(out, blocks[n])
	}
	return out, nil
}

// fetchBlocksParallel fans get_block calls across max_workers workers
// via errgroup, the Go-idiomatic analogue of
// __exec_batch/exec_multi_with_futures.
func (c *Client) fetchBlocksParallel(ctx context.Context, nums []uint64) ([]RawBlock, error) {
	if len(nums) == 0 {
		return nil, nil
	}
	start := time.Now()

	results := make([]RawBlock, len(nums))
	ok := make([]bool, len(nums))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, n := range nums {
		i, n := i, n
		g.Go(func() error {
			blk, present, err := c.GetBlock(gctx, n)
			if err != nil {
				return err
			}
			results[i] = blk
			ok[i] = present
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RawBlock, 0, len(nums))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}
	c.stats.Log("get_block", float64(time.Since(start).Microseconds())/1000, len(nums))
	return out, nil
}

// Account is the subset of get_accounts response fields this module
// consumes.
type Account struct {
	Name     string
	Metadata string // raw JSON, posting_json_metadata or json_metadata
}

// GetAccounts fetches full account records for the given names, batched
// in groups of at most max_batch.
func (c *Client) GetAccounts(ctx context.Context, names []string) ([]Account, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var out []Account
	for start := 0; start < len(names); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(names) {
			end = len(names)
		}
		chunk := names[start:end]

		var raw []map[string]any
		if err := c.exec(ctx, "get_accounts", []any{chunk}, &raw); err != nil {
			return nil, err
		}
		if len(raw) != len(chunk) {
			return nil, fmt.Errorf("upstream: requested %d accounts got %d", len(chunk), len(raw))
		}
		for _, r := range raw {
			a := Account{}
			if v, ok := r["name"].(string); ok {
				a.Name = v
			}
			if v, ok := r["posting_json_metadata"].(string); ok && v != "" {
				a.Metadata = v
			} else if v, ok := r["json_metadata"].(string); ok {
				a.Metadata = v
			}
			out = append(out, a)
		}
	}
	return out, nil
}

// ContentKey is an (author, permlink) pair identifying a post to fetch.
type ContentKey struct {
	Author   string
	Permlink string
}

// Content is the subset of get_content response fields this module
// consumes.
type Content struct {
	Author       string
	Permlink     string
	Title        string
	Body         string
	JSONMetadata string
	Category     string
	Created      string
	CashoutTime  string
	NetRshares   int64
	PendingPayoutValue string
	TotalPayoutValue   string
	CuratorPayoutValue string
	IsPaidout    bool
	ActiveVotes  []Vote
}

// Vote is one entry of a post's active_votes.
type Vote struct {
	Voter   string
	Rshares int64
	Percent int64
}

// GetContentBatch fetches authoritative content for a batch of
// (author, permlink) pairs, fanned across workers like get_block.
func (c *Client) GetContentBatch(ctx context.Context, keys []ContentKey) ([]Content, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	start := time.Now()

	out := make([]Content, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)
	for i, k := range keys {
		i, k := i, k
		g.Go(func() error {
			var raw map[string]any
			if err := c.exec(gctx, "get_content", []any{k.Author, k.Permlink}, &raw); err != nil {
				return err
			}
			if _, ok := raw["author"]; !ok {
				return fmt.Errorf("upstream: invalid post for %s/%s", k.Author, k.Permlink)
			}
			out[i] = decodeContent(raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.stats.Log("get_content", float64(time.Since(start).Microseconds())/1000, len(keys))
	return out, nil
}

func decodeContent(raw map[string]any) Content {
	str := func(k string) string {
		v, _ := raw[k].(string)
		return v
	}
	ct := Content{
		Author:             str("author"),
		Permlink:           str("permlink"),
		Title:              str("title"),
		Body:               str("body"),
		JSONMetadata:       str("json_metadata"),
		Category:           str("category"),
		Created:            str("created"),
		CashoutTime:        str("cashout_time"),
		PendingPayoutValue: str("pending_payout_value"),
		TotalPayoutValue:   str("total_payout_value"),
		CuratorPayoutValue: str("curator_payout_value"),
	}
	ct.NetRshares, _ = parseAmount(raw["net_rshares"])
	if v, ok := raw["is_paidout"].(bool); ok {
		ct.IsPaidout = v
	}
	votes, _ := raw["active_votes"].([]any)
	for _, v := range votes {
		vm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		rshares, _ := parseAmount(vm["rshares"])
		percent, _ := parseAmount(vm["percent"])
		voter, _ := vm["voter"].(string)
		ct.ActiveVotes = append(ct.ActiveVotes, Vote{Voter: voter, Rshares: rshares, Percent: percent})
	}
	return ct
}

func parseAmount(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, nil
	}
}

// AssetAmount parses a "123.456 SYM"-style asset string's numeric
// component, used for fee/price derivations.
func AssetAmount(s string) (float64, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return 0, fmt.Errorf("upstream: empty asset string")
	}
	return strconv.ParseFloat(parts[0], 64)
}
