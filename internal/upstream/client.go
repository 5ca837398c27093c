// Package upstream implements the JSON-RPC client that pulls blocks and
// derived state from the upstream node, grounded on
// hive/indexer/steem_client.py, shaped the way the teacher's
// internal/flow.Client wraps a transport (retry-wrapped methods, a
// shared connection pool, Close()).
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Client is a batching JSON-RPC client for the upstream steemd/hived-
// style node.
type Client struct {
	url        string
	appbase    bool
	maxBatch   int
	maxWorkers int

	http    *http.Client
	limiter *rate.Limiter
	stats   *ClientStats

	idSeq int64
}

const (
	maxBatchCeiling   = 5000
	maxWorkersCeiling = 500
)

// New constructs a Client. url may carry the "#appbase" suffix the
// original source strips in SteemClient.__init__.
func New(url string, maxBatch, maxWorkers int) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("upstream: steemd_url is required")
	}
	if maxBatch <= 0 || maxBatch > maxBatchCeiling {
		return nil, fmt.Errorf("upstream: max_batch must be in (0,%d]", maxBatchCeiling)
	}
	if maxWorkers <= 0 || maxWorkers > maxWorkersCeiling {
		return nil, fmt.Errorf("upstream: max_workers must be in (0,%d]", maxWorkersCeiling)
	}

	appbase := false
	if strings.HasSuffix(url, "#appbase") {
		appbase = true
		url = strings.TrimSuffix(url, "#appbase")
	}

	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 50,
	}

	return &Client{
		url:        url,
		appbase:    appbase,
		maxBatch:   maxBatch,
		maxWorkers: maxWorkers,
		http:       &http.Client{Transport: transport, Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(maxWorkers*10), maxWorkers*10),
		stats:      NewClientStats(),
	}, nil
}

// Close releases the client's idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func (c *Client) nextID() int64 {
	c.idSeq++
	return c.idSeq
}

func (c *Client) method(name string) string {
	if c.appbase {
		return "condenser_api." + name
	}
	return name
}

// exec performs a single steemd call, retrying indefinitely with linear
// backoff tries/10 seconds on transport error or (for methods other than
// get_block) empty response — mirrors SteemClient.__exec.
func (c *Client) exec(ctx context.Context, method string, params any, out any) error {
	start := time.Now()
	tries := 0
	bo := &linearBackoff{}
	err := backoff.Retry(func() error {
		if werr := c.waitLimiter(ctx); werr != nil {
			return backoff.Permanent(werr)
		}
		raw, execErr := c.doCall(ctx, method, params)
		if execErr != nil {
			tries++
			return fmt.Errorf("%s failure, retry in %.1fs: %w", method, float64(tries)/10, execErr)
		}
		if method != "get_block" && (len(raw) == 0 || string(raw) == "null") {
			tries++
			return fmt.Errorf("%s: empty response", method)
		}
		if len(raw) == 0 || string(raw) == "null" {
			out = nil
			return nil
		}
		return json.Unmarshal(raw, out)
	}, bo)
	if err != nil {
		return err
	}
	ms := float64(time.Since(start).Microseconds()) / 1000
	c.stats.Log(method, ms, 1)
	return nil
}

func (c *Client) waitLimiter(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

func (c *Client) doCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: c.nextID(), Method: c.method(method), Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, decoded.Error
	}
	return decoded.Result, nil
}

// linearBackoff implements the source's "tries/10 seconds" retry
// schedule as a backoff.BackOff, retrying forever with a delay that
// grows by 0.1s per attempt (steem_client.py's time.sleep(tries / 10)).
type linearBackoff struct {
	n int
}

func (b *linearBackoff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(float64(b.n) * float64(time.Second) / 10)
}

func (b *linearBackoff) Reset() {
	b.n = 0
}

// GetDynamicGlobalProperties returns the raw dynamic global properties
// object (the source's _gdgp).
func (c *Client) GetDynamicGlobalProperties(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.exec(ctx, "get_dynamic_global_properties", []any{}, &out); err != nil {
		return nil, err
	}
	if _, ok := out["time"]; !ok {
		return nil, fmt.Errorf("upstream: gdgp invalid response, missing time")
	}
	return out, nil
}

// HeadBlock returns the current head block number.
func (c *Client) HeadBlock(ctx context.Context) (uint64, error) {
	dgpo, err := c.GetDynamicGlobalProperties(ctx)
	if err != nil {
		return 0, err
	}
	return toUint64(dgpo["head_block_number"])
}

// LastIrreversible returns the last irreversible block number.
func (c *Client) LastIrreversible(ctx context.Context) (uint64, error) {
	dgpo, err := c.GetDynamicGlobalProperties(ctx)
	if err != nil {
		return 0, err
	}
	return toUint64(dgpo["last_irreversible_block_num"])
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case float64:
		return uint64(n), nil
	case json.Number:
		i, err := n.Int64()
		return uint64(i), err
	case string:
		i, err := strconv.ParseUint(n, 10, 64)
		return i, err
	default:
		return 0, fmt.Errorf("upstream: unexpected numeric type %T", v)
	}
}
