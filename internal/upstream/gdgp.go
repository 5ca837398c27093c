package upstream

import (
	"context"
	"encoding/json"
	"fmt"
)

// deprecatedDGPOKeys mirrors the "unused" list stripped from dgpo in
// gdgp_extended.
var deprecatedDGPOKeys = []string{
	"total_pow", "num_pow_witnesses", "confidential_supply",
	"confidential_sbd_supply", "total_reward_fund_steem", "total_reward_shares2",
}

// ExtendedState is the result of gdgp_extended: the raw dynamic global
// properties plus the three derived price units.
type ExtendedState struct {
	DGPO          map[string]any
	USDPerSteem   string
	SBDPerSteem   string
	SteemPerMvest string
}

// GDGPExtended fetches dynamic global properties, strips deprecated
// keys, and computes the derived price units, grounded on
// SteemClient.gdgp_extended.
func (c *Client) GDGPExtended(ctx context.Context) (ExtendedState, error) {
	dgpo, err := c.GetDynamicGlobalProperties(ctx)
	if err != nil {
		return ExtendedState{}, err
	}
	for _, k := range deprecatedDGPOKeys {
		delete(dgpo, k)
	}

	usdPerSteem, err := c.feedPrice(ctx)
	if err != nil {
		return ExtendedState{}, err
	}
	sbdPerSteem, err := c.steemPrice(ctx)
	if err != nil {
		return ExtendedState{}, err
	}
	steemPerMvest, err := steemPerMvest(dgpo)
	if err != nil {
		return ExtendedState{}, err
	}

	return ExtendedState{
		DGPO:          dgpo,
		USDPerSteem:   usdPerSteem,
		SBDPerSteem:   sbdPerSteem,
		SteemPerMvest: steemPerMvest,
	}, nil
}

// steemPerMvest computes total_vesting_fund_steem / (total_vesting_shares / 1e6),
// matching SteemClient._get_steem_per_mvest.
func steemPerMvest(dgpo map[string]any) (string, error) {
	fundStr, _ := dgpo["total_vesting_fund_steem"].(string)
	sharesStr, _ := dgpo["total_vesting_shares"].(string)
	fund, err := AssetAmount(fundStr)
	if err != nil {
		return "", fmt.Errorf("upstream: total_vesting_fund_steem: %w", err)
	}
	shares, err := AssetAmount(sharesStr)
	if err != nil {
		return "", fmt.Errorf("upstream: total_vesting_shares: %w", err)
	}
	mvests := shares / 1e6
	if mvests == 0 {
		return "0.000000", nil
	}
	return fmt.Sprintf("%.6f", fund/mvests), nil
}

// feedPrice derives usd_per_steem from the feed history's current
// median, matching SteemClient._get_feed_price.
func (c *Client) feedPrice(ctx context.Context) (string, error) {
	var raw map[string]any
	if err := c.exec(ctx, "get_feed_history", []any{}, &raw); err != nil {
		return "", err
	}
	median, ok := raw["current_median_history"].(map[string]any)
	if !ok {
		return "", fmt.Errorf("upstream: get_feed_history missing current_median_history")
	}
	baseStr, _ := median["base"].(string)
	quoteStr, _ := median["quote"].(string)
	base, err := AssetAmount(baseStr)
	if err != nil {
		return "", err
	}
	quote, err := AssetAmount(quoteStr)
	if err != nil {
		return "", err
	}
	if quote == 0 {
		return "0.000000", nil
	}
	return fmt.Sprintf("%.6f", base/quote), nil
}

// steemPrice derives sbd_per_steem from the order book's mid-price,
// matching SteemClient._get_steem_price.
func (c *Client) steemPrice(ctx context.Context) (string, error) {
	var raw map[string]any
	if err := c.exec(ctx, "get_order_book", []any{1}, &raw); err != nil {
		return "", err
	}
	asks, _ := raw["asks"].([]any)
	bids, _ := raw["bids"].([]any)
	if len(asks) == 0 || len(bids) == 0 {
		return "0.000000", nil
	}
	ask, err := realPrice(asks[0])
	if err != nil {
		return "", err
	}
	bid, err := realPrice(bids[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%.6f", (ask+bid)/2), nil
}

func realPrice(v any) (float64, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("upstream: malformed order book entry")
	}
	switch p := m["real_price"].(type) {
	case string:
		var f float64
		if err := json.Unmarshal([]byte(p), &f); err != nil {
			return 0, err
		}
		return f, nil
	case float64:
		return p, nil
	default:
		return 0, fmt.Errorf("upstream: malformed real_price")
	}
}
