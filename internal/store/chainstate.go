package store

import "context"

// ChainStateRow is the singleton row tracking derived upstream price
// units, refreshed periodically by the Sync Orchestrator.
type ChainStateRow struct {
	BlockNum      uint64
	SteemPerMvest string
	USDPerSteem   string
	SBDPerSteem   string
	DGPOJSON      string
}

// UpdateChainState upserts the singleton ChainState row.
func UpdateChainState(ctx context.Context, q Querier, s ChainStateRow) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.chain_state (id, block_num, steem_per_mvest, usd_per_steem, sbd_per_steem, dgpo_json)
		VALUES (TRUE, $1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			block_num = EXCLUDED.block_num,
			steem_per_mvest = EXCLUDED.steem_per_mvest,
			usd_per_steem = EXCLUDED.usd_per_steem,
			sbd_per_steem = EXCLUDED.sbd_per_steem,
			dgpo_json = EXCLUDED.dgpo_json`,
		s.BlockNum, s.SteemPerMvest, s.USDPerSteem, s.SBDPerSteem, s.DGPOJSON)
	return err
}
