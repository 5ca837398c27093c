package store

import (
	"context"
	"fmt"
	"time"
)

// InsertBlock writes the immutable Block row, grounded on the teacher's
// processBlock (indexer/indexer.go), which inserts on ON CONFLICT DO
// NOTHING so replaying the same block twice is a no-op (spec.md §8
// property 3).
func InsertBlock(ctx context.Context, q Querier, num uint64, hash, prevHash string, txCount, opCount int, timestamp time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.blocks (num, hash, prev_hash, tx_count, op_count, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (num) DO NOTHING`,
		num, hash, prevHash, txCount, opCount, timestamp)
	if err != nil {
		return fmt.Errorf("store: insert block %d: %w", num, err)
	}
	return nil
}

// BlockByNum returns the stored hash/prev_hash for num, used by the
// orchestrator's verify-head recovery check and fork continuity tests.
func BlockByNum(ctx context.Context, q Querier, num uint64) (hash, prevHash string, err error) {
	err = q.QueryRow(ctx, `SELECT hash, prev_hash FROM app.blocks WHERE num = $1`, num).Scan(&hash, &prevHash)
	return hash, prevHash, err
}
