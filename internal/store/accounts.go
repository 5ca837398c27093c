package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// RegisterAccounts upserts names as accounts (inserting unseen ones with
// a fresh id) and returns the resulting name->id map for all of them.
// Mirrors the Accounts accumulator's register() against the teacher's
// batched-upsert-then-read-back idiom (api_v2.go's UpsertAccounts).
func RegisterAccounts(ctx context.Context, q Querier, names []string, blockNum uint64) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	if len(names) == 0 {
		return out, nil
	}

	batch := &pgx.Batch{}
	for _, n := range names {
		batch.Queue(`
			INSERT INTO app.accounts (name, block_num, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name`,
			n, blockNum)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range names {
		var id int64
		var name string
		if err := br.QueryRow().Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("store: register accounts: %w", err)
		}
		out[name] = id
	}
	return out, nil
}

// LoadAccountIDs loads the full name->id map, used once at orchestrator
// startup (Accounts.load_ids in the original source).
func LoadAccountIDs(ctx context.Context, q Querier) (map[string]int64, error) {
	rows, err := q.Query(ctx, `SELECT id, name FROM app.accounts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

// AccountMetadataUpdate is one row refreshed from the upstream node's
// get_accounts response.
type AccountMetadataUpdate struct {
	Name     string
	Metadata string // raw JSON
}

// FlushAccountMetadata applies refreshed metadata in a single batch.
func FlushAccountMetadata(ctx context.Context, q Querier, updates []AccountMetadataUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`
			UPDATE app.accounts SET metadata = $2::jsonb, last_synced_at = NOW()
			WHERE name = $1`,
			u.Name, u.Metadata)
	}
	br := q.SendBatch(ctx, batch)
	defer br.Close()
	for range updates {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("store: flush account metadata: %w", err)
		}
	}
	return nil
}

// DirtyOldestAccounts returns the n least-recently-synced account names.
func DirtyOldestAccounts(ctx context.Context, q Querier, n int) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT name FROM app.accounts
		ORDER BY last_synced_at ASC NULLS FIRST
		LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// AdjustFollowCounts applies follower/following count deltas for a batch
// of accounts, one statement per account and side, keeping counts non-negative
// (global invariant 5).
func AdjustFollowCounts(ctx context.Context, q Querier, followerDelta, followingDelta map[int64]int64) error {
	for id, delta := range followerDelta {
		if delta == 0 {
			continue
		}
		if _, err := q.Exec(ctx, `
			UPDATE app.accounts SET follower_count = GREATEST(0, follower_count + $2)
			WHERE id = $1`, id, delta); err != nil {
			return fmt.Errorf("store: adjust follower_count: %w", err)
		}
	}
	for id, delta := range followingDelta {
		if delta == 0 {
			continue
		}
		if _, err := q.Exec(ctx, `
			UPDATE app.accounts SET following_count = GREATEST(0, following_count + $2)
			WHERE id = $1`, id, delta); err != nil {
			return fmt.Errorf("store: adjust following_count: %w", err)
		}
	}
	return nil
}

// ResolveAccountID looks up an account's id by name.
func ResolveAccountID(ctx context.Context, q Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM app.accounts WHERE name = $1`, name).Scan(&id)
	return id, err
}

// AccountExists reports whether name is a registered account.
func AccountExists(ctx context.Context, q Querier, name string) (bool, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM app.accounts WHERE name = $1`, name).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
