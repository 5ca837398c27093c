// Package store is the relational projection target for the indexer: a
// thin pgx/v5 wrapper exposing pool lifecycle, schema application, and
// per-entity query/flush methods grounded on the teacher's
// internal/repository package.
package store

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaFS embed.FS

// Querier is the subset of pgx operations shared by *pgxpool.Pool and
// pgx.Tx, letting entity methods run either standalone or inside a
// caller-managed transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults
}

// Store owns the connection pool. There is exactly one writer at a time
// (the Sync Orchestrator); Store itself holds no other state.
type Store struct {
	db *pgxpool.Pool
}

// Open parses dbURL, applies pool tuning from the environment the same
// way the teacher's NewRepository does, and connects.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse db url: %w", err)
	}

	if v := os.Getenv("HIVEBRIDGE_DB_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = int32(n)
		}
	}
	if v := os.Getenv("HIVEBRIDGE_DB_MAX_IDLE_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MinConns = int32(n)
		}
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["statement_timeout"]; !ok {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = getEnvDefault("HIVEBRIDGE_DB_STATEMENT_TIMEOUT", "300000")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	return &Store{db: pool}, nil
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Migrate applies the bundled schema. Out of scope per spec.md §1 is a
// real migration tool; this mirrors the teacher's Repository.Migrate,
// which just executes a whole .sql file idempotently (CREATE ... IF NOT
// EXISTS throughout).
func (s *Store) Migrate(ctx context.Context) error {
	content, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := s.db.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.db.Close()
}

// Pool exposes the underlying pool as a Querier for standalone (non-tx)
// calls.
func (s *Store) Pool() *pgxpool.Pool {
	return s.db
}

// Begin starts a transaction; callers defer Rollback and explicitly
// Commit on success, the standard pgx pattern the teacher uses
// throughout internal/repository.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

// GetLastIndexedHeight returns the checkpointed block number for
// serviceName, or 0 if none exists yet.
func (s *Store) GetLastIndexedHeight(ctx context.Context, serviceName string) (uint64, error) {
	var height uint64
	err := s.db.QueryRow(ctx, `SELECT last_height FROM app.indexing_checkpoints WHERE service_name = $1`, serviceName).Scan(&height)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return height, err
}

// SetCheckpoint upserts the checkpoint row for serviceName within q,
// letting callers fold it into a block transaction.
func SetCheckpoint(ctx context.Context, q Querier, serviceName string, height uint64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.indexing_checkpoints (service_name, last_height, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (service_name) DO UPDATE SET
			last_height = EXCLUDED.last_height,
			updated_at = NOW()`,
		serviceName, height)
	return err
}

// GetBlockHashByNum returns the stored hash for a block number, used by
// the orchestrator's verify-head recovery check.
func (s *Store) GetBlockHashByNum(ctx context.Context, num uint64) (string, error) {
	var hash string
	err := s.db.QueryRow(ctx, `SELECT hash FROM app.blocks WHERE num = $1`, num).Scan(&hash)
	return hash, err
}

// HeadNum returns the highest stored block number, or 0 if empty.
func (s *Store) HeadNum(ctx context.Context) (uint64, error) {
	var num uint64
	err := s.db.QueryRow(ctx, `SELECT COALESCE(MAX(num), 0) FROM app.blocks`).Scan(&num)
	return num, err
}

// RollbackFromHeight deletes all rows at or above rollbackHeight across
// every height-tracked table in a single transaction, the same surgical
// approach as the teacher's RollbackFromHeight.
func (s *Store) RollbackFromHeight(ctx context.Context, rollbackHeight uint64) error {
	checkpointHeight := uint64(0)
	if rollbackHeight > 0 {
		checkpointHeight = rollbackHeight - 1
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		`DELETE FROM app.feed_cache WHERE post_id IN (SELECT id FROM app.posts WHERE block_num >= $1)`,
		`DELETE FROM app.reblogs WHERE post_id IN (SELECT id FROM app.posts WHERE block_num >= $1)`,
		`DELETE FROM app.cached_posts WHERE post_id IN (SELECT id FROM app.posts WHERE block_num >= $1)`,
		`DELETE FROM app.follows WHERE block_num >= $1`,
		`DELETE FROM app.mod_log WHERE block_num >= $1`,
		`DELETE FROM app.flags WHERE block_num >= $1`,
		`DELETE FROM app.roles WHERE block_num >= $1`,
		`DELETE FROM app.communities WHERE block_num >= $1`,
		`DELETE FROM app.posts WHERE block_num >= $1`,
		`DELETE FROM app.accounts WHERE block_num >= $1`,
		`DELETE FROM app.blocks WHERE num >= $1`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(ctx, s, rollbackHeight); err != nil {
			return fmt.Errorf("store: rollback %q: %w", s, err)
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE app.indexing_checkpoints SET last_height = LEAST(last_height, $1), updated_at = NOW()`, checkpointHeight); err != nil {
		return fmt.Errorf("store: clamp checkpoints: %w", err)
	}

	return tx.Commit(ctx)
}

// LogIndexingError records a dropped/skipped condition. Never returns an
// error that should abort the caller's block processing; errors here are
// logged by the caller and swallowed.
func LogIndexingError(ctx context.Context, q Querier, serviceName string, blockNum uint64, txID, kind, message string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.indexing_errors (service_name, block_num, tx_id, kind, message, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW())`,
		serviceName, blockNum, txID, kind, message)
	return err
}
