package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateCommunity inserts a Community row co-identified with its
// Account id and installs the owner Role atomically (global invariant
// 5), grounded on Community.register in the original source.
func CreateCommunity(ctx context.Context, q Querier, id int64, name string, typeID int, blockNum uint64) error {
	if _, err := q.Exec(ctx, `
		INSERT INTO app.communities (id, name, type_id, block_num, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO NOTHING`,
		id, name, typeID, blockNum); err != nil {
		return fmt.Errorf("store: create community: %w", err)
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO app.roles (community_id, account_id, role_id, block_num)
		VALUES ($1, $1, $2, $3)
		ON CONFLICT (community_id, account_id) DO NOTHING`,
		id, roleOwner, blockNum); err != nil {
		return fmt.Errorf("store: install owner role: %w", err)
	}
	return nil
}

const (
	roleOwner = 8
)

// CommunityIDByName resolves a community name to its id.
func CommunityIDByName(ctx context.Context, q Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM app.communities WHERE name = $1`, name).Scan(&id)
	return id, err
}

// CommunityExists reports whether name is a registered community.
func CommunityExists(ctx context.Context, q Querier, name string) (bool, error) {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM app.communities WHERE name = $1`, name).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// CommunityTypeByName returns a community's type_id.
func CommunityTypeByName(ctx context.Context, q Querier, name string) (int, error) {
	var typeID int
	err := q.QueryRow(ctx, `SELECT type_id FROM app.communities WHERE name = $1`, name).Scan(&typeID)
	return typeID, err
}

// GetUserRole returns an account's role within a community, defaulting
// to guest (0) when no explicit Role row exists.
func GetUserRole(ctx context.Context, q Querier, communityID, accountID int64) (int, error) {
	var roleID int
	err := q.QueryRow(ctx, `
		SELECT role_id FROM app.roles WHERE community_id = $1 AND account_id = $2`,
		communityID, accountID).Scan(&roleID)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	return roleID, err
}

// SetUserRole upserts an account's role within a community.
func SetUserRole(ctx context.Context, q Querier, communityID, accountID int64, roleID int, blockNum uint64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.roles (community_id, account_id, role_id, block_num)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (community_id, account_id) DO UPDATE SET
			role_id = EXCLUDED.role_id, block_num = EXCLUDED.block_num`,
		communityID, accountID, roleID, blockNum)
	return err
}

// SetUserTitle upserts an account's title within a community, defaulting
// the role to guest if no role row yet exists.
func SetUserTitle(ctx context.Context, q Querier, communityID, accountID int64, title string, blockNum uint64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.roles (community_id, account_id, role_id, title, block_num)
		VALUES ($1, $2, 0, $3, $4)
		ON CONFLICT (community_id, account_id) DO UPDATE SET
			title = EXCLUDED.title, block_num = EXCLUDED.block_num`,
		communityID, accountID, title, blockNum)
	return err
}

// UpdateCommunitySettings replaces a community's settings JSON object.
func UpdateCommunitySettings(ctx context.Context, q Querier, communityID int64, settingsJSON string) error {
	_, err := q.Exec(ctx, `UPDATE app.communities SET settings = $2::jsonb WHERE id = $1`, communityID, settingsJSON)
	return err
}

// IsSubscribed reports whether an account subscribes to a community.
func IsSubscribed(ctx context.Context, q Querier, communityID, accountID int64) (bool, error) {
	var subscribed bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM app.community_subscriptions WHERE community_id = $1 AND account_id = $2)`,
		communityID, accountID).Scan(&subscribed)
	return subscribed, err
}

// SetSubscribed adds or removes a subscription, maintaining the
// community's subscriber counter as a delta (never recomputed), and
// clamped at zero (global invariant 5).
func SetSubscribed(ctx context.Context, q Querier, communityID, accountID int64, subscribed bool) error {
	if subscribed {
		tag, err := q.Exec(ctx, `
			INSERT INTO app.community_subscriptions (community_id, account_id, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT DO NOTHING`, communityID, accountID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		_, err = q.Exec(ctx, `UPDATE app.communities SET subscribers = subscribers + 1 WHERE id = $1`, communityID)
		return err
	}
	tag, err := q.Exec(ctx, `
		DELETE FROM app.community_subscriptions WHERE community_id = $1 AND account_id = $2`,
		communityID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	_, err = q.Exec(ctx, `UPDATE app.communities SET subscribers = GREATEST(0, subscribers - 1) WHERE id = $1`, communityID)
	return err
}

// InsertFlag records a flagPost action.
func InsertFlag(ctx context.Context, q Querier, account, community, author, permlink, comment string, blockNum uint64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.flags (account, community, author, permlink, comment, block_num, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		account, community, author, permlink, comment, blockNum)
	return err
}

// InsertModLog records every successful community op apply. Grounded on
// the commented-out hive_modlog insert at the end of
// CommunityOp.process in the original source.
func InsertModLog(ctx context.Context, q Querier, account, community, action, detailsJSON string, blockNum uint64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO app.mod_log (account, community, action, details, block_num, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, NOW())`,
		account, community, action, detailsJSON, blockNum)
	return err
}

// RecalcPendingPayouts recomputes each community's pending_payout as the
// sum of un-paid-out cached-post payouts in that community, grounded on
// Community.recalc_pending_payouts.
func RecalcPendingPayouts(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `
		UPDATE app.communities c SET pending_payout = sub.total
		FROM (
			SELECT p.community AS name, COALESCE(SUM(cp.payout), 0) AS total
			FROM app.posts p
			JOIN app.cached_posts cp ON cp.post_id = p.id
			WHERE p.community IS NOT NULL AND NOT cp.is_paidout
			GROUP BY p.community
		) sub
		WHERE c.name = sub.name`)
	return err
}
