// Package storetest provides a minimal in-memory stand-in for
// store.Querier, letting store-dependent business logic (the Community
// Op Engine, the accumulators, the Cached-Post Engine) be exercised
// end-to-end in package-level tests without a live Postgres connection.
// It understands only the handful of statement shapes this module
// actually issues, matched by substring — the same "fake the
// collaborator, not the database" idea the teacher applies by testing
// against real structs wherever possible, extended here to a query
// layer the way an httptest.Server fakes the upstream JSON-RPC node.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hivebridge/internal/store"
)

// postRow is the fake's view of one app.posts row.
type postRow struct {
	Author, Permlink, Community string
	IsPinned, IsMuted            bool
}

type communityRow struct {
	Name        string
	TypeID      int
	Settings    string
	Subscribers int
}

type roleRow struct {
	RoleID int
	Title  string
}

type flagRow struct {
	Account, Community, Author, Permlink, Comment string
	BlockNum                                       uint64
}

type modLogRow struct {
	Account, Community, Action, Details string
	BlockNum                            uint64
}

// Fake is an in-memory store.Querier.
type Fake struct {
	nextAccountID int64
	accounts      map[string]int64
	accountNames  map[int64]string

	nextPostID int64
	posts      map[[2]string]int64
	postByID   map[int64]postRow

	communities     map[int64]communityRow
	communityByName map[string]int64

	roles         map[[2]int64]roleRow
	subscriptions map[[2]int64]bool

	follows        map[[2]int64]int
	followerCount  map[int64]int64
	followingCount map[int64]int64

	flags  []flagRow
	modLog []modLogRow

	cachedPosts    map[int64]store.CachedPostUpsert
	indexingErrors int
}

// New constructs an empty Fake.
func New() *Fake {
	return &Fake{
		accounts:        make(map[string]int64),
		accountNames:    make(map[int64]string),
		posts:           make(map[[2]string]int64),
		postByID:        make(map[int64]postRow),
		communities:     make(map[int64]communityRow),
		communityByName: make(map[string]int64),
		roles:           make(map[[2]int64]roleRow),
		subscriptions:   make(map[[2]int64]bool),
		follows:         make(map[[2]int64]int),
		followerCount:   make(map[int64]int64),
		followingCount:  make(map[int64]int64),
		cachedPosts:     make(map[int64]store.CachedPostUpsert),
	}
}

// --- seed helpers (test setup) ---

// SeedAccount registers name with a freshly assigned id.
func (f *Fake) SeedAccount(name string) int64 {
	f.nextAccountID++
	id := f.nextAccountID
	f.accounts[name] = id
	f.accountNames[id] = name
	return id
}

// SeedPost registers a live (author, permlink) post under community.
func (f *Fake) SeedPost(author, permlink, community string) int64 {
	f.nextPostID++
	id := f.nextPostID
	f.posts[[2]string{author, permlink}] = id
	f.postByID[id] = postRow{Author: author, Permlink: permlink, Community: community}
	return id
}

// SeedCommunity registers a community co-identified with account id.
func (f *Fake) SeedCommunity(id int64, name string, typeID int) {
	f.communities[id] = communityRow{Name: name, TypeID: typeID}
	f.communityByName[name] = id
}

// SeedRole sets an account's role within a community.
func (f *Fake) SeedRole(communityID, accountID int64, roleID int) {
	row := f.roles[[2]int64{communityID, accountID}]
	row.RoleID = roleID
	f.roles[[2]int64{communityID, accountID}] = row
}

// SeedCachedPost pre-populates a CachedPost row awaiting payout.
func (f *Fake) SeedCachedPost(postID int64, payoutAt time.Time, isPaidout bool) {
	f.cachedPosts[postID] = store.CachedPostUpsert{PostID: postID, PayoutAt: payoutAt, IsPaidout: isPaidout}
}

// --- assertion accessors ---

// Role returns an account's role within a community (0/guest if unset).
func (f *Fake) Role(communityID, accountID int64) int {
	return f.roles[[2]int64{communityID, accountID}].RoleID
}

// HasCommunity reports whether a community row exists for id.
func (f *Fake) HasCommunity(id int64) bool {
	_, ok := f.communities[id]
	return ok
}

// FollowState returns the tri-valued follow state of an edge.
func (f *Fake) FollowState(followerID, followingID int64) int {
	return f.follows[[2]int64{followerID, followingID}]
}

// FollowerCount returns an account's current follower_count.
func (f *Fake) FollowerCount(id int64) int64 { return f.followerCount[id] }

// FollowingCount returns an account's current following_count.
func (f *Fake) FollowingCount(id int64) int64 { return f.followingCount[id] }

// ModLogCount returns the number of recorded mod_log rows.
func (f *Fake) ModLogCount() int { return len(f.modLog) }

// GetCachedPost returns the stored CachedPost row for postID, if any.
func (f *Fake) GetCachedPost(postID int64) (store.CachedPostUpsert, bool) {
	row, ok := f.cachedPosts[postID]
	return row, ok
}

// IndexingErrorCount returns how many LogIndexingError calls were made.
func (f *Fake) IndexingErrorCount() int { return f.indexingErrors }

// --- store.Querier implementation ---

func (f *Fake) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO app.communities"):
		id := args[0].(int64)
		name := args[1].(string)
		typeID := args[2].(int)
		if _, exists := f.communities[id]; exists {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.communities[id] = communityRow{Name: name, TypeID: typeID}
		f.communityByName[name] = id
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "INSERT INTO app.roles") && strings.Contains(sql, "VALUES ($1, $1, $2, $3)"):
		id := args[0].(int64)
		roleID := args[1].(int)
		key := [2]int64{id, id}
		if _, exists := f.roles[key]; !exists {
			f.roles[key] = roleRow{RoleID: roleID}
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "INSERT INTO app.roles") && strings.Contains(sql, "title = EXCLUDED.title"):
		communityID := args[0].(int64)
		accountID := args[1].(int64)
		title := args[2].(string)
		key := [2]int64{communityID, accountID}
		row := f.roles[key]
		row.Title = title
		f.roles[key] = row
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "INSERT INTO app.roles") && strings.Contains(sql, "role_id = EXCLUDED.role_id"):
		communityID := args[0].(int64)
		accountID := args[1].(int64)
		roleID := args[2].(int)
		key := [2]int64{communityID, accountID}
		row := f.roles[key]
		row.RoleID = roleID
		f.roles[key] = row
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "UPDATE app.communities SET settings"):
		id := args[0].(int64)
		settingsJSON := args[1].(string)
		row := f.communities[id]
		row.Settings = settingsJSON
		f.communities[id] = row
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "INSERT INTO app.community_subscriptions"):
		communityID := args[0].(int64)
		accountID := args[1].(int64)
		key := [2]int64{communityID, accountID}
		if f.subscriptions[key] {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.subscriptions[key] = true
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "DELETE FROM app.community_subscriptions"):
		communityID := args[0].(int64)
		accountID := args[1].(int64)
		key := [2]int64{communityID, accountID}
		if !f.subscriptions[key] {
			return pgconn.NewCommandTag("DELETE 0"), nil
		}
		delete(f.subscriptions, key)
		return pgconn.NewCommandTag("DELETE 1"), nil

	case strings.Contains(sql, "UPDATE app.communities SET subscribers = subscribers + 1"):
		id := args[0].(int64)
		row := f.communities[id]
		row.Subscribers++
		f.communities[id] = row
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "UPDATE app.communities SET subscribers = GREATEST"):
		id := args[0].(int64)
		row := f.communities[id]
		if row.Subscribers > 0 {
			row.Subscribers--
		}
		f.communities[id] = row
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "INSERT INTO app.flags"):
		f.flags = append(f.flags, flagRow{
			Account: args[0].(string), Community: args[1].(string),
			Author: args[2].(string), Permlink: args[3].(string),
			Comment: args[4].(string), BlockNum: args[5].(uint64),
		})
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "INSERT INTO app.mod_log"):
		f.modLog = append(f.modLog, modLogRow{
			Account: args[0].(string), Community: args[1].(string),
			Action: args[2].(string), Details: args[3].(string),
			BlockNum: args[4].(uint64),
		})
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "UPDATE app.posts SET is_muted"):
		id := args[0].(int64)
		muted := args[1].(bool)
		row := f.postByID[id]
		row.IsMuted = muted
		f.postByID[id] = row
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "UPDATE app.posts SET is_pinned"):
		id := args[0].(int64)
		pinned := args[1].(bool)
		row := f.postByID[id]
		row.IsPinned = pinned
		f.postByID[id] = row
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "UPDATE app.accounts SET follower_count"):
		id := args[0].(int64)
		delta := args[1].(int64)
		f.followerCount[id] += delta
		if f.followerCount[id] < 0 {
			f.followerCount[id] = 0
		}
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "UPDATE app.accounts SET following_count"):
		id := args[0].(int64)
		delta := args[1].(int64)
		f.followingCount[id] += delta
		if f.followingCount[id] < 0 {
			f.followingCount[id] = 0
		}
		return pgconn.NewCommandTag("UPDATE 1"), nil

	case strings.Contains(sql, "INSERT INTO app.follows"):
		followerID := args[0].(int64)
		followingID := args[1].(int64)
		state := args[2].(int)
		f.follows[[2]int64{followerID, followingID}] = state
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "INSERT INTO app.cached_posts"):
		row := store.CachedPostUpsert{
			PostID:    args[0].(int64),
			Title:     args[1].(string),
			Preview:   args[2].(string),
			ImgURL:    args[3].(string),
			Payout:    args[4].(float64),
			Promoted:  args[5].(float64),
			PayoutAt:  args[6].(time.Time),
			IsNSFW:    args[7].(bool),
			IsPaidout: args[8].(bool),
			RShares:   args[9].(int64),
			Votes:     args[10].(string),
			JSONMeta:  args[11].(string),
			SCTrend:   args[12].(float64),
			SCHot:     args[13].(float64),
		}
		f.cachedPosts[row.PostID] = row
		return pgconn.NewCommandTag("INSERT 0 1"), nil

	case strings.Contains(sql, "INSERT INTO app.indexing_errors"):
		f.indexingErrors++
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.CommandTag{}, fmt.Errorf("storetest: unhandled Exec: %s", sql)
}

func (f *Fake) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "INSERT INTO app.accounts") && strings.Contains(sql, "RETURNING id, name"):
		name := args[0].(string)
		id, ok := f.accounts[name]
		if !ok {
			f.nextAccountID++
			id = f.nextAccountID
			f.accounts[name] = id
			f.accountNames[id] = name
		}
		return fakeRow{vals: []any{id, name}}

	case strings.Contains(sql, "SELECT id FROM app.accounts WHERE name"):
		name := args[0].(string)
		if id, ok := f.accounts[name]; ok {
			return fakeRow{vals: []any{id}}
		}
		return fakeRow{err: pgx.ErrNoRows}

	case strings.Contains(sql, "SELECT id FROM app.communities WHERE name"):
		name := args[0].(string)
		if id, ok := f.communityByName[name]; ok {
			return fakeRow{vals: []any{id}}
		}
		return fakeRow{err: pgx.ErrNoRows}

	case strings.Contains(sql, "SELECT type_id FROM app.communities WHERE name"):
		name := args[0].(string)
		if id, ok := f.communityByName[name]; ok {
			return fakeRow{vals: []any{f.communities[id].TypeID}}
		}
		return fakeRow{err: pgx.ErrNoRows}

	case strings.Contains(sql, "SELECT role_id FROM app.roles"):
		communityID := args[0].(int64)
		accountID := args[1].(int64)
		row, ok := f.roles[[2]int64{communityID, accountID}]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{row.RoleID}}

	case strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM app.community_subscriptions"):
		communityID := args[0].(int64)
		accountID := args[1].(int64)
		return fakeRow{vals: []any{f.subscriptions[[2]int64{communityID, accountID}]}}

	case strings.Contains(sql, "SELECT state FROM app.follows"):
		followerID := args[0].(int64)
		followingID := args[1].(int64)
		state, ok := f.follows[[2]int64{followerID, followingID}]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{state}}

	case strings.Contains(sql, "SELECT id FROM app.posts WHERE author"):
		author := args[0].(string)
		permlink := args[1].(string)
		id, ok := f.posts[[2]string{author, permlink}]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{id}}

	case strings.Contains(sql, "SELECT is_pinned FROM app.posts"):
		id := args[0].(int64)
		row, ok := f.postByID[id]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{row.IsPinned}}

	case strings.Contains(sql, "SELECT COALESCE(community, '') FROM app.posts"):
		id := args[0].(int64)
		row, ok := f.postByID[id]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{row.Community}}

	case strings.Contains(sql, "SELECT author FROM app.posts WHERE id"):
		id := args[0].(int64)
		row, ok := f.postByID[id]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{row.Author}}
	}
	return fakeRow{err: fmt.Errorf("storetest: unhandled QueryRow: %s", sql)}
}

func (f *Fake) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	switch {
	case strings.Contains(sql, "SELECT id, author, permlink FROM app.posts WHERE id = ANY"):
		ids, _ := args[0].([]int64)
		var out [][]any
		for _, id := range ids {
			row, ok := f.postByID[id]
			if !ok {
				continue
			}
			out = append(out, []any{id, row.Author, row.Permlink})
		}
		return &fakeRows{rows: out}, nil

	case strings.Contains(sql, "SELECT post_id FROM app.cached_posts"):
		asOf, _ := args[0].(time.Time)
		var out [][]any
		for id, cp := range f.cachedPosts {
			if !cp.IsPaidout && !cp.PayoutAt.IsZero() && !cp.PayoutAt.After(asOf) {
				out = append(out, []any{id})
			}
		}
		return &fakeRows{rows: out}, nil

	case strings.Contains(sql, "SELECT id, name FROM app.accounts"):
		var out [][]any
		for name, id := range f.accounts {
			out = append(out, []any{id, name})
		}
		return &fakeRows{rows: out}, nil
	}
	return nil, fmt.Errorf("storetest: unhandled Query: %s", sql)
}

func (f *Fake) SendBatch(ctx context.Context, batch *pgx.Batch) pgx.BatchResults {
	return &fakeBatchResults{f: f, ctx: ctx, items: batch.QueuedQueries}
}

// fakeRow is a pgx.Row over a fixed set of already-typed values.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("storetest: scan arity mismatch: got %d dest, %d vals", len(dest), len(r.vals))
	}
	for i, d := range dest {
		if err := assign(d, r.vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// fakeRows is a pgx.Rows over a fixed set of rows, each a []any of
// already-typed values.
type fakeRows struct {
	rows [][]any
	idx  int
	cur  []any
}

func (r *fakeRows) Close()                                      {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                               { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.cur = r.rows[r.idx]
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) != len(r.cur) {
		return fmt.Errorf("storetest: scan arity mismatch: got %d dest, %d vals", len(dest), len(r.cur))
	}
	for i, d := range dest {
		if err := assign(d, r.cur[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeRows) Values() ([]any, error) { return r.cur, nil }

// fakeBatchResults replays a pgx.Batch's queued statements one at a time
// against the owning Fake, in submission order — matching the real
// pgx.BatchResults contract that Exec/Query/QueryRow calls correspond
// 1:1 to Queue calls.
type fakeBatchResults struct {
	f     *Fake
	ctx   context.Context
	items []*pgx.QueuedQuery
	idx   int
}

func (br *fakeBatchResults) next() (*pgx.QueuedQuery, error) {
	if br.idx >= len(br.items) {
		return nil, fmt.Errorf("storetest: batch exhausted")
	}
	q := br.items[br.idx]
	br.idx++
	return q, nil
}

func (br *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	q, err := br.next()
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return br.f.Exec(br.ctx, q.SQL, q.Arguments...)
}

func (br *fakeBatchResults) Query() (pgx.Rows, error) {
	q, err := br.next()
	if err != nil {
		return nil, err
	}
	return br.f.Query(br.ctx, q.SQL, q.Arguments...)
}

func (br *fakeBatchResults) QueryRow() pgx.Row {
	q, err := br.next()
	if err != nil {
		return fakeRow{err: err}
	}
	return br.f.QueryRow(br.ctx, q.SQL, q.Arguments...)
}

func (br *fakeBatchResults) Close() error { return nil }

// assign copies val into the pointer dest, covering the scalar types
// this module's Scan calls actually use.
func assign(dest, val any) error {
	switch d := dest.(type) {
	case *int64:
		switch v := val.(type) {
		case int64:
			*d = v
		case int:
			*d = int64(v)
		default:
			return fmt.Errorf("storetest: cannot assign %T into *int64", val)
		}
	case *int:
		switch v := val.(type) {
		case int:
			*d = v
		case int64:
			*d = int(v)
		default:
			return fmt.Errorf("storetest: cannot assign %T into *int", val)
		}
	case *string:
		v, ok := val.(string)
		if !ok {
			return fmt.Errorf("storetest: cannot assign %T into *string", val)
		}
		*d = v
	case *bool:
		v, ok := val.(bool)
		if !ok {
			return fmt.Errorf("storetest: cannot assign %T into *bool", val)
		}
		*d = v
	default:
		return fmt.Errorf("storetest: unsupported scan dest type %T", dest)
	}
	return nil
}
