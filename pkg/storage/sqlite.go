package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
	_ "modernc.org/sqlite"
)

// One row per record; the record itself is stored as JSON so stops and
// presence stay embedded in their draft.
const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id TEXT PRIMARY KEY,
	host_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	source_draft_id TEXT NOT NULL DEFAULT '',
	progress_state TEXT NOT NULL,
	version INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS friend_statuses (
	plan_id TEXT NOT NULL,
	participant_id TEXT NOT NULL,
	status TEXT NOT NULL,
	last_update TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (plan_id, participant_id)
);
`

const indexes = `
CREATE INDEX IF NOT EXISTS idx_plans_source_draft ON plans(source_draft_id);
`

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db          *sql.DB
	retryConfig retry.Config
}

var (
	_ outing.Store               = (*SQLiteStore)(nil)
	_ outing.ConversionCommitter = (*SQLiteStore)(nil)
	_ outing.PresenceIndex       = (*SQLiteStore)(nil)
)

// OpenSQLite opens the database at path, creating parent directories and the
// schema when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// SQLite admits one writer at a time; a single connection queues writers
	// in the pool instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	if _, err := db.Exec(indexes); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite indexes: %w", err)
	}
	return &SQLiteStore{
		db: db,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
	}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// queryRecord reads a single JSON column and decodes it into a new T. A
// missing row yields (nil, nil) so the retry loop does not spin on it.
func queryRecord[T any](ctx context.Context, s *SQLiteStore, query string, args ...any) (*T, error) {
	retryer := retry.New[*T](s.retryConfig)
	return retryer.Do(ctx, func(ctx context.Context) (*T, error) {
		var data string
		err := s.db.QueryRowContext(ctx, query, args...).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		return &v, nil
	})
}

func (s *SQLiteStore) GetDraft(ctx context.Context, id string) (*outing.Draft, error) {
	d, err := queryRecord[outing.Draft](ctx, s, `SELECT data FROM drafts WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", id, err)
	}
	if d == nil {
		return nil, outing.DraftNotFound(id)
	}
	if d.Presence == nil {
		d.Presence = make(map[string]outing.PresenceEntry)
	}
	return d, nil
}

func (s *SQLiteStore) SaveDraft(ctx context.Context, d *outing.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, host_id, version, updated_at, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET host_id = excluded.host_id, version = excluded.version,
			updated_at = excluded.updated_at, data = excluded.data`,
		d.ID, d.HostID, d.Version, d.UpdatedAt.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteDraft(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return outing.DraftNotFound(id)
	}
	return nil
}

func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (*outing.Plan, error) {
	p, err := queryRecord[outing.Plan](ctx, s, `SELECT data FROM plans WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", id, err)
	}
	if p == nil {
		return nil, outing.PlanNotFound(id)
	}
	return p, nil
}

func (s *SQLiteStore) SavePlan(ctx context.Context, p *outing.Plan) error {
	return s.savePlan(ctx, s.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) savePlan(ctx context.Context, db execer, p *outing.Plan) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO plans (id, source_draft_id, progress_state, version, updated_at, data) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET progress_state = excluded.progress_state, version = excluded.version,
			updated_at = excluded.updated_at, data = excluded.data`,
		p.ID, p.SourceDraftID, string(p.ProgressState), p.Version, p.UpdatedAt.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("save plan %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) FindPlanBySourceDraft(ctx context.Context, draftID string) (*outing.Plan, error) {
	p, err := queryRecord[outing.Plan](ctx, s,
		`SELECT data FROM plans WHERE source_draft_id = ? ORDER BY updated_at DESC LIMIT 1`, draftID)
	if err != nil {
		return nil, fmt.Errorf("find plan for draft %s: %w", draftID, err)
	}
	if p == nil {
		return nil, outing.PlanNotFound("from draft " + draftID)
	}
	return p, nil
}

// CommitConversion inserts the plan and deletes the draft in one transaction.
func (s *SQLiteStore) CommitConversion(ctx context.Context, p *outing.Plan, draftID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin conversion: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, draftID)
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", draftID, err)
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
		return outing.DraftNotFound(draftID)
	}
	if err = s.savePlan(ctx, tx, p); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit conversion: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFriendStatuses(ctx context.Context, planID string) (map[string]outing.FriendStatus, error) {
	retryer := retry.New[map[string]outing.FriendStatus](s.retryConfig)
	out, err := retryer.Do(ctx, func(ctx context.Context) (map[string]outing.FriendStatus, error) {
		rows, err := s.db.QueryContext(ctx, `SELECT data FROM friend_statuses WHERE plan_id = ?`, planID)
		if err != nil {
			return nil, err
		}
		defer rows.Close() //nolint:errcheck // read-only cursor

		statuses := make(map[string]outing.FriendStatus)
		for rows.Next() {
			var data string
			if err := rows.Scan(&data); err != nil {
				return nil, err
			}
			var fs outing.FriendStatus
			if err := json.Unmarshal([]byte(data), &fs); err != nil {
				return nil, fmt.Errorf("decode friend status: %w", err)
			}
			statuses[fs.ParticipantID] = fs
		}
		return statuses, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load friend statuses for plan %s: %w", planID, err)
	}
	return out, nil
}

func (s *SQLiteStore) PutFriendStatus(ctx context.Context, fs outing.FriendStatus) error {
	data, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("encode friend status: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO friend_statuses (plan_id, participant_id, status, last_update, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id, participant_id) DO UPDATE SET status = excluded.status,
			last_update = excluded.last_update, data = excluded.data`,
		fs.PlanID, fs.ParticipantID, string(fs.Status), fs.LastUpdate.UTC().Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("save friend status %s/%s: %w", fs.PlanID, fs.ParticipantID, err)
	}
	return nil
}

func (s *SQLiteStore) DraftsWithOnlinePresence(ctx context.Context) ([]string, error) {
	retryer := retry.New[[]string](s.retryConfig)
	ids, err := retryer.Do(ctx, func(ctx context.Context) ([]string, error) {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id FROM drafts WHERE EXISTS (
				SELECT 1 FROM json_each(drafts.data, '$.presence') AS p
				WHERE json_extract(p.value, '$.is_online') = 1
			)`)
		if err != nil {
			return nil, err
		}
		defer rows.Close() //nolint:errcheck // read-only cursor

		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list drafts with presence: %w", err)
	}
	return ids, nil
}
