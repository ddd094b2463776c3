package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// sqliteMaxVars bounds the placeholders in one IN (...) lookup.
const sqliteMaxVars = 500

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	aoi           TEXT NOT NULL,
	plot_id       TEXT NOT NULL DEFAULT '',
	image_version TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'running',
	report        TEXT,
	error         TEXT,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS raster_samples (
	key        TEXT PRIMARY KEY,
	value      REAL NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_aoi ON runs(aoi);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_raster_samples_expires_at ON raster_samples(expires_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, nr NewRun) (*Run, error) {
	id := uuid.New().String()
	now := s.now()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, aoi, plot_id, image_version, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, nr.AOI, nr.PlotID, nr.ImageVersion, string(RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &Run{
		ID:           id,
		AOI:          nr.AOI,
		PlotID:       nr.PlotID,
		ImageVersion: nr.ImageVersion,
		Status:       RunStatusRunning,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, report any) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET report = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(data), string(RunStatusComplete), s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET error = ?, status = ?, updated_at = ? WHERE id = ?`,
		errorText(cause), string(RunStatusFailed), s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

const sqliteRunColumns = `id, aoi, plot_id, image_version, status, report, error, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.AOI != "" {
		query += ` AND aoi = ?`
		args = append(args, filter.AOI)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) GetSamples(ctx context.Context, keys []string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))
	now := s.now().Unix()

	for start := 0; start < len(keys); start += sqliteMaxVars {
		chunk := keys[start:min(start+sqliteMaxVars, len(keys))]
		args := make([]any, 0, len(chunk)+1)
		args = append(args, now)
		for _, k := range chunk {
			args = append(args, k)
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT key, value FROM raster_samples WHERE expires_at > ? AND key IN (`+placeholders(len(chunk))+`)`,
			args...,
		)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: get samples")
		}
		for rows.Next() {
			var k string
			var v float64
			if err := rows.Scan(&k, &v); err != nil {
				_ = rows.Close()
				return nil, eris.Wrap(err, "sqlite: scan sample")
			}
			out[k] = v
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: get samples iterate")
		}
	}
	return out, nil
}

func (s *SQLiteStore) PutSamples(ctx context.Context, values map[string]float64, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	now := s.now()
	expires := now.Add(ttl).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin put samples")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO raster_samples (key, value, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare put samples")
	}
	defer stmt.Close() //nolint:errcheck

	for k, v := range values {
		if _, err := stmt.ExecContext(ctx, k, v, now.Unix(), expires); err != nil {
			return eris.Wrapf(err, "sqlite: put sample %s", k)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit put samples")
}

func (s *SQLiteStore) DeleteExpiredSamples(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM raster_samples WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired samples")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var status string
	var report, errText sql.NullString

	err := row.Scan(&r.ID, &r.AOI, &r.PlotID, &r.ImageVersion, &status, &report, &errText, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Status = RunStatus(status)
	if report.Valid {
		r.Report = []byte(report.String)
	}
	r.Error = errText.String
	return &r, nil
}
