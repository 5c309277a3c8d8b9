package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// SQLiteStore implements Store on an embedded database via modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are always written from Go in UTC so ordering and range
// predicates stay within one representation.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	scenario          TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'running',
	final_status      TEXT,
	consistency_score REAL NOT NULL DEFAULT 0,
	retries           INTEGER NOT NULL DEFAULT 0,
	runtime_ms        INTEGER NOT NULL DEFAULT 0,
	changed_paths     INTEGER NOT NULL DEFAULT 0,
	report            TEXT,
	error             TEXT,
	created_at        DATETIME NOT NULL,
	updated_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_final_status ON runs(final_status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, scenario string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, scenario, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Scenario:  scenario,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *model.Run) error {
	var reportParam any
	if run.Report != nil {
		reportJSON, err := json.Marshal(run.Report)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal report")
		}
		reportParam = string(reportJSON)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, final_status = ?, consistency_score = ?, retries = ?,
		 runtime_ms = ?, changed_paths = ?, report = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		string(run.Status), string(run.FinalStatus), run.ConsistencyScore, run.Retries,
		run.RuntimeMS, run.ChangedPathCount, reportParam, run.Error, time.Now().UTC(),
		run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", run.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: finish run %s", run.ID)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scenario, status, final_status, consistency_score, retries,
		 runtime_ms, changed_paths, report, error, created_at, updated_at
		 FROM runs WHERE id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, scenario, status, final_status, consistency_score, retries,
	 runtime_ms, changed_paths, report, error, created_at, updated_at
	 FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.FinalStatus != "" {
		query += ` AND final_status = ?`
		args = append(args, string(filter.FinalStatus))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		 COALESCE(SUM(CASE WHEN status = 'complete' THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN final_status = 'OK' THEN 1 ELSE 0 END), 0),
		 COALESCE(SUM(CASE WHEN final_status = 'FAIL' THEN 1 ELSE 0 END), 0),
		 COALESCE(AVG(consistency_score), 0),
		 COALESCE(AVG(runtime_ms), 0),
		 COALESCE(AVG(retries), 0)
		 FROM runs WHERE created_at >= ?`,
		since.UTC(),
	)

	var stats model.RunStats
	err := row.Scan(&stats.Total, &stats.Complete, &stats.Failed,
		&stats.FinalOK, &stats.FinalFail,
		&stats.AvgScore, &stats.AvgRuntimeMS, &stats.AvgRetries)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: run stats")
	}
	return &stats, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var finalStatus, reportJSON, errMsg sql.NullString

	err := row.Scan(&r.ID, &r.Scenario, &r.Status, &finalStatus, &r.ConsistencyScore,
		&r.Retries, &r.RuntimeMS, &r.ChangedPathCount, &reportJSON, &errMsg,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	r.FinalStatus = model.Status(finalStatus.String)
	r.Error = errMsg.String
	if reportJSON.Valid && reportJSON.String != "" {
		r.Report = &model.ValidationReport{}
		if err := json.Unmarshal([]byte(reportJSON.String), r.Report); err != nil {
			return nil, eris.Wrap(err, "unmarshal report")
		}
	}
	return &r, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}
