package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/db"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

const (
	insertRunSQL = `INSERT INTO runs (id, scenario, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	finishRunSQL = `UPDATE runs SET status = $1, final_status = $2, consistency_score = $3, retries = $4,
	 runtime_ms = $5, changed_paths = $6, report = $7, error = $8, updated_at = $9
	 WHERE id = $10`
	getRunSQL = `SELECT id, scenario, status, final_status, consistency_score, retries,
	 runtime_ms, changed_paths, report, error, created_at, updated_at
	 FROM runs WHERE id = $1`
	runStatsSQL = `SELECT COUNT(*),
	 COUNT(*) FILTER (WHERE status = 'complete'),
	 COUNT(*) FILTER (WHERE status = 'failed'),
	 COUNT(*) FILTER (WHERE final_status = 'OK'),
	 COUNT(*) FILTER (WHERE final_status = 'FAIL'),
	 COALESCE(AVG(consistency_score), 0)::float8,
	 COALESCE(AVG(runtime_ms), 0)::float8,
	 COALESCE(AVG(retries), 0)::float8
	 FROM runs WHERE created_at >= $1`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"insert_run": insertRunSQL,
	"finish_run": finishRunSQL,
	"get_run":    getRunSQL,
	"run_stats":  runStatsSQL,
}

// NewPostgres creates a PostgresStore with a connection pool. The initial
// connect is retried because the database may still be coming up when the
// service starts.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	if cfg.MaxConns > 0 {
		maxConns = int32(cfg.MaxConns)
	}
	minConns := int32(2)
	if minConns > maxConns {
		minConns = maxConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("postgres", "connect")
	pool, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pool, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	scenario          TEXT NOT NULL,
	status            TEXT NOT NULL DEFAULT 'running',
	final_status      TEXT,
	consistency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	retries           INTEGER NOT NULL DEFAULT 0,
	runtime_ms        BIGINT NOT NULL DEFAULT 0,
	changed_paths     INTEGER NOT NULL DEFAULT 0,
	report            JSONB,
	error             TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_final_status ON runs(final_status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, scenario string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, insertRunSQL,
		id, scenario, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Scenario:  scenario,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	var reportJSON []byte
	if run.Report != nil {
		var err error
		reportJSON, err = json.Marshal(run.Report)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal report")
		}
	}

	tag, err := s.pool.Exec(ctx, finishRunSQL,
		string(run.Status), string(run.FinalStatus), run.ConsistencyScore, run.Retries,
		run.RuntimeMS, run.ChangedPathCount, reportJSON, run.Error, time.Now().UTC(),
		run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: finish run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	run, err := scanPostgresRun(s.pool.QueryRow(ctx, getRunSQL, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, scenario, status, final_status, consistency_score, retries,
	 runtime_ms, changed_paths, report, error, created_at, updated_at
	 FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.FinalStatus != "" {
		query += fmt.Sprintf(` AND final_status = $%d`, argIdx)
		args = append(args, string(filter.FinalStatus))
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, normalizeLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) Stats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	var stats model.RunStats
	err := s.pool.QueryRow(ctx, runStatsSQL, since.UTC()).Scan(
		&stats.Total, &stats.Complete, &stats.Failed,
		&stats.FinalOK, &stats.FinalFail,
		&stats.AvgScore, &stats.AvgRuntimeMS, &stats.AvgRetries)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: run stats")
	}
	return &stats, nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var finalStatus, errMsg *string
	var reportJSON *[]byte

	err := row.Scan(&r.ID, &r.Scenario, &r.Status, &finalStatus, &r.ConsistencyScore,
		&r.Retries, &r.RuntimeMS, &r.ChangedPathCount, &reportJSON, &errMsg,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if finalStatus != nil {
		r.FinalStatus = model.Status(*finalStatus)
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	if reportJSON != nil {
		r.Report = &model.ValidationReport{}
		if err := json.Unmarshal(*reportJSON, r.Report); err != nil {
			return nil, eris.Wrap(err, "unmarshal report")
		}
	}
	return &r, nil
}
