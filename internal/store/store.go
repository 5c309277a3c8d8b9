// Package store persists transformation run summaries. Two backends are
// provided: an embedded sqlite database (default) and postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// ErrNotFound reports a run ID with no corresponding row. Handlers map it to
// a 404 via errors.Is.
var ErrNotFound = eris.New("run not found")

// Store records one row per transformation run and serves history queries.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, scenario string) (*model.Run, error)
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	Stats(ctx context.Context, since time.Time) (*model.RunStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// RunFilter narrows ListRuns results. Zero values mean "any".
type RunFilter struct {
	Status      model.RunStatus
	FinalStatus model.Status
	Since       time.Time
	Limit       int
}

// New constructs the configured store backend.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(ctx, cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
