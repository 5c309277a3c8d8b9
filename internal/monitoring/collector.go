// Package monitoring watches run history and raises webhook alerts when
// transformation quality degrades.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal    int64   `json:"runs_total"`
	RunsComplete int64   `json:"runs_complete"`
	RunsFailed   int64   `json:"runs_failed"`
	RunsRunning  int64   `json:"runs_running"`
	FinalOK      int64   `json:"final_ok"`
	FinalFail    int64   `json:"final_fail"`
	FailureRate  float64 `json:"failure_rate"`
	AvgScore     float64 `json:"avg_score"`
	AvgRuntimeMS float64 `json:"avg_runtime_ms"`
	AvgRetries   float64 `json:"avg_retries"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect aggregates run history over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	stats, err := c.store.Stats(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: run stats")
	}

	return &MetricsSnapshot{
		RunsTotal:     stats.Total,
		RunsComplete:  stats.Complete,
		RunsFailed:    stats.Failed,
		RunsRunning:   stats.Total - stats.Complete - stats.Failed,
		FinalOK:       stats.FinalOK,
		FinalFail:     stats.FinalFail,
		FailureRate:   stats.FailureRate(),
		AvgScore:      stats.AvgScore,
		AvgRuntimeMS:  stats.AvgRuntimeMS,
		AvgRetries:    stats.AvgRetries,
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}, nil
}
