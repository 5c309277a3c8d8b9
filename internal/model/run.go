package model

import "time"

// RunStatus is the lifecycle state of a persisted transformation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is the persisted summary of one transformation request.
type Run struct {
	ID               string            `json:"id"`
	Scenario         string            `json:"scenario"`
	Status           RunStatus         `json:"status"`
	FinalStatus      Status            `json:"final_status,omitempty"`
	ConsistencyScore float64           `json:"consistency_score"`
	Retries          int               `json:"retries"`
	RuntimeMS        int64             `json:"runtime_ms"`
	ChangedPathCount int               `json:"changed_path_count"`
	Report           *ValidationReport `json:"report,omitempty"`
	Error            string            `json:"error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// RunStats aggregates run history for monitoring and the stats command.
type RunStats struct {
	Total        int64   `json:"total"`
	Complete     int64   `json:"complete"`
	Failed       int64   `json:"failed"`
	FinalOK      int64   `json:"final_ok"`
	FinalFail    int64   `json:"final_fail"`
	AvgScore     float64 `json:"avg_score"`
	AvgRuntimeMS float64 `json:"avg_runtime_ms"`
	AvgRetries   float64 `json:"avg_retries"`
}

// FailureRate is the fraction of finished runs that did not end with an OK
// report: pipeline errors and FAIL statuses both count.
func (s RunStats) FailureRate() float64 {
	finished := s.Complete + s.Failed
	if finished == 0 {
		return 0
	}
	return float64(finished-s.FinalOK) / float64(finished)
}
