// Package model defines the records shared across the pipeline, the store,
// and the transport layer: the per-request workflow state, stage audit logs,
// validation reports, and persisted run summaries.
package model

import (
	"time"
)

// Status is the overall outcome of a transformation.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusOK      Status = "OK"
	StatusFail    Status = "FAIL"
)

// StageStatus is the outcome of a single pipeline stage execution.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// StageLog is one entry in the append-only stage audit trail.
type StageLog struct {
	Timestamp  time.Time      `json:"timestamp"`
	Stage      string         `json:"stage"`
	Status     StageStatus    `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ValidationError is a structured pipeline error surfaced in reports.
// Field is set for locked-field integrity violations, Stage for stage-level
// failures.
type ValidationError struct {
	Field        string `json:"field,omitempty"`
	Stage        string `json:"stage,omitempty"`
	Error        string `json:"error"`
	ExpectedHash string `json:"expected_hash,omitempty"`
	ActualHash   string `json:"actual_hash,omitempty"`
}

// GenerationStats accumulates backend usage over a transformation,
// including retried attempts.
type GenerationStats struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
	APICalls     int64 `json:"api_calls"`
}

// WorkflowState is the single mutable record threaded through the pipeline.
// Each stage only adds or overwrites its own fields; the input document is
// never mutated in place. The record lives for one request and has one
// writer at any instant.
type WorkflowState struct {
	Input    map[string]any
	Selector ScenarioSelector

	// Set at ingest.
	LockedFields         []string
	LockedFieldHashes    map[string]string
	ScenarioOptions      []string
	CurrentScenarioText  string
	SelectedScenarioText string

	// Set at analysis.
	EntityMap      map[string]string
	CandidatePaths []string

	// Set at transform; nil until generation succeeds.
	Transformed map[string]any

	ConsistencyScore float64
	ChangedPaths     []string
	ValidationErrors []ValidationError
	RetryCount       int
	StageLogs        []StageLog
	FinalStatus      Status
	RuntimeMS        int64
	Stats            GenerationStats
}

// AppendStageLog records a stage execution on the audit trail.
func (s *WorkflowState) AppendStageLog(entry StageLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.StageLogs = append(s.StageLogs, entry)
}

// AppendError records a structured validation error.
func (s *WorkflowState) AppendError(e ValidationError) {
	s.ValidationErrors = append(s.ValidationErrors, e)
}
