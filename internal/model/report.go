package model

import (
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/jsonwalk"
)

// ValidationReport is the structured result attached to every
// transformation and standalone validation.
type ValidationReport struct {
	SchemaPass               bool               `json:"schema_pass"`
	LockedFieldsCompliance   bool               `json:"locked_fields_compliance"`
	LockedFieldHashes        map[string]string  `json:"locked_field_hashes"`
	ChangedPaths             []string           `json:"changed_paths"`
	ScenarioConsistencyScore float64            `json:"scenario_consistency_score"`
	OldScenarioKeywordsFound []jsonwalk.KeywordHit `json:"old_scenario_keywords_found"`
	RuntimeMS                int64              `json:"runtime_ms"`
	Retries                  int                `json:"retries"`
	GenerationStats          GenerationStats    `json:"generation_stats"`
	FinalStatus              Status             `json:"final_status"`
}

// TransformRequest asks for a document to be re-contextualized to the
// selected scenario. LockedFields optionally overrides the configured list.
type TransformRequest struct {
	InputJSON        map[string]any   `json:"input_json"`
	SelectedScenario ScenarioSelector `json:"selected_scenario"`
	LockedFields     []string         `json:"locked_fields,omitempty"`
}

// TransformResponse carries the output document and its report.
type TransformResponse struct {
	OutputJSON       map[string]any   `json:"output_json"`
	ValidationReport ValidationReport `json:"validation_report"`
	ExecutionTimeMS  int64            `json:"execution_time_ms"`
}

// ValidateRequest asks for an original/transformed pair to be checked
// without invoking generation.
type ValidateRequest struct {
	OriginalJSON    map[string]any `json:"original_json"`
	TransformedJSON map[string]any `json:"transformed_json"`
	LockedFields    []string       `json:"locked_fields,omitempty"`
}

// ScenarioList enumerates the options found in a document.
type ScenarioList struct {
	Total           int      `json:"total"`
	CurrentScenario string   `json:"current_scenario"`
	Scenarios       []string `json:"scenarios"`
}

// HealthResponse reports service and collaborator liveness.
type HealthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	StoreConnected   bool   `json:"store_connected"`
	BackendConnected bool   `json:"backend_connected"`
}
