package pipeline

import (
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/jsonwalk"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// Report assembles the validation report for a finished state. The keyword
// scan is recomputed over the final document so the report reflects what is
// actually being returned, not an intermediate attempt.
func Report(state *model.WorkflowState) *model.ValidationReport {
	lockedSet := make(map[string]bool, len(state.LockedFields))
	for _, field := range state.LockedFields {
		lockedSet[field] = true
	}
	compliance := true
	for _, ve := range state.ValidationErrors {
		if ve.Field != "" && lockedSet[ve.Field] {
			compliance = false
			break
		}
	}

	doc := state.Transformed
	if doc == nil {
		doc = map[string]any{}
	}
	hits := jsonwalk.FindKeywords(doc, entityKeywords(state.EntityMap), state.LockedFields)
	if hits == nil {
		hits = []jsonwalk.KeywordHit{}
	}

	hashes := state.LockedFieldHashes
	if hashes == nil {
		hashes = map[string]string{}
	}
	changed := state.ChangedPaths
	if changed == nil {
		changed = []string{}
	}

	return &model.ValidationReport{
		SchemaPass:               state.FinalStatus == model.StatusOK,
		LockedFieldsCompliance:   compliance,
		LockedFieldHashes:        hashes,
		ChangedPaths:             changed,
		ScenarioConsistencyScore: state.ConsistencyScore,
		OldScenarioKeywordsFound: hits,
		RuntimeMS:                state.RuntimeMS,
		Retries:                  state.RetryCount,
		GenerationStats:          state.Stats,
		FinalStatus:              state.FinalStatus,
	}
}

// Response assembles the wire response for a finished state. The output
// document falls back to the input when no transform was produced.
func Response(state *model.WorkflowState) model.TransformResponse {
	output := state.Transformed
	if output == nil {
		output = state.Input
	}
	return model.TransformResponse{
		OutputJSON:       output,
		ValidationReport: *Report(state),
		ExecutionTimeMS:  state.RuntimeMS,
	}
}
