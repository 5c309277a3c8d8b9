package pipeline

// Stage identifies one step of the transformation pipeline.
type Stage string

const (
	StageIngest      Stage = "ingest"
	StageAnalyze     Stage = "analyze"
	StageTransform   Stage = "transform"
	StageConsistency Stage = "check_consistency"
	StageValidate    Stage = "validate"
	StageFinalize    Stage = "finalize"
)

// transitions is the allowed state machine. Structural failures at ingest and
// the analysis short-circuit jump straight to finalize; the transform loop
// runs through the consistency check until the score passes or retries run
// out; validation is terminal either way.
var transitions = map[Stage][]Stage{
	StageIngest:      {StageAnalyze, StageFinalize},
	StageAnalyze:     {StageTransform, StageFinalize},
	StageTransform:   {StageConsistency},
	StageConsistency: {StageTransform, StageValidate},
	StageValidate:    {StageFinalize},
	StageFinalize:    {},
}

// CanTransition reports whether the state machine allows moving between the
// two stages.
func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
