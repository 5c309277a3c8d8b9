package pipeline

import (
	"fmt"
	"strings"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/entity"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// analyze decides between the short-circuit and a real transformation. When
// the selected scenario is already the current one the input passes through
// untouched; otherwise the entity map is built from the two scenario texts.
func (c *Controller) analyze(state *model.WorkflowState) (string, error) {
	current := strings.TrimSpace(state.CurrentScenarioText)
	selected := strings.TrimSpace(state.SelectedScenarioText)

	if current == selected {
		state.FinalStatus = model.StatusOK
		state.Transformed = state.Input
		state.EntityMap = map[string]string{}
		// Vacuously consistent: nothing was (or needed to be) rewritten.
		state.ConsistencyScore = 1.0
		return "same scenario selected; transformation not needed", nil
	}

	currentEntities := entity.Extract(state.CurrentScenarioText)
	targetEntities := entity.Extract(state.SelectedScenarioText)
	state.EntityMap = entity.BuildMap(currentEntities, targetEntities)
	state.CandidatePaths = c.policy.CandidatePaths

	if len(state.EntityMap) == 0 {
		// Degraded mode: generation proceeds without mapping guidance and
		// the consistency check becomes vacuous.
		state.AppendError(model.ValidationError{
			Stage: string(StageAnalyze),
			Error: "entity extraction produced no mappings",
		})
		return "no entities mapped; continuing without guidance", nil
	}

	return fmt.Sprintf("mapped %d entities across %d candidate paths",
		len(state.EntityMap), len(state.CandidatePaths)), nil
}
