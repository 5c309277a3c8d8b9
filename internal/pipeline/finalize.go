package pipeline

import (
	"fmt"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// finalize aggregates stage durations into the total runtime and snapshots
// generation usage for this run. A status still pending here means the
// pipeline never reached a verdict, which counts as FAIL.
func (c *Controller) finalize(state *model.WorkflowState, env *runEnv) (string, error) {
	var total int64
	for _, entry := range state.StageLogs {
		total += entry.DurationMS
	}
	state.RuntimeMS = total

	if state.FinalStatus == model.StatusPending {
		state.FinalStatus = model.StatusFail
	}

	if c.gen != nil {
		current := c.gen.Stats()
		state.Stats = model.GenerationStats{
			InputTokens:  current.InputTokens - env.baseline.InputTokens,
			OutputTokens: current.OutputTokens - env.baseline.OutputTokens,
			APICalls:     current.APICalls - env.baseline.APICalls,
		}
		state.Stats.TotalTokens = state.Stats.InputTokens + state.Stats.OutputTokens
	}

	return fmt.Sprintf("final status %s after %d retries in %dms",
		state.FinalStatus, state.RetryCount, state.RuntimeMS), nil
}
