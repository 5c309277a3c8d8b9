package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/jsonwalk"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// checkConsistency scores how much old-scenario vocabulary leaked into the
// transformed document. Keywords are the entity map's old tokens; locked
// fields are excluded from the scan. An empty keyword list scores a vacuous
// 1.0; a missing transformed document scores 0 and fails the stage.
func (c *Controller) checkConsistency(state *model.WorkflowState) (string, error) {
	if state.Transformed == nil {
		state.ConsistencyScore = 0
		return "", eris.New("pipeline: no transformed document to score")
	}

	keywords := entityKeywords(state.EntityMap)
	hits := jsonwalk.FindKeywords(state.Transformed, keywords, state.LockedFields)

	total := math.Max(float64(len(keywords)), 1)
	state.ConsistencyScore = math.Max(0, 1-float64(len(hits))/total)

	return fmt.Sprintf("score %.2f from %d hits across %d keywords",
		state.ConsistencyScore, len(hits), len(keywords)), nil
}

// entityKeywords returns the old-context tokens in deterministic order.
func entityKeywords(entityMap map[string]string) []string {
	keywords := make([]string, 0, len(entityMap))
	for old := range entityMap {
		keywords = append(keywords, old)
	}
	sort.Strings(keywords)
	return keywords
}
