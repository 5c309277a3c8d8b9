package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/canon"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/jsonwalk"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// validate recomputes locked-field hashes against the stored originals and
// settles the final status. Integrity violations force FAIL regardless of
// the consistency score; otherwise the score decides against the threshold.
func (c *Controller) validate(state *model.WorkflowState) (string, error) {
	if state.Transformed == nil {
		state.FinalStatus = model.StatusFail
		state.AppendError(model.ValidationError{
			Stage: string(StageValidate),
			Error: "no transformed document to validate",
		})
		return "", eris.New("pipeline: no transformed document to validate")
	}

	container, _ := state.Transformed[c.policy.ContainerKey].(map[string]any)
	mismatches := 0
	for _, field := range state.LockedFields {
		value, present := container[field]
		if !present {
			continue
		}
		digest, err := canon.Hash(value)
		if err != nil {
			mismatches++
			state.AppendError(model.ValidationError{
				Field: field,
				Stage: string(StageValidate),
				Error: fmt.Sprintf("hash locked field: %v", err),
			})
			continue
		}
		if expected := state.LockedFieldHashes[field]; digest != expected {
			mismatches++
			state.AppendError(model.ValidationError{
				Field:        field,
				Stage:        string(StageValidate),
				Error:        "locked field hash mismatch",
				ExpectedHash: expected,
				ActualHash:   digest,
			})
		}
	}

	state.ChangedPaths = jsonwalk.Diff(state.Input, state.Transformed)

	if mismatches > 0 {
		state.FinalStatus = model.StatusFail
		return fmt.Sprintf("%d locked field violations, %d changed paths",
			mismatches, len(state.ChangedPaths)), nil
	}

	if state.ConsistencyScore >= c.cfg.Transform.ConsistencyThreshold {
		state.FinalStatus = model.StatusOK
	} else {
		state.FinalStatus = model.StatusFail
	}
	return fmt.Sprintf("locked fields intact, score %.2f against threshold %.2f, %d changed paths",
		state.ConsistencyScore, c.cfg.Transform.ConsistencyThreshold, len(state.ChangedPaths)), nil
}

// ValidateDocuments checks an original/transformed pair without running the
// pipeline: locked-field hashes, structural diff, and a pass/fail status.
// Fields absent from the original are ignored; fields present in the
// original but absent from the transformed document are not violations.
func ValidateDocuments(original, transformed map[string]any, containerKey string, lockedFields []string) (*model.ValidationReport, error) {
	origContainer, ok := original[containerKey].(map[string]any)
	if !ok {
		return nil, eris.Errorf("pipeline: missing %q container in original document", containerKey)
	}
	transContainer, _ := transformed[containerKey].(map[string]any)

	hashes := make(map[string]string, len(lockedFields))
	compliance := true
	for _, field := range lockedFields {
		originalValue, present := origContainer[field]
		if !present {
			continue
		}
		digest, err := canon.Hash(originalValue)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: hash locked field %q", field)
		}
		hashes[field] = digest

		transformedValue, present := transContainer[field]
		if !present {
			continue
		}
		actual, err := canon.Hash(transformedValue)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: hash locked field %q", field)
		}
		if actual != digest {
			compliance = false
		}
	}

	report := &model.ValidationReport{
		SchemaPass:               true,
		LockedFieldsCompliance:   compliance,
		LockedFieldHashes:        hashes,
		ChangedPaths:             jsonwalk.Diff(original, transformed),
		OldScenarioKeywordsFound: []jsonwalk.KeywordHit{},
		FinalStatus:              model.StatusOK,
	}
	if compliance {
		report.ScenarioConsistencyScore = 1.0
	} else {
		report.FinalStatus = model.StatusFail
	}
	if report.ChangedPaths == nil {
		report.ChangedPaths = []string{}
	}
	return report, nil
}
