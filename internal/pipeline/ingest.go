package pipeline

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/canon"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/jsonwalk"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

// Container keys fixed by the document format.
const (
	optionsKey  = "scenarioOptions"
	selectedKey = "selectedScenarioOption"
)

// ingest validates the document shape, captures locked-field hashes, and
// resolves the scenario selection. Every failure here is structural: the
// pipeline goes straight to finalize without calling generation.
func (c *Controller) ingest(state *model.WorkflowState) (string, error) {
	container, ok := state.Input[c.policy.ContainerKey].(map[string]any)
	if !ok {
		return "", c.structural(state, fmt.Sprintf("missing %q container at document root", c.policy.ContainerKey))
	}

	state.LockedFieldHashes = make(map[string]string, len(state.LockedFields))
	for _, field := range state.LockedFields {
		value, present := container[field]
		if !present {
			return "", c.structural(state, fmt.Sprintf("locked field %q missing from input", field))
		}
		digest, err := canon.Hash(value)
		if err != nil {
			return "", c.structural(state, fmt.Sprintf("hash locked field %q: %v", field, err))
		}
		state.LockedFieldHashes[field] = digest
	}

	rawOptions, _ := container[optionsKey].([]any)
	options := make([]string, 0, len(rawOptions))
	for _, opt := range rawOptions {
		if s, isString := opt.(string); isString {
			options = append(options, s)
		}
	}
	if len(options) == 0 {
		return "", c.structural(state, "no scenario options in input")
	}
	state.ScenarioOptions = options

	current, _ := container[selectedKey].(string)
	state.CurrentScenarioText = current

	selected, err := resolveSelector(state.Selector, options)
	if err != nil {
		return "", c.structural(state, err.Error())
	}
	state.SelectedScenarioText = selected

	state.RetryCount = 0
	state.FinalStatus = model.StatusPending

	return fmt.Sprintf("ingested document with %d locked fields and %d scenario options",
		len(state.LockedFields), len(options)), nil
}

// Scenarios lists the scenario options found in a document and which one is
// currently selected.
func Scenarios(doc map[string]any, containerKey string) (*model.ScenarioList, error) {
	container, ok := doc[containerKey].(map[string]any)
	if !ok {
		return nil, eris.Errorf("pipeline: missing %q container at document root", containerKey)
	}

	rawOptions, _ := container[optionsKey].([]any)
	options := make([]string, 0, len(rawOptions))
	for _, opt := range rawOptions {
		if s, isString := opt.(string); isString {
			options = append(options, s)
		}
	}
	current, _ := container[selectedKey].(string)

	return &model.ScenarioList{
		Total:           len(options),
		CurrentScenario: current,
		Scenarios:       options,
	}, nil
}

// structural records a fatal ingest error on the state and returns it.
func (c *Controller) structural(state *model.WorkflowState, msg string) error {
	state.AppendError(model.ValidationError{Stage: string(StageIngest), Error: msg})
	state.FinalStatus = model.StatusFail
	return eris.New("pipeline: " + msg)
}

// resolveSelector matches the requested scenario against the option list.
// Integer selectors are bounds-checked; text selectors match exact first and
// substring second, both case-insensitive, first match in list order winning.
func resolveSelector(sel model.ScenarioSelector, options []string) (string, error) {
	if sel.ByIndex {
		if sel.Index < 0 || sel.Index >= len(options) {
			return "", eris.Errorf("scenario index %d out of range for %d options", sel.Index, len(options))
		}
		return options[sel.Index], nil
	}

	want := jsonwalk.Fold(strings.TrimSpace(sel.Text))
	if want == "" {
		return "", eris.New("empty scenario selector")
	}
	for _, opt := range options {
		if jsonwalk.Fold(opt) == want {
			return opt, nil
		}
	}
	for _, opt := range options {
		if strings.Contains(jsonwalk.Fold(opt), want) {
			return opt, nil
		}
	}
	return "", eris.Errorf("no scenario option matches %q", sel.Text)
}
