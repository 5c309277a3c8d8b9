package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
)

func promptState() *model.WorkflowState {
	return &model.WorkflowState{
		Input:                sampleDocument(),
		LockedFields:         testPolicy().LockedFields,
		CurrentScenarioText:  currentScenario,
		SelectedScenarioText: targetScenario,
		EntityMap: map[string]string{
			"HarvestBowls": "StyleHub",
			"Nature":       "TrendMart",
		},
	}
}

func TestSystemPrompt(t *testing.T) {
	ctrl := newTestController(&mockGenerator{})
	prompt := ctrl.systemPrompt(promptState())

	assert.Contains(t, prompt, "NEVER modify these locked fields")
	for _, field := range testPolicy().LockedFields {
		assert.Contains(t, prompt, "   - "+field+"\n")
	}
	assert.Contains(t, prompt, `"HarvestBowls": "StyleHub"`)
	assert.Contains(t, prompt, `"Nature": "TrendMart"`)
	assert.Contains(t, prompt, "Output ONLY valid JSON matching the input structure.")
}

func TestUserPrompt(t *testing.T) {
	ctrl := newTestController(&mockGenerator{})
	prompt := ctrl.userPrompt(promptState())

	assert.Contains(t, prompt, "CURRENT: "+currentScenario+"...")
	assert.Contains(t, prompt, "TARGET: "+targetScenario+"...")
	assert.Contains(t, prompt, `"HarvestBowls": "StyleHub"`)
	assert.True(t, strings.HasSuffix(prompt, "Return COMPLETE topicWizardData as JSON."))

	// Only unlocked container fields are offered for transformation.
	assert.Contains(t, prompt, `"simulationName"`)
	assert.Contains(t, prompt, `"lessonInformation"`)
	assert.Contains(t, prompt, `"workplaceScenario"`)
	assert.NotContains(t, prompt, `"assessmentCriterion"`)
	assert.NotContains(t, prompt, `"industryAlignedActivities"`)
}

func TestUserPrompt_TruncatesScenarioExcerpts(t *testing.T) {
	state := promptState()
	state.CurrentScenarioText = strings.Repeat("a", 250)

	ctrl := newTestController(&mockGenerator{})
	prompt := ctrl.userPrompt(state)

	assert.Contains(t, prompt, "CURRENT: "+strings.Repeat("a", 200)+"...")
	assert.NotContains(t, prompt, strings.Repeat("a", 201))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 200))
	assert.Equal(t, strings.Repeat("x", 200), excerpt(strings.Repeat("x", 205), 200))
	// Truncation counts runes, not bytes.
	assert.Equal(t, strings.Repeat("é", 3), excerpt(strings.Repeat("é", 10), 3))
}

func TestRestoreLocked_WrappedDocument(t *testing.T) {
	input := sampleDocument()
	doc := map[string]any{
		"topicWizardData": map[string]any{
			"simulationName":  "StyleHub Market Response",
			"scenarioOptions": []any{"rewritten"},
		},
	}

	out := restoreLocked(doc, input, "topicWizardData", testPolicy().LockedFields)
	container, ok := out["topicWizardData"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "StyleHub Market Response", container["simulationName"])
	assert.Equal(t, []any{currentScenario, targetScenario, thirdScenario}, container["scenarioOptions"])
	assert.Equal(t, "Recommendation quality", container["selectedAssessmentCriterion"])
	assert.Contains(t, container, "industryAlignedActivities")
}

func TestRestoreLocked_RewrapsBareContents(t *testing.T) {
	input := sampleDocument()
	doc := map[string]any{
		"simulationName": "StyleHub Market Response",
	}

	out := restoreLocked(doc, input, "topicWizardData", testPolicy().LockedFields)
	container, ok := out["topicWizardData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "StyleHub Market Response", container["simulationName"])
	assert.Equal(t, []any{currentScenario, targetScenario, thirdScenario}, container["scenarioOptions"])
}

func TestRestoreLocked_CopiesLockedValues(t *testing.T) {
	input := sampleDocument()
	doc := map[string]any{"topicWizardData": map[string]any{}}

	out := restoreLocked(doc, input, "topicWizardData", []string{"scenarioOptions"})
	restored := out["topicWizardData"].(map[string]any)["scenarioOptions"].([]any)
	restored[0] = "mutated after restore"

	original := input["topicWizardData"].(map[string]any)["scenarioOptions"].([]any)
	assert.Equal(t, currentScenario, original[0])
}
