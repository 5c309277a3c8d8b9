package jsonwalk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc() map[string]any {
	return map[string]any{
		"topicWizardData": map[string]any{
			"simulationName": "Fresh Bites Expansion",
			"scenarioOptions": []any{
				"HarvestBowls faces a price war",
				"StyleHub faces a discount battle",
			},
			"workplaceScenario": map[string]any{
				"background": map[string]any{
					"organizationName": "HarvestBowls",
				},
			},
		},
	}
}

func TestDiff_EqualTrees(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()
	assert.Empty(t, Diff(a, b))
}

func TestDiff_ValueChange(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()
	b["topicWizardData"].(map[string]any)["simulationName"] = "StyleHub Expansion"

	assert.Equal(t, []string{"topicWizardData.simulationName"}, Diff(a, b))
}

func TestDiff_AddedAndRemovedKeys(t *testing.T) {
	a := map[string]any{"keep": 1.0, "removed": "x"}
	b := map[string]any{"keep": 1.0, "added": "y"}

	assert.Equal(t, []string{"added", "removed"}, Diff(a, b))
}

func TestDiff_ArrayLengthAndElementChange(t *testing.T) {
	a := map[string]any{"items": []any{"a", "b", "c"}}
	b := map[string]any{"items": []any{"a", "B"}}

	// items[1] differs in value, items[2] only exists on one side.
	assert.Equal(t, []string{"items[1]", "items[2]"}, Diff(a, b))
}

func TestDiff_TypeChange(t *testing.T) {
	a := map[string]any{"v": map[string]any{"inner": 1.0}}
	b := map[string]any{"v": "now a string"}

	assert.Equal(t, []string{"v"}, Diff(a, b))
}

func TestDiff_RootTypeChange(t *testing.T) {
	assert.Equal(t, []string{"."}, Diff(map[string]any{"a": 1.0}, []any{"a"}))
}

func TestDiff_DeterministicKeyOrder(t *testing.T) {
	a := map[string]any{"z": 1.0, "a": 1.0, "m": 1.0}
	b := map[string]any{"z": 2.0, "a": 2.0, "m": 2.0}

	assert.Equal(t, []string{"a", "m", "z"}, Diff(a, b))
}

func TestDeepEqual_NumericKinds(t *testing.T) {
	assert.True(t, DeepEqual(map[string]any{"n": 1}, map[string]any{"n": 1.0}))
	assert.False(t, DeepEqual(map[string]any{"n": 1}, map[string]any{"n": "1"}))
}

func TestDeepCopy_Isolation(t *testing.T) {
	original := sampleDoc()
	clone := DeepCopy(original).(map[string]any)

	clone["topicWizardData"].(map[string]any)["simulationName"] = "mutated"
	clone["topicWizardData"].(map[string]any)["scenarioOptions"].([]any)[0] = "mutated"

	assert.Equal(t, "Fresh Bites Expansion", original["topicWizardData"].(map[string]any)["simulationName"])
	assert.Equal(t, "HarvestBowls faces a price war", original["topicWizardData"].(map[string]any)["scenarioOptions"].([]any)[0])
	assert.Empty(t, Diff(sampleDoc(), original))
}

func TestFindKeywords_CaseInsensitiveHit(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"text": "Customers abandoned HARVESTBOWLS last month"},
	}

	hits := FindKeywords(doc, []string{"HarvestBowls"}, nil)
	require.Len(t, hits, 1)
	assert.Equal(t, "a.text", hits[0].Path)
	assert.Equal(t, "HarvestBowls", hits[0].Keyword)
	assert.Equal(t, "Customers abandoned HARVESTBOWLS last month", hits[0].Context)
}

func TestFindKeywords_ExcludesSubtreeByFieldName(t *testing.T) {
	doc := sampleDoc()

	// "HarvestBowls" appears both inside scenarioOptions and in the
	// workplace background; only the latter should be reported.
	hits := FindKeywords(doc, []string{"HarvestBowls"}, []string{"scenarioOptions"})
	require.Len(t, hits, 1)
	assert.Equal(t, "topicWizardData.workplaceScenario.background.organizationName", hits[0].Path)
}

func TestFindKeywords_EmptyKeywordList(t *testing.T) {
	assert.Nil(t, FindKeywords(sampleDoc(), nil, nil))
}

func TestFindKeywords_TruncatesLongContext(t *testing.T) {
	long := make([]rune, 0, 150)
	for i := 0; i < 150; i++ {
		long = append(long, 'x')
	}
	doc := map[string]any{"text": "target " + string(long)}

	hits := FindKeywords(doc, []string{"target"}, nil)
	require.Len(t, hits, 1)
	assert.Len(t, []rune(hits[0].Context), contextRunes+3)
	assert.Contains(t, hits[0].Context, "...")
}

func TestGetPath_NestedWithIndices(t *testing.T) {
	doc := sampleDoc()

	v, ok := GetPath(doc, "topicWizardData.scenarioOptions[1]")
	require.True(t, ok)
	assert.Equal(t, "StyleHub faces a discount battle", v)

	v, ok = GetPath(doc, "topicWizardData.workplaceScenario.background.organizationName")
	require.True(t, ok)
	assert.Equal(t, "HarvestBowls", v)
}

func TestGetPath_Missing(t *testing.T) {
	doc := sampleDoc()

	_, ok := GetPath(doc, "topicWizardData.noSuchField")
	assert.False(t, ok)

	_, ok = GetPath(doc, "topicWizardData.scenarioOptions[9]")
	assert.False(t, ok)

	_, ok = GetPath(doc, "topicWizardData.simulationName[0]")
	assert.False(t, ok)
}

func TestSetPath_OverwriteAndCreate(t *testing.T) {
	doc := sampleDoc()

	require.NoError(t, SetPath(doc, "topicWizardData.simulationName", "New Name"))
	v, _ := GetPath(doc, "topicWizardData.simulationName")
	assert.Equal(t, "New Name", v)

	require.NoError(t, SetPath(doc, "topicWizardData.newSection.field", "created"))
	v, _ = GetPath(doc, "topicWizardData.newSection.field")
	assert.Equal(t, "created", v)
}

func TestSetPath_ArrayElement(t *testing.T) {
	doc := sampleDoc()

	require.NoError(t, SetPath(doc, "topicWizardData.scenarioOptions[0]", "replaced"))
	v, _ := GetPath(doc, "topicWizardData.scenarioOptions[0]")
	assert.Equal(t, "replaced", v)

	err := SetPath(doc, "topicWizardData.scenarioOptions[5]", "out of range")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestDiff_ReappliedChangesReconstruct(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()
	tw := b["topicWizardData"].(map[string]any)
	tw["simulationName"] = "StyleHub Expansion"
	tw["workplaceScenario"].(map[string]any)["background"].(map[string]any)["organizationName"] = "StyleHub"

	rebuilt := DeepCopy(a).(map[string]any)
	for _, path := range Diff(a, b) {
		v, ok := GetPath(b, path)
		require.True(t, ok, path)
		require.NoError(t, SetPath(rebuilt, path, v))
	}

	assert.Empty(t, Diff(rebuilt, b))
}
