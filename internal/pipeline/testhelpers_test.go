package pipeline

import (
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
)

// currentScenario is option 0 of the sample document; targetScenario is
// option 1. Both carry a brand, a competitor, a challenge, and an industry
// so the extractor maps four entities between them.
const (
	currentScenario = "HarvestBowls is losing lunch customers after Nature's Crust launched its $1 value menu in the fast-casual restaurant market"
	targetScenario  = "StyleHub is seeing declining sales when TrendMart launched a discount promotion across fashion retail"
	thirdScenario   = "SkyWays is losing bookings after CloudJet expanded its loyalty program in the airline market"
)

// sampleDocument builds the known-good fixture: a restaurant scenario with
// five locked fields and three scenario options.
func sampleDocument() map[string]any {
	return map[string]any{
		"topicWizardData": map[string]any{
			"simulationName": "HarvestBowls Lunch Rush Recovery",
			"lessonInformation": map[string]any{
				"lesson":   "Pricing strategy under competitive pressure",
				"industry": "Fast-casual dining",
			},
			"scenarioOptions":        []any{currentScenario, targetScenario, thirdScenario},
			"selectedScenarioOption": currentScenario,
			"workplaceScenario": map[string]any{
				"emailSubject": "Lunch daypart traffic down 18 percent",
				"reportingManager": map[string]any{
					"name":    "Morgan Reyes",
					"message": "HarvestBowls needs a response plan by Friday.",
				},
			},
			"assessmentCriterion":               []any{"Problem framing", "Data analysis", "Recommendation quality"},
			"selectedAssessmentCriterion":       "Recommendation quality",
			"industryAlignedActivities":         []any{"Menu engineering", "Daypart analysis"},
			"selectedIndustryAlignedActivities": []any{"Daypart analysis"},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 16000,
		},
		Transform: config.TransformConfig{
			ConsistencyThreshold: 0.85,
			MaxRetries:           2,
		},
	}
}

func testPolicy() *config.TransformPolicy {
	policy := config.DefaultPolicy()
	return &policy
}

func newTestController(gen *mockGenerator) *Controller {
	return New(testConfig(), testPolicy(), gen, nil)
}
