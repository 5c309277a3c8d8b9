package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TransformPolicy defines which parts of a document are protected and which
// are considered eligible for rewriting. The candidate paths are metadata
// recorded during analysis; the generation step receives the whole eligible
// subset of the container.
type TransformPolicy struct {
	ContainerKey   string   `yaml:"container_key"`
	LockedFields   []string `yaml:"locked_fields"`
	CandidatePaths []string `yaml:"candidate_paths"`
}

// DefaultPolicy returns the policy for the topic-wizard document family.
func DefaultPolicy() TransformPolicy {
	return TransformPolicy{
		ContainerKey: "topicWizardData",
		LockedFields: []string{
			"scenarioOptions",
			"assessmentCriterion",
			"selectedAssessmentCriterion",
			"industryAlignedActivities",
			"selectedIndustryAlignedActivities",
		},
		CandidatePaths: []string{
			"lessonInformation.lesson",
			"selectedScenarioOption",
			"simulationName",
			"workplaceScenario.scenario",
			"workplaceScenario.background.organizationName",
			"workplaceScenario.background.aboutOrganization",
			"workplaceScenario.background.organizationImageKeyWords",
			"workplaceScenario.challenge.currentIssue",
			"workplaceScenario.learnerRoleReportingManager.learnerRole.roleDescription",
			"workplaceScenario.learnerRoleReportingManager.learnerRole.scopeOfWork",
			"workplaceScenario.learnerRoleReportingManager.reportingManager.name",
			"workplaceScenario.learnerRoleReportingManager.reportingManager.email",
			"workplaceScenario.learnerRoleReportingManager.reportingManager.message",
		},
	}
}

// LoadPolicy reads a transform policy from a YAML file, merging defaults
// over missing keys. An empty path returns the default policy.
func LoadPolicy(path string) (*TransformPolicy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return &policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read policy %s", path)
	}

	// The YAML has a top-level "transform" key.
	var wrapper struct {
		Transform TransformPolicy `yaml:"transform"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse policy")
	}

	loaded := wrapper.Transform
	if loaded.ContainerKey != "" {
		policy.ContainerKey = loaded.ContainerKey
	}
	if len(loaded.LockedFields) > 0 {
		policy.LockedFields = loaded.LockedFields
	}
	if len(loaded.CandidatePaths) > 0 {
		policy.CandidatePaths = loaded.CandidatePaths
	}

	return &policy, nil
}
