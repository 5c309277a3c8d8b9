package server

import (
	"context"
	"time"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
	"github.com/PoovendhanNandhu/POC-Cartedo/pkg/anthropic"
)

// stubRunner replays canned events into the sink and returns a fixed state.
// delay simulates a backend that keeps working past cancellation, which keeps
// disconnect tests deterministic.
type stubRunner struct {
	events []pipeline.Event
	state  *model.WorkflowState
	delay  time.Duration
	gotReq model.TransformRequest
}

func (r *stubRunner) Run(ctx context.Context, req model.TransformRequest, sink pipeline.EventSink) *model.WorkflowState {
	r.gotReq = req
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if sink != nil {
		for _, ev := range r.events {
			sink(ev)
		}
	}
	return r.state
}

// stubStore satisfies store.Store with canned responses.
type stubStore struct {
	runs      []model.Run
	run       *model.Run
	getErr    error
	listErr   error
	pingErr   error
	gotFilter store.RunFilter
}

func (s *stubStore) CreateRun(ctx context.Context, scenario string) (*model.Run, error) {
	return &model.Run{ID: "stub", Scenario: scenario}, nil
}

func (s *stubStore) FinishRun(ctx context.Context, run *model.Run) error { return nil }

func (s *stubStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.run, nil
}

func (s *stubStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	s.gotFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.runs, nil
}

func (s *stubStore) Stats(ctx context.Context, since time.Time) (*model.RunStats, error) {
	return &model.RunStats{}, nil
}

func (s *stubStore) Migrate(ctx context.Context) error { return nil }
func (s *stubStore) Ping(ctx context.Context) error    { return s.pingErr }
func (s *stubStore) Close() error                      { return nil }

// stubBackend satisfies anthropic.Client for health checks.
type stubBackend struct {
	pingErr error
}

func (b *stubBackend) GenerateJSON(ctx context.Context, req anthropic.GenerationRequest) (map[string]any, error) {
	return nil, nil
}

func (b *stubBackend) GenerateJSONStream(ctx context.Context, req anthropic.GenerationRequest) (<-chan anthropic.StreamChunk, error) {
	return nil, nil
}

func (b *stubBackend) Ping(ctx context.Context) error { return b.pingErr }
func (b *stubBackend) Stats() anthropic.UsageStats    { return anthropic.UsageStats{} }

var (
	_ Runner           = (*stubRunner)(nil)
	_ store.Store      = (*stubStore)(nil)
	_ anthropic.Client = (*stubBackend)(nil)
)

func testPolicy() *config.TransformPolicy {
	policy := config.DefaultPolicy()
	return &policy
}

// newTestServer wires a server around stubs, applying any overrides first.
func newTestServer(opts Options) *Server {
	if opts.Policy == nil {
		opts.Policy = testPolicy()
	}
	if opts.Runner == nil {
		opts.Runner = &stubRunner{state: okState()}
	}
	if opts.Store == nil {
		opts.Store = &stubStore{}
	}
	if opts.Backend == nil {
		opts.Backend = &stubBackend{}
	}
	if opts.Version == "" {
		opts.Version = "test"
	}
	return New(opts)
}

// sampleDocument builds the known-good fixture: a restaurant scenario with
// locked assessment fields and three options.
func sampleDocument() map[string]any {
	return map[string]any{
		"topicWizardData": map[string]any{
			"simulationName":         "HarvestBowls Lunch Rush Recovery",
			"scenarioOptions":        []any{"scenario A", "scenario B", "scenario C"},
			"selectedScenarioOption": "scenario A",
			"assessmentCriterion":    []any{"Problem framing", "Data analysis"},
		},
	}
}

// okState is a finished state for a successful transformation.
func okState() *model.WorkflowState {
	input := sampleDocument()
	transformed := sampleDocument()
	transformed["topicWizardData"].(map[string]any)["simulationName"] = "StyleHub Comeback Plan"
	return &model.WorkflowState{
		Input:            input,
		Transformed:      transformed,
		FinalStatus:      model.StatusOK,
		ConsistencyScore: 0.95,
		ChangedPaths:     []string{"topicWizardData.simulationName"},
		RuntimeMS:        1200,
	}
}

// structuralFailState is a state rejected at ingest.
func structuralFailState() *model.WorkflowState {
	state := &model.WorkflowState{
		Input:       map[string]any{"wrong": "shape"},
		FinalStatus: model.StatusFail,
	}
	state.AppendError(model.ValidationError{
		Stage: "ingest",
		Error: `missing "topicWizardData" container at document root`,
	})
	return state
}

// backendFailState is a state whose generation backend failed on every
// attempt, leaving no transformed document.
func backendFailState() *model.WorkflowState {
	state := &model.WorkflowState{
		Input:       sampleDocument(),
		FinalStatus: model.StatusFail,
		RetryCount:  2,
	}
	state.AppendError(model.ValidationError{
		Stage: "transform",
		Error: "generation backend unavailable",
	})
	return state
}
