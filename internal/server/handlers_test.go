package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
)

// doJSON performs one request against the server's handler. A nil body sends
// an empty request; a []byte body is sent raw.
func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestTransform_Success(t *testing.T) {
	runner := &stubRunner{state: okState()}
	s := newTestServer(Options{Runner: runner})

	rr := doJSON(t, s, http.MethodPost, "/api/transform", map[string]any{
		"input_json":        sampleDocument(),
		"selected_scenario": 1,
	})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var resp model.TransformResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusOK, resp.ValidationReport.FinalStatus)
	assert.Equal(t, int64(1200), resp.ExecutionTimeMS)

	container := resp.OutputJSON["topicWizardData"].(map[string]any)
	assert.Equal(t, "StyleHub Comeback Plan", container["simulationName"])

	// The selector reached the pipeline.
	assert.True(t, runner.gotReq.SelectedScenario.ByIndex)
	assert.Equal(t, 1, runner.gotReq.SelectedScenario.Index)
}

func TestTransform_StructuralFailure(t *testing.T) {
	s := newTestServer(Options{Runner: &stubRunner{state: structuralFailState()}})

	rr := doJSON(t, s, http.MethodPost, "/api/transform", map[string]any{
		"input_json":        map[string]any{"wrong": "shape"},
		"selected_scenario": 0,
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "topicWizardData")
	require.NotNil(t, body.ValidationReport)
	assert.Equal(t, model.StatusFail, body.ValidationReport.FinalStatus)
}

func TestTransform_BackendFailureStillReports(t *testing.T) {
	s := newTestServer(Options{Runner: &stubRunner{state: backendFailState()}})

	rr := doJSON(t, s, http.MethodPost, "/api/transform", map[string]any{
		"input_json":        sampleDocument(),
		"selected_scenario": 1,
	})

	// Operational failures come back as a structured FAIL report, not an
	// HTTP error.
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp model.TransformResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusFail, resp.ValidationReport.FinalStatus)
	assert.Equal(t, 2, resp.ValidationReport.Retries)

	// No transformed document, so the input comes back.
	container := resp.OutputJSON["topicWizardData"].(map[string]any)
	assert.Equal(t, "HarvestBowls Lunch Rush Recovery", container["simulationName"])
}

func TestTransform_InvalidBody(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodPost, "/api/transform", []byte("not json"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestValidate_CleanPair(t *testing.T) {
	s := newTestServer(Options{})

	transformed := sampleDocument()
	transformed["topicWizardData"].(map[string]any)["simulationName"] = "StyleHub Comeback Plan"

	rr := doJSON(t, s, http.MethodPost, "/api/validate", map[string]any{
		"original_json":    sampleDocument(),
		"transformed_json": transformed,
	})

	assert.Equal(t, http.StatusOK, rr.Code)

	var report model.ValidationReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.True(t, report.LockedFieldsCompliance)
	assert.Equal(t, model.StatusOK, report.FinalStatus)
	assert.Contains(t, report.ChangedPaths, "topicWizardData.simulationName")
	assert.Contains(t, report.LockedFieldHashes, "assessmentCriterion")
}

func TestValidate_TamperedLockedField(t *testing.T) {
	s := newTestServer(Options{})

	transformed := sampleDocument()
	transformed["topicWizardData"].(map[string]any)["assessmentCriterion"] = []any{"Tampered"}

	rr := doJSON(t, s, http.MethodPost, "/api/validate", map[string]any{
		"original_json":    sampleDocument(),
		"transformed_json": transformed,
	})

	assert.Equal(t, http.StatusOK, rr.Code)

	var report model.ValidationReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.False(t, report.LockedFieldsCompliance)
	assert.Equal(t, model.StatusFail, report.FinalStatus)
}

func TestValidate_LockedFieldOverride(t *testing.T) {
	s := newTestServer(Options{})

	transformed := sampleDocument()
	transformed["topicWizardData"].(map[string]any)["assessmentCriterion"] = []any{"Tampered"}

	rr := doJSON(t, s, http.MethodPost, "/api/validate", map[string]any{
		"original_json":    sampleDocument(),
		"transformed_json": transformed,
		"locked_fields":    []string{"simulationName"},
	})

	assert.Equal(t, http.StatusOK, rr.Code)

	// assessmentCriterion is no longer locked, so the change is allowed.
	var report model.ValidationReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.True(t, report.LockedFieldsCompliance)
	assert.Equal(t, model.StatusOK, report.FinalStatus)
	assert.Contains(t, report.LockedFieldHashes, "simulationName")
	assert.NotContains(t, report.LockedFieldHashes, "assessmentCriterion")
}

func TestValidate_MissingContainer(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodPost, "/api/validate", map[string]any{
		"original_json":    map[string]any{"wrong": "shape"},
		"transformed_json": sampleDocument(),
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "topicWizardData")
}

func TestScenarios_List(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodPost, "/api/scenarios", map[string]any{
		"input_json": sampleDocument(),
	})

	assert.Equal(t, http.StatusOK, rr.Code)

	var list model.ScenarioList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "scenario A", list.CurrentScenario)
	assert.Equal(t, []string{"scenario A", "scenario B", "scenario C"}, list.Scenarios)
}

func TestScenarios_MissingContainer(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodPost, "/api/scenarios", map[string]any{
		"input_json": map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListRuns_AppliesFilters(t *testing.T) {
	st := &stubStore{runs: []model.Run{
		{ID: "run-1", Status: model.RunStatusComplete},
		{ID: "run-2", Status: model.RunStatusComplete},
	}}
	s := newTestServer(Options{Store: st})

	rr := doJSON(t, s, http.MethodGet, "/api/runs?status=complete&limit=10&since_hours=24", nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	var list runList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Len(t, list.Runs, 2)

	assert.Equal(t, model.RunStatusComplete, st.gotFilter.Status)
	assert.Equal(t, 10, st.gotFilter.Limit)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), st.gotFilter.Since, time.Minute)
}

func TestListRuns_BadLimit(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodGet, "/api/runs?limit=zero", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "limit")
}

func TestListRuns_StoreError(t *testing.T) {
	s := newTestServer(Options{Store: &stubStore{listErr: eris.New("database gone")}})

	rr := doJSON(t, s, http.MethodGet, "/api/runs", nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "run history unavailable")
}

func TestGetRun_Found(t *testing.T) {
	st := &stubStore{run: &model.Run{
		ID:          "run-1",
		Scenario:    "Fashion retail launch",
		Status:      model.RunStatusComplete,
		FinalStatus: model.StatusOK,
	}}
	s := newTestServer(Options{Store: st})

	rr := doJSON(t, s, http.MethodGet, "/api/runs/run-1", nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	var run model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, model.StatusOK, run.FinalStatus)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestServer(Options{Store: &stubStore{
		getErr: eris.Wrap(store.ErrNotFound, "sqlite: get run ghost"),
	}})

	rr := doJSON(t, s, http.MethodGet, "/api/runs/ghost", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "run not found")
}

func TestGetRun_StoreError(t *testing.T) {
	s := newTestServer(Options{Store: &stubStore{getErr: eris.New("database gone")}})

	rr := doJSON(t, s, http.MethodGet, "/api/runs/run-1", nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHealth_AllConnected(t *testing.T) {
	s := newTestServer(Options{Version: "1.2.3"})

	rr := doJSON(t, s, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	var health model.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.True(t, health.StoreConnected)
	assert.True(t, health.BackendConnected)
}

func TestHealth_BackendDown(t *testing.T) {
	s := newTestServer(Options{Backend: &stubBackend{pingErr: eris.New("no credentials")}})

	rr := doJSON(t, s, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	var health model.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.True(t, health.StoreConnected)
	assert.False(t, health.BackendConnected)
}

func TestRouter_UnknownPath(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	s := newTestServer(Options{})

	rr := doJSON(t, s, http.MethodGet, "/api/transform", nil)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
