package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
)

// errorBody is the wire shape for request failures. The report is attached
// when a pipeline run produced one before being rejected.
type errorBody struct {
	Error            string                  `json:"error"`
	ValidationReport *model.ValidationReport `json:"validation_report,omitempty"`
}

// runList wraps run history responses.
type runList struct {
	Total int         `json:"total"`
	Runs  []model.Run `json:"runs"`
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req model.TransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state := s.runner.Run(r.Context(), req, nil)

	if msg, failed := pipeline.StructuralFailure(state); failed {
		resp := pipeline.Response(state)
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:            msg,
			ValidationReport: &resp.ValidationReport,
		})
		return
	}

	writeJSON(w, http.StatusOK, pipeline.Response(state))
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	locked := s.policy.LockedFields
	if len(req.LockedFields) > 0 {
		locked = req.LockedFields
	}

	report, err := pipeline.ValidateDocuments(req.OriginalJSON, req.TransformedJSON, s.policy.ContainerKey, locked)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InputJSON map[string]any `json:"input_json"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	list, err := pipeline.Scenarios(req.InputJSON, s.policy.ContainerKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:      model.RunStatus(q.Get("status")),
		FinalStatus: model.Status(q.Get("final_status")),
	}
	if v := q.Get("since_hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours < 0 {
			writeError(w, http.StatusBadRequest, "since_hours must be a non-negative integer")
			return
		}
		filter.Since = time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "run history unavailable")
		return
	}

	writeJSON(w, http.StatusOK, runList{Total: len(runs), Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("server: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "run history unavailable")
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := model.HealthResponse{
		Status:  "ok",
		Version: s.version,
	}
	if s.store != nil && s.store.Ping(ctx) == nil {
		resp.StoreConnected = true
	}
	if s.gen != nil && s.gen.Ping(ctx) == nil {
		resp.BackendConnected = true
	}
	if !resp.StoreConnected || !resp.BackendConnected {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
