// Package pipeline runs the scenario re-contextualization state machine:
// ingest, analyze, transform, consistency check, validate, finalize. A run
// mutates a single WorkflowState record and always produces a structured
// result; stage failures are recorded, never propagated as panics.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/store"
	"github.com/PoovendhanNandhu/POC-Cartedo/pkg/anthropic"
)

// Controller executes transformation requests against a generation backend.
type Controller struct {
	cfg    *config.Config
	policy *config.TransformPolicy
	gen    anthropic.Client
	store  store.Store
}

// New creates a Controller. The store may be nil when run history is not
// wanted (standalone validation, tests).
func New(cfg *config.Config, policy *config.TransformPolicy, gen anthropic.Client, st store.Store) *Controller {
	return &Controller{
		cfg:    cfg,
		policy: policy,
		gen:    gen,
		store:  st,
	}
}

// runEnv carries per-run plumbing that is not part of the workflow state.
type runEnv struct {
	sink      EventSink
	streaming bool
	baseline  anthropic.UsageStats
	log       *zap.Logger
}

// Run executes the pipeline for one request and returns the final state. The
// result is always non-nil: structural failures surface as FinalStatus FAIL
// with a recorded error, not as a Go error. A non-nil sink switches the
// generation call to streaming and receives progress events.
func (c *Controller) Run(ctx context.Context, req model.TransformRequest, sink EventSink) *model.WorkflowState {
	streaming := sink != nil
	if sink == nil {
		sink = nopSink
	}

	log := zap.L().With(zap.String("scenario", req.SelectedScenario.String()))
	log.Info("pipeline: starting transformation")

	locked := c.policy.LockedFields
	if len(req.LockedFields) > 0 {
		locked = req.LockedFields
	}

	state := &model.WorkflowState{
		Input:        req.InputJSON,
		Selector:     req.SelectedScenario,
		LockedFields: locked,
		FinalStatus:  model.StatusPending,
	}

	env := &runEnv{sink: sink, streaming: streaming, log: log}
	if c.gen != nil {
		env.baseline = c.gen.Stats()
	}

	var runID string
	if c.store != nil {
		if run, err := c.store.CreateRun(ctx, req.SelectedScenario.String()); err != nil {
			log.Warn("pipeline: create run record", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	c.execute(ctx, state, env)

	log.Info("pipeline: finished",
		zap.String("final_status", string(state.FinalStatus)),
		zap.Float64("score", state.ConsistencyScore),
		zap.Int("retries", state.RetryCount),
		zap.Int64("runtime_ms", state.RuntimeMS),
	)

	if c.store != nil && runID != "" {
		// The record must land even when the client has disconnected.
		finishCtx := context.WithoutCancel(ctx)
		if err := c.store.FinishRun(finishCtx, finishedRun(runID, req.SelectedScenario.String(), state)); err != nil {
			log.Warn("pipeline: finish run record", zap.Error(err))
		}
	}
	return state
}

// execute walks the state machine until finalize completes.
func (c *Controller) execute(ctx context.Context, state *model.WorkflowState, env *runEnv) {
	stage := StageIngest
	for stage != "" {
		if err := ctx.Err(); err != nil && stage != StageFinalize {
			state.AppendError(model.ValidationError{Stage: string(stage), Error: "pipeline canceled: " + err.Error()})
			if state.FinalStatus == model.StatusPending {
				state.FinalStatus = model.StatusFail
			}
			stage = StageFinalize
			continue
		}

		switch stage {
		case StageIngest:
			if err := c.track(state, env, StageIngest, func() (string, error) {
				return c.ingest(state)
			}); err != nil {
				stage = c.move(env, StageIngest, StageFinalize)
				continue
			}
			stage = c.move(env, StageIngest, StageAnalyze)

		case StageAnalyze:
			_ = c.track(state, env, StageAnalyze, func() (string, error) {
				return c.analyze(state)
			})
			if state.FinalStatus == model.StatusOK {
				state.AppendStageLog(model.StageLog{
					Stage:   string(StageTransform),
					Status:  model.StageSkipped,
					Message: "same scenario selected",
				})
				env.sink(Event{
					Type:    EventStageSkipped,
					Stage:   StageTransform,
					Message: "same scenario selected; skipping transformation",
				})
				stage = c.move(env, StageAnalyze, StageFinalize)
				continue
			}
			stage = c.move(env, StageAnalyze, StageTransform)

		case StageTransform:
			_ = c.track(state, env, StageTransform, func() (string, error) {
				return c.transform(ctx, state, env)
			})
			stage = c.move(env, StageTransform, StageConsistency)

		case StageConsistency:
			_ = c.track(state, env, StageConsistency, func() (string, error) {
				return c.checkConsistency(state)
			})
			if state.ConsistencyScore < c.cfg.Transform.ConsistencyThreshold && state.RetryCount < c.cfg.Transform.MaxRetries {
				state.RetryCount++
				env.log.Info("pipeline: retrying transform",
					zap.Int("retry", state.RetryCount),
					zap.Float64("score", state.ConsistencyScore),
				)
				stage = c.move(env, StageConsistency, StageTransform)
				continue
			}
			stage = c.move(env, StageConsistency, StageValidate)

		case StageValidate:
			_ = c.track(state, env, StageValidate, func() (string, error) {
				return c.validate(state)
			})
			stage = c.move(env, StageValidate, StageFinalize)

		case StageFinalize:
			_ = c.track(state, env, StageFinalize, func() (string, error) {
				return c.finalize(state, env)
			})
			stage = ""
		}
	}
}

// move validates a transition against the state machine table.
func (c *Controller) move(env *runEnv, from, to Stage) Stage {
	if !CanTransition(from, to) {
		env.log.Error("pipeline: illegal transition",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return StageFinalize
	}
	return to
}

// track runs one stage, appends its audit entry, and emits start/complete
// events around it.
func (c *Controller) track(state *model.WorkflowState, env *runEnv, stage Stage, fn func() (string, error)) error {
	env.sink(Event{Type: EventStageStart, Stage: stage})

	start := time.Now()
	msg, err := fn()
	duration := time.Since(start).Milliseconds()

	entry := model.StageLog{
		Timestamp:  time.Now().UTC(),
		Stage:      string(stage),
		Status:     model.StageSuccess,
		DurationMS: duration,
		Message:    msg,
	}
	if err != nil {
		entry.Status = model.StageFailed
		entry.Error = err.Error()
		env.log.Error("pipeline: stage failed",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		env.log.Info("pipeline: stage complete",
			zap.String("stage", string(stage)),
			zap.Int64("duration_ms", duration),
		)
	}
	state.AppendStageLog(entry)

	event := Event{Type: EventStageComplete, Stage: stage, Message: msg}
	if err != nil {
		event.Message = err.Error()
	}
	env.sink(event)
	return err
}

// finishedRun builds the persistence record for a finished state.
func finishedRun(id, scenario string, state *model.WorkflowState) *model.Run {
	run := &model.Run{
		ID:               id,
		Scenario:         scenario,
		Status:           model.RunStatusComplete,
		FinalStatus:      state.FinalStatus,
		ConsistencyScore: state.ConsistencyScore,
		Retries:          state.RetryCount,
		RuntimeMS:        state.RuntimeMS,
		ChangedPathCount: len(state.ChangedPaths),
		Report:           Report(state),
	}
	if msg, failed := OperationalFailure(state); failed {
		run.Status = model.RunStatusFailed
		run.Error = msg
	}
	return run
}

// OperationalFailure reports whether the run ended without any generated
// document because the backend itself failed, as opposed to a quality FAIL.
func OperationalFailure(state *model.WorkflowState) (string, bool) {
	if state.Transformed != nil {
		return "", false
	}
	for _, ve := range state.ValidationErrors {
		if ve.Stage == string(StageTransform) {
			return ve.Error, true
		}
	}
	return "", false
}

// StructuralFailure returns the ingest-stage error when the request was
// rejected before any generation happened. Transports map this to a client
// error.
func StructuralFailure(state *model.WorkflowState) (string, bool) {
	for _, ve := range state.ValidationErrors {
		if ve.Stage == string(StageIngest) {
			return ve.Error, true
		}
	}
	return "", false
}
