package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/workflow"
)

// Reporter receives stage progress while a run executes.
type Reporter interface {
	StageStarted(index, total int, name string)
	StageFinished(index, total int, run ModuleRun)
}

// Engine runs workflow steps in declaration order.
type Engine struct {
	registry *module.Registry
	repo     StateStore
	reporter Reporter
	clock    func() time.Time
	newID    func() string
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithReporter streams stage progress to r. Repeated options fan out.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		if r == nil {
			return
		}
		switch current := e.reporter.(type) {
		case nil:
			e.reporter = r
		case fanout:
			e.reporter = append(current, r)
		default:
			e.reporter = fanout{current, r}
		}
	}
}

type fanout []Reporter

func (f fanout) StageStarted(index, total int, name string) {
	for _, r := range f {
		r.StageStarted(index, total, name)
	}
}

func (f fanout) StageFinished(index, total int, run ModuleRun) {
	for _, r := range f {
		r.StageFinished(index, total, run)
	}
}

// WithRunID overrides run id generation.
func WithRunID(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// New wires a workflow engine to the module registry and report store.
func New(registry *module.Registry, repo StateStore, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, fmt.Errorf("workflow engine: module registry is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("workflow engine: state store is required")
	}
	engine := &Engine{
		registry: registry,
		repo:     repo,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

type step struct {
	ref workflow.ModuleRef
	mod module.Module
}

// Run executes def. Every step is constructed before the first one runs so a
// bad definition changes nothing on disk. The first step returning an error
// ends the run; its error is returned after the report is saved.
func (e *Engine) Run(ctx *module.ModuleContext, def workflow.WorkflowDefinition) (State, error) {
	if ctx == nil {
		return State{}, fmt.Errorf("workflow engine: module context is required")
	}
	normalized, err := def.Normalized()
	if err != nil {
		return State{}, err
	}
	steps := make([]step, 0, len(normalized.Modules))
	for _, ref := range normalized.Modules {
		mod, err := e.registry.Resolve(ref.ModuleID, module.Config(ref.Config))
		if err != nil {
			return State{}, fmt.Errorf("workflow engine: step %s: %w", ref.InstanceID(), err)
		}
		steps = append(steps, step{ref: ref, mod: mod})
	}

	now := e.now()
	state := State{
		RunID:       e.newID(),
		WorkflowID:  normalized.ID,
		Requirement: ctx.Requirement,
		Status:      EngineStatusRunning,
		StartedAt:   now,
		UpdatedAt:   now,
	}
	logger := ctx.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", state.RunID))
	logger.Info("run started", zap.String("workflow", normalized.ID), zap.Int("steps", len(steps)))

	total := len(steps)
	for i, s := range steps {
		name := pickName(s.ref, s.mod.Info())
		if e.reporter != nil {
			e.reporter.StageStarted(i+1, total, name)
		}
		run := ModuleRun{
			ID:        s.ref.InstanceID(),
			ModuleID:  s.ref.ModuleID,
			Name:      name,
			StartedAt: e.now(),
		}
		if ctx.Attachments != nil {
			run.Attachments = attachmentStatuses(module.CheckAttachments(ctx.Attachments, s.mod))
		}
		stepLogger := logger.With(zap.String("step", run.ID), zap.String("module", run.ModuleID))
		result, runErr := s.mod.Run(ctx.WithLogger(stepLogger))
		run.FinishedAt = e.now()
		run.Status = result.Status
		run.Message = result.Message
		if runErr == nil && result.Status == module.StatusFailed {
			runErr = fmt.Errorf("%s: %s", run.ModuleID, result.Message)
		}
		if runErr != nil {
			run.Status = module.StatusFailed
			run.Error = runErr.Error()
		}
		if run.Status == "" {
			run.Status = module.StatusCompleted
		}
		state.Runs = append(state.Runs, run)
		state.UpdatedAt = run.FinishedAt
		if e.reporter != nil {
			e.reporter.StageFinished(i+1, total, run)
		}
		stepLogger.Info("step finished", zap.String("status", string(run.Status)), zap.String("message", run.Message))

		if runErr != nil {
			state.Status = EngineStatusError
			state.StatusReason = fmt.Sprintf("%s failed", run.ID)
			state.Values = snapshot(ctx)
			stepLogger.Error("run halted", zap.Error(runErr))
			if err := e.repo.Save(state); err != nil {
				logger.Warn("run report not saved", zap.Error(err))
			}
			return state, runErr
		}
	}

	state.Status = EngineStatusComplete
	state.Values = snapshot(ctx)
	state.UpdatedAt = e.now()
	if err := e.repo.Save(state); err != nil {
		return state, fmt.Errorf("workflow engine: save report: %w", err)
	}
	logger.Info("run complete", zap.Int("steps", len(state.Runs)))
	return state, nil
}

func snapshot(ctx *module.ModuleContext) map[string]string {
	if ctx.Values == nil {
		return nil
	}
	return ctx.Values.Snapshot()
}

func pickName(ref workflow.ModuleRef, info module.Info) string {
	if ref.Name != "" {
		return ref.Name
	}
	if info.Name != "" {
		return info.Name
	}
	return ref.InstanceID()
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
