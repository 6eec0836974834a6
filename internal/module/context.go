package module

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/attachment"
	"github.com/kingrea/cosmic-fill/internal/config"
	"github.com/kingrea/cosmic-fill/internal/llm"
)

// ModuleContext carries shared runtime dependencies into every step.
type ModuleContext struct {
	Config      *config.Config
	Logger      *zap.Logger
	Attachments *attachment.Registry
	Artifacts   *artifact.Store
	LLM         llm.Client
	Clock       func() time.Time
	// Requirement is the name entered once per run.
	Requirement string
	// Values carries derived values (sums, counts) between steps.
	Values *Values

	ctx context.Context
}

// NewContext builds a ModuleContext with a fresh store and attachment
// registry rooted at the configured data directory.
func NewContext(ctx context.Context, cfg *config.Config, logger *zap.Logger, client llm.Client, requirement string) *ModuleContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := artifact.NewStore()
	return &ModuleContext{
		Config: cfg,
		Logger: logger,
		Attachments: attachment.NewRegistry(cfg.DataDir(), cfg.File.Attachments.Prefix,
			attachment.WithLogger(logger),
			attachment.WithStore(store),
		),
		Artifacts:   store,
		LLM:         client,
		Clock:       time.Now,
		Requirement: requirement,
		Values:      NewValues(),
		ctx:         ctx,
	}
}

// Context returns the run's context.
func (ctx *ModuleContext) Context() context.Context {
	if ctx.ctx == nil {
		return context.Background()
	}
	return ctx.ctx
}

// Now returns the current time from the injected clock.
func (ctx *ModuleContext) Now() time.Time {
	if ctx.Clock == nil {
		return time.Now()
	}
	return ctx.Clock()
}

// WithLogger returns a copy whose logger carries extra fields.
func (ctx *ModuleContext) WithLogger(logger *zap.Logger) *ModuleContext {
	clone := *ctx
	clone.Logger = logger
	return &clone
}

// WithContext returns a copy bound to a different context.
func (ctx *ModuleContext) WithContext(c context.Context) *ModuleContext {
	clone := *ctx
	clone.ctx = c
	return &clone
}

// Resolve locates the attachment for ref, logging a warning when absent.
func (ctx *ModuleContext) Resolve(ref artifact.ArtifactRef) (attachment.Slot, bool) {
	slot, ok := ctx.Attachments.Resolve(ref.Slot)
	if !ok {
		ctx.Logger.Warn("attachment not found", zap.Int("slot", ref.Slot), zap.String("role", ref.Name))
	}
	return slot, ok
}
