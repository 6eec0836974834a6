// Package rename substitutes the entered requirement name into every
// attachment filename while keeping slot prefix, attribute and extension.
package rename

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/attachment"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
)

const (
	moduleID      = "rename-attachments"
	moduleVersion = "1.0.0"
)

// Module renames the attachment package.
type Module struct {
	*module.Base
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(module.Config) (module.Module, error) {
		return New(), nil
	})
}

// New constructs the module with its IO contracts declared.
func New() *Module {
	info := module.Info{
		ID:          moduleID,
		Name:        "批量修改文件名字",
		Description: "Renames every attachment to carry the requirement name.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetOutputs(artifact.Attachments()...)
	return &Module{Base: &base}
}

// Run renames files; a missing data directory skips the step.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.ValidateContext(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if ctx.Requirement == "" {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: requirement name is empty", moduleID)
	}
	report, err := ctx.Attachments.Rename(ctx.Requirement)
	if errors.Is(err, attachment.ErrDirNotFound) {
		ctx.Logger.Warn("data directory missing; nothing renamed", zap.String("dir", ctx.Attachments.Dir()))
		return module.Skipped("目录不存在：%s", ctx.Attachments.Dir()), nil
	}
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	for _, move := range report.Moves {
		ctx.Logger.Debug("renamed", zap.String("move", move))
	}
	return module.Completed("重命名 %d 个文件，跳过 %d 个", report.Renamed, report.Skipped), nil
}
