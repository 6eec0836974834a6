// Package copy_name writes the requirement name verbatim into cells of one
// attachment.
package copy_name

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
)

const (
	moduleID      = "copy-name"
	moduleVersion = "1.0.0"
)

// Config selects the destination cells.
type Config struct {
	Slot  int      `yaml:"slot"`
	Sheet string   `yaml:"sheet"`
	Cells []string `yaml:"cells"`
}

func (c Config) validate() error {
	if c.Slot <= 0 {
		return fmt.Errorf("%s: slot is required", moduleID)
	}
	if len(c.Cells) == 0 {
		return fmt.Errorf("%s: at least one cell is required", moduleID)
	}
	return nil
}

// Module copies the requirement name.
type Module struct {
	*module.Base
	cfg    Config
	target artifact.ArtifactRef
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(raw module.Config) (module.Module, error) {
		cfg := Config{Sheet: "active"}
		if err := module.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// New constructs the module with its IO contracts declared.
func New(cfg Config) (*Module, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	target := runtime.SlotRef(cfg.Slot)
	info := module.Info{
		ID:          moduleID,
		Name:        fmt.Sprintf("写入需求名到附件%d %s", cfg.Slot, strings.Join(cfg.Cells, "、")),
		Description: "Writes the requirement name into fixed cells.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetOutputs(target)
	return &Module{Base: &base, cfg: cfg, target: target}, nil
}

// Run writes the name and saves the workbook.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.ValidateContext(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	wb, slot, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.target)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.target), nil
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.Sheet)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	for _, cell := range m.cfg.Cells {
		if err := wb.SetValue(sheetName, cell, ctx.Requirement); err != nil {
			return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
		}
	}
	if err := runtime.SaveWorkbook(moduleID, ctx, wb); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	ctx.Logger.Info("requirement name written",
		zap.String("file", slot.Path),
		zap.String("sheet", sheetName),
		zap.Strings("cells", m.cfg.Cells),
	)
	return module.Completed("已更新 %s 的 %s", sheetName, strings.Join(m.cfg.Cells, ", ")), nil
}
