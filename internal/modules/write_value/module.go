// Package write_value copies a run value into one cell of an attachment.
package write_value

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
)

const (
	moduleID      = "write-value"
	moduleVersion = "1.0.0"
)

// Config names the value key and destination cell. Default is written when
// no earlier step produced the value.
type Config struct {
	Slot    int     `yaml:"slot"`
	Sheet   string  `yaml:"sheet"`
	Cell    string  `yaml:"cell"`
	Value   string  `yaml:"value"`
	Default float64 `yaml:"default"`
}

// Module writes a numeric run value.
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
	switch {
	case cfg.Slot <= 0:
		return nil, fmt.Errorf("%s: slot is required", moduleID)
	case cfg.Cell == "":
		return nil, fmt.Errorf("%s: cell is required", moduleID)
	case cfg.Value == "":
		return nil, fmt.Errorf("%s: value key is required", moduleID)
	}
	target := runtime.SlotRef(cfg.Slot)
	info := module.Info{
		ID:          moduleID,
		Name:        fmt.Sprintf("写入%s到附件%d %s", cfg.Value, cfg.Slot, cfg.Cell),
		Description: "Writes a value computed by an earlier step into a cell.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetOutputs(target)
	return &Module{Base: &base, cfg: cfg, target: target}, nil
}

// Run writes the value as a number.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.ValidateContext(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	value := ctx.Values.Float(m.cfg.Value, m.cfg.Default)
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
	if err := wb.SetValue(sheetName, m.cfg.Cell, value); err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := runtime.SaveWorkbook(moduleID, ctx, wb); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	ctx.Logger.Info("value written",
		zap.String("file", slot.Path),
		zap.String("cell", m.cfg.Cell),
		zap.Float64(m.cfg.Value, value),
	)
	return module.Completed("%s!%s = %s", sheetName, m.cfg.Cell, runtime.FormatNumber(value)), nil
}
