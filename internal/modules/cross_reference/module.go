package cross_reference

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/formula"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
	"github.com/kingrea/cosmic-fill/internal/sheet"
)

const (
	moduleID      = "cross-reference"
	moduleVersion = "1.0.0"
)

// CellRef addresses one cell of an attachment.
type CellRef struct {
	Slot  int    `yaml:"slot"`
	Sheet string `yaml:"sheet"`
	Cell  string `yaml:"cell"`
}

// Fallback describes the COUNTA recomputation.
type Fallback struct {
	Sheet    string `yaml:"sheet"`
	Column   string `yaml:"column"`
	StartRow int    `yaml:"start_row"`
}

// Config wires source, fallback and target.
type Config struct {
	Source   CellRef  `yaml:"source"`
	Fallback Fallback `yaml:"fallback"`
	Target   CellRef  `yaml:"target"`
	// Value optionally publishes the copied value for later steps.
	Value string `yaml:"value"`
}

// Module copies a cross-workbook value.
type Module struct {
	*module.Base
	cfg            Config
	fallbackColumn int
	source         artifact.ArtifactRef
	target         artifact.ArtifactRef
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(raw module.Config) (module.Module, error) {
		cfg := Config{
			Source:   CellRef{Slot: 3, Sheet: "second", Cell: "E3"},
			Fallback: Fallback{Sheet: "COSMIC功能点拆分表", Column: "K", StartRow: 4},
			Target:   CellRef{Slot: 4, Sheet: "active", Cell: "B7"},
		}
		if err := module.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// New constructs the module with its IO contracts declared.
func New(cfg Config) (*Module, error) {
	if cfg.Source.Slot <= 0 || cfg.Source.Cell == "" {
		return nil, fmt.Errorf("%s: source slot and cell are required", moduleID)
	}
	if cfg.Target.Slot <= 0 || cfg.Target.Cell == "" {
		return nil, fmt.Errorf("%s: target slot and cell are required", moduleID)
	}
	column := 0
	if cfg.Fallback.Sheet != "" {
		var err error
		if column, err = sheet.ColumnIndex(cfg.Fallback.Column); err != nil {
			return nil, fmt.Errorf("%s: fallback: %w", moduleID, err)
		}
		if cfg.Fallback.StartRow <= 0 {
			cfg.Fallback.StartRow = 1
		}
	}
	source := runtime.SlotRef(cfg.Source.Slot)
	target := runtime.SlotRef(cfg.Target.Slot)
	info := module.Info{
		ID:   moduleID,
		Name: fmt.Sprintf("附件%d %s 写入附件%d %s", cfg.Source.Slot, cfg.Source.Cell, cfg.Target.Slot, cfg.Target.Cell),
		Description: "Copies a computed cell between workbooks, recomputing " +
			"the count when no cached result exists.",
		Version: moduleVersion,
	}
	base := module.NewBase(info)
	base.SetInputs(source)
	base.SetOutputs(target)
	return &Module{Base: &base, cfg: cfg, fallbackColumn: column, source: source, target: target}, nil
}

// Run reads the source, falls back when blank and writes the target.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.ValidateContext(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	value, recomputed, ok, err := m.read(ctx)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.source), nil
	}
	if m.cfg.Value != "" {
		ctx.Values.Set(m.cfg.Value, value)
	}

	wb, slot, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.target)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.target), nil
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.Target.Sheet)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := wb.SetValue(sheetName, m.cfg.Target.Cell, runtime.CellValue(value)); err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := runtime.SaveWorkbook(moduleID, ctx, wb); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	ctx.Logger.Info("cross reference written",
		zap.String("file", slot.Path),
		zap.String("cell", m.cfg.Target.Cell),
		zap.String("value", value),
		zap.Bool("recomputed", recomputed),
	)
	if recomputed {
		return module.Completed("%s = %s（公式无缓存值，已重新计数）", m.cfg.Target.Cell, value), nil
	}
	return module.Completed("%s = %s", m.cfg.Target.Cell, value), nil
}

func (m *Module) read(ctx *module.ModuleContext) (string, bool, bool, error) {
	wb, _, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.source)
	if err != nil || !ok {
		return "", false, ok, err
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.Source.Sheet)
	if err != nil {
		return "", false, true, fmt.Errorf("%s: %w", moduleID, err)
	}
	value, err := wb.Value(sheetName, m.cfg.Source.Cell)
	if err != nil {
		return "", false, true, fmt.Errorf("%s: read %s: %w", moduleID, m.cfg.Source.Cell, err)
	}
	if strings.TrimSpace(value) != "" || m.cfg.Fallback.Sheet == "" {
		return strings.TrimSpace(value), false, true, nil
	}
	count := formula.CountInBook(wb, m.cfg.Fallback.Sheet, m.fallbackColumn, m.cfg.Fallback.StartRow)
	return fmt.Sprintf("%d", count), true, true, nil
}
