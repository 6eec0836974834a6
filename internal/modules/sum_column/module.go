// Package sum_column totals one numeric column of an attachment and publishes
// the result as a run value for later steps.
package sum_column

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/formula"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
	"github.com/kingrea/cosmic-fill/internal/sheet"
)

const (
	moduleID      = "sum-column"
	moduleVersion = "1.0.0"
)

// Config selects the summed column and the value key.
type Config struct {
	Slot     int    `yaml:"slot"`
	Sheet    string `yaml:"sheet"`
	Column   string `yaml:"column"`
	StartRow int    `yaml:"start_row"`
	Value    string `yaml:"value"`
}

// Module sums a column.
type Module struct {
	*module.Base
	cfg    Config
	column int
	source artifact.ArtifactRef
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(raw module.Config) (module.Module, error) {
		cfg := Config{Slot: 5, Column: "L", StartRow: 2, Value: "workload_total"}
		if err := module.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// New constructs the module with its IO contracts declared.
func New(cfg Config) (*Module, error) {
	if cfg.Slot <= 0 {
		return nil, fmt.Errorf("%s: slot is required", moduleID)
	}
	if cfg.Value == "" {
		return nil, fmt.Errorf("%s: value key is required", moduleID)
	}
	if cfg.StartRow <= 0 {
		cfg.StartRow = 1
	}
	column, err := sheet.ColumnIndex(cfg.Column)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", moduleID, err)
	}
	source := runtime.SlotRef(cfg.Slot)
	info := module.Info{
		ID:          moduleID,
		Name:        fmt.Sprintf("统计附件%d %s列工作量", cfg.Slot, cfg.Column),
		Description: "Sums a numeric column, skipping non-numeric cells.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetInputs(source)
	return &Module{Base: &base, cfg: cfg, column: column, source: source}, nil
}

// Run stores the total; a missing attachment stores 0 and skips.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.ValidateContext(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	book, slot, ok, err := runtime.OpenBook(moduleID, ctx, m.source)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		ctx.Values.SetFloat(m.cfg.Value, 0)
		return module.Skipped("未找到%s文件，工作量按 0 计", m.source), nil
	}
	defer book.Close()

	name := book.ActiveSheet()
	if m.cfg.Sheet != "" && m.cfg.Sheet != "active" {
		found, ok := sheet.FindSheet(book, m.cfg.Sheet)
		if !ok {
			return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w: %q", moduleID, sheet.ErrSheetNotFound, m.cfg.Sheet)
		}
		name = found
	}
	grid, err := book.Grid(name)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	sum := formula.SumColumn(grid, m.column, m.cfg.StartRow)
	ctx.Values.SetFloat(m.cfg.Value, sum.Total)
	ctx.Logger.Info("column summed",
		zap.String("file", slot.Path),
		zap.String("column", m.cfg.Column),
		zap.Float64("total", sum.Total),
		zap.Int("counted", sum.Counted),
		zap.Int("skipped", sum.Skipped),
	)
	return module.Completed("%s列合计 %s（%d 项，跳过 %d 项）",
		m.cfg.Column, runtime.FormatNumber(sum.Total), sum.Counted, sum.Skipped), nil
}
