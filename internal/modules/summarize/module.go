package summarize

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/matcher"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
	"github.com/kingrea/cosmic-fill/internal/sheet"
)

const (
	moduleID      = "summarize"
	moduleVersion = "1.0.0"
)

// Config selects the item columns and the overview cell.
type Config struct {
	SourceSlot  int      `yaml:"source_slot"`
	Columns     []string `yaml:"columns"`
	StartRow    int      `yaml:"start_row"`
	TargetSlot  int      `yaml:"target_slot"`
	TargetSheet string   `yaml:"target_sheet"`
	TargetCell  string   `yaml:"target_cell"`
}

// Module writes the generated overview.
type Module struct {
	*module.Base
	cfg     Config
	columns []int
	source  artifact.ArtifactRef
	target  artifact.ArtifactRef
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(raw module.Config) (module.Module, error) {
		cfg := Config{
			SourceSlot:  5,
			Columns:     []string{"H", "I"},
			StartRow:    2,
			TargetSlot:  4,
			TargetSheet: "active",
			TargetCell:  "A4",
		}
		if err := module.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// New constructs the module with its IO contracts declared.
func New(cfg Config) (*Module, error) {
	if cfg.SourceSlot <= 0 || cfg.TargetSlot <= 0 || cfg.TargetCell == "" {
		return nil, fmt.Errorf("%s: source slot, target slot and target cell are required", moduleID)
	}
	if len(cfg.Columns) == 0 {
		return nil, fmt.Errorf("%s: at least one column is required", moduleID)
	}
	columns := make([]int, 0, len(cfg.Columns))
	for _, name := range cfg.Columns {
		col, err := sheet.ColumnIndex(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", moduleID, err)
		}
		columns = append(columns, col)
	}
	if cfg.StartRow <= 0 {
		cfg.StartRow = 1
	}
	source := runtime.SlotRef(cfg.SourceSlot)
	target := runtime.SlotRef(cfg.TargetSlot)
	info := module.Info{
		ID:          moduleID,
		Name:        fmt.Sprintf("生成需求概述并写入附件%d %s", cfg.TargetSlot, cfg.TargetCell),
		Description: "Summarizes exported work items with the generation service.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetInputs(source)
	base.SetOutputs(target)
	return &Module{Base: &base, cfg: cfg, columns: columns, source: source, target: target}, nil
}

// Run extracts items, summarizes and writes the overview. Service failures
// are returned so the run stops.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.RequireLLM(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	items, ok, err := m.items(ctx)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.source), nil
	}
	if len(items) == 0 {
		return module.Skipped("未找到%s的 %v 列内容", m.source, m.cfg.Columns), nil
	}
	ctx.Logger.Info("work items extracted", zap.Int("items", len(items)))

	summary, err := runtime.Matcher(ctx).Summarize(ctx.Context(), items)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}

	points := matcher.ParseItemizedList(summary)
	if len(points) == 0 {
		ctx.Logger.Warn("overview has no numbered points", zap.Int("chars", len([]rune(summary))))
	}

	wb, slot, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.target)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.target), nil
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.TargetSheet)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := wb.SetValue(sheetName, m.cfg.TargetCell, summary); err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := runtime.SaveWorkbook(moduleID, ctx, wb); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	ctx.Logger.Info("overview written", zap.String("file", slot.Path), zap.Int("points", len(points)))
	return module.Completed("%d 项工作内容已汇总到 %s", len(items), m.cfg.TargetCell), nil
}

func (m *Module) items(ctx *module.ModuleContext) ([]string, bool, error) {
	book, _, ok, err := runtime.OpenBook(moduleID, ctx, m.source)
	if err != nil || !ok {
		return nil, ok, err
	}
	defer book.Close()
	grid, err := book.Grid(book.ActiveSheet())
	if err != nil {
		return nil, true, fmt.Errorf("%s: %w", moduleID, err)
	}
	return matcher.ExtractItems(grid, m.columns, m.cfg.StartRow), true, nil
}
