package wbs_match

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/matcher"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
	"github.com/kingrea/cosmic-fill/internal/sheet"
	"github.com/kingrea/cosmic-fill/internal/taxonomy"
)

const (
	moduleID      = "wbs-match"
	moduleVersion = "1.0.0"

	rowFormula = "=ROW()-1"
	totalLabel = "合计"
	// tableColumns is the A..F width of the WBS table.
	tableColumns = 6
	// clearSlack blanks rows past the previous last row as well.
	clearSlack = 10
)

// Config locates the overview, the target workload and the WBS sheet.
type Config struct {
	SummarySlot   int     `yaml:"summary_slot"`
	SummarySheet  string  `yaml:"summary_sheet"`
	SummaryCell   string  `yaml:"summary_cell"`
	TargetCell    string  `yaml:"target_cell"`
	DefaultTarget float64 `yaml:"default_target"`
	WBSSlot       int     `yaml:"wbs_slot"`
	WBSSheet      string  `yaml:"wbs_sheet"`
}

// Module rewrites the WBS table.
type Module struct {
	*module.Base
	cfg     Config
	summary artifact.ArtifactRef
	wbs     artifact.ArtifactRef
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(raw module.Config) (module.Module, error) {
		cfg := DefaultConfig()
		if err := module.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// DefaultConfig mirrors the standard attachment layout.
func DefaultConfig() Config {
	return Config{
		SummarySlot:   4,
		SummarySheet:  "active",
		SummaryCell:   "A4",
		TargetCell:    "D7",
		DefaultTarget: 19.0,
		WBSSlot:       2,
		WBSSheet:      "active",
	}
}

// New constructs the module with its IO contracts declared.
func New(cfg Config) (*Module, error) {
	if cfg.SummarySlot <= 0 || cfg.WBSSlot <= 0 {
		return nil, fmt.Errorf("%s: summary and wbs slots are required", moduleID)
	}
	if cfg.SummaryCell == "" || cfg.TargetCell == "" {
		return nil, fmt.Errorf("%s: summary and target cells are required", moduleID)
	}
	summary := runtime.SlotRef(cfg.SummarySlot)
	wbs := runtime.SlotRef(cfg.WBSSlot)
	info := module.Info{
		ID:          moduleID,
		Name:        "匹配功能点并更新WBS工作量",
		Description: "Matches the overview to the function taxonomy and rewrites the WBS table.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetInputs(summary, wbs)
	base.SetOutputs(wbs)
	return &Module{Base: &base, cfg: cfg, summary: summary, wbs: wbs}, nil
}

// Run performs read, load, match, group and rewrite. Any precondition that
// is not met skips the step; service failures stop the run.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.RequireLLM(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	overview, target, ok, err := m.readInputs(ctx)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.summary), nil
	}
	if overview == "" {
		return module.Skipped("%s 为空，跳过功能点匹配", m.cfg.SummaryCell), nil
	}

	catalog, source, err := m.loader(ctx).Load()
	if errors.Is(err, taxonomy.ErrNoEntries) {
		return module.Skipped("无法加载功能点码值"), nil
	}
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}

	res, err := runtime.Matcher(ctx).MatchTaxonomy(ctx.Context(), overview, catalog, target)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if len(res.Items) == 0 {
		return module.Skipped("未匹配到功能点（丢弃 %d 行）", res.Discarded), nil
	}
	grouped := matcher.Group(res.Items)
	sum := matcher.Total(grouped)
	if deviation := sum - target; math.Abs(deviation) > 1e-9 {
		ctx.Logger.Warn("matched workload deviates from target",
			zap.Float64("matched", sum),
			zap.Float64("target", target),
			zap.Float64("deviation", deviation),
		)
	}

	wb, slot, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.wbs)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.wbs), nil
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.WBSSheet)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := WriteTable(wb, sheetName, grouped, target); err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := runtime.SaveWorkbook(moduleID, ctx, wb); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	ctx.Logger.Info("wbs table rewritten",
		zap.String("file", slot.Path),
		zap.String("taxonomy", source),
		zap.Int("matched", len(res.Items)),
		zap.Int("groups", len(grouped)),
		zap.Int("discarded", res.Discarded),
	)
	return module.Completed("填入 %d 个功能点（%d 条匹配，丢弃 %d 行），合计 %s 人天",
		len(grouped), len(res.Items), res.Discarded, runtime.FormatNumber(target)), nil
}

func (m *Module) readInputs(ctx *module.ModuleContext) (string, float64, bool, error) {
	wb, _, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.summary)
	if err != nil || !ok {
		return "", 0, ok, err
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.SummarySheet)
	if err != nil {
		return "", 0, true, fmt.Errorf("%s: %w", moduleID, err)
	}
	overview, err := wb.Value(sheetName, m.cfg.SummaryCell)
	if err != nil {
		return "", 0, true, fmt.Errorf("%s: read %s: %w", moduleID, m.cfg.SummaryCell, err)
	}
	raw, err := wb.Value(sheetName, m.cfg.TargetCell)
	if err != nil {
		return "", 0, true, fmt.Errorf("%s: read %s: %w", moduleID, m.cfg.TargetCell, err)
	}
	target, ok := sheet.Number(raw)
	if !ok || target == 0 {
		target = m.cfg.DefaultTarget
	}
	return strings.TrimSpace(overview), target, true, nil
}

func (m *Module) loader(ctx *module.ModuleContext) *taxonomy.Loader {
	var sources []taxonomy.Source
	tc := ctx.Config.File.Taxonomy
	if tc.EmbeddedSlot > 0 {
		if slot, ok := ctx.Attachments.Resolve(tc.EmbeddedSlot); ok {
			sources = append(sources, taxonomy.SheetSource{
				Label:    fmt.Sprintf("附件%d:%s", tc.EmbeddedSlot, tc.EmbeddedSheet),
				Path:     slot.Path,
				Fragment: tc.EmbeddedSheet,
			})
		}
	}
	sources = append(sources, taxonomy.SheetSource{Label: "catalog", Path: ctx.Config.CatalogPath()})
	return taxonomy.NewLoader(ctx.Logger, sources...)
}

// WriteTable clears the WBS data area and writes one row per grouped entry
// followed by the total row carrying target.
func WriteTable(wb *sheet.Workbook, sheetName string, entries []matcher.GroupedEntry, target float64) error {
	if _, err := wb.UnmergeAll(sheetName); err != nil {
		return err
	}
	grid, err := wb.Grid(sheetName)
	if err != nil {
		return err
	}
	for row := 2; row <= grid.LastRow()+clearSlack; row++ {
		for col := 1; col <= tableColumns; col++ {
			cell, err := sheet.CellName(col, row)
			if err != nil {
				return err
			}
			if err := wb.Clear(sheetName, cell); err != nil {
				return err
			}
		}
	}

	row := 2
	for _, e := range entries {
		values := []any{e.Ref.Level1, e.Ref.Level2, e.Ref.Level3, e.Description, e.Workload}
		if err := wb.SetFormula(sheetName, fmt.Sprintf("A%d", row), rowFormula); err != nil {
			return err
		}
		for i, v := range values {
			cell, err := sheet.CellName(i+2, row)
			if err != nil {
				return err
			}
			if err := wb.SetValue(sheetName, cell, v); err != nil {
				return err
			}
		}
		row++
	}

	if err := wb.SetFormula(sheetName, fmt.Sprintf("A%d", row), rowFormula); err != nil {
		return err
	}
	if err := wb.Merge(sheetName, fmt.Sprintf("B%d", row), fmt.Sprintf("E%d", row)); err != nil {
		return err
	}
	if err := wb.SetValue(sheetName, fmt.Sprintf("B%d", row), totalLabel); err != nil {
		return err
	}
	return wb.SetValue(sheetName, fmt.Sprintf("F%d", row), target)
}
