package project_docs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/anchor"
	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/docx"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
)

const (
	moduleID      = "project-docs"
	moduleVersion = "1.0.0"
)

// Config locates the overview cell and the proposal document.
type Config struct {
	SummarySlot  int    `yaml:"summary_slot"`
	SummarySheet string `yaml:"summary_sheet"`
	SummaryCell  string `yaml:"summary_cell"`
	DocumentSlot int    `yaml:"document_slot"`
}

// Module writes generated proposal sections.
type Module struct {
	*module.Base
	cfg      Config
	summary  artifact.ArtifactRef
	document artifact.ArtifactRef
}

// Register installs the module factory into the provided registry.
func Register(reg *module.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(moduleID, func(raw module.Config) (module.Module, error) {
		cfg := Config{SummarySlot: 4, SummarySheet: "active", SummaryCell: "A4", DocumentSlot: 1}
		if err := module.DecodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return New(cfg)
	})
}

// New constructs the module with its IO contracts declared.
func New(cfg Config) (*Module, error) {
	if cfg.SummarySlot <= 0 || cfg.SummaryCell == "" || cfg.DocumentSlot <= 0 {
		return nil, fmt.Errorf("%s: summary slot, summary cell and document slot are required", moduleID)
	}
	summary := runtime.SlotRef(cfg.SummarySlot)
	document := runtime.SlotRef(cfg.DocumentSlot)
	info := module.Info{
		ID:          moduleID,
		Name:        "生成项目建议书内容并插入标识位置",
		Description: "Drafts proposal sections and inserts them after their markers.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetInputs(summary, document)
	base.SetOutputs(document, artifact.ManualSummary, artifact.SectionsText)
	return &Module{Base: &base, cfg: cfg, summary: summary, document: document}, nil
}

// Run generates sections and applies them. A section-generation failure or
// a locked proposal stops the run; the manual summary degrades to empty.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.RequireLLM(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	overview, ok, err := m.readOverview(ctx)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	if !ok {
		return module.Skipped("未找到%s文件", m.summary), nil
	}
	if overview == "" {
		return module.Skipped("%s 为空，跳过项目文档生成", m.cfg.SummaryCell), nil
	}

	docs := ctx.Config.File.Docs
	mutator := anchor.NewMutator(ctx.Artifacts, ctx.Logger, docs.MarkerToken,
		anchor.WithSignatures(docs.Signatures),
		anchor.WithReinitialize(docs.Reinitialize),
	)
	sections := mutator.Sections()

	manual := m.manualSummary(ctx)
	content, err := runtime.Matcher(ctx).GenerateSections(ctx.Context(), overview, manual, sections)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}

	side := ctx.Config.SideArtifactPath()
	if err := m.writeSide(ctx, side, sections, content, nil); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}

	slot, ok := ctx.Resolve(m.document)
	if !ok {
		var all []string
		for _, s := range sections {
			all = append(all, s.Name)
		}
		if err := m.writeSide(ctx, side, sections, content, all); err != nil {
			return module.Result{Status: module.StatusFailed}, err
		}
		return module.Skipped("未找到%s文件，内容已写入 %s", m.document, side), nil
	}

	report, err := mutator.Apply(slot.Path, content)
	if err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if len(report.Dropped) > 0 {
		if err := m.writeSide(ctx, side, sections, content, report.Dropped); err != nil {
			return module.Result{Status: module.StatusFailed}, err
		}
	}
	ctx.Logger.Info("proposal updated",
		zap.String("file", slot.Path),
		zap.Int("removed", report.Removed),
		zap.Strings("inserted", report.Inserted),
		zap.Strings("dropped", report.Dropped),
		zap.Bool("saved", report.Saved),
	)
	msg := fmt.Sprintf("插入 %d 个章节，清理旧内容 %d 段", len(report.Inserted), report.Removed)
	if len(report.Dropped) > 0 {
		msg += fmt.Sprintf("；%s 未找到插入标识，请从 %s 手动复制", strings.Join(report.Dropped, "、"), side)
	}
	return module.Completed("%s", msg), nil
}

func (m *Module) readOverview(ctx *module.ModuleContext) (string, bool, error) {
	wb, _, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.summary)
	if err != nil || !ok {
		return "", ok, err
	}
	defer wb.Close()
	sheetName, err := wb.Select(m.cfg.SummarySheet)
	if err != nil {
		return "", true, fmt.Errorf("%s: %w", moduleID, err)
	}
	value, err := wb.Value(sheetName, m.cfg.SummaryCell)
	if err != nil {
		return "", true, fmt.Errorf("%s: read %s: %w", moduleID, m.cfg.SummaryCell, err)
	}
	return strings.TrimSpace(value), true, nil
}

// manualSummary returns the cached manual summary when it is newer than the
// manual, otherwise summarizes again. Any failure yields "".
func (m *Module) manualSummary(ctx *module.ModuleContext) string {
	manualPath := ctx.Config.ManualPath()
	if manualPath == "" {
		return ""
	}
	if _, err := os.Stat(manualPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			ctx.Logger.Warn("manual unreadable", zap.String("path", manualPath), zap.Error(err))
		}
		return ""
	}
	cachePath := ctx.Config.ManualCachePath()
	check := ctx.Artifacts.CheckCache(artifact.ManualSummary, cachePath, manualPath)
	if check.State == artifact.StateFresh {
		if _, body, err := ctx.Artifacts.ReadCache(cachePath); err == nil {
			ctx.Logger.Debug("manual summary cache hit", zap.String("path", cachePath))
			return body
		}
	}

	doc, err := docx.Open(manualPath)
	if err != nil {
		ctx.Logger.Warn("manual could not be parsed", zap.String("path", manualPath), zap.Error(err))
		return ""
	}
	summary, err := runtime.Matcher(ctx).SummarizeManual(ctx.Context(), doc.Text())
	if err != nil {
		ctx.Logger.Warn("manual summary failed; continuing without it", zap.Error(err))
		return ""
	}
	if summary == "" {
		return ""
	}
	meta := artifact.Metadata{Source: manualPath, Model: ctx.Config.File.LLM.Model}
	if err := ctx.Artifacts.WriteCache(artifact.ManualSummary, cachePath, summary, meta); err != nil {
		ctx.Logger.Warn("manual summary cache not written", zap.String("path", cachePath), zap.Error(err))
	}
	return summary
}

func (m *Module) writeSide(ctx *module.ModuleContext, path string, sections []anchor.Section, content map[string]string, dropped []string) error {
	if path == "" {
		return nil
	}
	if err := anchor.WriteSideArtifact(ctx.Artifacts, path, sections, content, dropped); err != nil {
		return fmt.Errorf("%s: side artifact: %w", moduleID, err)
	}
	return nil
}
