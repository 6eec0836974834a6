// Package date_stamp writes today's date as 2025年3月7日 into one cell.
package date_stamp

import (
	"fmt"
	"time"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/runtime"
)

const (
	moduleID      = "date-stamp"
	moduleVersion = "1.0.0"
)

// Config selects the stamped cell.
type Config struct {
	Slot  int    `yaml:"slot"`
	Sheet string `yaml:"sheet"`
	Cell  string `yaml:"cell"`
}

// Module stamps the run date.
type Module struct {
	*module.Base
	cfg    Config
	target artifact.ArtifactRef
	clock  func() time.Time
}

// Option customizes the module.
type Option func(*Module)

// WithClock overrides the run context's clock.
func WithClock(clock func() time.Time) Option {
	return func(m *Module) {
		m.clock = clock
	}
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
func New(cfg Config, opts ...Option) (*Module, error) {
	if cfg.Slot <= 0 || cfg.Cell == "" {
		return nil, fmt.Errorf("%s: slot and cell are required", moduleID)
	}
	target := runtime.SlotRef(cfg.Slot)
	info := module.Info{
		ID:          moduleID,
		Name:        fmt.Sprintf("写入当前日期到附件%d %s", cfg.Slot, cfg.Cell),
		Description: "Writes the run date without zero padding.",
		Version:     moduleVersion,
	}
	base := module.NewBase(info)
	base.SetOutputs(target)
	m := &Module{Base: &base, cfg: cfg, target: target}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// FormatDate renders t as <year>年<month>月<day>日.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}

// Run writes the date string.
func (m *Module) Run(ctx *module.ModuleContext) (module.Result, error) {
	if err := runtime.ValidateContext(moduleID, ctx); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	now := ctx.Now()
	if m.clock != nil {
		now = m.clock()
	}
	stamp := FormatDate(now)
	wb, _, ok, err := runtime.OpenWorkbook(moduleID, ctx, m.target)
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
	if err := wb.SetValue(sheetName, m.cfg.Cell, stamp); err != nil {
		return module.Result{Status: module.StatusFailed}, fmt.Errorf("%s: %w", moduleID, err)
	}
	if err := runtime.SaveWorkbook(moduleID, ctx, wb); err != nil {
		return module.Result{Status: module.StatusFailed}, err
	}
	return module.Completed("%s = %s", m.cfg.Cell, stamp), nil
}
