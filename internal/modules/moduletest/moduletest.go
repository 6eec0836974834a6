// Package moduletest seeds attachment packages for pipeline step tests.
package moduletest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/config"
	"github.com/kingrea/cosmic-fill/internal/llm"
	"github.com/kingrea/cosmic-fill/internal/module"
)

// Requirement is the requirement name contexts are created with.
const Requirement = "新需求"

// FixedTime is the clock every test context reports.
var FixedTime = time.Date(2025, 3, 7, 9, 30, 0, 0, time.Local)

// NewContext builds a run context over an empty data directory. client may
// be nil for steps that never call the generation service.
func NewContext(t *testing.T, client llm.Client) *module.ModuleContext {
	t.Helper()
	for _, key := range []string{config.EnvDataDir, config.EnvAPIKey, config.EnvDeepSeek, config.EnvBaseURL, config.EnvModel} {
		t.Setenv(key, "")
	}
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatalf("mkdir data: %v", err)
	}
	cfgPath := filepath.Join(root, config.DefaultConfigFile)
	if err := os.WriteFile(cfgPath, []byte("data_dir: data\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := module.NewContext(context.Background(), cfg, zap.NewNop(), client, Requirement)
	ctx.Clock = func() time.Time { return FixedTime }
	return ctx
}

// Path returns the data-directory path of name.
func Path(ctx *module.ModuleContext, name string) string {
	return filepath.Join(ctx.Config.DataDir(), name)
}

// Sheet describes one seeded worksheet. Cell values starting with "=" are
// stored as formulas.
type Sheet struct {
	Name  string
	Cells map[string]any
}

// SeedWorkbook writes an .xlsx at path with sheets in order; the first sheet
// is active.
func SeedWorkbook(t *testing.T, path string, sheets ...Sheet) {
	t.Helper()
	if len(sheets) == 0 {
		sheets = []Sheet{{Name: "Sheet1"}}
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheets[0].Name); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, s := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(s.Name); err != nil {
				t.Fatalf("new sheet %s: %v", s.Name, err)
			}
		}
		for cell, value := range s.Cells {
			if text, ok := value.(string); ok && strings.HasPrefix(text, "=") {
				if err := f.SetCellFormula(s.Name, cell, text[1:]); err != nil {
					t.Fatalf("seed formula %s!%s: %v", s.Name, cell, err)
				}
				continue
			}
			if err := f.SetCellValue(s.Name, cell, value); err != nil {
				t.Fatalf("seed %s!%s: %v", s.Name, cell, err)
			}
		}
	}
	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// LegacyFixture is the committed .xls work-item export: sheet "导出" holds
// titles in H, descriptions in I and workloads 1, "", "x", 2.5 and a blank
// cell in L2:L6.
const LegacyFixture = "internal/sheet/testdata/workitems.xls"

// SeedLegacyWorkbook copies LegacyFixture to path.
func SeedLegacyWorkbook(t *testing.T, path string) {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "..")
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(LegacyFixture)))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadCell returns the raw value of a cell. An empty sheet name reads the
// active sheet.
func ReadCell(t *testing.T, path, sheet, cell string) string {
	t.Helper()
	f := openBook(t, path)
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	value, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("read %s!%s: %v", sheet, cell, err)
	}
	return value
}

// ReadFormula returns the formula of a cell without the leading "=".
func ReadFormula(t *testing.T, path, sheet, cell string) string {
	t.Helper()
	f := openBook(t, path)
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	formula, err := f.GetCellFormula(sheet, cell)
	if err != nil {
		t.Fatalf("read formula %s!%s: %v", sheet, cell, err)
	}
	return formula
}

// MergedRanges lists the merged ranges of sheet as "A1:B2".
func MergedRanges(t *testing.T, path, sheet string) []string {
	t.Helper()
	f := openBook(t, path)
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		t.Fatalf("merged cells: %v", err)
	}
	out := make([]string, 0, len(merged))
	for _, m := range merged {
		out = append(out, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	return out
}

func openBook(t *testing.T, path string) *excelize.File {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return f
}

// Client is a scripted generation client. Replies are returned in order;
// once exhausted the last reply repeats. Err, when set, fails every call.
type Client struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	calls []llm.ChatRequest
}

// Chat implements llm.Client.
func (c *Client) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	if c.Err != nil {
		return llm.ChatResponse{}, c.Err
	}
	if len(c.Replies) == 0 {
		return llm.ChatResponse{}, nil
	}
	idx := len(c.calls) - 1
	if idx >= len(c.Replies) {
		idx = len(c.Replies) - 1
	}
	return llm.ChatResponse{Content: c.Replies[idx], FinishReason: "stop"}, nil
}

// Calls returns the requests received so far.
func (c *Client) Calls() []llm.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.ChatRequest(nil), c.calls...)
}
