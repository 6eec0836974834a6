package cross_reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/moduletest"
)

func defaultConfig() Config {
	return Config{
		Source:   CellRef{Slot: 3, Sheet: "second", Cell: "E3"},
		Fallback: Fallback{Sheet: "COSMIC功能点拆分表", Column: "K", StartRow: 4},
		Target:   CellRef{Slot: 4, Sheet: "active", Cell: "B7"},
		Value:    "function_points",
	}
}

func seedTarget(t *testing.T, path string) {
	t.Helper()
	moduletest.SeedWorkbook(t, path, moduletest.Sheet{Name: "汇总"})
}

func TestRunCopiesCachedValueAsNumber(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	moduletest.SeedWorkbook(t, moduletest.Path(ctx, "附件3-新需求@评估基础表.xlsx"),
		moduletest.Sheet{Name: "封面"},
		moduletest.Sheet{Name: "基础表", Cells: map[string]any{"E3": 42}},
	)
	target := moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx")
	seedTarget(t, target)
	mod, err := New(defaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("unexpected status: %+v", result)
	}
	assert.Equal(t, "42", moduletest.ReadCell(t, target, "汇总", "B7"))
	assert.Equal(t, "42", ctx.Values.String("function_points", ""))
	assert.NotContains(t, result.Message, "重新计数")
}

func TestRunRecomputesUncachedFormula(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	moduletest.SeedWorkbook(t, moduletest.Path(ctx, "附件3-新需求@评估基础表.xlsx"),
		moduletest.Sheet{Name: "封面"},
		moduletest.Sheet{Name: "基础表", Cells: map[string]any{"E3": "=COUNTA(COSMIC功能点拆分表!K:K)-1"}},
		moduletest.Sheet{Name: "COSMIC功能点拆分表", Cells: map[string]any{
			"K1": "标题",
			"K3": "表头",
			"K4": "E",
			"K5": "  ",
			"K6": "R",
			"K9": "W",
		}},
	)
	target := moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx")
	seedTarget(t, target)
	mod, err := New(defaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", moduletest.ReadCell(t, target, "汇总", "B7"))
	assert.Contains(t, result.Message, "重新计数")
}

func TestRunFallbackWithoutCountSheetWritesZero(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	moduletest.SeedWorkbook(t, moduletest.Path(ctx, "附件3-新需求@评估基础表.xlsx"),
		moduletest.Sheet{Name: "封面"},
		moduletest.Sheet{Name: "基础表"},
	)
	target := moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx")
	seedTarget(t, target)
	mod, err := New(defaultConfig())
	require.NoError(t, err)

	_, err = mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0", moduletest.ReadCell(t, target, "汇总", "B7"))
}

func TestRunSkipsMissingSource(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	target := moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx")
	seedTarget(t, target)
	mod, err := New(defaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, module.StatusSkipped, result.Status)
	assert.Equal(t, "", moduletest.ReadCell(t, target, "汇总", "B7"))
}
