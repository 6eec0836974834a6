package wbs_match

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kingrea/cosmic-fill/internal/llm"
	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/moduletest"
)

const reply = `功能点编号|一级功能点|二级功能点|三级功能点|功能描述|工作量
1|运营|工单|派单|自动派单|4
2|运营|工单|派单|手动派单|2
3|运营|报表|导出|导出报表|4
4|不存在|x|y|z|1
5|运营|报表|导出|缺工作量|多`

func seed(t *testing.T, ctx *module.ModuleContext, target any) string {
	t.Helper()
	moduletest.SeedWorkbook(t, moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx"), moduletest.Sheet{
		Name:  "汇总",
		Cells: map[string]any{"A4": "需求概述", "D7": target},
	})
	wbs := moduletest.Path(ctx, "附件2-新需求@WBS工作量.xlsx")
	moduletest.SeedWorkbook(t, wbs,
		moduletest.Sheet{Name: "WBS", Cells: map[string]any{
			"A1": "序号", "B1": "一级功能点", "F1": "工作量",
			"A2": "=ROW()-1", "B2": "旧", "F2": 99,
			"B7": "旧合计", "F7": 99,
			"B12": "残留",
		}},
		moduletest.Sheet{Name: "功能点码值", Cells: map[string]any{
			"A1": "一级", "B1": "二级", "C1": "三级",
			"A2": "运营", "B2": "工单", "C2": "派单",
			"B3": "报表", "C3": "导出",
		}},
	)
	return wbs
}

func TestRunRewritesWBSTable(t *testing.T) {
	client := &moduletest.Client{Replies: []string{reply}}
	ctx := moduletest.NewContext(t, client)
	wbs := seed(t, ctx, 10)
	mod, err := New(DefaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("unexpected status: %+v", result)
	}

	read := func(cell string) string { return moduletest.ReadCell(t, wbs, "WBS", cell) }
	got := [][]string{
		{read("B2"), read("C2"), read("D2"), read("E2"), read("F2")},
		{read("B3"), read("C3"), read("D3"), read("E3"), read("F3")},
		{read("B4"), read("F4")},
	}
	want := [][]string{
		{"运营", "工单", "派单", "1. 自动派单\n2. 手动派单", "6"},
		{"运营", "报表", "导出", "1. 导出报表", "4"},
		{"合计", "10"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("table mismatch (-want +got):\n%s", diff)
	}
	for _, cell := range []string{"A2", "A3", "A4"} {
		assert.Equal(t, "ROW()-1", moduletest.ReadFormula(t, wbs, "WBS", cell))
	}
	assert.Equal(t, []string{"B4:E4"}, moduletest.MergedRanges(t, wbs, "WBS"))
	assert.Equal(t, "", read("B7"))
	assert.Equal(t, "", read("B12"))
	assert.Equal(t, "一级功能点", read("B1"))
	assert.Contains(t, result.Message, "丢弃 2 行")

	prompt := client.Calls()[0].Messages[0].Content
	assert.Contains(t, prompt, "1. 运营 -> 工单 -> 派单")
	assert.Contains(t, prompt, "总和应接近10人天")
}

func TestRunDefaultsTargetWhenEmpty(t *testing.T) {
	client := &moduletest.Client{Replies: []string{reply}}
	ctx := moduletest.NewContext(t, client)
	wbs := seed(t, ctx, "")
	mod, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, "19", moduletest.ReadCell(t, wbs, "WBS", "F4"))
	assert.Contains(t, client.Calls()[0].Messages[0].Content, "19人天")
}

func TestRunLogsDeviationFromTarget(t *testing.T) {
	for _, tc := range []struct {
		target any
		warned bool
	}{
		{target: 10, warned: false},
		{target: 12, warned: true},
	} {
		client := &moduletest.Client{Replies: []string{reply}}
		ctx := moduletest.NewContext(t, client)
		core, logs := observer.New(zapcore.WarnLevel)
		ctx.Logger = zap.New(core)
		seed(t, ctx, tc.target)
		mod, err := New(DefaultConfig())
		require.NoError(t, err)

		_, err = mod.Run(ctx)
		require.NoError(t, err)
		entries := logs.FilterMessage("matched workload deviates from target").All()
		if !tc.warned {
			assert.Empty(t, entries, "target %v", tc.target)
			continue
		}
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, 10.0, fields["matched"])
		assert.Equal(t, -2.0, fields["deviation"])
	}
}

func TestRunSkipsEmptySummary(t *testing.T) {
	client := &moduletest.Client{Replies: []string{reply}}
	ctx := moduletest.NewContext(t, client)
	moduletest.SeedWorkbook(t, moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx"), moduletest.Sheet{Name: "汇总"})
	mod, err := New(DefaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, module.StatusSkipped, result.Status)
	assert.Empty(t, client.Calls())
}

func TestRunSkipsWithoutTaxonomy(t *testing.T) {
	client := &moduletest.Client{Replies: []string{reply}}
	ctx := moduletest.NewContext(t, client)
	moduletest.SeedWorkbook(t, moduletest.Path(ctx, "附件4-新需求@工作量汇总.xlsx"), moduletest.Sheet{
		Name:  "汇总",
		Cells: map[string]any{"A4": "需求概述"},
	})
	mod, err := New(DefaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, module.StatusSkipped, result.Status)
	assert.Empty(t, client.Calls())
}

func TestRunSkipsWhenNothingMatches(t *testing.T) {
	client := &moduletest.Client{Replies: []string{"1|不存在|x|y|z|1"}}
	ctx := moduletest.NewContext(t, client)
	wbs := seed(t, ctx, 10)
	mod, err := New(DefaultConfig())
	require.NoError(t, err)

	result, err := mod.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, module.StatusSkipped, result.Status)
	assert.Equal(t, "旧", moduletest.ReadCell(t, wbs, "WBS", "B2"))
}

func TestRunServiceFailureIsFatal(t *testing.T) {
	client := &moduletest.Client{Err: llm.ErrService}
	ctx := moduletest.NewContext(t, client)
	wbs := seed(t, ctx, 10)
	mod, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = mod.Run(ctx)
	if !errors.Is(err, llm.ErrService) {
		t.Fatalf("expected ErrService, got %v", err)
	}
	assert.Equal(t, "旧", moduletest.ReadCell(t, wbs, "WBS", "B2"))
}
