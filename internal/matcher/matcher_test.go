package matcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/cosmic-fill/internal/anchor"
	"github.com/kingrea/cosmic-fill/internal/llm"
	"github.com/kingrea/cosmic-fill/internal/sheet"
	"github.com/kingrea/cosmic-fill/internal/taxonomy"
)

type stubClient struct {
	reply    string
	err      error
	requests []llm.ChatRequest
	deadline time.Duration
}

func (s *stubClient) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if dl, ok := ctx.Deadline(); ok {
		s.deadline = time.Until(dl)
	}
	if s.err != nil {
		return llm.ChatResponse{}, s.err
	}
	return llm.ChatResponse{Content: s.reply}, nil
}

func catalog() taxonomy.Catalog {
	return taxonomy.FromRows([][]string{
		{"市场洞察", "建筑视角", "建筑查询"},
		{"", "", "建筑统计"},
		{"运营", "工单", "派单"},
	})
}

func TestExtractItemsColumnMajorDedup(t *testing.T) {
	// columns H (8) and I (9)
	row := func(h, i string) []string {
		r := make([]string, 9)
		r[7], r[8] = h, i
		return r
	}
	grid := sheet.NewGrid([][]string{
		row("标题", "描述"),
		row(" 登录 ", "导出"),
		row("", "登录"),
		row("查询", " "),
		row("导出", "统计"),
	})
	got := ExtractItems(grid, []int{8, 9}, 2)
	want := []string{"登录", "查询", "导出", "统计"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarizeSendsNumberedItems(t *testing.T) {
	client := &stubClient{reply: "内容概述：\n1. 登录"}
	m := New(client, nil, WithTimeouts(5*time.Second, 0, 0))
	summary, err := m.Summarize(context.Background(), []string{"登录", "查询"})
	require.NoError(t, err)
	assert.Equal(t, "内容概述：\n1. 登录", summary)
	require.Len(t, client.requests, 1)
	assert.Equal(t, 1000, client.requests[0].MaxTokens)
	assert.Contains(t, client.requests[0].Messages[0].Content, "1. 登录\n2. 查询")
	assert.LessOrEqual(t, client.deadline, 5*time.Second)
}

func TestSummarizePropagatesServiceFailure(t *testing.T) {
	client := &stubClient{err: llm.ErrService}
	_, err := New(client, nil).Summarize(context.Background(), []string{"登录"})
	assert.True(t, errors.Is(err, llm.ErrService))

	_, err = New(client, nil).Summarize(context.Background(), nil)
	assert.Error(t, err)
}

func TestParseItemizedList(t *testing.T) {
	got := ParseItemizedList("内容概述：\n1. 登录管理\n  2.查询\n- 其他\n10. 统计 ")
	assert.Equal(t, []string{"登录管理", "查询", "统计"}, got)
}

func TestParseMatchesValidatesLines(t *testing.T) {
	text := strings.Join([]string{
		"功能点编号|一级功能点|二级功能点|三级功能点|功能描述|工作量估计",
		"1|市场洞察|建筑视角|建筑查询|查询建筑信息|3.0",
		"|2|运营|工单|派单|自动派单|4|",
		"3|运营|工单|不存在|越界|1",
		"4|运营|工单|派单|缺工作量|多",
		"5|运营|工单",
		"6|运营|工单|派单|负数|-1",
		"以上为匹配结果",
	}, "\n")
	res := ParseMatches(text, catalog())
	require.Len(t, res.Items, 2)
	assert.Equal(t, 4, res.Discarded)
	assert.Equal(t, MatchedItem{Ref: taxonomy.Entry{Level1: "运营", Level2: "工单", Level3: "派单"}, Description: "自动派单", Workload: 4}, res.Items[1])
}

func TestParseMatchesKeepsEmptyNumberField(t *testing.T) {
	dispatch := taxonomy.Entry{Level1: "运营", Level2: "工单", Level3: "派单"}
	res := ParseMatches("|运营|工单|派单|自动派单|3\n|8|运营|工单|派单|派单提醒|2|\n7|运营|工单|派单|超时催办|1|", catalog())
	want := []MatchedItem{
		{Ref: dispatch, Description: "自动派单", Workload: 3},
		{Ref: dispatch, Description: "派单提醒", Workload: 2},
		{Ref: dispatch, Description: "超时催办", Workload: 1},
	}
	if diff := cmp.Diff(want, res.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, res.Discarded)
}

func TestMatchTaxonomySendsSoftTarget(t *testing.T) {
	client := &stubClient{reply: "1|运营|工单|派单|派单|7.5"}
	res, err := New(client, nil).MatchTaxonomy(context.Background(), "内容概述", catalog(), 19)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	prompt := client.requests[0].Messages[0].Content
	assert.Contains(t, prompt, "总和应接近19人天")
	assert.Contains(t, prompt, "3. 运营 -> 工单 -> 派单")
	assert.Equal(t, 1500, client.requests[0].MaxTokens)
}

func TestGroupMergesAndOrders(t *testing.T) {
	dispatch := taxonomy.Entry{Level1: "运营", Level2: "工单", Level3: "派单"}
	query := taxonomy.Entry{Level1: "市场洞察", Level2: "建筑视角", Level3: "建筑查询"}
	groups := Group([]MatchedItem{
		{Ref: dispatch, Description: "自动派单", Workload: 3.0},
		{Ref: query, Description: "查询", Workload: 1.5},
		{Ref: dispatch, Description: "派单提醒", Workload: 4.0},
	})
	want := []GroupedEntry{
		{Ref: query, Description: "1. 查询", Workload: 1.5},
		{Ref: dispatch, Description: "1. 自动派单\n2. 派单提醒", Workload: 7.0},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 8.5, Total(groups))
}

func TestParseSections(t *testing.T) {
	text := strings.Join([]string{
		"好的，以下是内容：",
		"【1.1 总体描述】",
		"1. 总体一",
		"",
		"2. 总体二",
		"【项目建设目标】 1. 目标一",
		"【9.9 附录】",
		"忽略",
		"【2.3 存在问题】",
		"1. 问题一",
	}, "\n")
	got := ParseSections(text, anchor.DefaultSections())
	want := map[string]string{
		"总体描述":   "1. 总体一\n\n2. 总体二",
		"项目建设目标": "1. 目标一",
		"存在问题":   "1. 问题一",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateSectionsRejectsUnstructuredReply(t *testing.T) {
	client := &stubClient{reply: "抱歉，我无法完成"}
	_, err := New(client, nil).GenerateSections(context.Background(), "概述", "", anchor.DefaultSections())
	assert.True(t, errors.Is(err, llm.ErrService))
	assert.Contains(t, client.requests[0].Messages[0].Content, "【1.3 项目建设必要性】")
}

func TestSummarizeManualSkipsEmptyText(t *testing.T) {
	client := &stubClient{reply: "unused"}
	out, err := New(client, nil).SummarizeManual(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, client.requests)
}
