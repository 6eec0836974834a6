package matcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/taxonomy"
)

// MatchedItem is one accepted classification line.
type MatchedItem struct {
	Ref         taxonomy.Entry
	Description string
	Workload    float64
}

// MatchResult holds accepted items and how many table lines were dropped.
type MatchResult struct {
	Items     []MatchedItem
	Discarded int
}

// GroupedEntry merges every item sharing one taxonomy triple.
type GroupedEntry struct {
	Ref         taxonomy.Entry
	Description string
	Workload    float64
}

const matchHeader = "功能点编号"

var itemLine = regexp.MustCompile(`^\s*(\d+)\.\s*(.*)$`)

// ParseItemizedList returns the text after each leading "<n>." marker.
func ParseItemizedList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := itemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, strings.TrimSpace(m[2]))
	}
	return out
}

// MatchTaxonomy classifies summary against the catalog. target is passed as
// a soft goal for the workload total and never enforced.
func (m *Matcher) MatchTaxonomy(ctx context.Context, summary string, catalog taxonomy.Catalog, target float64) (MatchResult, error) {
	prompt := fmt.Sprintf(matchPrompt, summary, catalog.Listing(), formatWorkload(target))
	text, err := m.call(ctx, m.matchTimeout, prompt, matchMaxTokens, "match-taxonomy")
	if err != nil {
		return MatchResult{}, err
	}
	res := ParseMatches(text, catalog)
	m.logger.Info("taxonomy matches parsed",
		zap.Int("accepted", len(res.Items)),
		zap.Int("discarded", res.Discarded),
	)
	return res, nil
}

// ParseMatches reads "编号|一级|二级|三级|描述|工作量" lines. A line is kept only
// with at least six fields, a non-negative numeric workload and a triple
// present in the catalog; other pipe lines are counted as discarded.
func ParseMatches(text string, catalog taxonomy.Catalog) MatchResult {
	var res MatchResult
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.Contains(line, "|") {
			continue
		}
		// A leading pipe is a markdown border only when the line closes
		// with one too; otherwise it opens an empty number field.
		if strings.HasSuffix(line, "|") {
			line = strings.TrimPrefix(strings.TrimSuffix(line, "|"), "|")
		}
		if strings.HasPrefix(strings.TrimSpace(line), matchHeader) {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 6 {
			res.Discarded++
			continue
		}
		workload, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64)
		if err != nil || workload < 0 {
			res.Discarded++
			continue
		}
		ref := taxonomy.Entry{
			Level1: strings.TrimSpace(parts[1]),
			Level2: strings.TrimSpace(parts[2]),
			Level3: strings.TrimSpace(parts[3]),
		}
		if !catalog.Contains(ref) {
			res.Discarded++
			continue
		}
		res.Items = append(res.Items, MatchedItem{
			Ref:         ref,
			Description: strings.TrimSpace(parts[4]),
			Workload:    workload,
		})
	}
	return res
}

// Group merges items by taxonomy triple, ordered by ascending key. Member
// descriptions are numbered per group and workloads summed.
func Group(items []MatchedItem) []GroupedEntry {
	type acc struct {
		descriptions []string
		workload     float64
	}
	groups := map[taxonomy.Entry]*acc{}
	for _, item := range items {
		g, ok := groups[item.Ref]
		if !ok {
			g = &acc{}
			groups[item.Ref] = g
		}
		g.descriptions = append(g.descriptions, item.Description)
		g.workload += item.Workload
	}
	keys := make([]taxonomy.Entry, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Level1 != b.Level1 {
			return a.Level1 < b.Level1
		}
		if a.Level2 != b.Level2 {
			return a.Level2 < b.Level2
		}
		return a.Level3 < b.Level3
	})
	out := make([]GroupedEntry, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		out = append(out, GroupedEntry{
			Ref:         k,
			Description: numbered(g.descriptions),
			Workload:    g.workload,
		})
	}
	return out
}

// Total sums grouped workloads.
func Total(entries []GroupedEntry) float64 {
	var sum float64
	for _, e := range entries {
		sum += e.Workload
	}
	return sum
}

func formatWorkload(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const matchPrompt = `基于以下需求内容，从功能点码值中选择最恰当的功能点进行匹配。

需求内容：
%s

可用功能点码值：
%s

请按照以下格式返回匹配结果，每行一个匹配项：
功能点编号|一级功能点|二级功能点|三级功能点|功能描述|工作量估计

要求：
1. 根据需求内容的复杂度，选择2-3个最相关的功能点，最多选择5个
2. 为每个功能点提供简洁的功能描述（从需求内容中提取相关部分）
3. 根据功能复杂度估计工作量（人天），总和应接近%s人天
4. 功能点编号从1开始递增

示例格式：
1|市场洞察|建筑视角|建筑查询|实现建筑信息查询功能|3.0
2|...|...|...|...|...`
