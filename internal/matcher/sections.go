package matcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/anchor"
	"github.com/kingrea/cosmic-fill/internal/llm"
)

var sectionHeading = regexp.MustCompile(`^【\s*([0-9.]+)?\s*([^】]+?)\s*】\s*(.*)$`)

// GenerateSections drafts every proposal section in one call. The response
// is split on "【<number> <name>】" headings; sections the service left out
// are absent from the map. A response with no recognizable heading is a
// service failure.
func (m *Matcher) GenerateSections(ctx context.Context, summary, manual string, sections []anchor.Section) (map[string]string, error) {
	var outline strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&outline, "【%s %s】\n", s.Number, s.Name)
	}
	if strings.TrimSpace(manual) == "" {
		manual = "（无）"
	}
	prompt := fmt.Sprintf(sectionsPrompt, summary, manual, strings.TrimRight(outline.String(), "\n"))
	text, err := m.call(ctx, m.sectionsTimeout, prompt, sectionsMaxTokens, "project-sections")
	if err != nil {
		return nil, err
	}
	parsed := ParseSections(text, sections)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("matcher: project-sections: %w: no section headings in response", llm.ErrService)
	}
	for _, s := range sections {
		if _, ok := parsed[s.Name]; !ok {
			m.logger.Warn("section missing from generated text", zap.String("section", s.Number+" "+s.Name))
		}
	}
	return parsed, nil
}

// ParseSections splits text into section bodies keyed by section name.
// Headings naming unknown sections end the previous block and are ignored.
func ParseSections(text string, sections []anchor.Section) map[string]string {
	known := map[string]string{}
	for _, s := range sections {
		known[s.Name] = s.Name
		known[s.Number] = s.Name
	}
	out := map[string]string{}
	var current string
	var body []string
	flush := func() {
		if current == "" {
			return
		}
		if content := strings.TrimSpace(strings.Join(body, "\n")); content != "" {
			out[current] = content
		}
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if m := sectionHeading.FindStringSubmatch(line); m != nil {
			flush()
			body = nil
			current = resolveSection(known, m[1], m[2])
			if rest := strings.TrimSpace(m[3]); rest != "" {
				body = append(body, rest)
			}
			continue
		}
		if current != "" {
			body = append(body, raw)
		}
	}
	flush()
	return out
}

func resolveSection(known map[string]string, number, name string) string {
	name = strings.TrimSpace(name)
	if s, ok := known[name]; ok {
		return s
	}
	if s, ok := known[strings.TrimSpace(number)]; ok {
		return s
	}
	return ""
}

const sectionsPrompt = `你正在编写项目建议书。请根据以下需求概述和系统用户手册概述，分别撰写下列章节的正文内容。

需求概述：
%s

用户手册概述：
%s

请严格按照以下章节标题输出，每个章节标题单独占一行，标题后为该章节正文，正文使用有序列表，每条一行：
%s

要求：
1. 只输出上述章节，不要添加其他标题或说明
2. 每个章节3-5条，语言正式、简洁
3. 内容应与需求概述保持一致`
