// Package matcher turns exported work items into the summary and taxonomy
// classification written into the workload documents, and drafts the
// proposal sections inserted by the anchor mutator.
package matcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/llm"
	"github.com/kingrea/cosmic-fill/internal/sheet"
)

const (
	summaryMaxTokens  = 1000
	matchMaxTokens    = 1500
	sectionsMaxTokens = 3000
	manualMaxTokens   = 1500

	// manualPromptLimit bounds the manual text sent for summarization.
	manualPromptLimit = 12000
)

// Matcher wraps the generation client with per-call deadlines.
type Matcher struct {
	client          llm.Client
	logger          *zap.Logger
	summaryTimeout  time.Duration
	matchTimeout    time.Duration
	sectionsTimeout time.Duration
}

// Option customizes a Matcher.
type Option func(*Matcher)

// WithTimeouts overrides the per-call deadlines. Zero values keep defaults.
func WithTimeouts(summary, match, sections time.Duration) Option {
	return func(m *Matcher) {
		if summary > 0 {
			m.summaryTimeout = summary
		}
		if match > 0 {
			m.matchTimeout = match
		}
		if sections > 0 {
			m.sectionsTimeout = sections
		}
	}
}

// New builds a matcher around client.
func New(client llm.Client, logger *zap.Logger, opts ...Option) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Matcher{
		client:          client,
		logger:          logger,
		summaryTimeout:  30 * time.Second,
		matchTimeout:    30 * time.Second,
		sectionsTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExtractItems reads columns from startRow down, column by column, trimming
// values, dropping blanks and keeping only the first occurrence of each.
func ExtractItems(grid *sheet.Grid, columns []int, startRow int) []string {
	seen := map[string]struct{}{}
	var items []string
	for _, col := range columns {
		for _, raw := range grid.Column(col, startRow) {
			value := strings.TrimSpace(raw)
			if value == "" {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			items = append(items, value)
		}
	}
	return items
}

// Summarize asks the service for a condensed, ordered overview of items.
func (m *Matcher) Summarize(ctx context.Context, items []string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("matcher: no work items to summarize")
	}
	prompt := fmt.Sprintf(summaryPrompt, numbered(items))
	return m.call(ctx, m.summaryTimeout, prompt, summaryMaxTokens, "summarize")
}

// SummarizeManual condenses user-manual text for the section prompt.
func (m *Matcher) SummarizeManual(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if runes := []rune(text); len(runes) > manualPromptLimit {
		text = string(runes[:manualPromptLimit])
	}
	prompt := fmt.Sprintf(manualPrompt, text)
	return m.call(ctx, m.sectionsTimeout, prompt, manualMaxTokens, "manual-summary")
}

func (m *Matcher) call(ctx context.Context, timeout time.Duration, prompt string, maxTokens int, purpose string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	m.logger.Info("calling generation service", zap.String("purpose", purpose), zap.Duration("timeout", timeout))
	resp, err := m.client.Chat(callCtx, llm.Prompt(prompt, maxTokens))
	if err != nil {
		return "", fmt.Errorf("matcher: %s: %w", purpose, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func numbered(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = fmt.Sprintf("%d. %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}

const summaryPrompt = `基于以下工作项内容，请生成一个精简的需求内容概述。要求：
1. 以"内容概述："开头
2. 总结的内容为有序列表
3. 每个列表项应该简洁明了，概括主要功能点
4. 合并相似的功能点
5. 按照逻辑顺序排列

工作项内容：
%s

请生成概述：`

const manualPrompt = `请阅读以下用户手册内容，概括系统的主要功能模块和业务流程，不超过500字，使用有序列表输出。

用户手册内容：
%s`
