package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/workflow/engine"
)

var (
	bannerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelSkipped    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelFailed     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Reporter prints stage progress.
type Reporter struct {
	out io.Writer
}

var _ engine.Reporter = (*Reporter)(nil)

// NewReporter writes to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// StageStarted prints the banner for a step.
func (r *Reporter) StageStarted(index, total int, name string) {
	fmt.Fprintln(r.out, bannerStyle.Render(fmt.Sprintf("=== [%d/%d] %s ===", index, total, name)))
}

// StageFinished prints the step outcome and any attachment problems.
func (r *Reporter) StageFinished(_, _ int, run engine.ModuleRun) {
	for _, att := range run.Attachments {
		switch att.Status {
		case module.AttachmentMissing:
			fmt.Fprintln(r.out, detailStyle.Render(fmt.Sprintf("  未找到附件%d", att.Slot)))
		case module.AttachmentAmbiguous:
			if len(att.Files) == 0 {
				continue
			}
			fmt.Fprintln(r.out, detailStyle.Render(fmt.Sprintf("  附件%d有多个文件，使用 %s", att.Slot, att.Files[0])))
		}
	}
	label, text := statusLabel(run.Status), run.Message
	if run.Error != "" {
		text = run.Error
	}
	fmt.Fprintf(r.out, "%s %s\n", label, text)
}

// Summary prints the closing box for a finished run.
func (r *Reporter) Summary(state engine.State) {
	counts := state.Counts()
	lines := []string{
		fmt.Sprintf("需求：%s", state.Requirement),
		fmt.Sprintf("完成 %d · 跳过 %d · 失败 %d",
			counts[module.StatusCompleted], counts[module.StatusSkipped], counts[module.StatusFailed]),
	}
	if state.StatusReason != "" {
		lines = append(lines, state.StatusReason)
	}
	fmt.Fprintln(r.out, summaryBoxStyle.Render(strings.Join(lines, "\n")))
}

func statusLabel(status module.Status) string {
	switch status {
	case module.StatusCompleted:
		return labelDone.Render("✓")
	case module.StatusSkipped:
		return labelSkipped.Render("-")
	case module.StatusFailed:
		return labelFailed.Render("✗")
	default:
		return string(status)
	}
}
