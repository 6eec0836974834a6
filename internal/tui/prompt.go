package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const promptLabel = "请输入需求名称："

var (
	promptTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	promptHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// promptModel is a one-field form. Enter accepts, Esc or Ctrl+C cancels.
type promptModel struct {
	input     textinput.Model
	done      bool
	cancelled bool
}

func newPromptModel() promptModel {
	ti := textinput.New()
	ti.Placeholder = "例如：工单自动派单"
	ti.Prompt = "> "
	ti.CharLimit = 120
	ti.Width = 48
	ti.Focus()
	return promptModel{input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		promptTitleStyle.Render(promptLabel),
		m.input.View(),
		promptHintStyle.Render("回车确认 · Esc 取消"),
	) + "\n"
}

// Value returns the accepted name, or "" when the prompt was cancelled.
func (m promptModel) Value() string {
	if m.cancelled {
		return ""
	}
	return strings.TrimSpace(m.input.Value())
}

// PromptRequirement asks for the requirement name. When in is a terminal an
// interactive input is shown; otherwise a single line is read. The result is
// trimmed and may be empty.
func PromptRequirement(in io.Reader, out io.Writer) (string, error) {
	if isTerminal(in) && isTerminal(out) {
		final, err := tea.NewProgram(newPromptModel(), tea.WithInput(in), tea.WithOutput(out)).Run()
		if err != nil {
			return "", fmt.Errorf("prompt: %w", err)
		}
		return final.(promptModel).Value(), nil
	}
	return readLine(in, out)
}

func readLine(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, promptLabel)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("prompt: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
