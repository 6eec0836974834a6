package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeInto(m tea.Model, text string) tea.Model {
	for _, r := range text {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestPromptModelAcceptsOnEnter(t *testing.T) {
	var m tea.Model = newPromptModel()
	m = typeInto(m, "  工单派单 ")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	_, quit := cmd().(tea.QuitMsg)
	assert.True(t, quit)
	pm := m.(promptModel)
	assert.Equal(t, "工单派单", pm.Value())
	assert.Empty(t, pm.View())
}

func TestPromptModelCancelClearsValue(t *testing.T) {
	var m tea.Model = newPromptModel()
	m = typeInto(m, "报表")
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "", m.(promptModel).Value())
}

func TestPromptModelViewShowsLabel(t *testing.T) {
	view := newPromptModel().View()
	assert.Contains(t, view, promptLabel)
}

func TestPromptRequirementReadsLineWithoutTerminal(t *testing.T) {
	var out strings.Builder
	name, err := PromptRequirement(strings.NewReader("  新需求  \nignored\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "新需求", name)
	assert.Equal(t, promptLabel, out.String())

	name, err = PromptRequirement(strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, "", name)

	name, err = PromptRequirement(strings.NewReader("无换行"), &out)
	require.NoError(t, err)
	assert.Equal(t, "无换行", name)
}
