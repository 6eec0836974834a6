package rename

import (
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/cosmic-fill/internal/module"
	"github.com/kingrea/cosmic-fill/internal/modules/moduletest"
)

func TestRunRenamesEveryAttachment(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	for _, name := range []string{
		"附件1-旧需求@项目建议书.docx",
		"附件3-旧需求@评估基础表.xlsx",
		"附件5-新需求@工作项.xls",
		"说明.txt",
	} {
		require.NoError(t, os.WriteFile(moduletest.Path(ctx, name), nil, 0o644))
	}

	result, err := New().Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != module.StatusCompleted {
		t.Fatalf("unexpected status: %+v", result)
	}

	entries, err := os.ReadDir(ctx.Config.DataDir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"说明.txt",
		"附件1-新需求@项目建议书.docx",
		"附件3-新需求@评估基础表.xlsx",
		"附件5-新需求@工作项.xls",
	}, names)
	assert.Contains(t, result.Message, "重命名 2 个文件，跳过 1 个")
}

func TestRunSkipsMissingDirectory(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	require.NoError(t, os.RemoveAll(ctx.Config.DataDir()))

	result, err := New().Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, module.StatusSkipped, result.Status)
	_, statErr := os.Stat(ctx.Config.DataDir())
	assert.True(t, os.IsNotExist(statErr), "skip must not recreate the data directory")
}

func TestRunRejectsEmptyRequirement(t *testing.T) {
	ctx := moduletest.NewContext(t, nil)
	ctx.Requirement = ""
	_, err := New().Run(ctx)
	assert.Error(t, err)
}
