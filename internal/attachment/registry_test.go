package attachment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func seedFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

func TestParseBuildRoundTrip(t *testing.T) {
	cases := []struct {
		slotPrefix, requirement, attribute, ext string
	}{
		{"附件3", "关于订单系统改造的需求", "COSMIC工作量评估基础表", ".xlsx"},
		{"附件1", "需求", "项目建议书", ".docx"},
		{"附件12", "x", "y", ""},
		{"附件03", "补零", "工作量汇总", ".xlsx"},
		{"附件5", "导出 清单", "工作项", ".xls"},
	}
	for _, tc := range cases {
		name := BuildFilename(tc.slotPrefix, tc.requirement, tc.attribute, tc.ext)
		parsed, ok := ParseFilename("附件", name)
		if !ok {
			t.Fatalf("failed to parse %q", name)
		}
		if parsed.SlotPrefix() != tc.slotPrefix || parsed.Requirement != tc.requirement ||
			parsed.Attribute != tc.attribute || parsed.Ext != tc.ext {
			t.Fatalf("round trip mismatch for %q: %+v", name, parsed)
		}
		if parsed.Filename() != name {
			t.Fatalf("Filename() = %q, want %q", parsed.Filename(), name)
		}
	}
}

func TestParseFilenameRejectsOtherNames(t *testing.T) {
	for _, name := range []string{
		"readme.txt",
		"~$附件4-需求@工作量汇总.xlsx",
		"附件-需求@属性.xlsx",
		"附件4需求@属性.xlsx",
		"附件4-需求.xlsx",
	} {
		if _, ok := ParseFilename("附件", name); ok {
			t.Fatalf("expected %q to be rejected", name)
		}
	}
}

func TestParseFilenameRequirementStopsAtFirstAt(t *testing.T) {
	parsed, ok := ParseFilename("附件", "附件2-旧-需求@WBS@v2.xlsx")
	require.True(t, ok)
	assert.Equal(t, 2, parsed.Slot)
	assert.Equal(t, "旧-需求", parsed.Requirement)
	assert.Equal(t, "WBS@v2", parsed.Attribute)
}

func TestResolveSlot(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir,
		"附件3-需求@COSMIC工作量评估基础表.xlsx",
		"附件4-需求@工作量汇总.xlsx",
		"附件4-旧需求@工作量汇总.xlsx",
		"notes.txt",
	)
	reg := NewRegistry(dir, "附件")

	slot, ok := reg.Resolve(3)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "附件3-需求@COSMIC工作量评估基础表.xlsx"), slot.Path)

	assert.Len(t, reg.Matches(4), 2)
	slot, ok = reg.Resolve(4)
	require.True(t, ok)
	assert.Equal(t, "附件4-旧需求@工作量汇总.xlsx", filepath.Base(slot.Path))

	_, ok = reg.Resolve(9)
	assert.False(t, ok)
}

func TestResolveWarnsOnAmbiguousSlot(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir, "附件5-b@工作项.xlsx", "附件5-a@工作项.xls")
	core, logs := observer.New(zapcore.WarnLevel)
	reg := NewRegistry(dir, "附件", WithLogger(zap.New(core)))

	slot, ok := reg.Resolve(5)
	require.True(t, ok)
	assert.Equal(t, "附件5-a@工作项.xls", filepath.Base(slot.Path))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, []any{"附件5-a@工作项.xls", "附件5-b@工作项.xlsx"}, entry.ContextMap()["candidates"])
}

func TestResolveMissingDirectory(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "absent"), "附件")
	if _, ok := reg.Resolve(1); ok {
		t.Fatalf("expected no slot for missing directory")
	}
	_, err := reg.Rename("需求")
	if !errors.Is(err, ErrDirNotFound) {
		t.Fatalf("expected ErrDirNotFound, got %v", err)
	}
}

func TestRenameTwiceIsNoop(t *testing.T) {
	dir := t.TempDir()
	seedFiles(t, dir,
		"附件1-模板@项目建议书.docx",
		"附件2-模板@WBS工作量.xlsx",
		"附件03-模板@工作量汇总.xlsx",
		"其他文件.xlsx",
	)
	reg := NewRegistry(dir, "附件")

	first, err := reg.Rename("订单改造")
	require.NoError(t, err)
	assert.Equal(t, 3, first.Renamed)
	assert.Equal(t, 0, first.Skipped)
	assert.Contains(t, first.Moves, "附件03-模板@工作量汇总.xlsx -> 附件03-订单改造@工作量汇总.xlsx")

	second, err := reg.Rename("订单改造")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Renamed)
	assert.Equal(t, 3, second.Skipped)

	slot, ok := reg.Resolve(3)
	require.True(t, ok)
	assert.Equal(t, "附件03", slot.SlotPrefix())

	for _, name := range []string{"附件1-订单改造@项目建议书.docx", "附件2-订单改造@WBS工作量.xlsx", "附件03-订单改造@工作量汇总.xlsx", "其他文件.xlsx"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestRenameNeverOverwritesAnotherAttachment(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "附件3-甲@表.xlsx"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "附件3-乙@表.xlsx"), []byte("second"), 0o644))
	core, logs := observer.New(zapcore.WarnLevel)
	reg := NewRegistry(dir, "附件", WithLogger(zap.New(core)))

	report, err := reg.Rename("新")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Renamed)
	assert.Equal(t, 1, report.Skipped)

	data, err := os.ReadFile(filepath.Join(dir, "附件3-新@表.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
	data, err = os.ReadFile(filepath.Join(dir, "附件3-乙@表.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data), "second file must survive under its old name")

	entries := logs.FilterMessage("rename target already taken; file left unchanged").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "附件3-乙@表.xlsx", entries[0].ContextMap()["file"])
	assert.Equal(t, "附件3-甲@表.xlsx", entries[0].ContextMap()["taken_by"])
}

func TestRenameSkipsWhenTargetAlreadyNamed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "附件4-旧@汇总.xlsx"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "附件4-新@汇总.xlsx"), []byte("current"), 0o644))
	reg := NewRegistry(dir, "附件")

	report, err := reg.Rename("新")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Renamed)
	assert.Equal(t, 2, report.Skipped)
	data, err := os.ReadFile(filepath.Join(dir, "附件4-新@汇总.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "current", string(data))
	_, err = os.Stat(filepath.Join(dir, "附件4-旧@汇总.xlsx"))
	assert.NoError(t, err)
}
