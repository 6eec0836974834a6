package sheet

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyFixture = "testdata/workitems.xls"

func TestLegacyBookSheets(t *testing.T) {
	book, err := Open(legacyFixture)
	require.NoError(t, err)
	defer book.Close()

	if _, ok := book.(*LegacyBook); !ok {
		t.Fatalf("Open returned %T for a .xls path", book)
	}
	assert.Equal(t, []string{"导出", "说明"}, book.SheetNames())
	assert.Equal(t, "导出", book.ActiveSheet())
	name, ok := FindSheet(book, "说")
	require.True(t, ok)
	assert.Equal(t, "说明", name)

	_, err = book.Grid("missing")
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestLegacyBookGrid(t *testing.T) {
	book, err := OpenLegacy(legacyFixture)
	require.NoError(t, err)
	defer book.Close()

	grid, err := book.Grid("导出")
	require.NoError(t, err)

	pad := func(cells ...string) []string {
		return append(make([]string, 7), cells...)
	}
	want := [][]string{
		pad("需求名称", "需求描述", "", "", "工作量"),
		pad("登录改造", "支持短信验证码登录", "", "", "1"),
		pad("报表导出"),
		pad("登录改造", "", "", "", "x"),
		pad("", "批量导入", "", "", "2.5"),
		nil,
		nil,
		{"备注：导出数据"},
	}
	if diff := cmp.Diff(want, grid.Rows()); diff != "" {
		t.Fatalf("grid mismatch (-want +got):\n%s", diff)
	}

	column := grid.Column(12, 2)
	assert.Equal(t, []string{"1", "", "x", "2.5", "", "", ""}, column)
	one, ok := Number(column[0])
	require.True(t, ok)
	assert.Equal(t, 1.0, one)
	half, ok := Number(column[3])
	require.True(t, ok)
	assert.Equal(t, 2.5, half)
	_, ok = Number(column[2])
	assert.False(t, ok)

	notes, err := book.Grid("说明")
	require.NoError(t, err)
	assert.Equal(t, "仅供参考", notes.Value(1, 1))
	assert.Equal(t, 1, notes.LastRow())
}
