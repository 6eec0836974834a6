package sheet

import (
	"fmt"

	"github.com/extrame/xls"
)

// LegacyBook is a read-only .xls workbook.
type LegacyBook struct {
	path string
	book *xls.WorkBook
}

// OpenLegacy opens a BIFF8 .xls workbook.
func OpenLegacy(path string) (*LegacyBook, error) {
	book, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("sheet: open %s: %w", path, err)
	}
	return &LegacyBook{path: path, book: book}, nil
}

// SheetNames lists sheets in tab order.
func (b *LegacyBook) SheetNames() []string {
	names := make([]string, 0, b.book.NumSheets())
	for i := 0; i < b.book.NumSheets(); i++ {
		if ws := b.book.GetSheet(i); ws != nil {
			names = append(names, ws.Name)
		}
	}
	return names
}

// ActiveSheet returns the first sheet; the legacy reader does not expose
// the saved selection.
func (b *LegacyBook) ActiveSheet() string {
	if names := b.SheetNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Grid snapshots the displayed values of sheet.
func (b *LegacyBook) Grid(sheet string) (*Grid, error) {
	for i := 0; i < b.book.NumSheets(); i++ {
		ws := b.book.GetSheet(i)
		if ws == nil || ws.Name != sheet {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := legacyRow(ws, r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			width := row.LastCol()
			if width == 0 {
				width = legacyMaxCols
			}
			cells := make([]string, 0, width)
			for c := 0; c < width; c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, trimTrailingBlank(cells))
		}
		return &Grid{rows: trimTrailingEmpty(rows)}, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrSheetNotFound, sheet, b.path)
}

// legacyMaxCols is the BIFF8 column limit, used for rows written without a
// ROW record.
const legacyMaxCols = 256

// legacyRow returns nil for rows that hold no records; the reader panics on
// those.
func legacyRow(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}

// Close is a no-op; the reader holds no file handle after Open.
func (b *LegacyBook) Close() error {
	return nil
}

func trimTrailingEmpty(rows [][]string) [][]string {
	end := len(rows)
	for end > 0 && isEmptyRow(rows[end-1]) {
		end--
	}
	return rows[:end]
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
