// Package sheet is the read/write contract the pipeline uses for workbooks.
// Modern .xlsx files are backed by excelize and are writable; legacy .xls
// files are read-only.
package sheet

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrReadOnly is returned when a write is attempted on a legacy workbook.
	ErrReadOnly = errors.New("sheet: legacy .xls workbooks are read-only")
	// ErrSheetNotFound reports a missing worksheet.
	ErrSheetNotFound = errors.New("sheet: worksheet not found")
)

// Book is a workbook opened for reading.
type Book interface {
	SheetNames() []string
	// ActiveSheet returns the sheet a user sees on open.
	ActiveSheet() string
	Grid(sheet string) (*Grid, error)
	Close() error
}

// Open opens a workbook for reading, choosing the backend by extension.
func Open(path string) (Book, error) {
	if IsLegacy(path) {
		return OpenLegacy(path)
	}
	return OpenWorkbook(path)
}

// IsLegacy reports whether path names a legacy .xls workbook.
func IsLegacy(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xls")
}

// FindSheet returns the first sheet whose name contains fragment.
func FindSheet(book Book, fragment string) (string, bool) {
	for _, name := range book.SheetNames() {
		if strings.Contains(name, fragment) {
			return name, true
		}
	}
	return "", false
}

// Grid is a rectangular snapshot of a worksheet's displayed values.
// Rows and columns are 1-based in every accessor.
type Grid struct {
	rows [][]string
}

// NewGrid wraps raw rows, mainly for tests.
func NewGrid(rows [][]string) *Grid {
	return &Grid{rows: rows}
}

// LastRow returns the last row index holding any cell, or zero.
func (g *Grid) LastRow() int {
	if g == nil {
		return 0
	}
	return len(g.rows)
}

// Value returns the cell at (row, col), or "" outside the populated range.
func (g *Grid) Value(row, col int) string {
	if g == nil || row < 1 || row > len(g.rows) {
		return ""
	}
	cells := g.rows[row-1]
	if col < 1 || col > len(cells) {
		return ""
	}
	return cells[col-1]
}

// Column returns the values of col from startRow to LastRow inclusive.
func (g *Grid) Column(col, startRow int) []string {
	if startRow < 1 {
		startRow = 1
	}
	var out []string
	for row := startRow; row <= g.LastRow(); row++ {
		out = append(out, g.Value(row, col))
	}
	return out
}

// Rows returns a copy of the grid contents.
func (g *Grid) Rows() [][]string {
	out := make([][]string, len(g.rows))
	for i, row := range g.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// ColumnIndex converts a column name ("L") to its 1-based index.
func ColumnIndex(name string) (int, error) {
	idx, err := excelize.ColumnNameToNumber(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("sheet: column %q: %w", name, err)
	}
	return idx, nil
}

// CellName builds an A1-style reference.
func CellName(col, row int) (string, error) {
	return excelize.CoordinatesToCellName(col, row)
}

// Number parses a displayed cell value. Blank and non-numeric text report false.
func Number(value string) (float64, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
