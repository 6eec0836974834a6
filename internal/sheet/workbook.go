package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kingrea/cosmic-fill/internal/artifact"
)

// Workbook is a writable .xlsx workbook.
type Workbook struct {
	path string
	file *excelize.File
}

// OpenWorkbook opens an .xlsx file. Legacy .xls paths return ErrReadOnly.
func OpenWorkbook(path string) (*Workbook, error) {
	if IsLegacy(path) {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("sheet: open %s: %w", path, err)
	}
	return &Workbook{path: path, file: f}, nil
}

// NewWorkbook wraps an in-memory excelize file bound to path.
func NewWorkbook(path string, f *excelize.File) *Workbook {
	return &Workbook{path: path, file: f}
}

// Path returns the file the workbook saves to.
func (w *Workbook) Path() string {
	return w.path
}

// SheetNames lists sheets in tab order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// ActiveSheet returns the active sheet name.
func (w *Workbook) ActiveSheet() string {
	name := w.file.GetSheetName(w.file.GetActiveSheetIndex())
	if name == "" {
		if names := w.SheetNames(); len(names) > 0 {
			return names[0]
		}
	}
	return name
}

// SheetAt returns the sheet at a 0-based tab index.
func (w *Workbook) SheetAt(index int) (string, error) {
	names := w.SheetNames()
	if index < 0 || index >= len(names) {
		return "", fmt.Errorf("%w: index %d in %s", ErrSheetNotFound, index, w.path)
	}
	return names[index], nil
}

// Select resolves a sheet selector: "active", "second", a 1-based tab
// number, or a literal sheet name.
func (w *Workbook) Select(selector string) (string, error) {
	switch selector {
	case "", "active":
		return w.ActiveSheet(), nil
	case "second":
		// Single-sheet workbooks fall back to the active sheet.
		if name, err := w.SheetAt(1); err == nil {
			return name, nil
		}
		return w.ActiveSheet(), nil
	}
	for _, name := range w.SheetNames() {
		if name == selector {
			return name, nil
		}
	}
	var index int
	if _, err := fmt.Sscanf(selector, "%d", &index); err == nil {
		return w.SheetAt(index - 1)
	}
	return "", fmt.Errorf("%w: %q in %s", ErrSheetNotFound, selector, w.path)
}

// Grid snapshots the raw values of sheet.
func (w *Workbook) Grid(sheet string) (*Grid, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSheetNotFound, sheet, err)
	}
	return &Grid{rows: rows}, nil
}

// Value returns the cached value of a cell; formula cells without a cached
// result read as "".
func (w *Workbook) Value(sheet, cell string) (string, error) {
	return w.file.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
}

// Formula returns the formula stored in a cell, without the leading "=".
func (w *Workbook) Formula(sheet, cell string) (string, error) {
	return w.file.GetCellFormula(sheet, cell)
}

// SetValue writes a literal value.
func (w *Workbook) SetValue(sheet, cell string, value any) error {
	if err := w.file.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("sheet: set %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// SetFormula writes a formula; a leading "=" is accepted.
func (w *Workbook) SetFormula(sheet, cell, formula string) error {
	if len(formula) > 0 && formula[0] == '=' {
		formula = formula[1:]
	}
	if err := w.file.SetCellFormula(sheet, cell, formula); err != nil {
		return fmt.Errorf("sheet: set formula %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// Clear blanks a cell.
func (w *Workbook) Clear(sheet, cell string) error {
	if err := w.file.SetCellValue(sheet, cell, nil); err != nil {
		return fmt.Errorf("sheet: clear %s!%s: %w", sheet, cell, err)
	}
	return nil
}

// UnmergeAll removes every merged range of sheet and returns how many there were.
func (w *Workbook) UnmergeAll(sheet string) (int, error) {
	merged, err := w.file.GetMergeCells(sheet)
	if err != nil {
		return 0, fmt.Errorf("sheet: merged ranges of %s: %w", sheet, err)
	}
	for _, m := range merged {
		if err := w.file.UnmergeCell(sheet, m.GetStartAxis(), m.GetEndAxis()); err != nil {
			return 0, fmt.Errorf("sheet: unmerge %s:%s: %w", m.GetStartAxis(), m.GetEndAxis(), err)
		}
	}
	return len(merged), nil
}

// Merge merges the range from:to.
func (w *Workbook) Merge(sheet, from, to string) error {
	if err := w.file.MergeCell(sheet, from, to); err != nil {
		return fmt.Errorf("sheet: merge %s:%s: %w", from, to, err)
	}
	return nil
}

// Save writes the workbook back to its path through the store, which
// refuses locked targets and never leaves a partial file.
func (w *Workbook) Save(store *artifact.Store) error {
	return store.Save(w.path, func(out io.Writer) error {
		return w.file.Write(out)
	})
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.file.Close()
}
