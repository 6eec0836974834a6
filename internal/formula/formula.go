// Package formula recomputes the few spreadsheet results the pipeline needs
// when a workbook carries a formula but no cached value.
package formula

import (
	"strings"

	"github.com/kingrea/cosmic-fill/internal/sheet"
)

// CountNonBlank counts cells in column holding non-whitespace text from
// startRow through the grid's last row. It stands in for
// COUNTA(<sheet>!K:K)-<header rows> when the cached result is missing.
func CountNonBlank(grid *sheet.Grid, column, startRow int) int {
	count := 0
	for _, value := range grid.Column(column, startRow) {
		if strings.TrimSpace(value) != "" {
			count++
		}
	}
	return count
}

// CountInBook applies CountNonBlank to the first sheet whose name contains
// fragment. No matching sheet counts as zero.
func CountInBook(book sheet.Book, fragment string, column, startRow int) int {
	name, ok := sheet.FindSheet(book, fragment)
	if !ok {
		return 0
	}
	grid, err := book.Grid(name)
	if err != nil {
		return 0
	}
	return CountNonBlank(grid, column, startRow)
}

// SumResult reports a column sum and how many cells were skipped as
// non-numeric.
type SumResult struct {
	Total   float64
	Counted int
	Skipped int
}

// SumColumn adds the numeric cells of column from startRow through the last
// row. Blank cells are ignored; non-numeric text is counted as skipped.
func SumColumn(grid *sheet.Grid, column, startRow int) SumResult {
	var res SumResult
	for _, value := range grid.Column(column, startRow) {
		if strings.TrimSpace(value) == "" {
			continue
		}
		n, ok := sheet.Number(value)
		if !ok {
			res.Skipped++
			continue
		}
		res.Total += n
		res.Counted++
	}
	return res
}
