// Package taxonomy loads the read-only three-level function catalog
// (一级/二级/三级功能点) that AI matches are validated against.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/sheet"
)

// ErrNoEntries is returned when no source yields a single entry.
var ErrNoEntries = errors.New("taxonomy: no catalog entries found")

// Entry is one leaf of the catalog. Equality is by the full triple.
type Entry struct {
	Level1 string
	Level2 string
	Level3 string
}

// String renders the entry as "l1 -> l2 -> l3".
func (e Entry) String() string {
	return e.Level1 + " -> " + e.Level2 + " -> " + e.Level3
}

// Catalog is an ordered entry list with set membership.
type Catalog struct {
	entries []Entry
	index   map[Entry]struct{}
}

// FromRows builds a catalog from data rows (header already removed). Level 1
// and level 2 carry forward across rows until a non-blank value replaces
// them, matching merged-cell layouts; only rows with a level 3 emit an entry.
func FromRows(rows [][]string) Catalog {
	cat := Catalog{index: map[Entry]struct{}{}}
	var level1, level2 string
	for _, row := range rows {
		if v := cell(row, 0); v != "" {
			level1 = v
		}
		if v := cell(row, 1); v != "" {
			level2 = v
		}
		level3 := cell(row, 2)
		if level3 == "" {
			continue
		}
		entry := Entry{Level1: level1, Level2: level2, Level3: level3}
		if _, dup := cat.index[entry]; dup {
			continue
		}
		cat.index[entry] = struct{}{}
		cat.entries = append(cat.entries, entry)
	}
	return cat
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Len returns the number of entries.
func (c Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in load order.
func (c Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Contains reports whether the exact triple is in the catalog.
func (c Catalog) Contains(e Entry) bool {
	_, ok := c.index[e]
	return ok
}

// Listing renders the numbered catalog used in matching prompts.
func (c Catalog) Listing() string {
	var b strings.Builder
	for i, e := range c.entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, e)
	}
	return b.String()
}

// Source yields raw catalog rows. A source that does not exist returns
// (nil, nil) so the loader moves on.
type Source interface {
	Name() string
	Rows() ([][]string, error)
}

// SheetSource reads a catalog from a workbook sheet whose name contains
// Fragment, or the active sheet when Fragment is empty. Row 1 is a header.
type SheetSource struct {
	Label    string
	Path     string
	Fragment string
}

// Name identifies the source in logs.
func (s SheetSource) Name() string {
	return s.Label
}

// Rows returns data rows below the header.
func (s SheetSource) Rows() ([][]string, error) {
	if s.Path == "" {
		return nil, nil
	}
	if _, err := os.Stat(s.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	book, err := sheet.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer book.Close()
	name := book.ActiveSheet()
	if s.Fragment != "" {
		found, ok := sheet.FindSheet(book, s.Fragment)
		if !ok {
			return nil, nil
		}
		name = found
	}
	grid, err := book.Grid(name)
	if err != nil {
		return nil, err
	}
	rows := grid.Rows()
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// Loader tries sources in order; the first yielding at least one entry wins.
type Loader struct {
	sources []Source
	logger  *zap.Logger
}

// NewLoader builds a loader over sources.
func NewLoader(logger *zap.Logger, sources ...Source) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{sources: sources, logger: logger}
}

// Load returns the first non-empty catalog. Unreadable sources are logged
// and skipped.
func (l *Loader) Load() (Catalog, string, error) {
	for _, src := range l.sources {
		rows, err := src.Rows()
		if err != nil {
			l.logger.Warn("taxonomy source unreadable", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		cat := FromRows(rows)
		if cat.Len() == 0 {
			l.logger.Debug("taxonomy source empty", zap.String("source", src.Name()))
			continue
		}
		l.logger.Info("taxonomy loaded", zap.String("source", src.Name()), zap.Int("entries", cat.Len()))
		return cat, src.Name(), nil
	}
	return Catalog{index: map[Entry]struct{}{}}, "", ErrNoEntries
}
