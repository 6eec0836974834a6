// Package attachment resolves the conventionally named files of a deliverable
// package ("附件3-需求名@属性.xlsx") to slot numbers and renames them in bulk.
package attachment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
)

// ErrDirNotFound is returned by Rename when the data directory does not exist.
var ErrDirNotFound = errors.New("attachment: data directory not found")

// Parsed is a filename split along the naming grammar.
type Parsed struct {
	Prefix string
	// Digits is the slot number as written, zero padding included.
	Digits      string
	Slot        int
	Requirement string
	Attribute   string
	// Ext includes the leading dot and may be empty.
	Ext string
}

// SlotPrefix returns the prefix joined with the slot digits as written
// ("附件3", "附件03").
func (p Parsed) SlotPrefix() string {
	if p.Digits == "" {
		return p.Prefix + strconv.Itoa(p.Slot)
	}
	return p.Prefix + p.Digits
}

// Filename rebuilds the name p was parsed from.
func (p Parsed) Filename() string {
	return BuildFilename(p.SlotPrefix(), p.Requirement, p.Attribute, p.Ext)
}

// Slot is a resolved attachment.
type Slot struct {
	Parsed
	Path string
}

// ParseFilename splits name into its grammar parts. The requirement runs up to
// the first '@'. Names not following the grammar return false.
func ParseFilename(prefix, name string) (Parsed, bool) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	m := grammar(prefix).FindStringSubmatch(stem)
	if m == nil {
		return Parsed{}, false
	}
	slot, err := strconv.Atoi(m[1])
	if err != nil {
		return Parsed{}, false
	}
	return Parsed{
		Prefix:      prefix,
		Digits:      m[1],
		Slot:        slot,
		Requirement: m[2],
		Attribute:   m[3],
		Ext:         ext,
	}, true
}

// BuildFilename is the inverse of ParseFilename.
func BuildFilename(slotPrefix, requirement, attribute, ext string) string {
	return slotPrefix + "-" + requirement + "@" + attribute + ext
}

var grammars sync.Map

func grammar(prefix string) *regexp.Regexp {
	if re, ok := grammars.Load(prefix); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `(\d+)-(.+?)@(.+)$`)
	grammars.Store(prefix, re)
	return re
}

// RenameReport counts the outcome of a bulk rename.
type RenameReport struct {
	Renamed int
	Skipped int
	// Moves lists "old -> new" for each renamed file.
	Moves []string
}

// Registry scans one data directory. Nothing is cached: every call re-reads
// the directory.
type Registry struct {
	dir    string
	prefix string
	logger *zap.Logger
	store  *artifact.Store
}

// Option customizes a Registry.
type Option func(*Registry)

// WithLogger attaches a logger for ambiguity warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStore overrides the store used for lock-aware renames.
func WithStore(store *artifact.Store) Option {
	return func(r *Registry) {
		if store != nil {
			r.store = store
		}
	}
}

// NewRegistry builds a registry for dir using the filename prefix.
func NewRegistry(dir, prefix string, opts ...Option) *Registry {
	r := &Registry{
		dir:    dir,
		prefix: prefix,
		logger: zap.NewNop(),
		store:  artifact.NewStore(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the scanned directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Matches returns every file bound to slot n in sorted filename order.
func (r *Registry) Matches(n int) []Slot {
	slots, err := r.scan()
	if err != nil {
		return nil
	}
	var out []Slot
	for _, s := range slots {
		if s.Slot == n {
			out = append(out, s)
		}
	}
	return out
}

// Resolve returns the first file bound to slot n. When several files claim
// the slot the first in sorted order wins and the rest are logged.
func (r *Registry) Resolve(n int) (Slot, bool) {
	matches := r.Matches(n)
	if len(matches) == 0 {
		return Slot{}, false
	}
	if len(matches) > 1 {
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, filepath.Base(m.Path))
		}
		r.logger.Warn("multiple files match attachment slot; using the first",
			zap.Int("slot", n),
			zap.Strings("candidates", names),
		)
	}
	return matches[0], true
}

// Rename substitutes requirement into every parseable filename, keeping the
// slot prefix, attribute and extension. A file whose new name is already
// taken, on disk or by an earlier rename in the same pass, is left alone and
// counted as skipped.
func (r *Registry) Rename(requirement string) (RenameReport, error) {
	var report RenameReport
	slots, err := r.scan()
	if err != nil {
		return report, err
	}
	claimed := make(map[string]string, len(slots))
	for _, s := range slots {
		oldName := filepath.Base(s.Path)
		newName := BuildFilename(s.SlotPrefix(), requirement, s.Attribute, s.Ext)
		if newName == oldName {
			report.Skipped++
			claimed[newName] = oldName
			r.logger.Debug("attachment already named", zap.String("file", oldName))
		}
	}
	for _, s := range slots {
		oldName := filepath.Base(s.Path)
		newName := BuildFilename(s.SlotPrefix(), requirement, s.Attribute, s.Ext)
		if newName == oldName {
			continue
		}
		target := filepath.Join(r.dir, newName)
		owner, taken := claimed[newName]
		if !taken {
			if _, err := os.Lstat(target); err == nil {
				owner, taken = newName, true
			}
		}
		if taken {
			report.Skipped++
			r.logger.Warn("rename target already taken; file left unchanged",
				zap.String("file", oldName),
				zap.String("target", newName),
				zap.String("taken_by", owner),
			)
			continue
		}
		if err := r.store.Rename(s.Path, target); err != nil {
			return report, fmt.Errorf("attachment: rename %s: %w", oldName, err)
		}
		claimed[newName] = oldName
		report.Renamed++
		report.Moves = append(report.Moves, oldName+" -> "+newName)
		r.logger.Info("attachment renamed", zap.String("from", oldName), zap.String("to", newName))
	}
	return report, nil
}

func (r *Registry) scan() ([]Slot, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, r.dir)
		}
		return nil, fmt.Errorf("attachment: read %s: %w", r.dir, err)
	}
	var slots []Slot
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parsed, ok := ParseFilename(r.prefix, entry.Name())
		if !ok {
			continue
		}
		slots = append(slots, Slot{Parsed: parsed, Path: filepath.Join(r.dir, entry.Name())})
	}
	sort.Slice(slots, func(i, j int) bool {
		return filepath.Base(slots[i].Path) < filepath.Base(slots[j].Path)
	})
	return slots, nil
}
