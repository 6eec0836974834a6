package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrLocked reports that a target file is held open by another program
// (typically an office suite) or is otherwise not writable.
var ErrLocked = errors.New("artifact: file is locked or not writable")

// Store performs artifact IO for the pipeline. Every write goes to a
// temporary sibling first and is renamed into place, so a failed save never
// leaves a truncated document behind.
type Store struct {
	now func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a store.
func NewStore(opts ...StoreOption) *Store {
	store := &Store{now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// CheckLocked reports ErrLocked when an office owner file ("~$name") sits
// next to path.
func (s *Store) CheckLocked(path string) error {
	for _, owner := range ownerFiles(path) {
		if _, err := os.Stat(owner); err == nil {
			return fmt.Errorf("%w: %s is open in another program", ErrLocked, filepath.Base(path))
		}
	}
	return nil
}

// Save streams a document through write into a temporary file and renames it
// over path.
func (s *Store) Save(path string, write func(io.Writer) error) (err error) {
	if err := s.CheckLocked(path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return lockedError(path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("artifact: encode %s: %w", filepath.Base(path), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("artifact: flush %s: %w", filepath.Base(path), err)
	}
	if info, statErr := os.Stat(path); statErr == nil {
		_ = os.Chmod(tmpName, info.Mode().Perm())
	}
	if err = os.Rename(tmpName, path); err != nil {
		return lockedError(path, err)
	}
	return nil
}

// WriteFile atomically replaces path with data.
func (s *Store) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return s.Save(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Rename moves an attachment, surfacing permission failures as ErrLocked.
func (s *Store) Rename(from, to string) error {
	if err := s.CheckLocked(from); err != nil {
		return err
	}
	if err := os.Rename(from, to); err != nil {
		return lockedError(from, err)
	}
	return nil
}

// CheckCache inspects a text cache derived from source. The cache is fresh
// only when it parses and was modified strictly after the source.
func (s *Store) CheckCache(ref ArtifactRef, cachePath, sourcePath string) CheckResult {
	info, err := os.Stat(cachePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Path: cachePath, State: StateMissing}
		}
		return CheckResult{Path: cachePath, State: StateError, Err: err}
	}
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return CheckResult{Path: cachePath, State: StateError, Err: err}
	}
	meta, _, err := ParseFrontMatter(data)
	if err != nil {
		return CheckResult{Path: cachePath, State: StateInvalid, Err: err}
	}
	if meta.ArtifactID != ref.ID {
		err := fmt.Errorf("artifact: metadata id %s does not match %s", meta.ArtifactID, ref.ID)
		return CheckResult{Path: cachePath, State: StateInvalid, Metadata: &meta, Err: err}
	}
	source, err := os.Stat(sourcePath)
	if err != nil {
		return CheckResult{Path: cachePath, State: StateError, Metadata: &meta, Err: err}
	}
	if !info.ModTime().After(source.ModTime()) {
		return CheckResult{Path: cachePath, State: StateOutdated, Metadata: &meta}
	}
	return CheckResult{Path: cachePath, State: StateFresh, Metadata: &meta}
}

// ReadCache returns the body of a frontmatter text artifact.
func (s *Store) ReadCache(path string) (Metadata, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, "", err
	}
	meta, body, err := ParseFrontMatter(data)
	if err != nil {
		return Metadata{}, "", err
	}
	return meta, strings.TrimRight(string(body), "\n"), nil
}

// WriteCache stores body behind a frontmatter envelope describing ref.
func (s *Store) WriteCache(ref ArtifactRef, path, body string, meta Metadata) error {
	prepared := meta.WithDefaults(ref.ID, s.now())
	content, err := WriteFrontMatter(prepared, []byte(body+"\n"))
	if err != nil {
		return err
	}
	return s.WriteFile(path, content)
}

func ownerFiles(path string) []string {
	dir, base := filepath.Split(path)
	owners := []string{filepath.Join(dir, "~$"+base)}
	// Word shortens long names by dropping the leading characters.
	if runes := []rune(base); len(runes) > 2 {
		owners = append(owners, filepath.Join(dir, "~$"+string(runes[2:])))
	}
	return owners
}

func lockedError(path string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s: %w", ErrLocked, filepath.Base(path), err)
	}
	return fmt.Errorf("artifact: write %s: %w", filepath.Base(path), err)
}
