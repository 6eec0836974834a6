package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kingrea/cosmic-fill/internal/artifact"
)

// ErrStateNotFound is returned when no report exists for a run.
var ErrStateNotFound = errors.New("workflow engine: state not found")

// StateStore persists run reports.
type StateStore interface {
	Save(State) error
}

// Repository stores one JSON report per run under the runs directory.
type Repository struct {
	dir   string
	store *artifact.Store
}

// NewRepository creates a repository rooted at dir.
func NewRepository(dir string, store *artifact.Store) *Repository {
	if store == nil {
		store = artifact.NewStore()
	}
	return &Repository{dir: dir, store: store}
}

// Path returns the report path for runID.
func (r *Repository) Path(runID string) string {
	return filepath.Join(r.dir, runID+".json")
}

// Load reads a persisted report.
func (r *Repository) Load(runID string) (State, error) {
	data, err := os.ReadFile(r.Path(runID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return State{}, ErrStateNotFound
		}
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("workflow engine: decode %s: %w", runID, err)
	}
	return state, nil
}

// Save writes the report atomically.
func (r *Repository) Save(state State) error {
	if state.RunID == "" {
		return fmt.Errorf("workflow engine: run id is required")
	}
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return r.store.WriteFile(r.Path(state.RunID), append(encoded, '\n'))
}
