package module

import (
	"fmt"

	"github.com/kingrea/cosmic-fill/internal/artifact"
)

// Info describes a pipeline step's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("module: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("module: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("module: version is required for %s", i.ID)
	}
	return nil
}

// Result captures the outcome of a step.
type Result struct {
	Status  Status
	Message string
}

// Status enumerates step outcomes.
type Status string

const (
	StatusCompleted Status = "completed"
	// StatusSkipped marks a step whose source was missing; the run continues.
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Completed builds a completed result.
func Completed(format string, args ...any) Result {
	return Result{Status: StatusCompleted, Message: fmt.Sprintf(format, args...)}
}

// Skipped builds a skipped result.
func Skipped(format string, args ...any) Result {
	return Result{Status: StatusSkipped, Message: fmt.Sprintf(format, args...)}
}

// Module is implemented by every pipeline step.
type Module interface {
	Info() Info
	// Inputs lists the attachments the step reads.
	Inputs() []artifact.ArtifactRef
	// Outputs lists the attachments the step writes.
	Outputs() []artifact.ArtifactRef
	Run(ctx *ModuleContext) (Result, error)
}
