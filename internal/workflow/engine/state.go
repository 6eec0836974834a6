package engine

import (
	"time"

	"github.com/kingrea/cosmic-fill/internal/module"
)

// EngineStatus enumerates coarse run phases.
type EngineStatus string

const (
	EngineStatusRunning  EngineStatus = "running"
	EngineStatusComplete EngineStatus = "complete"
	EngineStatusError    EngineStatus = "error"
)

// State captures the persisted report of one run.
type State struct {
	RunID       string       `json:"run_id"`
	WorkflowID  string       `json:"workflow_id"`
	Requirement string       `json:"requirement"`
	Status      EngineStatus `json:"status"`
	// StatusReason provides human readable explanation for non-complete states.
	StatusReason string            `json:"status_reason,omitempty"`
	Runs         []ModuleRun       `json:"runs"`
	Values       map[string]string `json:"values,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ModuleRun persists the outcome of one step.
type ModuleRun struct {
	ID          string             `json:"id"`
	ModuleID    string             `json:"module_id"`
	Name        string             `json:"name"`
	Status      module.Status      `json:"status"`
	Message     string             `json:"message,omitempty"`
	Error       string             `json:"error,omitempty"`
	Attachments []AttachmentStatus `json:"attachments,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// AttachmentStatus mirrors module.AttachmentCheck for the report.
type AttachmentStatus struct {
	ID     string                  `json:"id"`
	Slot   int                     `json:"slot"`
	Status module.AttachmentStatus `json:"status"`
	Files  []string                `json:"files,omitempty"`
}

// Counts tallies step outcomes.
func (s State) Counts() map[module.Status]int {
	out := map[module.Status]int{}
	for _, run := range s.Runs {
		out[run.Status]++
	}
	return out
}

func attachmentStatuses(checks []module.AttachmentCheck) []AttachmentStatus {
	if len(checks) == 0 {
		return nil
	}
	out := make([]AttachmentStatus, len(checks))
	for i, c := range checks {
		out[i] = AttachmentStatus{ID: c.Ref.ID, Slot: c.Ref.Slot, Status: c.Status, Files: c.Files}
	}
	return out
}
