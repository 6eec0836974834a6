// Package artifact defines the documents steps exchange. Attachments are
// identified by a stable ID and the slot number that locates them on disk;
// text artifacts (caches, the side artifact) carry provenance metadata.

package artifact

import (
	"fmt"
	"sort"
	"time"
)

// Kind captures the storage shape of an artifact.
type Kind string

const (
	// KindWorkbook is a spreadsheet (.xlsx, or .xls read-only).
	KindWorkbook Kind = "workbook"
	// KindDocument is a word-processing document (.docx).
	KindDocument Kind = "document"
	// KindText is a plain-text file written by the tool.
	KindText Kind = "text"
)

// ArtifactRef declares a stable identifier for one attachment role.
type ArtifactRef struct {
	ID          string
	Name        string
	Description string
	Kind        Kind
	// Slot is the attachment number resolving the file, zero for tool-owned files.
	Slot     int
	Optional bool
}

// Validate ensures the reference is well-formed.
func (r ArtifactRef) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("artifact: id is required")
	}
	if r.Kind == "" {
		return fmt.Errorf("artifact: kind is required for %s", r.ID)
	}
	if r.Kind != KindText && r.Slot <= 0 {
		return fmt.Errorf("artifact: slot is required for %s", r.ID)
	}
	return nil
}

// String renders the ref for progress output.
func (r ArtifactRef) String() string {
	if r.Slot > 0 {
		return fmt.Sprintf("附件%d(%s)", r.Slot, r.Name)
	}
	return r.Name
}

// Metadata captures provenance stored inside a text artifact's frontmatter.
type Metadata struct {
	ArtifactID string
	// Source is the file the artifact was derived from.
	Source    string
	Model     string
	CreatedAt time.Time
	Notes     map[string]string
}

// WithDefaults ensures metadata carries the artifact ID and a timestamp.
func (m Metadata) WithDefaults(id string, now time.Time) Metadata {
	clone := m
	if clone.ArtifactID == "" {
		clone.ArtifactID = id
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	} else {
		clone.CreatedAt = clone.CreatedAt.UTC()
	}
	return clone
}

// State captures the usability of a cached artifact on disk.
type State string

const (
	StateMissing  State = "missing"
	StateFresh    State = "fresh"
	StateOutdated State = "outdated"
	StateInvalid  State = "invalid"
	StateError    State = "error"
)

// CheckResult captures Store.CheckCache results.
type CheckResult struct {
	Path     string
	State    State
	Metadata *Metadata
	Err      error
}

func register(ref ArtifactRef) ArtifactRef {
	if refs == nil {
		refs = map[string]ArtifactRef{}
	}
	refs[ref.ID] = ref
	return ref
}

var refs map[string]ArtifactRef

// Lookup returns a registered artifact reference by ID.
func Lookup(id string) (ArtifactRef, bool) {
	ref, ok := refs[id]
	return ref, ok
}

// BySlot returns the registered attachment for a slot number.
func BySlot(slot int) (ArtifactRef, bool) {
	for _, ref := range refs {
		if ref.Slot == slot {
			return ref, true
		}
	}
	return ArtifactRef{}, false
}

// Attachments lists the registered attachment refs in slot order.
func Attachments() []ArtifactRef {
	out := make([]ArtifactRef, 0, len(refs))
	for _, ref := range refs {
		if ref.Slot > 0 {
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func newWorkbookRef(slot int, id, name, desc string) ArtifactRef {
	return ArtifactRef{ID: id, Name: name, Description: desc, Kind: KindWorkbook, Slot: slot}
}

func newDocumentRef(slot int, id, name, desc string) ArtifactRef {
	return ArtifactRef{ID: id, Name: name, Description: desc, Kind: KindDocument, Slot: slot}
}

// Canonical attachment roles of the deliverable package.
var (
	ProposalDoc    = register(newDocumentRef(1, "proposal", "项目建议书", "Word document carrying the section markers"))
	WBSBook        = register(newWorkbookRef(2, "wbs", "WBS工作量", "Function-point workload breakdown"))
	EvaluationBook = register(newWorkbookRef(3, "cosmic-evaluation", "COSMIC工作量评估基础表", "COSMIC evaluation base table"))
	SummaryBook    = register(newWorkbookRef(4, "workload-summary", "工作量汇总", "Workload summary sheet"))
	WorkItemsBook  = register(newWorkbookRef(5, "work-items", "工作项清单", "Exported work items"))

	ManualSummary = register(ArtifactRef{ID: "manual-summary", Name: "用户手册概述", Description: "Cached summary of the user manual", Kind: KindText, Optional: true})
	SectionsText  = register(ArtifactRef{ID: "project-sections", Name: "项目文档内容", Description: "Generated sections for manual copy-paste", Kind: KindText})
)
