package module

import (
	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/attachment"
)

// AttachmentStatus captures whether a declared attachment is on disk.
type AttachmentStatus string

const (
	AttachmentPresent   AttachmentStatus = "present"
	AttachmentMissing   AttachmentStatus = "missing"
	AttachmentAmbiguous AttachmentStatus = "ambiguous"
)

// AttachmentCheck is one row of a step's declared IO inspection.
type AttachmentCheck struct {
	Ref    artifact.ArtifactRef
	Status AttachmentStatus
	Files  []string
}

// CheckAttachments inspects every attachment a step declares (inputs first,
// then outputs not already listed). The engine records the result so a run
// report shows why a step skipped.
func CheckAttachments(reg *attachment.Registry, m Module) []AttachmentCheck {
	seen := map[string]bool{}
	var checks []AttachmentCheck
	refs := append(m.Inputs(), m.Outputs()...)
	for _, ref := range refs {
		if ref.Slot <= 0 || seen[ref.ID] {
			continue
		}
		seen[ref.ID] = true
		check := AttachmentCheck{Ref: ref, Status: AttachmentMissing}
		for _, slot := range reg.Matches(ref.Slot) {
			check.Files = append(check.Files, slot.Path)
		}
		switch {
		case len(check.Files) == 1:
			check.Status = AttachmentPresent
		case len(check.Files) > 1:
			check.Status = AttachmentAmbiguous
		}
		checks = append(checks, check)
	}
	return checks
}
