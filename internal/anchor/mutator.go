package anchor

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/kingrea/cosmic-fill/internal/artifact"
	"github.com/kingrea/cosmic-fill/internal/docx"
)

// Report summarizes one Apply pass.
type Report struct {
	Removed    int
	Inserted   []string
	Dropped    []string
	Unresolved []Section
	Saved      bool
}

// Mutator applies generated sections to a .docx file.
type Mutator struct {
	store        *artifact.Store
	logger       *zap.Logger
	sections     []Section
	token        string
	signatures   []string
	reinitialize bool
}

// MutatorOption customizes a Mutator.
type MutatorOption func(*Mutator)

// WithSections overrides the section list.
func WithSections(sections []Section) MutatorOption {
	return func(m *Mutator) {
		m.sections = sections
	}
}

// WithSignatures sets phrases identifying content from earlier runs.
func WithSignatures(signatures []string) MutatorOption {
	return func(m *Mutator) {
		m.signatures = signatures
	}
}

// WithReinitialize toggles removal of earlier generated paragraphs.
func WithReinitialize(enabled bool) MutatorOption {
	return func(m *Mutator) {
		m.reinitialize = enabled
	}
}

// NewMutator builds a mutator writing through store.
func NewMutator(store *artifact.Store, logger *zap.Logger, token string, opts ...MutatorOption) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Mutator{
		store:        store,
		logger:       logger,
		sections:     DefaultSections(),
		token:        token,
		reinitialize: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Sections returns the configured section list.
func (m *Mutator) Sections() []Section {
	return m.sections
}

// Apply rewrites path with content (keyed by section name). A section whose
// marker is missing is dropped with a warning; content is never appended at
// the end of the document. The save is atomic, so a locked or failed write
// leaves the previous file intact.
func (m *Mutator) Apply(path string, content map[string]string) (Report, error) {
	var report Report
	if err := m.store.CheckLocked(path); err != nil {
		return report, err
	}
	f, err := docx.Open(path)
	if err != nil {
		return report, err
	}

	var scan Scan
	if m.reinitialize {
		removed, rescanned, err := Reinitialize(f, m.sections, m.token, m.signatures)
		if err != nil {
			return report, fmt.Errorf("anchor: reinitialize: %w", err)
		}
		report.Removed = removed
		scan = rescanned
		if len(scan.Markers) < len(m.sections) {
			m.logger.Warn("not every section marker is present after reinitialize",
				zap.Int("found", len(scan.Markers)),
				zap.Int("expected", len(m.sections)),
			)
		}
	} else {
		scan = FindMarkers(f, m.sections, m.token)
	}
	report.Unresolved = scan.Unresolved

	var placements []Placement
	for _, s := range m.sections {
		lines := SplitLines(content[s.Name])
		if len(lines) == 0 {
			continue
		}
		marker, ok := scan.Lookup(s.Name)
		if !ok {
			report.Dropped = append(report.Dropped, s.Name)
			m.logger.Warn("section marker not found; content dropped", zap.String("section", s.Title()))
			continue
		}
		placements = append(placements, Placement{Marker: marker, Lines: lines})
		report.Inserted = append(report.Inserted, s.Name)
	}
	if err := InsertAll(f, placements); err != nil {
		return report, fmt.Errorf("anchor: insert: %w", err)
	}

	if report.Removed == 0 && len(placements) == 0 {
		return report, nil
	}
	if err := m.store.Save(path, f.Save); err != nil {
		return report, err
	}
	report.Saved = true
	return report, nil
}

// WriteSideArtifact writes every section's text for manual copy-paste.
// Sections listed in dropped are flagged as needing manual placement.
func WriteSideArtifact(store *artifact.Store, path string, sections []Section, content map[string]string, dropped []string) error {
	return store.Save(path, func(w io.Writer) error {
		return renderSideArtifact(w, sections, content, dropped)
	})
}

func renderSideArtifact(w io.Writer, sections []Section, content map[string]string, dropped []string) error {
	flagged := map[string]bool{}
	for _, name := range dropped {
		flagged[name] = true
	}
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "【%s】", s.Title())
		if flagged[s.Name] {
			b.WriteString("（未找到插入标识，请手动复制）")
		}
		b.WriteString("\n")
		text := strings.TrimSpace(content[s.Name])
		if text == "" {
			text = "（未生成）"
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
