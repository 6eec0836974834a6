// Package anchor inserts generated section text after user-placed marker
// paragraphs ("1.1 总体描述（添加标识）") in the proposal document.
//
// A pass runs Scan → Reinitialize → Locate → Insert → Save. Inserted
// paragraphs are tagged by the docx layer, so reinitializing before each
// insertion makes repeated runs converge on the same document.
package anchor

import (
	"sort"
	"strings"

	"github.com/kingrea/cosmic-fill/internal/docx"
)

// Section is one of the fixed proposal sections.
type Section struct {
	Number string
	Name   string
}

// Title renders "1.1 总体描述".
func (s Section) Title() string {
	return s.Number + " " + s.Name
}

// DefaultSections returns the four sections of the proposal template.
func DefaultSections() []Section {
	return []Section{
		{Number: "1.1", Name: "总体描述"},
		{Number: "1.2", Name: "项目建设目标"},
		{Number: "1.3", Name: "项目建设必要性"},
		{Number: "2.3", Name: "存在问题"},
	}
}

// Marker locates a section's marker paragraph.
type Marker struct {
	Section   Section
	Paragraph int
}

// Scan is the result of FindMarkers.
type Scan struct {
	Markers    []Marker
	Unresolved []Section
}

// Lookup returns the marker for a section name.
func (s Scan) Lookup(name string) (Marker, bool) {
	for _, m := range s.Markers {
		if m.Section.Name == name {
			return m, true
		}
	}
	return Marker{}, false
}

// FindMarkers scans paragraphs top to bottom. A paragraph is a marker when
// its trimmed text is exactly "<name>（<token>）", or starts with
// "<number> <name>（" and contains token. The exact form is tried first, the
// first matching paragraph wins a section and a paragraph claims at most one
// section. Generated paragraphs never count as markers.
func FindMarkers(doc docx.Document, sections []Section, token string) Scan {
	claimed := make(map[string]int, len(sections))
	for i, p := range doc.Paragraphs() {
		if p.Generated {
			continue
		}
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if s, ok := matchSection(text, sections, claimed, token); ok {
			claimed[s.Name] = i
		}
	}
	var scan Scan
	for _, s := range sections {
		if idx, ok := claimed[s.Name]; ok {
			scan.Markers = append(scan.Markers, Marker{Section: s, Paragraph: idx})
		} else {
			scan.Unresolved = append(scan.Unresolved, s)
		}
	}
	return scan
}

func matchSection(text string, sections []Section, claimed map[string]int, token string) (Section, bool) {
	for _, s := range sections {
		if _, taken := claimed[s.Name]; taken {
			continue
		}
		if text == s.Name+"（"+token+"）" {
			return s, true
		}
	}
	for _, s := range sections {
		if _, taken := claimed[s.Name]; taken {
			continue
		}
		if strings.HasPrefix(text, s.Title()+"（") && strings.Contains(text, token) {
			return s, true
		}
	}
	return Section{}, false
}

// Reinitialize removes paragraphs left by earlier runs: those carrying the
// generated tag and those containing any signature phrase. Marker
// paragraphs are kept. It returns the removal count and a fresh scan.
func Reinitialize(doc docx.Document, sections []Section, token string, signatures []string) (int, Scan, error) {
	before := FindMarkers(doc, sections, token)
	markers := map[int]bool{}
	for _, m := range before.Markers {
		markers[m.Paragraph] = true
	}
	var doomed []int
	for i, p := range doc.Paragraphs() {
		if markers[i] {
			continue
		}
		if p.Generated || containsAny(p.Text, signatures) {
			doomed = append(doomed, i)
		}
	}
	for i := len(doomed) - 1; i >= 0; i-- {
		if err := doc.Delete(doomed[i]); err != nil {
			return len(doomed) - 1 - i, Scan{}, err
		}
	}
	return len(doomed), FindMarkers(doc, sections, token), nil
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase != "" && strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

// SplitLines breaks generated text into trimmed, non-blank lines.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// InsertAfter places lines as one contiguous block right after marker.
func InsertAfter(doc docx.Document, marker Marker, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	return doc.InsertAfter(marker.Paragraph, lines)
}

// Placement pairs a marker with the lines to insert after it.
type Placement struct {
	Marker Marker
	Lines  []string
}

// InsertAll inserts every placement, working from the last marker upward so
// earlier paragraph indices stay valid.
func InsertAll(doc docx.Document, placements []Placement) error {
	ordered := append([]Placement(nil), placements...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Marker.Paragraph > ordered[j].Marker.Paragraph
	})
	for _, pl := range ordered {
		if err := InsertAfter(doc, pl.Marker, pl.Lines); err != nil {
			return err
		}
	}
	return nil
}
