// Package docx edits the body paragraphs of a WordprocessingML package.
//
// Only word/document.xml is parsed; every other part is copied through
// untouched when the package is saved. Paragraphs are the top-level w:p
// children of w:body, the same sequence a reader sees between tables.
//
// Paragraphs created by InsertAfter carry a hidden bookmark
// (w:bookmarkStart named "_cosmicgen<n>") so a later run can find and remove
// them even after a user edits their text.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/zip"
)

// ErrNotDocx reports a file that is not a readable .docx package.
var ErrNotDocx = errors.New("docx: not a word document package")

const (
	documentPart = "word/document.xml"
	// GeneratedPrefix names the hidden bookmarks that tag inserted paragraphs.
	GeneratedPrefix = "_cosmicgen"
)

// Paragraph is a read-only view of one body paragraph.
type Paragraph struct {
	Text      string
	Generated bool
}

// Document is the rich-document contract the anchor mutator works against.
type Document interface {
	Paragraphs() []Paragraph
	// InsertAfter places one new paragraph per line directly after the
	// paragraph at index, preserving line order.
	InsertAfter(index int, lines []string) error
	Delete(index int) error
}

// File is an opened .docx package.
type File struct {
	raw    []byte
	zr     *zip.Reader
	doc    *etree.Document
	body   *etree.Element
	nextID int
}

// Open reads the package at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docx: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse reads a package from memory.
func Parse(data []byte) (*File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	var part *zip.File
	for _, zf := range zr.File {
		if zf.Name == documentPart {
			part = zf
			break
		}
	}
	if part == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}
	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}
	defer rc.Close()
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrNotDocx, documentPart, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty %s", ErrNotDocx, documentPart)
	}
	body := root.SelectElement("w:body")
	if body == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrNotDocx, documentPart)
	}
	return &File{
		raw:    data,
		zr:     zr,
		doc:    doc,
		body:   body,
		nextID: maxBookmarkID(root) + 1,
	}, nil
}

// Paragraphs lists the top-level body paragraphs in document order.
func (f *File) Paragraphs() []Paragraph {
	elems := f.paragraphs()
	out := make([]Paragraph, len(elems))
	for i, p := range elems {
		out[i] = Paragraph{Text: paragraphText(p), Generated: isGenerated(p)}
	}
	return out
}

// InsertAfter inserts lines as new tagged paragraphs after paragraph index.
func (f *File) InsertAfter(index int, lines []string) error {
	elems := f.paragraphs()
	if index < 0 || index >= len(elems) {
		return fmt.Errorf("docx: paragraph %d out of range (%d paragraphs)", index, len(elems))
	}
	pos := elems[index].Index() + 1
	for i, line := range lines {
		f.body.InsertChildAt(pos+i, f.newParagraph(line))
	}
	return nil
}

// Delete removes the paragraph at index.
func (f *File) Delete(index int) error {
	elems := f.paragraphs()
	if index < 0 || index >= len(elems) {
		return fmt.Errorf("docx: paragraph %d out of range (%d paragraphs)", index, len(elems))
	}
	f.body.RemoveChild(elems[index])
	return nil
}

// Text returns every paragraph's text, including those inside tables, one
// per line.
func (f *File) Text() string {
	var lines []string
	for _, p := range f.body.FindElements(".//w:p") {
		if text := strings.TrimSpace(paragraphText(p)); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

// Save writes the package. Untouched parts are copied without recompression.
func (f *File) Save(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, zf := range f.zr.File {
		if zf.Name != documentPart {
			if err := zw.Copy(zf); err != nil {
				return fmt.Errorf("docx: copy %s: %w", zf.Name, err)
			}
			continue
		}
		part, err := zw.CreateHeader(&zip.FileHeader{
			Name:     zf.Name,
			Method:   zip.Deflate,
			Modified: zf.Modified,
		})
		if err != nil {
			return fmt.Errorf("docx: create %s: %w", zf.Name, err)
		}
		if _, err := f.doc.WriteTo(part); err != nil {
			return fmt.Errorf("docx: encode %s: %w", zf.Name, err)
		}
	}
	return zw.Close()
}

func (f *File) paragraphs() []*etree.Element {
	return f.body.SelectElements("w:p")
}

func (f *File) newParagraph(line string) *etree.Element {
	id := strconv.Itoa(f.nextID)
	f.nextID++
	p := etree.NewElement("w:p")
	start := p.CreateElement("w:bookmarkStart")
	start.CreateAttr("w:id", id)
	start.CreateAttr("w:name", GeneratedPrefix+id)
	end := p.CreateElement("w:bookmarkEnd")
	end.CreateAttr("w:id", id)
	t := p.CreateElement("w:r").CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(line)
	return p
}

func paragraphText(p *etree.Element) string {
	var b strings.Builder
	for _, el := range p.FindElements(".//*") {
		switch el.Space + ":" + el.Tag {
		case "w:t":
			b.WriteString(el.Text())
		case "w:tab":
			b.WriteByte('\t')
		}
	}
	return b.String()
}

func isGenerated(p *etree.Element) bool {
	for _, bm := range p.SelectElements("w:bookmarkStart") {
		if strings.HasPrefix(bm.SelectAttrValue("w:name", ""), GeneratedPrefix) {
			return true
		}
	}
	return false
}

func maxBookmarkID(root *etree.Element) int {
	max := 0
	for _, bm := range root.FindElements("//w:bookmarkStart") {
		if id, err := strconv.Atoi(bm.SelectAttrValue("w:id", "")); err == nil && id > max {
			max = id
		}
	}
	return max
}
