package moduletest

import (
	"bytes"
	"encoding/xml"
	"os"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/kingrea/cosmic-fill/internal/docx"
)

// SeedDocx writes a minimal word document with one paragraph per text.
func SeedDocx(t *testing.T, path string, texts ...string) {
	t.Helper()
	var body strings.Builder
	for _, text := range texts {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		if err := xml.EscapeText(&body, []byte(text)); err != nil {
			t.Fatalf("escape: %v", err)
		}
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `<w:sectPr/></w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	if _, err := w.Write([]byte(document)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// DocxTexts returns the text of every top-level paragraph of path.
func DocxTexts(t *testing.T, path string) []string {
	t.Helper()
	f, err := docx.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	var out []string
	for _, p := range f.Paragraphs() {
		out = append(out, p.Text)
	}
	return out
}
