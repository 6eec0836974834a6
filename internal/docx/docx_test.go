package docx

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`

// buildDocx assembles a minimal package whose body holds one paragraph per
// text, followed by a table and the section properties.
func buildDocx(t *testing.T, texts ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, text := range texts {
		body.WriteString(`<w:p><w:pPr><w:pStyle w:val="2"/></w:pPr><w:r><w:t>`)
		body.WriteString(text)
		body.WriteString(`</w:t></w:r></w:p>`)
	}
	body.WriteString(`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>表格内</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)
	body.WriteString(`<w:sectPr/>`)
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"[Content_Types].xml": contentTypes,
		documentPart:          document,
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func texts(paragraphs []Paragraph) []string {
	out := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		out[i] = p.Text
	}
	return out
}

func TestParagraphsAreTopLevelOnly(t *testing.T) {
	f, err := Parse(buildDocx(t, "封面", "1.1 总体描述（添加标识）", "正文"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := texts(f.Paragraphs())
	want := []string{"封面", "1.1 总体描述（添加标识）", "正文"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("paragraphs = %v, want %v", got, want)
	}
	if !strings.Contains(f.Text(), "表格内") {
		t.Fatalf("Text should include table paragraphs: %q", f.Text())
	}
}

func TestInsertAfterKeepsOrderAndTags(t *testing.T) {
	f, err := Parse(buildDocx(t, "标题", "正文"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := f.InsertAfter(0, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	paragraphs := f.Paragraphs()
	if got := strings.Join(texts(paragraphs), ","); got != "标题,a,b,c,正文" {
		t.Fatalf("unexpected order %s", got)
	}
	for i, p := range paragraphs {
		want := i >= 1 && i <= 3
		if p.Generated != want {
			t.Fatalf("paragraph %d generated=%v, want %v", i, p.Generated, want)
		}
	}
	if err := f.InsertAfter(9, []string{"x"}); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	f, err := Parse(buildDocx(t, "标题", "正文"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := f.InsertAfter(0, []string{"  保留空格"}); err != nil {
		t.Fatalf("InsertAfter: %v", err)
	}
	if err := f.Delete(2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var out bytes.Buffer
	if err := f.Save(&out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reopened, err := Parse(out.Bytes())
	if err != nil {
		t.Fatalf("Parse saved: %v", err)
	}
	paragraphs := reopened.Paragraphs()
	if len(paragraphs) != 2 || paragraphs[1].Text != "  保留空格" || !paragraphs[1].Generated {
		t.Fatalf("unexpected reopened paragraphs %+v", paragraphs)
	}
	// bookmark ids keep increasing across sessions
	if reopened.nextID != 2 {
		t.Fatalf("nextID = %d, want 2", reopened.nextID)
	}
	zr, err := zip.NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected parts to be preserved, got %d", len(zr.File))
	}
}

func TestParseRejectsNonDocx(t *testing.T) {
	if _, err := Parse([]byte("not a zip")); !errors.Is(err, ErrNotDocx) {
		t.Fatalf("expected ErrNotDocx, got %v", err)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("other.xml")
	_ = zw.Close()
	if _, err := Parse(buf.Bytes()); !errors.Is(err, ErrNotDocx) {
		t.Fatalf("expected ErrNotDocx for missing document part, got %v", err)
	}
}
