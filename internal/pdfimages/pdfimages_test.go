package pdfimages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/dslipak/pdf"
)

type MockExtractor struct {
	OnExtract func(ctx context.Context, pdfPath string) (layoutModel.PdfFeatures, error)
}

func (m *MockExtractor) Extract(ctx context.Context, pdfPath string) (layoutModel.PdfFeatures, error) {
	return m.OnExtract(ctx, pdfPath)
}

// MockRenderer writes a blank PNG of the configured size.
type MockRenderer struct {
	Width, Height int
	Calls         int
}

func (m *MockRenderer) Render(ctx context.Context, pdfPath string, page int, outPath string) error {
	m.Calls++
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, image.NewGray(image.Rect(0, 0, m.Width, m.Height)))
}

func TestGroupWords(t *testing.T) {
	texts := []pdf.Text{
		{FontSize: 10, X: 10, Y: 700, W: 5, S: "H"},
		{FontSize: 10, X: 15, Y: 700, W: 5, S: "i"},
		{FontSize: 10, X: 20, Y: 700, W: 3, S: " "},
		{FontSize: 10, X: 23, Y: 700, W: 5, S: "y"},
		{FontSize: 10, X: 28, Y: 700, W: 5, S: "o"},
		// gap of 10 > 0.3 * 10
		{FontSize: 10, X: 43, Y: 700, W: 5, S: "u"},
		// new baseline
		{FontSize: 10, X: 10, Y: 680, W: 5, S: "n"},
	}
	tokens := GroupWords(texts, 1, 612, 792)

	want := []string{"Hi", "yo", "u", "n"}
	if len(tokens) != len(want) {
		t.Fatalf("got %d words %+v, want %v", len(tokens), tokens, want)
	}
	for i, w := range want {
		if tokens[i].Content != w {
			t.Errorf("word %d = %q, want %q", i, tokens[i].Content, w)
		}
	}

	hi := tokens[0].Bounds
	if hi.Left != 10 || hi.Right != 20 {
		t.Errorf("Hi spans %v..%v, want 10..20", hi.Left, hi.Right)
	}
	// baseline 700 from the bottom is 92 from the top
	if hi.Top != 84 || hi.Bottom != 94 {
		t.Errorf("Hi top/bottom = %v/%v, want 84/94", hi.Top, hi.Bottom)
	}
	if tokens[3].Bounds.Top <= hi.Top {
		t.Error("lower baseline should be further down the page")
	}
	if tokens[0].ID != "p1_w0" || tokens[3].ID != "p1_w3" {
		t.Errorf("ids = %s, %s", tokens[0].ID, tokens[3].ID)
	}
}

func TestGroupWords_ClipsToPage(t *testing.T) {
	tokens := GroupWords([]pdf.Text{{FontSize: 12, X: 600, Y: 1, W: 40, S: "edge"}}, 2, 612, 792)
	if len(tokens) != 1 {
		t.Fatalf("got %d tokens", len(tokens))
	}
	b := tokens[0].Bounds
	if b.Right != 612 || b.Bottom != 792 {
		t.Errorf("bounds not clipped: %+v", b)
	}
}

func TestPdfExtractor_MissingFile(t *testing.T) {
	_, err := NewPdfExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "none.pdf"))
	if !errors.Is(err, layoutModel.ErrMissingInput) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected missing input wrapping not-exist, got %v", err)
	}
}

// writeOnePagePDF writes a 200x300 pt page showing "Hello" at (20, 250) in 12 pt Helvetica.
// The MediaBox sits on the page tree root, so the page inherits it.
func writeOnePagePDF(t *testing.T) string {
	t.Helper()
	content := "BT /F1 12 Tf 20 250 Td (Hello) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 200 300] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 72 /LastChar 111 /Widths [" +
			strings.TrimSpace(strings.Repeat("500 ", 40)) + "] >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "hello.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0640); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPdfExtractor_Extract(t *testing.T) {
	path := writeOnePagePDF(t)

	dims := pageDims(path)
	if len(dims) != 1 || dims[0].Width != 200 || dims[0].Height != 300 {
		t.Errorf("pdfcpu page dims = %+v, want one 200x300 page", dims)
	}

	features, err := NewPdfExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(features.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(features.Pages))
	}
	page := features.Pages[0]
	if page.PageNumber != 1 || page.Width != 200 || page.Height != 300 {
		t.Errorf("page = %d %vx%v, want 1 200x300", page.PageNumber, page.Width, page.Height)
	}

	var hello *layoutModel.PdfToken
	for i := range page.Tokens {
		if page.Tokens[i].Content == "Hello" {
			hello = &page.Tokens[i]
		}
	}
	if hello == nil {
		t.Fatalf("no Hello token in %+v", page.Tokens)
	}
	b := hello.Bounds
	// baseline 250 from the bottom is 50 from the top
	if math.Abs(b.Left-20) > 0.01 || math.Abs(b.Top-40.4) > 0.01 || math.Abs(b.Bottom-52.4) > 0.01 {
		t.Errorf("Hello bounds = %+v, want left 20 top 40.4 bottom 52.4", b)
	}
	if b.Right <= b.Left || b.Right > page.Width {
		t.Errorf("Hello spans %v..%v on a %v wide page", b.Left, b.Right, page.Width)
	}
}

func TestMediaBox_Inherited(t *testing.T) {
	reader, err := pdf.Open(writeOnePagePDF(t))
	if err != nil {
		t.Fatal(err)
	}
	if w, h := mediaBox(reader.Page(1)); w != 200 || h != 300 {
		t.Errorf("mediaBox = %vx%v, want 200x300", w, h)
	}
}

func TestConverter_FromPdfPath(t *testing.T) {
	root := t.TempDir()
	features := layoutModel.PdfFeatures{Pages: []layoutModel.PdfPage{
		{PageNumber: 1, Width: 100, Height: 200, Tokens: []layoutModel.PdfToken{
			{ID: "p1_w0", Content: "a<b", Bounds: layoutModel.Rectangle{Left: 1, Top: 2, Right: 3, Bottom: 4}, FontSize: 9},
		}},
		{PageNumber: 2, Width: 100, Height: 200},
	}}
	renderer := &MockRenderer{Width: 100, Height: 200}
	c := &Converter{
		Extractor: &MockExtractor{OnExtract: func(ctx context.Context, pdfPath string) (layoutModel.PdfFeatures, error) {
			return features, nil
		}},
		Renderer:  renderer,
		ImagesDir: filepath.Join(root, "images"),
		XmlsDir:   filepath.Join(root, "xmls"),
	}

	got, err := c.FromPdfPath(context.Background(), filepath.Join(root, "abc.pdf"), "abc.xml")
	if err != nil {
		t.Fatalf("FromPdfPath failed: %v", err)
	}
	if got.PdfName != "abc" || len(got.Images) != 2 || renderer.Calls != 2 {
		t.Fatalf("unexpected result %+v (renders %d)", got, renderer.Calls)
	}
	if got.Images[1].Path != filepath.Join(root, "images", "abc_2.png") || got.Images[1].Width != 100 || got.Images[1].Height != 200 {
		t.Errorf("image = %+v", got.Images[1])
	}

	data, err := LoadXML(c.XmlsDir, "abc.xml")
	if err != nil {
		t.Fatalf("LoadXML failed: %v", err)
	}
	if !strings.Contains(string(data), "a&lt;b") || !strings.Contains(string(data), `number="2"`) {
		t.Errorf("xml does not carry the features:\n%s", data)
	}

	if err := RemoveImages(c.ImagesDir, "abc"); err != nil {
		t.Fatalf("RemoveImages failed: %v", err)
	}
	entries, _ := os.ReadDir(c.ImagesDir)
	if len(entries) != 0 {
		t.Errorf("%d images left after removal", len(entries))
	}
}

func TestConverter_ExtractorErrorStops(t *testing.T) {
	renderer := &MockRenderer{Width: 1, Height: 1}
	c := &Converter{
		Extractor: &MockExtractor{OnExtract: func(ctx context.Context, pdfPath string) (layoutModel.PdfFeatures, error) {
			return layoutModel.PdfFeatures{}, layoutModel.MissingInput("pdf", fs.ErrNotExist)
		}},
		Renderer:  renderer,
		ImagesDir: t.TempDir(),
	}
	_, err := c.FromPdfPath(context.Background(), "gone.pdf", "")
	if !errors.Is(err, layoutModel.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
	if renderer.Calls != 0 {
		t.Error("nothing should be rendered after a failed extraction")
	}
}

func TestLoadXML_Missing(t *testing.T) {
	tests := []string{"absent.xml", "../etc/passwd"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadXML(t.TempDir(), name)
			if !errors.Is(err, layoutModel.ErrMissingInput) {
				t.Fatalf("expected ErrMissingInput, got %v", err)
			}
		})
	}
}

func TestPdftoppmRenderer_Failures(t *testing.T) {
	dir := t.TempDir()
	silent := filepath.Join(dir, "pdftoppm")
	if err := os.WriteFile(silent, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		binary string
		want   string
	}{
		{name: "binary missing", binary: filepath.Join(dir, "absent"), want: "unavailable"},
		{name: "no output written", binary: silent, want: "did not create"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &PdftoppmRenderer{Binary: tt.binary, DPI: 72}
			err := r.Render(context.Background(), filepath.Join(dir, "in.pdf"), 1, filepath.Join(dir, "out.png"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want %q", err, tt.want)
			}
			// a failed render is a processing error, never a missing upload
			if errors.Is(err, fs.ErrNotExist) {
				t.Errorf("error %v reads as a missing file", err)
			}
		})
	}
}
