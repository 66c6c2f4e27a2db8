package extraction

import (
	"errors"
	"testing"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

func TestToLatex(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{in: "x² + y₁₂ ≤ α", want: `$$x^{2} + y_{12} \leq \alpha$$`},
		{in: "∑ πr", want: `$$\sum \pi r$$`},
		{in: "a × b ≠ c", want: `$$a \times b \neq c$$`},
		{in: "ﬁ(x)", want: `$$fi(x)$$`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToLatex(tt.in); got != tt.want {
				t.Errorf("ToLatex(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func word(content string, left, top, right, bottom float64) layoutModel.PdfToken {
	return layoutModel.PdfToken{Content: content, Bounds: layoutModel.Rectangle{Left: left, Top: top, Right: right, Bottom: bottom}}
}

// a 3x2 table: header row then two data rows, columns at x 10..60 and 100..160
func tableImages() layoutModel.PdfImages {
	return layoutModel.PdfImages{Features: layoutModel.PdfFeatures{Pages: []layoutModel.PdfPage{{
		PageNumber: 1, Width: 200, Height: 200,
		Tokens: []layoutModel.PdfToken{
			word("Name", 10, 10, 40, 20),
			word("Score", 100, 10, 140, 20),
			word("Ada", 10, 30, 30, 40),
			word("Lovelace", 33, 30, 60, 40),
			word("9", 100, 30, 110, 40),
			word("Bob", 10, 50, 30, 60),
			word("7|8", 100, 51, 125, 61),
			word("outside", 10, 150, 50, 160),
		},
	}}}}
}

func tableSegment() layoutModel.PredictedSegment {
	return layoutModel.PredictedSegment{
		Type: layoutModel.Table, PageNumber: 1,
		Box: layoutModel.Rectangle{Left: 0, Top: 0, Right: 200, Bottom: 100},
	}
}

func TestBuildCells(t *testing.T) {
	page := tableImages().Features.Pages[0]
	cells := BuildCells(tokensInside(page.Tokens, tableSegment().Box))
	want := [][]string{{"Name", "Score"}, {"Ada Lovelace", "9"}, {"Bob", "7|8"}}
	if len(cells) != len(want) {
		t.Fatalf("got %d rows %v", len(cells), cells)
	}
	for r := range want {
		for c := range want[r] {
			if cells[r][c] != want[r][c] {
				t.Errorf("cell (%d,%d) = %q, want %q", r, c, cells[r][c], want[r][c])
			}
		}
	}
}

func TestExtractTableFormat(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{
			format: FormatMarkdown,
			want:   "| Name | Score |\n| --- | --- |\n| Ada Lovelace | 9 |\n| Bob | 7\\|8 |",
		},
		{
			format: FormatHTML,
			want:   "<table><tr><th>Name</th><th>Score</th></tr><tr><td>Ada Lovelace</td><td>9</td></tr><tr><td>Bob</td><td>7|8</td></tr></table>",
		},
		{
			format: FormatLatex,
			want:   "\\begin{tabular}{ll}\nName & Score \\\\\n\\hline\nAda Lovelace & 9 \\\\\nBob & 7|8 \\\\\n\\end{tabular}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			segments := []layoutModel.PredictedSegment{tableSegment(), {Type: layoutModel.Text, PageNumber: 1, Text: "keep"}}
			got, err := ExtractTableFormat(tableImages(), segments, tt.format)
			if err != nil {
				t.Fatalf("ExtractTableFormat failed: %v", err)
			}
			if got[0].Text != tt.want {
				t.Errorf("table =\n%s\nwant\n%s", got[0].Text, tt.want)
			}
			if got[1].Text != "keep" {
				t.Error("non table segments must not change")
			}
		})
	}
}

func TestExtractTableFormat_Unsupported(t *testing.T) {
	_, err := ExtractTableFormat(tableImages(), []layoutModel.PredictedSegment{tableSegment()}, "csv")
	if !errors.Is(err, layoutModel.ErrUnsupportedExtractionFormat) {
		t.Fatalf("expected ErrUnsupportedExtractionFormat, got %v", err)
	}
}

func TestExtractFormulaFormat(t *testing.T) {
	images := layoutModel.PdfImages{Features: layoutModel.PdfFeatures{Pages: []layoutModel.PdfPage{{
		PageNumber: 1, Width: 100, Height: 100,
		Tokens: []layoutModel.PdfToken{word("E", 10, 10, 15, 20), word("=", 18, 10, 22, 20), word("mc²", 25, 10, 40, 20)},
	}}}}
	segments := []layoutModel.PredictedSegment{
		{Type: layoutModel.Formula, PageNumber: 1, Box: layoutModel.Rectangle{Left: 0, Top: 0, Right: 50, Bottom: 30}},
		{Type: layoutModel.Text, PageNumber: 1, Text: "α"},
	}
	got := ExtractFormulaFormat(images, segments)
	if got[0].Text != "$$E = mc^{2}$$" {
		t.Errorf("formula = %q", got[0].Text)
	}
	if got[1].Text != "α" {
		t.Error("text segments must not change")
	}
}
