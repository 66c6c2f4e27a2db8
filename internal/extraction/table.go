package extraction

import (
	"cmp"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatLatex    = "latex"
)

// ValidateFormat accepts the table formats ExtractTableFormat can render.
func ValidateFormat(format string) error {
	switch format {
	case FormatMarkdown, FormatHTML, FormatLatex:
		return nil
	}
	return fmt.Errorf("%w: %q", layoutModel.ErrUnsupportedExtractionFormat, format)
}

// ExtractTableFormat replaces the text of every Table segment with the table rendered in format.
func ExtractTableFormat(images layoutModel.PdfImages, segments []layoutModel.PredictedSegment, format string) ([]layoutModel.PredictedSegment, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	for i, s := range segments {
		if s.Type != layoutModel.Table {
			continue
		}
		page, ok := images.Features.Page(s.PageNumber)
		if !ok {
			continue
		}
		cells := BuildCells(tokensInside(page.Tokens, s.Box))
		if len(cells) == 0 {
			continue
		}
		segments[i].Text = Render(cells, format)
	}
	return segments, nil
}

// BuildCells groups tokens into rows by vertical centre and into columns by the horizontal
// gaps shared by every row.
func BuildCells(tokens []layoutModel.PdfToken) [][]string {
	if len(tokens) == 0 {
		return nil
	}
	rows := groupRows(tokens)
	spans := columnSpans(tokens)

	cells := make([][]string, len(rows))
	for r, row := range rows {
		parts := make([][]string, len(spans))
		for _, t := range row {
			x, _ := t.Bounds.Center()
			col := slices.IndexFunc(spans, func(s span) bool { return x >= s.left && x <= s.right })
			if col < 0 {
				col = len(spans) - 1
			}
			parts[col] = append(parts[col], t.Content)
		}
		cells[r] = make([]string, len(spans))
		for c, p := range parts {
			cells[r][c] = strings.Join(p, " ")
		}
	}
	return cells
}

func groupRows(tokens []layoutModel.PdfToken) [][]layoutModel.PdfToken {
	sorted := slices.Clone(tokens)
	slices.SortStableFunc(sorted, func(a, b layoutModel.PdfToken) int {
		_, ya := a.Bounds.Center()
		_, yb := b.Bounds.Center()
		return cmp.Compare(ya, yb)
	})

	var rows [][]layoutModel.PdfToken
	var rowY, tolerance float64
	for _, t := range sorted {
		_, y := t.Bounds.Center()
		if len(rows) == 0 || y-rowY > tolerance {
			rows = append(rows, nil)
			rowY = y
			tolerance = max(t.Bounds.Height()/2, 1)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], t)
	}
	for _, row := range rows {
		slices.SortStableFunc(row, func(a, b layoutModel.PdfToken) int {
			return cmp.Compare(a.Bounds.Left, b.Bounds.Left)
		})
	}
	return rows
}

type span struct {
	left, right float64
}

// columnSpans merges the horizontal extent of all tokens. Extents closer than one line
// height belong to the same column.
func columnSpans(tokens []layoutModel.PdfToken) []span {
	var height float64
	spans := make([]span, 0, len(tokens))
	for _, t := range tokens {
		spans = append(spans, span{t.Bounds.Left, t.Bounds.Right})
		height += t.Bounds.Height()
	}
	gap := height / float64(len(tokens))
	slices.SortFunc(spans, func(a, b span) int { return cmp.Compare(a.left, b.left) })

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.left-last.right <= gap {
			last.right = max(last.right, s.right)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// Render writes cells as a markdown, html or latex table. The first row is the header.
func Render(cells [][]string, format string) string {
	switch format {
	case FormatHTML:
		return renderHTML(cells)
	case FormatLatex:
		return renderLatex(cells)
	}
	return renderMarkdown(cells)
}

func renderMarkdown(cells [][]string) string {
	var b strings.Builder
	for r, row := range cells {
		escaped := make([]string, len(row))
		for i, c := range row {
			escaped[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(escaped, " | ") + " |\n")
		if r == 0 {
			b.WriteString("|" + strings.Repeat(" --- |", len(row)) + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderHTML(cells [][]string) string {
	var b strings.Builder
	b.WriteString("<table>")
	for r, row := range cells {
		tag := "td"
		if r == 0 {
			tag = "th"
		}
		b.WriteString("<tr>")
		for _, c := range row {
			fmt.Fprintf(&b, "<%s>%s</%s>", tag, html.EscapeString(c), tag)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`, "&", `\&`, "%", `\%`, "$", `\$`, "#", `\#`, "_", `\_`, "{", `\{`, "}", `\}`,
)

func renderLatex(cells [][]string) string {
	var b strings.Builder
	b.WriteString(`\begin{tabular}{` + strings.Repeat("l", len(cells[0])) + "}\n")
	for r, row := range cells {
		escaped := make([]string, len(row))
		for i, c := range row {
			escaped[i] = latexEscaper.Replace(c)
		}
		b.WriteString(strings.Join(escaped, " & ") + ` \\` + "\n")
		if r == 0 {
			b.WriteString(`\hline` + "\n")
		}
	}
	b.WriteString(`\end{tabular}`)
	return b.String()
}
