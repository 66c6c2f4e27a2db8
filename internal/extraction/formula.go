// Package extraction rewrites the text of formula and table segments into markup.
package extraction

import (
	"strings"
	"unicode"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"golang.org/x/text/unicode/norm"
)

var latexSymbols = map[rune]string{
	'α': `\alpha`, 'β': `\beta`, 'γ': `\gamma`, 'δ': `\delta`, 'ε': `\epsilon`, 'ζ': `\zeta`,
	'η': `\eta`, 'θ': `\theta`, 'ι': `\iota`, 'κ': `\kappa`, 'λ': `\lambda`, 'μ': `\mu`,
	'ν': `\nu`, 'ξ': `\xi`, 'π': `\pi`, 'ρ': `\rho`, 'σ': `\sigma`, 'τ': `\tau`,
	'υ': `\upsilon`, 'φ': `\phi`, 'χ': `\chi`, 'ψ': `\psi`, 'ω': `\omega`,
	'Γ': `\Gamma`, 'Δ': `\Delta`, 'Θ': `\Theta`, 'Λ': `\Lambda`, 'Ξ': `\Xi`, 'Π': `\Pi`,
	'Σ': `\Sigma`, 'Φ': `\Phi`, 'Ψ': `\Psi`, 'Ω': `\Omega`,
	'≤': `\leq`, '≥': `\geq`, '≠': `\neq`, '≈': `\approx`, '≡': `\equiv`, '∼': `\sim`,
	'±': `\pm`, '∓': `\mp`, '×': `\times`, '÷': `\div`, '·': `\cdot`, '∝': `\propto`,
	'∞': `\infty`, '∑': `\sum`, '∏': `\prod`, '∫': `\int`, '∮': `\oint`, '√': `\sqrt`,
	'∂': `\partial`, '∇': `\nabla`, '∈': `\in`, '∉': `\notin`, '⊂': `\subset`, '⊆': `\subseteq`,
	'⊃': `\supset`, '⊇': `\supseteq`, '∪': `\cup`, '∩': `\cap`, '∅': `\emptyset`,
	'→': `\rightarrow`, '←': `\leftarrow`, '↔': `\leftrightarrow`, '⇒': `\Rightarrow`,
	'⇐': `\Leftarrow`, '⇔': `\Leftrightarrow`, '↦': `\mapsto`,
	'∀': `\forall`, '∃': `\exists`, '¬': `\neg`, '∧': `\wedge`, '∨': `\vee`,
	'…': `\ldots`, '⋯': `\cdots`, '°': `^{\circ}`, '′': `'`, '−': `-`,
}

var superscripts = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4', '⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
	'⁺': '+', '⁻': '-', '⁼': '=', '⁽': '(', '⁾': ')', 'ⁿ': 'n', 'ⁱ': 'i',
}

var subscripts = map[rune]rune{
	'₀': '0', '₁': '1', '₂': '2', '₃': '3', '₄': '4', '₅': '5', '₆': '6', '₇': '7', '₈': '8', '₉': '9',
	'₊': '+', '₋': '-', '₌': '=', '₍': '(', '₎': ')',
}

// ToLatex converts a formula written with unicode math characters to LaTeX wrapped in $$.
func ToLatex(text string) string {
	runes := []rune(text)
	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if _, ok := superscripts[r]; ok {
			i = writeScript(&b, runes, i, '^', superscripts) - 1
			continue
		}
		if _, ok := subscripts[r]; ok {
			i = writeScript(&b, runes, i, '_', subscripts) - 1
			continue
		}
		if cmd, ok := latexSymbols[r]; ok {
			b.WriteString(cmd)
			if strings.HasPrefix(cmd, `\`) && i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
				b.WriteByte(' ')
			}
			continue
		}
		b.WriteString(norm.NFKC.String(string(r)))
	}
	return "$$" + strings.TrimSpace(b.String()) + "$$"
}

// writeScript writes the run of script characters starting at i and returns the index after it.
func writeScript(b *strings.Builder, runes []rune, i int, marker byte, table map[rune]rune) int {
	b.WriteByte(marker)
	b.WriteByte('{')
	for ; i < len(runes); i++ {
		plain, ok := table[runes[i]]
		if !ok {
			break
		}
		b.WriteRune(plain)
	}
	b.WriteByte('}')
	return i
}

// ExtractFormulaFormat replaces the text of every Formula segment with its LaTeX form.
func ExtractFormulaFormat(images layoutModel.PdfImages, segments []layoutModel.PredictedSegment) []layoutModel.PredictedSegment {
	for i, s := range segments {
		if s.Type != layoutModel.Formula {
			continue
		}
		text := s.Text
		if page, ok := images.Features.Page(s.PageNumber); ok {
			if rebuilt := tokensText(tokensInside(page.Tokens, s.Box)); rebuilt != "" {
				text = rebuilt
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		segments[i].Text = ToLatex(text)
	}
	return segments
}

func tokensInside(tokens []layoutModel.PdfToken, box layoutModel.Rectangle) []layoutModel.PdfToken {
	var inside []layoutModel.PdfToken
	for _, t := range tokens {
		if box.Contains(t.Bounds.Center()) {
			inside = append(inside, t)
		}
	}
	return inside
}

func tokensText(tokens []layoutModel.PdfToken) string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Content
	}
	return strings.Join(words, " ")
}
