package pdfimages

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
	"github.com/akolanti/LayoutAPI/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	wordGapFactor     = 0.3
	baselineTolerance = 0.5
	ascentFactor      = 0.8
	descentFactor     = 0.2
	defaultPageTime   = 10 * time.Second
)

var logger = logger_i.NewLogger("PdfImages")

// FeatureExtractor reads the words and page geometry of a PDF.
type FeatureExtractor interface {
	Extract(ctx context.Context, pdfPath string) (layoutModel.PdfFeatures, error)
}

// PdfExtractor extracts words from the PDF text layer. Page sizes come from pdfcpu and
// fall back to the MediaBox when pdfcpu cannot parse the file.
type PdfExtractor struct {
	PageTimeout time.Duration
}

func NewPdfExtractor() *PdfExtractor {
	return &PdfExtractor{PageTimeout: defaultPageTime}
}

func (e *PdfExtractor) Extract(ctx context.Context, pdfPath string) (layoutModel.PdfFeatures, error) {
	features := layoutModel.PdfFeatures{FileName: pdfPath}
	if _, err := os.Stat(pdfPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return features, layoutModel.MissingInput("pdf "+pdfPath, err)
		}
		return features, err
	}

	reader, err := pdf.Open(pdfPath)
	if err != nil {
		return features, fmt.Errorf("failed to open pdf: %w", err)
	}

	dims := pageDims(pdfPath)
	numPages := reader.NumPage()
	logger.Debug("extracting features", "path", pdfPath, "pages", numPages)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return features, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		width, height := mediaBox(page)
		if i-1 < len(dims) {
			width, height = dims[i-1].Width, dims[i-1].Height
		}

		texts, err := e.protectContent(ctx, page)
		if err != nil {
			logger.Warn("page text unreadable, keeping page without words", "page", i, "error", err)
		}
		features.Pages = append(features.Pages, layoutModel.PdfPage{
			PageNumber: i,
			Width:      width,
			Height:     height,
			Tokens:     GroupWords(texts, i, width, height),
		})
	}
	if len(features.Pages) == 0 {
		return features, fmt.Errorf("pdf %s has no pages", pdfPath)
	}
	return features, nil
}

// protectContent guards against malformed content streams, which can panic or hang the parser.
func (e *PdfExtractor) protectContent(ctx context.Context, page pdf.Page) ([]pdf.Text, error) {
	type result struct {
		texts []pdf.Text
		err   error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("content stream: %v", r)}
			}
		}()
		resChan <- result{texts: page.Content().Text}
	}()

	timeout := e.PageTimeout
	if timeout <= 0 {
		timeout = defaultPageTime
	}
	select {
	case r := <-resChan:
		return r.texts, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, errors.New("timeout")
	}
}

func pageDims(pdfPath string) []types.Dim {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	dims, err := api.PageDims(f, nil)
	if err != nil {
		logger.Debug("pdfcpu could not read page sizes", "error", err)
		return nil
	}
	return dims
}

// mediaBox walks up the page tree since MediaBox is inheritable. Letter size when absent.
func mediaBox(page pdf.Page) (float64, float64) {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		if box := v.Key("MediaBox"); box.Len() == 4 {
			return box.Index(2).Float64() - box.Index(0).Float64(), box.Index(3).Float64() - box.Index(1).Float64()
		}
	}
	return 612, 792
}

// GroupWords joins glyph runs into words. A glyph starts a new word when it sits on another
// baseline, leaves a gap wider than 0.3 font sizes, or is whitespace. Y is flipped to a
// top-left origin and boxes are clipped to the page.
func GroupWords(texts []pdf.Text, pageNumber int, width, height float64) []layoutModel.PdfToken {
	var tokens []layoutModel.PdfToken
	var word strings.Builder
	var cur pdf.Text
	var right float64
	open := false

	flush := func() {
		if !open {
			return
		}
		content := strings.TrimSpace(word.String())
		if content != "" {
			size := math.Max(cur.FontSize, 1)
			bounds := layoutModel.Rectangle{
				Left:   cur.X,
				Top:    height - cur.Y - size*ascentFactor,
				Right:  right,
				Bottom: height - cur.Y + size*descentFactor,
			}.Clip(width, height)
			if !bounds.Empty() {
				tokens = append(tokens, layoutModel.PdfToken{
					ID:       fmt.Sprintf("p%d_w%d", pageNumber, len(tokens)),
					Content:  content,
					Bounds:   bounds,
					FontSize: cur.FontSize,
				})
			}
		}
		word.Reset()
		open = false
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		if open {
			size := math.Max(cur.FontSize, 1)
			sameLine := math.Abs(t.Y-cur.Y) <= baselineTolerance*size
			gap := t.X - right
			if !sameLine || gap > wordGapFactor*size || gap < -size {
				flush()
			}
		}
		if !open {
			cur = t
			right = t.X
			open = true
		}
		word.WriteString(t.S)
		right = math.Max(right, t.X+t.W)
		cur.FontSize = math.Max(cur.FontSize, t.FontSize)
	}
	flush()
	return tokens
}
