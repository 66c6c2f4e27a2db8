package wordgrid

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

// File is the on-disk word grid of one page image. Boxes are [x0, y0, x1, y1] in image pixels.
type File struct {
	InputIDs        []int64      `json:"input_ids"`
	BboxSubwordList [][4]float64 `json:"bbox_subword_list"`
	Texts           []string     `json:"texts"`
	BboxTextsList   [][4]float64 `json:"bbox_texts_list"`
}

// GridInput scales the subword boxes by (sx, sy), used when the page image was resized.
func (f File) GridInput(sx, sy float64) GridInput {
	in := GridInput{InputIDs: f.InputIDs, Boxes: make([]layoutModel.Box, len(f.BboxSubwordList))}
	for i, b := range f.BboxSubwordList {
		in.Boxes[i] = layoutModel.Box{X0: b[0] * sx, Y0: b[1] * sy, X1: b[2] * sx, Y1: b[3] * sy}
	}
	return in
}

// PathFor returns the word grid file path for a page image.
func PathFor(dir, imagePath string) string {
	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	return filepath.Join(dir, stem+".json")
}

// BuildFile tokenizes every word of the page. Word boxes are given in page units and
// scaled to image pixels by (sx, sy); subwords split their word box by character count.
func BuildFile(page layoutModel.PdfPage, tok *Tokenizer, sx, sy float64) File {
	var f File
	for _, token := range page.Tokens {
		box := token.Bounds.Scale(sx, sy)
		f.Texts = append(f.Texts, token.Content)
		f.BboxTextsList = append(f.BboxTextsList, [4]float64{box.Left, box.Top, box.Right, box.Bottom})

		pieces := tok.Tokenize(token.Content)
		if len(pieces) == 0 {
			continue
		}
		lengths := make([]int, len(pieces))
		total := 0
		for i, p := range pieces {
			lengths[i] = max(1, utf8.RuneCountInString(strings.TrimPrefix(p, continuationMark)))
			total += lengths[i]
		}

		left := box.Left
		for i, p := range pieces {
			right := left + box.Width()*float64(lengths[i])/float64(total)
			if i == len(pieces)-1 {
				right = box.Right
			}
			f.InputIDs = append(f.InputIDs, tok.id(p))
			f.BboxSubwordList = append(f.BboxSubwordList, [4]float64{left, box.Top, right, box.Bottom})
			left = right
		}
	}
	return f
}

// CreateWordGrids writes one word grid file per rendered page and returns the written paths.
func CreateWordGrids(pdfs []layoutModel.PdfImages, dir string, tok *Tokenizer) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating word grid dir: %w", err)
	}

	var written []string
	for _, pdf := range pdfs {
		for _, img := range pdf.Images {
			page, ok := pdf.Features.Page(img.PageNumber)
			if !ok || page.Width == 0 || page.Height == 0 {
				return written, fmt.Errorf("no features for page %d of %s", img.PageNumber, pdf.PdfName)
			}
			sx := float64(img.Width) / page.Width
			sy := float64(img.Height) / page.Height

			data, err := json.Marshal(BuildFile(page, tok, sx, sy))
			if err != nil {
				return written, err
			}
			path := PathFor(dir, img.Path)
			if err := os.WriteFile(path, data, 0640); err != nil {
				return written, fmt.Errorf("writing word grid: %w", err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decoding word grid %s: %w", path, err)
	}
	return f, nil
}

// RemoveWordGrids deletes word grid files starting with prefix, all of them when prefix is empty.
// Files or directories that are already gone are not an error.
func RemoveWordGrids(dir, prefix string) error {
	return utils.RemoveFilesWithPrefix(dir, prefix)
}
