package pdfimages

import (
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/adapter/utils"
	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

// Converter turns a PDF on disk into extracted features plus one image per page.
type Converter struct {
	Extractor FeatureExtractor
	Renderer  Renderer
	ImagesDir string
	XmlsDir   string
}

// ImagePath is where the image of a page is rendered: <imagesDir>/<pdfName>_<page>.png.
func ImagePath(imagesDir, pdfName string, page int) string {
	return filepath.Join(imagesDir, fmt.Sprintf("%s_%d.png", pdfName, page))
}

// FromPdfPath extracts features and renders every page. With xmlFileName set, the features
// are also saved as XML under XmlsDir.
func (c *Converter) FromPdfPath(ctx context.Context, pdfPath, xmlFileName string) (layoutModel.PdfImages, error) {
	pdfName := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	result := layoutModel.PdfImages{PdfName: pdfName, XmlFileName: xmlFileName}

	features, err := c.Extractor.Extract(ctx, pdfPath)
	if err != nil {
		return result, err
	}
	result.Features = features

	if err := os.MkdirAll(c.ImagesDir, 0750); err != nil {
		return result, fmt.Errorf("creating images dir: %w", err)
	}
	for _, page := range features.Pages {
		path := ImagePath(c.ImagesDir, pdfName, page.PageNumber)
		if err := c.Renderer.Render(ctx, pdfPath, page.PageNumber, path); err != nil {
			return result, fmt.Errorf("rendering page %d: %w", page.PageNumber, err)
		}
		width, height, err := imageSize(path)
		if err != nil {
			return result, err
		}
		result.Images = append(result.Images, layoutModel.PageImage{
			PageNumber: page.PageNumber,
			Path:       path,
			Width:      width,
			Height:     height,
		})
	}

	if xmlFileName != "" {
		if err := SaveXML(c.XmlsDir, xmlFileName, features); err != nil {
			return result, err
		}
	}
	logger.Debug("pdf converted", "pdf", pdfName, "pages", len(result.Images))
	return result, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("page image missing: %v", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// RemoveImages deletes page images starting with prefix. An empty prefix clears dir.
func RemoveImages(dir, prefix string) error {
	return utils.RemoveFilesWithPrefix(dir, prefix)
}
