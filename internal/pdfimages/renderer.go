package pdfimages

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Renderer rasterises one PDF page to a PNG file.
type Renderer interface {
	Render(ctx context.Context, pdfPath string, page int, outPath string) error
}

// PdftoppmRenderer shells out to poppler's pdftoppm. At 72 DPI one image pixel is one PDF point.
type PdftoppmRenderer struct {
	Binary string
	DPI    int
}

func NewPdftoppmRenderer() *PdftoppmRenderer {
	return &PdftoppmRenderer{Binary: "pdftoppm", DPI: 72}
}

func (r *PdftoppmRenderer) Render(ctx context.Context, pdfPath string, page int, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bin, err := exec.LookPath(r.Binary)
	if err != nil {
		return fmt.Errorf("pdf renderer unavailable: %v", err)
	}

	// -singlefile writes <prefix>.png
	prefix := strings.TrimSuffix(outPath, ".png")
	pageStr := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-r", strconv.Itoa(r.DPI),
		"-singlefile",
		"-f", pageStr,
		"-l", pageStr,
		pdfPath,
		prefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}
	if _, err := os.Stat(prefix + ".png"); err != nil {
		return fmt.Errorf("pdftoppm did not create expected output: %v", err)
	}
	return nil
}
