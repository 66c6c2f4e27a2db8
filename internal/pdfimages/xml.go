package pdfimages

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

type xmlDocument struct {
	XMLName xml.Name  `xml:"pdf2xml"`
	Pages   []xmlPage `xml:"page"`
}

type xmlPage struct {
	Number   int       `xml:"number,attr"`
	Position string    `xml:"position,attr"`
	Top      int       `xml:"top,attr"`
	Left     int       `xml:"left,attr"`
	Height   float64   `xml:"height,attr"`
	Width    float64   `xml:"width,attr"`
	Texts    []xmlText `xml:"text"`
}

type xmlText struct {
	Top    float64 `xml:"top,attr"`
	Left   float64 `xml:"left,attr"`
	Width  float64 `xml:"width,attr"`
	Height float64 `xml:"height,attr"`
	Font   float64 `xml:"font,attr"`
	Value  string  `xml:",chardata"`
}

// safeName rejects names that would escape the xml directory.
func safeName(name string) (string, error) {
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid xml file name %q", name)
	}
	return clean, nil
}

// SaveXML writes the features as pdftohtml style XML to <dir>/<name>.
func SaveXML(dir, name string, features layoutModel.PdfFeatures) error {
	name, err := safeName(name)
	if err != nil {
		return err
	}
	doc := xmlDocument{}
	for _, p := range features.Pages {
		page := xmlPage{Number: p.PageNumber, Position: "absolute", Height: p.Height, Width: p.Width}
		for _, t := range p.Tokens {
			page.Texts = append(page.Texts, xmlText{
				Top:    t.Bounds.Top,
				Left:   t.Bounds.Left,
				Width:  t.Bounds.Width(),
				Height: t.Bounds.Height(),
				Font:   t.FontSize,
				Value:  t.Content,
			})
		}
		doc.Pages = append(doc.Pages, page)
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), append([]byte(xml.Header), data...), 0640)
}

// LoadXML returns the raw XML saved under name. A missing file is ErrMissingInput.
func LoadXML(dir, name string) ([]byte, error) {
	name, err := safeName(name)
	if err != nil {
		return nil, layoutModel.MissingInput("xml file", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, layoutModel.MissingInput("xml file "+name, err)
	}
	return data, err
}
