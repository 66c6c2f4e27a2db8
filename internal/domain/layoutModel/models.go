package layoutModel

import "math"

// Box is a token box in page-pixel units, (x0,y0) top-left and (x1,y1) bottom-right.
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Token is one vocabulary id placed on a page.
type Token struct {
	ID  int64 `json:"id"`
	Box Box   `json:"box"`
}

type Rectangle struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rectangle) Width() float64  { return math.Max(0, r.Right-r.Left) }
func (r Rectangle) Height() float64 { return math.Max(0, r.Bottom-r.Top) }
func (r Rectangle) Area() float64   { return r.Width() * r.Height() }

func (r Rectangle) Empty() bool { return r.Width() == 0 || r.Height() == 0 }

func (r Rectangle) Intersection(o Rectangle) Rectangle {
	in := Rectangle{
		Left:   math.Max(r.Left, o.Left),
		Top:    math.Max(r.Top, o.Top),
		Right:  math.Min(r.Right, o.Right),
		Bottom: math.Min(r.Bottom, o.Bottom),
	}
	if in.Right < in.Left || in.Bottom < in.Top {
		return Rectangle{}
	}
	return in
}

func (r Rectangle) Center() (float64, float64) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

func (r Rectangle) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Clip bounds the rectangle to a width x height page.
func (r Rectangle) Clip(width, height float64) Rectangle {
	return Rectangle{
		Left:   clamp(r.Left, 0, width),
		Top:    clamp(r.Top, 0, height),
		Right:  clamp(r.Right, 0, width),
		Bottom: clamp(r.Bottom, 0, height),
	}
}

func (r Rectangle) Scale(sx, sy float64) Rectangle {
	return Rectangle{Left: r.Left * sx, Top: r.Top * sy, Right: r.Right * sx, Bottom: r.Bottom * sy}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// PdfToken is a word extracted from the PDF text layer.
type PdfToken struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	Bounds   Rectangle `json:"bounds"`
	FontSize float64   `json:"font_size"`
}

type PdfPage struct {
	PageNumber int        `json:"page_number"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Tokens     []PdfToken `json:"tokens"`
}

type PdfFeatures struct {
	FileName string    `json:"file_name"`
	Pages    []PdfPage `json:"pages"`
}

// Page returns the page with the given 1-based number.
func (f PdfFeatures) Page(number int) (PdfPage, bool) {
	for _, p := range f.Pages {
		if p.PageNumber == number {
			return p, true
		}
	}
	return PdfPage{}, false
}

type PageImage struct {
	PageNumber int    `json:"page_number"`
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// PdfImages ties one PDF's extracted features to its rendered page images.
type PdfImages struct {
	Features    PdfFeatures `json:"features"`
	Images      []PageImage `json:"images"`
	PdfName     string      `json:"pdf_name"`
	XmlFileName string      `json:"xml_file_name,omitempty"`
}

// PdfWorkItem tracks the artifacts of one request so they can be removed afterwards.
type PdfWorkItem struct {
	UUID      string
	PdfPath   string
	Images    []string
	WordGrids []string
}

type PredictedSegment struct {
	Type         TokenType `json:"type"`
	Box          Rectangle `json:"box"`
	Score        float64   `json:"score"`
	PageNumber   int       `json:"page_number"`
	Text         string    `json:"text"`
	ReadingOrder int       `json:"reading_order"`
}

// SegmentBox is the externally visible record for one segment.
type SegmentBox struct {
	Left         float64 `json:"left"`
	Top          float64 `json:"top"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	PageNumber   int     `json:"page_number"`
	PageWidth    float64 `json:"page_width"`
	PageHeight   float64 `json:"page_height"`
	Text         string  `json:"text"`
	Type         string  `json:"type"`
	Score        float64 `json:"score"`
	ReadingOrder int     `json:"reading_order"`
}

// ToSegmentBox converts a segment to absolute page coordinates using the page list of its PDF.
func ToSegmentBox(segment PredictedSegment, pages []PdfPage) SegmentBox {
	box := SegmentBox{
		Left:         segment.Box.Left,
		Top:          segment.Box.Top,
		Width:        segment.Box.Width(),
		Height:       segment.Box.Height(),
		PageNumber:   segment.PageNumber,
		Text:         segment.Text,
		Type:         segment.Type.String(),
		Score:        segment.Score,
		ReadingOrder: segment.ReadingOrder,
	}
	for _, p := range pages {
		if p.PageNumber == segment.PageNumber {
			box.PageWidth = p.Width
			box.PageHeight = p.Height
			break
		}
	}
	return box
}
