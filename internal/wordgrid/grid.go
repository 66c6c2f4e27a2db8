package wordgrid

import (
	"math"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

// UnknownTokenID is written instead of the real id when text is masked.
const UnknownTokenID int64 = 100

// GridInput holds the parallel id and box sequences for one image of the batch.
type GridInput struct {
	InputIDs []int64
	Boxes    []layoutModel.Box
}

// Grid is a [Batch, Height, Width] map of vocabulary ids, 0 meaning background.
type Grid struct {
	Batch  int
	Height int
	Width  int
	Cells  []int64
}

func NewGrid(batch, height, width int) *Grid {
	return &Grid{Batch: batch, Height: height, Width: width, Cells: make([]int64, batch*height*width)}
}

func (g *Grid) At(b, y, x int) int64 {
	return g.Cells[(b*g.Height+y)*g.Width+x]
}

func (g *Grid) fill(b, y0, y1, x0, x1 int, id int64) {
	for y := y0; y < y1; y++ {
		row := (b*g.Height + y) * g.Width
		for x := x0; x < x1; x++ {
			g.Cells[row+x] = id
		}
	}
}

// BuildGrid rasterises tokens into a [len(inputs), height/stride, width/stride] grid.
// Tokens are written in input order so later tokens overwrite earlier ones.
func BuildGrid(inputs []GridInput, height, width, stride int, useUNK bool) *Grid {
	if stride < 1 {
		stride = 1
	}
	grid := NewGrid(len(inputs), height/stride, width/stride)

	for b, in := range inputs {
		n := min(len(in.InputIDs), len(in.Boxes))
		for i := 0; i < n; i++ {
			box := in.Boxes[i]
			x0 := scaleAndClip(box.X0, stride, grid.Width)
			y0 := scaleAndClip(box.Y0, stride, grid.Height)
			x1 := scaleAndClip(box.X1, stride, grid.Width)
			y1 := scaleAndClip(box.Y1, stride, grid.Height)
			if x1 <= x0 || y1 <= y0 {
				continue
			}
			id := in.InputIDs[i]
			if useUNK {
				id = UnknownTokenID
			}
			grid.fill(b, y0, y1, x0, x1, id)
		}
	}
	return grid
}

// scaleAndClip divides by the stride, rounds half to even and clips to [0, limit].
func scaleAndClip(v float64, stride, limit int) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.RoundToEven(v / float64(stride))
	if r < 0 {
		return 0
	}
	if r > float64(limit) {
		return limit
	}
	return int(r)
}
