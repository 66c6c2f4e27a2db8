// Package readingorder sorts layout segments into the order a person would read them.
package readingorder

import (
	"cmp"
	"slices"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

// a segment wider than this share of the page is read as a full-width block
const spanningShare = 0.55

// Order returns the segments sorted page by page and numbers them 0..n-1 across the document.
// On each page headers come first and footers last. The body is cut into horizontal bands:
// a full-width segment is a band of its own, and a run of narrow segments between two
// full-width ones is read as two columns, the left one first.
func Order(segments []layoutModel.PredictedSegment, pages []layoutModel.PdfPage) []layoutModel.PredictedSegment {
	widths := make(map[int]float64, len(pages))
	for _, p := range pages {
		widths[p.PageNumber] = p.Width
	}

	byPage := make(map[int][]layoutModel.PredictedSegment)
	var numbers []int
	for _, s := range segments {
		if _, seen := byPage[s.PageNumber]; !seen {
			numbers = append(numbers, s.PageNumber)
		}
		byPage[s.PageNumber] = append(byPage[s.PageNumber], s)
	}
	slices.Sort(numbers)

	ordered := make([]layoutModel.PredictedSegment, 0, len(segments))
	for _, n := range numbers {
		width, ok := widths[n]
		if !ok {
			width = pageExtent(byPage[n])
		}
		ordered = append(ordered, orderPage(byPage[n], width)...)
	}
	for i := range ordered {
		ordered[i].ReadingOrder = i
	}
	return ordered
}

func orderPage(segments []layoutModel.PredictedSegment, width float64) []layoutModel.PredictedSegment {
	var headers, footers, body []layoutModel.PredictedSegment
	for _, s := range segments {
		switch s.Type {
		case layoutModel.PageHeader:
			headers = append(headers, s)
		case layoutModel.PageFooter:
			footers = append(footers, s)
		default:
			body = append(body, s)
		}
	}
	sortTopDown(headers)
	sortTopDown(footers)
	sortTopDown(body)

	out := append([]layoutModel.PredictedSegment{}, headers...)
	gutter := width / 2
	var run []layoutModel.PredictedSegment
	for _, s := range body {
		if isSpanning(s.Box, width, gutter) {
			out = append(out, columns(run, gutter)...)
			run = run[:0]
			out = append(out, s)
			continue
		}
		run = append(run, s)
	}
	out = append(out, columns(run, gutter)...)
	return append(out, footers...)
}

func isSpanning(box layoutModel.Rectangle, width, gutter float64) bool {
	return box.Width() > spanningShare*width || (box.Left < gutter && box.Right > gutter)
}

func columns(run []layoutModel.PredictedSegment, gutter float64) []layoutModel.PredictedSegment {
	var left, right []layoutModel.PredictedSegment
	for _, s := range run {
		if x, _ := s.Box.Center(); x < gutter {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	sortTopDown(left)
	sortTopDown(right)
	return append(left, right...)
}

func sortTopDown(segments []layoutModel.PredictedSegment) {
	slices.SortStableFunc(segments, func(a, b layoutModel.PredictedSegment) int {
		return cmp.Or(cmp.Compare(a.Box.Top, b.Box.Top), cmp.Compare(a.Box.Left, b.Box.Left))
	})
}

// pageExtent guesses the page width from the segments when the page is unknown.
func pageExtent(segments []layoutModel.PredictedSegment) float64 {
	var right float64
	for _, s := range segments {
		right = max(right, s.Box.Right)
	}
	return right
}
