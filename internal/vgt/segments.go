package vgt

import (
	"cmp"
	"slices"
	"strings"

	"github.com/akolanti/LayoutAPI/internal/domain/layoutModel"
)

type pageKey struct {
	pdf, page int
}

// GetMostProbablePdfSegments turns raw predictions into page segments. Predictions under the
// score threshold or with an unknown category are dropped, boxes are mapped from image pixels
// to page units and clipped, and a box overlapping a higher scored one by more than
// overlapThreshold of the smaller area is suppressed.
func GetMostProbablePdfSegments(images []layoutModel.PdfImages, predictions []Prediction, scoreThreshold, overlapThreshold float64) []layoutModel.PredictedSegment {
	refs := imageIDs(images)
	candidates := make(map[pageKey][]layoutModel.PredictedSegment)

	for _, p := range predictions {
		if p.Score < scoreThreshold {
			continue
		}
		kind, ok := layoutModel.TypeByID(p.CategoryID)
		if !ok {
			continue
		}
		ref, ok := refs[p.ImageID]
		if !ok {
			continue
		}
		img := images[ref.pdf].Images[ref.image]
		page, ok := images[ref.pdf].Features.Page(img.PageNumber)
		if !ok || img.Width == 0 || img.Height == 0 {
			continue
		}

		sx, sy := page.Width/float64(img.Width), page.Height/float64(img.Height)
		box := layoutModel.Rectangle{
			Left:   p.BBox[0],
			Top:    p.BBox[1],
			Right:  p.BBox[0] + p.BBox[2],
			Bottom: p.BBox[1] + p.BBox[3],
		}.Scale(sx, sy).Clip(page.Width, page.Height)
		if box.Empty() {
			continue
		}

		key := pageKey{ref.pdf, img.PageNumber}
		candidates[key] = append(candidates[key], layoutModel.PredictedSegment{
			Type:       kind,
			Box:        box,
			Score:      p.Score,
			PageNumber: img.PageNumber,
		})
	}

	keys := make([]pageKey, 0, len(candidates))
	for k := range candidates {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b pageKey) int {
		return cmp.Or(cmp.Compare(a.pdf, b.pdf), cmp.Compare(a.page, b.page))
	})

	var segments []layoutModel.PredictedSegment
	for _, key := range keys {
		page, _ := images[key.pdf].Features.Page(key.page)
		kept := suppressOverlaps(candidates[key], overlapThreshold)
		for i := range kept {
			kept[i].Text = textInside(page.Tokens, kept[i].Box)
		}
		slices.SortStableFunc(kept, func(a, b layoutModel.PredictedSegment) int {
			return cmp.Or(cmp.Compare(a.Box.Top, b.Box.Top), cmp.Compare(a.Box.Left, b.Box.Left))
		})
		segments = append(segments, kept...)
	}
	return segments
}

func suppressOverlaps(segments []layoutModel.PredictedSegment, threshold float64) []layoutModel.PredictedSegment {
	slices.SortStableFunc(segments, func(a, b layoutModel.PredictedSegment) int {
		return cmp.Compare(b.Score, a.Score)
	})
	var kept []layoutModel.PredictedSegment
	for _, s := range segments {
		overlapping := false
		for _, k := range kept {
			smaller := min(s.Box.Area(), k.Box.Area())
			if smaller > 0 && s.Box.Intersection(k.Box).Area()/smaller > threshold {
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, s)
		}
	}
	return kept
}

// textInside joins the tokens whose centre lies in box, in extraction order.
func textInside(tokens []layoutModel.PdfToken, box layoutModel.Rectangle) string {
	var words []string
	for _, t := range tokens {
		if box.Contains(t.Bounds.Center()) {
			words = append(words, t.Content)
		}
	}
	return strings.Join(words, " ")
}
