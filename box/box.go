// Package box defines the canonical redaction target representation produced
// by the detectors and consumed exactly once by the applier.
package box

import (
	"sort"

	"github.com/wudi/redactor/geo"
)

// Source identifies how a redaction box was produced.
type Source string

const (
	SourceExactTerm Source = "exact_term"
	SourceRegex     Source = "regex"
	SourceOCR       Source = "ocr"
	SourceManual    Source = "manual"
)

// RedactionBox is a single region scheduled for removal. Page is the
// zero-based page index; Rect is in PDF point space with a bottom-left
// origin. Boxes are independent and may overlap.
type RedactionBox struct {
	Page        int      `json:"page"`
	Rect        geo.Rect `json:"rect"`
	Source      Source   `json:"source"`
	MatchedText string   `json:"matched_text,omitempty"`
	// Confidence is the OCR confidence (0-100) for OCR-sourced boxes and
	// zero otherwise.
	Confidence float64 `json:"confidence,omitempty"`
}

// PageBoxMap groups redaction boxes by zero-based page index.
type PageBoxMap map[int][]RedactionBox

// Add appends a box to its page's list.
func (m PageBoxMap) Add(b RedactionBox) {
	m[b.Page] = append(m[b.Page], b)
}

// AddAll appends every box to its page's list.
func (m PageBoxMap) AddAll(boxes []RedactionBox) {
	for _, b := range boxes {
		m.Add(b)
	}
}

// Merge folds the other map into m. Boxes from different detectors are kept
// as-is; duplicates across sources are intentionally not deduplicated.
func (m PageBoxMap) Merge(other PageBoxMap) {
	for page, boxes := range other {
		m[page] = append(m[page], boxes...)
	}
}

// Pages returns the page indices carrying at least one box, ascending.
func (m PageBoxMap) Pages() []int {
	pages := make([]int, 0, len(m))
	for page, boxes := range m {
		if len(boxes) > 0 {
			pages = append(pages, page)
		}
	}
	sort.Ints(pages)
	return pages
}

// Total counts boxes across all pages.
func (m PageBoxMap) Total() int {
	n := 0
	for _, boxes := range m {
		n += len(boxes)
	}
	return n
}

// ClipToPage intersects every box on the page with the media box and drops
// boxes that end up without meaningful area.
func ClipToPage(boxes []RedactionBox, media geo.Rect) []RedactionBox {
	out := boxes[:0:0]
	for _, b := range boxes {
		clipped := b.Rect.Intersect(media)
		if clipped.IsEmpty() || clipped.Area() <= 1 {
			continue
		}
		b.Rect = clipped
		out = append(out, b)
	}
	return out
}

// MergeOverlapping coalesces boxes on one page whose rectangles overlap by
// more than the given ratio of the smaller box, or sit within 5pt of each
// other. The merged rectangle is the union, so coverage never shrinks.
func MergeOverlapping(boxes []RedactionBox, overlapRatio float64) []RedactionBox {
	if len(boxes) <= 1 {
		return boxes
	}
	sorted := append([]RedactionBox(nil), boxes...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Rect.Y0 != sorted[j].Rect.Y0 {
			return sorted[i].Rect.Y0 < sorted[j].Rect.Y0
		}
		return sorted[i].Rect.X0 < sorted[j].Rect.X0
	})

	merged := []RedactionBox{sorted[0]}
	for _, cur := range sorted[1:] {
		absorbed := false
		for i := range merged {
			if shouldMerge(merged[i].Rect, cur.Rect, overlapRatio) {
				merged[i].Rect = merged[i].Rect.Union(cur.Rect)
				absorbed = true
				break
			}
		}
		if !absorbed {
			merged = append(merged, cur)
		}
	}
	return merged
}

const mergeGap = 5.0

func shouldMerge(a, b geo.Rect, overlapRatio float64) bool {
	inter := a.Intersect(b)
	if !inter.IsEmpty() {
		smaller := a.Area()
		if b.Area() < smaller {
			smaller = b.Area()
		}
		return smaller > 0 && inter.Area()/smaller > overlapRatio
	}
	return a.Expand(mergeGap).Intersects(b)
}
