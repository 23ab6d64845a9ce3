package box

import (
	"testing"

	"github.com/wudi/redactor/geo"
)

func TestPageBoxMapMerge(t *testing.T) {
	a := make(PageBoxMap)
	a.Add(RedactionBox{Page: 0, Rect: geo.NewRect(0, 0, 10, 10), Source: SourceExactTerm})
	b := make(PageBoxMap)
	b.Add(RedactionBox{Page: 0, Rect: geo.NewRect(0, 0, 10, 10), Source: SourceOCR})
	b.Add(RedactionBox{Page: 2, Rect: geo.NewRect(5, 5, 20, 20), Source: SourceRegex})

	a.Merge(b)
	// Same region from two detectors stays duplicated on purpose.
	if len(a[0]) != 2 {
		t.Fatalf("page 0: got %d boxes, want 2", len(a[0]))
	}
	if got := a.Total(); got != 3 {
		t.Fatalf("total: got %d, want 3", got)
	}
	if pages := a.Pages(); len(pages) != 2 || pages[0] != 0 || pages[1] != 2 {
		t.Fatalf("pages: got %v", pages)
	}
}

func TestClipToPage(t *testing.T) {
	media := geo.NewRect(0, 0, 612, 792)
	boxes := []RedactionBox{
		{Rect: geo.NewRect(-10, -10, 50, 50)},   // partially off-page
		{Rect: geo.NewRect(700, 800, 900, 900)}, // fully off-page
		{Rect: geo.NewRect(100, 100, 100.5, 100.5)}, // degenerate area
	}
	got := ClipToPage(boxes, media)
	if len(got) != 1 {
		t.Fatalf("got %d boxes, want 1: %v", len(got), got)
	}
	if got[0].Rect != geo.NewRect(0, 0, 50, 50) {
		t.Fatalf("clip: got %v", got[0].Rect)
	}
}

func TestMergeOverlapping(t *testing.T) {
	boxes := []RedactionBox{
		{Rect: geo.NewRect(0, 0, 100, 20)},
		{Rect: geo.NewRect(50, 0, 150, 20)},  // overlaps first
		{Rect: geo.NewRect(152, 0, 200, 20)}, // within merge gap of merged run
		{Rect: geo.NewRect(400, 400, 450, 420)},
	}
	got := MergeOverlapping(boxes, 0.1)
	if len(got) != 2 {
		t.Fatalf("got %d boxes, want 2: %v", len(got), got)
	}
	// Merged rectangle must cover all constituents.
	want := geo.NewRect(0, 0, 200, 20)
	if !got[0].Rect.ContainsRect(want) && !got[1].Rect.ContainsRect(want) {
		t.Fatalf("merged rect does not cover constituents: %v", got)
	}
}

func TestMergeOverlappingKeepsCoverage(t *testing.T) {
	boxes := []RedactionBox{
		{Rect: geo.NewRect(10, 10, 60, 30)},
		{Rect: geo.NewRect(40, 15, 90, 35)},
	}
	merged := MergeOverlapping(boxes, 0.1)
	for _, orig := range boxes {
		covered := false
		for _, m := range merged {
			if m.Rect.ContainsRect(orig.Rect) {
				covered = true
				break
			}
		}
		if !covered {
			t.Fatalf("box %v lost coverage after merge: %v", orig.Rect, merged)
		}
	}
}
