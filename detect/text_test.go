package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/geo"
	"github.com/wudi/redactor/pdfdoc"
	"github.com/wudi/redactor/pdfdoc/memdoc"
)

var letter = geo.NewRect(0, 0, 612, 792)

func singleRunPage(t *testing.T, text string, rect geo.Rect) pdfdoc.Page {
	t.Helper()
	doc := memdoc.New()
	doc.AddPage(letter, pdfdoc.TextRun{Text: text, Rect: rect})
	p, err := doc.Page(0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	return p
}

func TestFindExact(t *testing.T) {
	runRect := geo.NewRect(72, 700, 300, 714)
	page := singleRunPage(t, "Employee: John Q. Public", runRect)

	d := NewTextDetector()
	boxes, err := d.FindExact(context.Background(), page, "john q. public", false)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	b := boxes[0]
	if b.Source != box.SourceExactTerm || b.Page != 0 {
		t.Fatalf("unexpected box: %+v", b)
	}
	if !b.Rect.ContainsRect(runRect) && !runRect.ContainsRect(b.Rect) {
		t.Fatalf("box %v unrelated to run %v", b.Rect, runRect)
	}
}

func TestFindExactCaseSensitive(t *testing.T) {
	page := singleRunPage(t, "TOP SECRET", geo.NewRect(72, 700, 200, 714))
	d := NewTextDetector()

	boxes, err := d.FindExact(context.Background(), page, "top secret", true)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("case-sensitive search should not match: %v", boxes)
	}

	boxes, err = d.FindExact(context.Background(), page, "top secret", false)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("case-insensitive search should match once, got %d", len(boxes))
	}
}

func TestFindExactAcrossRuns(t *testing.T) {
	// A name split across three runs, with ragged whitespace.
	r1 := geo.NewRect(72, 700, 120, 714)
	r2 := geo.NewRect(122, 700, 150, 714)
	r3 := geo.NewRect(152, 700, 220, 714)
	doc := memdoc.New()
	doc.AddPage(letter,
		pdfdoc.TextRun{Text: "John ", Rect: r1},
		pdfdoc.TextRun{Text: " Q.", Rect: r2},
		pdfdoc.TextRun{Text: "Public", Rect: r3},
	)
	page, _ := doc.Page(0)

	d := NewTextDetector()
	boxes, err := d.FindExact(context.Background(), page, "John Q. Public", false)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1 merged box", len(boxes))
	}
	// Merged rectangle must contain every constituent run rectangle.
	for _, r := range []geo.Rect{r1, r2, r3} {
		if !boxes[0].Rect.ContainsRect(r) {
			t.Fatalf("merged box %v does not cover run %v", boxes[0].Rect, r)
		}
	}
}

func TestFindExactWordSplitAcrossShows(t *testing.T) {
	// A single word emitted as two consecutive show operators: the runs abut
	// on the same baseline and must match as one word, not two.
	r1 := geo.NewRect(72, 700, 110, 712)
	r2 := geo.NewRect(110, 700, 150, 712)
	doc := memdoc.New()
	doc.AddPage(letter,
		pdfdoc.TextRun{Text: "Confid", Rect: r1},
		pdfdoc.TextRun{Text: "ential", Rect: r2},
	)
	page, _ := doc.Page(0)

	d := NewTextDetector()
	boxes, err := d.FindExact(context.Background(), page, "confidential", false)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	for _, r := range []geo.Rect{r1, r2} {
		if !boxes[0].Rect.ContainsRect(r) {
			t.Fatalf("box %v does not cover run %v", boxes[0].Rect, r)
		}
	}
}

func TestFindExactGapSeparatesRuns(t *testing.T) {
	// Runs on the same baseline but with a visible gap are distinct words:
	// "con" + "text" must not be read as "context".
	doc := memdoc.New()
	doc.AddPage(letter,
		pdfdoc.TextRun{Text: "con", Rect: geo.NewRect(72, 700, 95, 712)},
		pdfdoc.TextRun{Text: "text", Rect: geo.NewRect(110, 700, 140, 712)},
	)
	page, _ := doc.Page(0)

	d := NewTextDetector()
	boxes, err := d.FindExact(context.Background(), page, "context", false)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("got %d boxes, want 0", len(boxes))
	}
}

func TestFindRegexSSN(t *testing.T) {
	runRect := geo.NewRect(72, 500, 260, 514)
	page := singleRunPage(t, "SSN: 123-45-6789", runRect)

	d := NewTextDetector()
	boxes, err := d.FindRegex(context.Background(), page, `\b\d{3}-\d{2}-\d{4}\b`)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	if boxes[0].Source != box.SourceRegex {
		t.Fatalf("source: got %s", boxes[0].Source)
	}
	if boxes[0].MatchedText != "123-45-6789" {
		t.Fatalf("matched text: got %q", boxes[0].MatchedText)
	}
}

func TestFindRegexInvalidPattern(t *testing.T) {
	page := singleRunPage(t, "whatever", geo.NewRect(0, 0, 10, 10))
	d := NewTextDetector()
	_, err := d.FindRegex(context.Background(), page, `[unclosed`)
	var perr *PatternError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PatternError, got %v", err)
	}
	if perr.Pattern != "[unclosed" {
		t.Fatalf("error should name the pattern: %+v", perr)
	}
}

func TestCompileRejectsBadPattern(t *testing.T) {
	_, err := Compile([]string{"ok"}, []string{`a(`})
	var perr *PatternError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PatternError, got %v", err)
	}
}

func TestNoMatchIsEmptyNotError(t *testing.T) {
	page := singleRunPage(t, "nothing to see here", geo.NewRect(0, 0, 100, 10))
	d := NewTextDetector()
	boxes, err := d.FindExact(context.Background(), page, "confidential", false)
	if err != nil {
		t.Fatalf("no match must not error: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("got %v", boxes)
	}
}

func TestDetectMultipleOccurrences(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter,
		pdfdoc.TextRun{Text: "acme corp intro", Rect: geo.NewRect(72, 700, 200, 714)},
		pdfdoc.TextRun{Text: "contact acme corp legal", Rect: geo.NewRect(72, 600, 220, 614)},
	)
	page, _ := doc.Page(0)

	criteria, err := Compile([]string{"ACME Corp"}, nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	boxes, err := NewTextDetector().Detect(context.Background(), page, criteria)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
}

func TestDetectRunsErrorBecomesPageError(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter, pdfdoc.TextRun{Text: "x", Rect: geo.NewRect(0, 0, 5, 5)})
	doc.PageAt(0).RunsErr = errors.New("engine glitch")
	page, _ := doc.Page(0)

	_, err := NewTextDetector().FindExact(context.Background(), page, "x", false)
	var perr *PageError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PageError, got %v", err)
	}
	if perr.Page != 0 {
		t.Fatalf("page: got %d", perr.Page)
	}
}
