package detect

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/geo"
	"github.com/wudi/redactor/ocr"
	"github.com/wudi/redactor/pdfdoc/memdoc"
)

// fakeEngine returns canned words regardless of input and records the last
// input it was handed.
type fakeEngine struct {
	words []ocr.Word
	err   error
	last  ocr.Input
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }
func (f *fakeEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	f.last = in
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{InputID: in.ID, Words: f.words}, nil
}

type unavailableEngine struct{}

func (unavailableEngine) Name() string    { return "none" }
func (unavailableEngine) Available() bool { return false }
func (unavailableEngine) Recognize(context.Context, ocr.Input) (ocr.Result, error) {
	return ocr.Result{}, ocr.ErrUnavailable
}

func scannedPage(t *testing.T) *memdoc.Document {
	t.Helper()
	doc := memdoc.New()
	doc.AddPage(geo.NewRect(0, 0, 612, 792))
	// 300 dpi raster of a letter page.
	doc.PageAt(0).SetRaster(image.NewRGBA(image.Rect(0, 0, 2550, 3300)), 300)
	return doc
}

func TestOCRDetectorFindsWord(t *testing.T) {
	doc := scannedPage(t)
	page, _ := doc.Page(0)

	engine := &fakeEngine{words: []ocr.Word{
		{Text: "CONFIDENTIAL", Confidence: 92, Bounds: ocr.Region{X: 400, Y: 200, Width: 900, Height: 80}},
		{Text: "noise", Confidence: 12, Bounds: ocr.Region{X: 0, Y: 0, Width: 50, Height: 20}},
	}}
	d := NewOCRDetector(engine, OCRConfig{DPI: 300, ConfidenceThreshold: 50})

	criteria, _ := Compile([]string{"confidential"}, nil)
	boxes, err := d.Detect(context.Background(), page, criteria)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	b := boxes[0]
	if b.Source != box.SourceOCR || b.Confidence != 92 {
		t.Fatalf("unexpected box: %+v", b)
	}

	// Pixel (400,200)-(1300,280) at 300 dpi: scale 0.24 pt/px, y flipped
	// against the 792pt page height.
	s := 72.0 / 300.0
	wantX0, wantX1 := 400*s, 1300*s
	wantY1 := 792 - 200*s
	wantY0 := 792 - 280*s
	if math.Abs(b.Rect.X0-wantX0) > 1e-6 || math.Abs(b.Rect.X1-wantX1) > 1e-6 ||
		math.Abs(b.Rect.Y0-wantY0) > 1e-6 || math.Abs(b.Rect.Y1-wantY1) > 1e-6 {
		t.Fatalf("coordinate conversion wrong: got %v", b.Rect)
	}
}

func TestOCRDetectorConfidenceFilter(t *testing.T) {
	doc := scannedPage(t)
	page, _ := doc.Page(0)

	engine := &fakeEngine{words: []ocr.Word{
		{Text: "SECRET", Confidence: 40, Bounds: ocr.Region{X: 10, Y: 10, Width: 100, Height: 20}},
	}}
	d := NewOCRDetector(engine, OCRConfig{ConfidenceThreshold: 50})

	criteria, _ := Compile([]string{"secret"}, nil)
	boxes, err := d.Detect(context.Background(), page, criteria)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(boxes) != 0 {
		t.Fatalf("low-confidence word should be discarded: %v", boxes)
	}
}

func TestOCRDetectorRegexMatch(t *testing.T) {
	doc := scannedPage(t)
	page, _ := doc.Page(0)

	engine := &fakeEngine{words: []ocr.Word{
		{Text: "123-45-6789", Confidence: 88, Bounds: ocr.Region{X: 100, Y: 100, Width: 300, Height: 40}},
	}}
	d := NewOCRDetector(engine, OCRConfig{})

	criteria, err := Compile(nil, []string{CommonPatterns["ssn"]})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	boxes, err := d.Detect(context.Background(), page, criteria)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(boxes) != 1 || boxes[0].MatchedText != "123-45-6789" {
		t.Fatalf("got %v", boxes)
	}
}

func TestOCRDetectorUnavailable(t *testing.T) {
	doc := scannedPage(t)
	page, _ := doc.Page(0)

	d := NewOCRDetector(unavailableEngine{}, OCRConfig{})
	criteria, _ := Compile([]string{"secret"}, nil)
	_, err := d.Detect(context.Background(), page, criteria)
	if !errors.Is(err, ocr.ErrUnavailable) {
		t.Fatalf("got %v, want ocr.ErrUnavailable", err)
	}
}

func TestOCRDetectorNoRasterIsPageError(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(geo.NewRect(0, 0, 612, 792)) // no raster installed
	page, _ := doc.Page(0)

	d := NewOCRDetector(&fakeEngine{}, OCRConfig{})
	criteria, _ := Compile([]string{"secret"}, nil)
	_, err := d.Detect(context.Background(), page, criteria)
	var perr *PageError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PageError, got %v", err)
	}
}

func TestOCRDetectorConfiguresEngineInput(t *testing.T) {
	doc := scannedPage(t)
	page, _ := doc.Page(0)

	engine := &fakeEngine{}
	d := NewOCRDetector(engine, OCRConfig{
		Languages: []string{"eng", "deu"},
		PSM:       6,
		Whitelist: "0123456789-",
	})
	criteria, _ := Compile([]string{"secret"}, nil)
	if _, err := d.Detect(context.Background(), page, criteria); err != nil {
		t.Fatalf("detect: %v", err)
	}

	in := engine.last
	if in.DPI != 300 {
		t.Fatalf("input DPI = %d, want 300", in.DPI)
	}
	if len(in.Languages) != 2 || in.Languages[0] != "eng" || in.Languages[1] != "deu" {
		t.Fatalf("input languages = %v", in.Languages)
	}
	if got := in.Metadata["tessedit_pageseg_mode"]; got != "6" {
		t.Fatalf("pageseg mode = %q, want %q", got, "6")
	}
	if got := in.Metadata["tessedit_char_whitelist"]; got != "0123456789-" {
		t.Fatalf("whitelist = %q", got)
	}
}
