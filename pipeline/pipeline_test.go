package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/detect"
	"github.com/wudi/redactor/geo"
	"github.com/wudi/redactor/ocr"
	"github.com/wudi/redactor/pdfdoc"
	"github.com/wudi/redactor/pdfdoc/memdoc"
	"github.com/wudi/redactor/verify"
)

var letter = geo.NewRect(0, 0, 612, 792)

// pixelEngine reports its word only while the word's region is still
// visible, so re-running it on a redacted raster finds nothing.
type pixelEngine struct {
	word ocr.Word
}

func (e *pixelEngine) Name() string    { return "pixel" }
func (e *pixelEngine) Available() bool { return true }

func (e *pixelEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	img, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		return ocr.Result{}, err
	}
	cx := int(e.word.Bounds.X + e.word.Bounds.Width/2)
	cy := int(e.word.Bounds.Y + e.word.Bounds.Height/2)
	r, g, b, _ := img.At(cx, cy).RGBA()
	if r == 0 && g == 0 && b == 0 {
		return ocr.Result{InputID: in.ID}, nil
	}
	return ocr.Result{InputID: in.ID, Words: []ocr.Word{e.word}}, nil
}

func baseConfig() Config {
	cfg := DefaultConfig()
	cfg.Sanitize = true
	cfg.Verify = true
	return cfg
}

func TestRunRedactsSSNRoundTrip(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter,
		pdfdoc.TextRun{Text: "SSN: 123-45-6789", Rect: geo.NewRect(72, 700, 250, 712)},
		pdfdoc.TextRun{Text: "harmless body text", Rect: geo.NewRect(72, 72, 540, 690)})

	cfg := baseConfig()
	cfg.Patterns = []string{`\b\d{3}-\d{2}-\d{4}\b`}

	report, err := New(cfg).Run(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalMatches != 1 {
		t.Fatalf("total matches = %d, want 1", report.TotalMatches)
	}
	if len(report.PagesAffected) != 1 || report.PagesAffected[0] != 0 {
		t.Fatalf("pages affected = %v, want [0]", report.PagesAffected)
	}
	if report.Verification == nil || !report.Verification.Passed {
		t.Fatalf("verification = %+v, want passed", report.Verification)
	}

	for _, run := range doc.PageAt(0).Runs() {
		if strings.Contains(run.Text, "123-45-6789") {
			t.Fatalf("ssn survived redaction: %q", run.Text)
		}
	}
	if len(doc.PageAt(0).Fills) == 0 {
		t.Fatal("no fill drawn over the match")
	}
}

func TestRunScannedPageRasterRoundTrip(t *testing.T) {
	// 300 dpi letter raster with the target word at a known pixel region.
	img := image.NewRGBA(image.Rect(0, 0, 2550, 3300))
	for y := 0; y < 3300; y++ {
		for x := 0; x < 2550; x++ {
			img.Set(x, y, color.White)
		}
	}
	word := ocr.Word{
		Text:       "CONFIDENTIAL",
		Bounds:     ocr.Region{X: 400, Y: 600, Width: 900, Height: 120},
		Confidence: 92,
	}

	doc := memdoc.New()
	doc.AddPage(letter).SetRaster(img, 300)

	cfg := baseConfig()
	cfg.Terms = []string{"confidential"}
	cfg.OCR.ConfidenceThreshold = 50
	engine := &pixelEngine{word: word}

	report, err := New(cfg, WithOCREngine(engine)).Run(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalMatches != 1 {
		t.Fatalf("total matches = %d, want 1", report.TotalMatches)
	}
	if doc.PageAt(0).Replaced == nil {
		t.Fatal("scanned page was not replaced with a redacted raster")
	}

	// A second detection pass over the output must come up empty.
	again, err := New(cfg, WithOCREngine(engine)).Preview(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("re-detect: %v", err)
	}
	if again.TotalMatches != 0 {
		t.Fatalf("word still recognizable after redaction: %d matches", again.TotalMatches)
	}
}

func TestRunOCRUnavailableSkipsScannedPages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2550, 3300))
	doc := memdoc.New()
	doc.AddPage(letter).SetRaster(img, 300)
	doc.AddPage(letter, pdfdoc.TextRun{Text: "project aurora budget", Rect: geo.NewRect(72, 72, 540, 720)})

	cfg := baseConfig()
	cfg.Terms = []string{"aurora"}

	report, err := New(cfg).Run(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalMatches != 1 {
		t.Fatalf("total matches = %d, want 1 from the text page", report.TotalMatches)
	}
	if len(report.IncompletePages) != 1 || report.IncompletePages[0] != 0 {
		t.Fatalf("incomplete pages = %v, want [0]", report.IncompletePages)
	}
	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "ocr unavailable") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no ocr warning recorded: %v", report.Warnings)
	}
	if report.Verification == nil || !report.Verification.Passed {
		t.Fatalf("verification = %+v, want passed for the covered term", report.Verification)
	}
}

func TestRunInvalidPatternFailsBeforeDetection(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter, pdfdoc.TextRun{Text: "content", Rect: geo.NewRect(72, 700, 200, 712)})

	cfg := baseConfig()
	cfg.Patterns = []string{`[unclosed`}

	_, err := New(cfg).Run(context.Background(), doc, nil)
	var perr *detect.PatternError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want PatternError", err)
	}
	if len(doc.PageAt(0).Runs()) != 1 {
		t.Fatal("document mutated despite fatal pattern error")
	}
}

func TestRunManualBoxesApplied(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter,
		pdfdoc.TextRun{Text: "left column", Rect: geo.NewRect(72, 700, 200, 712)},
		pdfdoc.TextRun{Text: "right column", Rect: geo.NewRect(300, 700, 450, 712)})

	manual := make(box.PageBoxMap)
	manual.Add(box.RedactionBox{Page: 0, Rect: geo.NewRect(290, 690, 460, 720), Source: box.SourceManual})

	cfg := baseConfig()
	cfg.Verify = false

	report, err := New(cfg).Run(context.Background(), doc, manual)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalMatches != 1 {
		t.Fatalf("total matches = %d, want 1", report.TotalMatches)
	}
	runs := doc.PageAt(0).Runs()
	if len(runs) != 1 || runs[0].Text != "left column" {
		t.Fatalf("runs after manual redaction = %+v", runs)
	}
}

func TestRunVerificationFailureSurfaced(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter, pdfdoc.TextRun{Text: "clean page body", Rect: geo.NewRect(72, 72, 540, 720)})
	// The term hides in metadata; with sanitization off it survives to the
	// serialized bytes.
	doc.InfoFields["Subject"] = "operation aurora"

	cfg := baseConfig()
	cfg.Terms = []string{"aurora"}
	cfg.Sanitize = false

	report, err := New(cfg).Run(context.Background(), doc, nil)
	var vf *verify.Failure
	if !errors.As(err, &vf) {
		t.Fatalf("err = %v, want verify.Failure", err)
	}
	if report == nil || report.Verification == nil || report.Verification.Passed {
		t.Fatal("failure must still come with the full report")
	}
	if report.Verification.Residuals[0].Layer != verify.LayerBinary {
		t.Fatalf("residual = %+v, want binary layer", report.Verification.Residuals[0])
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter, pdfdoc.TextRun{Text: "secret plans", Rect: geo.NewRect(72, 72, 540, 720)})

	cfg := baseConfig()
	cfg.Terms = []string{"secret"}

	report, err := New(cfg).Preview(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if report.TotalMatches != 1 {
		t.Fatalf("total matches = %d, want 1", report.TotalMatches)
	}
	p := doc.PageAt(0)
	if len(p.Runs()) != 1 || len(p.Fills) != 0 {
		t.Fatal("preview mutated the document")
	}
}

func TestRunSanitizationReported(t *testing.T) {
	doc := memdoc.New()
	doc.AddPage(letter, pdfdoc.TextRun{Text: "body", Rect: geo.NewRect(72, 72, 540, 720)})
	doc.InfoFields["Author"] = "someone"
	doc.JavaScript = 1

	cfg := baseConfig()
	report, err := New(cfg).Run(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Sanitization == nil {
		t.Fatal("sanitization report missing")
	}
	if report.Sanitization.JavaScriptRemoved != 1 || len(report.Sanitization.MetadataRemoved) != 1 {
		t.Fatalf("sanitization = %+v", report.Sanitization)
	}
}

func TestReportJSON(t *testing.T) {
	r := &Report{TermsFound: []string{"x"}, PagesAffected: []int{0}, TotalMatches: 1}
	data, err := r.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	for _, key := range []string{"terms_found", "pages_affected", "total_matches"} {
		if !bytes.Contains(data, []byte(key)) {
			t.Fatalf("report json missing %q: %s", key, data)
		}
	}
}
