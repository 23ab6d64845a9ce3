// Package pipeline orchestrates a redaction run: classify pages, detect
// sensitive content on the text and raster layers, apply the boxes, sanitize
// the document, and verify the result. One invocation owns one document from
// start to finish.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/classify"
	"github.com/wudi/redactor/detect"
	"github.com/wudi/redactor/observability"
	"github.com/wudi/redactor/ocr"
	"github.com/wudi/redactor/pdfdoc"
	"github.com/wudi/redactor/redact"
	"github.com/wudi/redactor/sanitize"
	"github.com/wudi/redactor/verify"
)

// Report is the final run report. Warnings and IncompletePages record
// recoverable failures so partial success is never silent.
type Report struct {
	TermsFound      []string         `json:"terms_found"`
	PagesAffected   []int            `json:"pages_affected"`
	TotalMatches    int              `json:"total_matches"`
	Sanitization    *sanitize.Report `json:"sanitization,omitempty"`
	Verification    *verify.Result   `json:"verification,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	IncompletePages []int            `json:"incomplete_pages,omitempty"`
}

// JSON renders the report for the caller.
func (r *Report) JSON() ([]byte, error) {
	return sonic.MarshalIndent(r, "", "  ")
}

// Pipeline runs the full redaction flow with a fixed configuration.
type Pipeline struct {
	cfg    Config
	engine ocr.Engine
	log    observability.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOCREngine wires the recognition engine used for scanned pages. Without
// one, scanned pages are skipped with a warning.
func WithOCREngine(e ocr.Engine) Option { return func(p *Pipeline) { p.engine = e } }

// WithLogger wires a logger.
func WithLogger(l observability.Logger) Option { return func(p *Pipeline) { p.log = l } }

// New builds a pipeline.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run redacts doc in place: detection, application, sanitization, and
// verification per the configuration. Manual boxes, usually loaded from a
// rectangle file, are applied alongside detected ones.
//
// Invalid patterns fail before any detection. A missing OCR engine or a
// failing page does not abort the run; both are recorded in the report. A
// verification failure is returned as *verify.Failure together with the
// report, since the document has already been modified.
func (p *Pipeline) Run(ctx context.Context, doc pdfdoc.Document, manual box.PageBoxMap) (*Report, error) {
	criteria, err := p.cfg.Criteria()
	if err != nil {
		return nil, err
	}

	report, boxes, kinds, err := p.detectAll(ctx, doc, criteria, manual)
	if err != nil {
		return nil, err
	}

	opts := redact.Options{
		MergeOverlaps: p.cfg.MergeOverlaps,
		RasterDPI:     p.cfg.OCR.DPI,
	}
	if p.cfg.Fill != "" {
		if opts.Fill, err = redact.ParseFillColor(p.cfg.Fill); err != nil {
			return nil, err
		}
	}
	applier := redact.NewApplier(opts)
	applier.Log = p.log
	if _, err := applier.Apply(ctx, doc, boxes, kinds); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	if p.cfg.Sanitize {
		s := sanitize.New()
		s.Log = p.log
		rep, err := s.Sanitize(ctx, doc)
		if err != nil {
			return nil, err
		}
		report.Sanitization = &rep
	}

	if p.cfg.Verify {
		v := verify.New()
		v.Log = p.log
		res, err := v.Verify(ctx, doc, criteria)
		if err != nil {
			return nil, err
		}
		report.Verification = &res
		if !res.Passed {
			return report, &verify.Failure{Result: res}
		}
	}
	return report, nil
}

// Preview runs classification and detection only, leaving the document
// untouched. The report lists what a Run would redact.
func (p *Pipeline) Preview(ctx context.Context, doc pdfdoc.Document, manual box.PageBoxMap) (*Report, error) {
	criteria, err := p.cfg.Criteria()
	if err != nil {
		return nil, err
	}
	report, _, _, err := p.detectAll(ctx, doc, criteria, manual)
	return report, err
}

func (p *Pipeline) detectAll(ctx context.Context, doc pdfdoc.Document, criteria detect.Criteria, manual box.PageBoxMap) (*Report, box.PageBoxMap, map[int]classify.Kind, error) {
	report := &Report{TermsFound: []string{}, PagesAffected: []int{}}

	classifier := &classify.Classifier{
		ThresholdLow:  p.cfg.Classifier.ThresholdLow,
		ThresholdHigh: p.cfg.Classifier.ThresholdHigh,
		Log:           p.log,
	}
	classifications, err := classifier.ClassifyDocument(ctx, doc)
	if err != nil {
		return nil, nil, nil, err
	}

	kinds := make(map[int]classify.Kind, len(classifications))
	for _, c := range classifications {
		kinds[c.Page] = c.Kind
	}

	textDet := detect.NewTextDetector()
	ocrDet := detect.NewOCRDetector(p.engine, detect.OCRConfig{
		DPI:                 p.cfg.OCR.DPI,
		ConfidenceThreshold: p.cfg.OCR.ConfidenceThreshold,
		PageTimeout:         time.Duration(p.cfg.OCR.PageTimeout),
		Languages:           p.cfg.OCR.Languages,
		PSM:                 p.cfg.OCR.PSM,
		Whitelist:           p.cfg.OCR.Whitelist,
	})
	ocrDown := p.engine == nil || !p.engine.Available()

	boxes := make(box.PageBoxMap)
	incomplete := make(map[int]bool)
	for _, c := range classifications {
		if criteria.Empty() {
			// Manual boxes only; nothing to detect.
			break
		}
		select {
		case <-ctx.Done():
			return nil, nil, nil, ctx.Err()
		default:
		}
		if c.Err != nil {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("page %d: classification failed (%v), running all detectors", c.Page, c.Err))
		}
		page, err := doc.Page(c.Page)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("page %d: %v", c.Page, err))
			incomplete[c.Page] = true
			continue
		}

		if c.Kind != classify.KindScanned {
			found, err := textDet.Detect(ctx, page, criteria)
			if err != nil {
				report.Warnings = append(report.Warnings, fmt.Sprintf("page %d: text detection: %v", c.Page, err))
				incomplete[c.Page] = true
			} else {
				boxes.AddAll(found)
			}
		}

		if c.Kind != classify.KindText {
			if ocrDown {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("page %d: ocr unavailable, scanned content not checked", c.Page))
				incomplete[c.Page] = true
				continue
			}
			found, err := ocrDet.Detect(ctx, page, criteria)
			switch {
			case err == nil:
				boxes.AddAll(found)
			case errors.Is(err, ocr.ErrUnavailable):
				ocrDown = true
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("page %d: ocr unavailable, scanned content not checked", c.Page))
				incomplete[c.Page] = true
			default:
				report.Warnings = append(report.Warnings, fmt.Sprintf("page %d: ocr detection: %v", c.Page, err))
				incomplete[c.Page] = true
			}
		}
	}

	boxes.Merge(manual)
	fillSummary(report, boxes, incomplete)

	p.log.Info("detection complete",
		observability.Int(observability.KeyBoxes, report.TotalMatches),
		observability.Int("pages_affected", len(report.PagesAffected)),
		observability.Int("incomplete_pages", len(report.IncompletePages)))
	return report, boxes, kinds, nil
}

func fillSummary(report *Report, boxes box.PageBoxMap, incomplete map[int]bool) {
	report.TotalMatches = boxes.Total()
	report.PagesAffected = boxes.Pages()

	seen := make(map[string]bool)
	for _, page := range boxes.Pages() {
		for _, b := range boxes[page] {
			if b.MatchedText == "" || seen[b.MatchedText] {
				continue
			}
			seen[b.MatchedText] = true
			report.TermsFound = append(report.TermsFound, b.MatchedText)
		}
	}
	sort.Strings(report.TermsFound)

	for page := range incomplete {
		report.IncompletePages = append(report.IncompletePages, page)
	}
	sort.Ints(report.IncompletePages)
}
