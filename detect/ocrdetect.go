package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/ocr"
	"github.com/wudi/redactor/pdfdoc"
)

// OCRConfig tunes the OCR detector. Zero values fall back to the defaults.
type OCRConfig struct {
	// DPI is the target rasterization resolution. Recognition quality
	// degrades below roughly 150.
	DPI float64
	// ConfidenceThreshold (0-100): recognized words below it are discarded
	// before matching.
	ConfidenceThreshold float64
	// PageTimeout bounds recognition per page; exceeding it is a
	// recoverable per-page failure.
	PageTimeout time.Duration
	// Languages are hints passed to the engine.
	Languages []string
	// PSM overrides the Tesseract page segmentation mode when positive.
	PSM int
	// Whitelist restricts recognition to the given characters when set.
	Whitelist string
}

// inputOptions translates the config into per-input engine options.
func (c OCRConfig) inputOptions(dpi int) []ocr.InputOption {
	opts := []ocr.InputOption{ocr.WithDPI(dpi)}
	if len(c.Languages) > 0 {
		opts = append(opts, ocr.WithLanguages(c.Languages...))
	}
	if c.PSM > 0 {
		opts = append(opts, ocr.WithTesseractPSM(c.PSM))
	}
	if c.Whitelist != "" {
		opts = append(opts, ocr.WithTesseractWhitelist(c.Whitelist))
	}
	return opts
}

const (
	defaultOCRDPI        = 300.0
	defaultOCRConfidence = 30.0
	defaultOCRTimeout    = 2 * time.Minute
)

func (c OCRConfig) withDefaults() OCRConfig {
	if c.DPI <= 0 {
		c.DPI = defaultOCRDPI
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = defaultOCRConfidence
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = defaultOCRTimeout
	}
	return c
}

// OCRDetector finds sensitive content on scanned pages: it rasterizes the
// page, runs the recognition engine, filters words by confidence, matches
// them with the same normalization as the text detector, and converts pixel
// rectangles into point space through the raster's PixelMap.
type OCRDetector struct {
	Engine ocr.Engine
	Config OCRConfig
}

// NewOCRDetector builds an OCR detector around the given engine.
func NewOCRDetector(engine ocr.Engine, cfg OCRConfig) *OCRDetector {
	return &OCRDetector{Engine: engine, Config: cfg.withDefaults()}
}

func (d *OCRDetector) Name() string { return "ocr" }

// Detect runs recognition over the page raster. When the engine is absent it
// returns an error wrapping ocr.ErrUnavailable so callers can tell the
// condition apart from "no matches"; per-page rasterization or recognition
// failures surface as PageError.
func (d *OCRDetector) Detect(ctx context.Context, page pdfdoc.Page, criteria Criteria) ([]box.RedactionBox, error) {
	if criteria.Empty() {
		return nil, nil
	}
	if d.Engine == nil || !d.Engine.Available() {
		return nil, fmt.Errorf("ocr detector: %w", ocr.ErrUnavailable)
	}
	cfg := d.Config.withDefaults()

	raster, err := page.Rasterize(ctx, cfg.DPI)
	if err != nil {
		if errors.Is(err, pdfdoc.ErrRasterUnavailable) {
			return nil, &PageError{Page: page.Index(), Err: err}
		}
		return nil, &PageError{Page: page.Index(), Err: fmt.Errorf("rasterize: %w", err)}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, raster.Image); err != nil {
		return nil, &PageError{Page: page.Index(), Err: fmt.Errorf("encode raster: %w", err)}
	}

	in := ocr.Input{
		ID:     fmt.Sprintf("page-%d", page.Index()),
		Image:  buf.Bytes(),
		Format: ocr.ImageFormatPNG,
	}
	for _, opt := range cfg.inputOptions(int(raster.Map.DPI)) {
		opt(&in)
	}

	rctx, cancel := context.WithTimeout(ctx, cfg.PageTimeout)
	defer cancel()
	result, err := d.Engine.Recognize(rctx, in)
	if err != nil {
		if errors.Is(err, ocr.ErrUnavailable) {
			return nil, fmt.Errorf("ocr detector: %w", err)
		}
		return nil, &PageError{Page: page.Index(), Err: fmt.Errorf("recognize: %w", err)}
	}

	var boxes []box.RedactionBox
	for _, word := range result.Words {
		if word.Confidence < cfg.ConfidenceThreshold {
			continue
		}
		matched, source := matchWord(word.Text, criteria)
		if !matched {
			continue
		}
		b := word.Bounds
		rect := raster.Map.ToPoints(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
		boxes = append(boxes, box.RedactionBox{
			Page:        page.Index(),
			Rect:        rect,
			Source:      source,
			MatchedText: word.Text,
			Confidence:  word.Confidence,
		})
	}
	return boxes, nil
}

// matchWord applies criteria to a single recognized word using the same
// normalization as the text detector.
func matchWord(word string, criteria Criteria) (bool, box.Source) {
	for _, term := range criteria.Terms {
		needle := normalizeNeedle(term.Text, !term.CaseSensitive)
		hay := normalizeNeedle(word, !term.CaseSensitive)
		if needle != "" && strings.Contains(hay, needle) {
			return true, box.SourceOCR
		}
	}
	for _, pat := range criteria.Patterns {
		if pat.Re.MatchString(word) {
			return true, box.SourceOCR
		}
	}
	return false, ""
}
