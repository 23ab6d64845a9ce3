// Package classify decides, per page, whether content lives in the vector
// text layer, in a scanned raster, or in both. The outcome drives which
// detectors run on the page.
package classify

import (
	"context"

	"github.com/wudi/redactor/observability"
	"github.com/wudi/redactor/pdfdoc"
)

// Kind is the page content classification.
type Kind int

const (
	KindText Kind = iota
	KindScanned
	KindMixed
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindScanned:
		return "scanned"
	default:
		return "mixed"
	}
}

// Classification is the per-page result. Err records a collaborator failure;
// such pages default to KindMixed so both detectors run, which is the safest
// fallback.
type Classification struct {
	Page         int
	Kind         Kind
	TextCoverage float64
	Err          error
}

// charsPerFullPage approximates the character count of a densely set page,
// used when the engine yields text without geometry.
const charsPerFullPage = 2000.0

// Classifier computes text coverage ratios against configurable thresholds.
// The exact numeric defaults are product choices, not correctness
// requirements.
type Classifier struct {
	// ThresholdLow: pages with coverage below it are Scanned.
	ThresholdLow float64
	// ThresholdHigh: pages with coverage above it are Text.
	ThresholdHigh float64

	Log observability.Logger
}

// New returns a classifier with the default thresholds.
func New() *Classifier {
	return &Classifier{ThresholdLow: 0.02, ThresholdHigh: 0.20, Log: observability.NopLogger{}}
}

// ClassifyPage computes the coverage ratio for one page. Text coverage is the
// area covered by extractable text bounding boxes divided by the page area;
// when the engine returns runs without geometry a character-count heuristic
// stands in.
func (c *Classifier) ClassifyPage(ctx context.Context, p pdfdoc.Page) Classification {
	out := Classification{Page: p.Index(), Kind: KindMixed}

	runs, err := p.TextRuns(ctx)
	if err != nil {
		out.Err = err
		c.logger().Warn("page classification failed, defaulting to mixed",
			observability.Int(observability.KeyPage, p.Index()),
			observability.Error("err", err))
		return out
	}

	media := p.MediaBox()
	pageArea := media.Area()

	var textArea float64
	chars := 0
	haveGeometry := false
	for _, run := range runs {
		chars += len(run.Text)
		clipped := run.Rect.Intersect(media)
		if !clipped.IsEmpty() {
			haveGeometry = true
			textArea += clipped.Area()
		}
	}

	ratio := 0.0
	switch {
	case haveGeometry && pageArea > 0:
		ratio = textArea / pageArea
	case chars > 0:
		ratio = float64(chars) / charsPerFullPage
	}
	if ratio > 1 {
		ratio = 1
	}
	out.TextCoverage = ratio

	switch {
	case ratio < c.ThresholdLow:
		out.Kind = KindScanned
	case ratio > c.ThresholdHigh:
		out.Kind = KindText
	default:
		out.Kind = KindMixed
	}
	c.logger().Debug("page classified",
		observability.Int(observability.KeyPage, p.Index()),
		observability.String(observability.KeyKind, out.Kind.String()),
		observability.Float("coverage", out.TextCoverage))
	return out
}

// ClassifyDocument classifies every page. Per-page collaborator failures are
// recorded on the classification, not returned; only context cancellation
// aborts the walk.
func (c *Classifier) ClassifyDocument(ctx context.Context, doc pdfdoc.Document) ([]Classification, error) {
	out := make([]Classification, 0, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		page, err := doc.Page(i)
		if err != nil {
			out = append(out, Classification{Page: i, Kind: KindMixed, Err: err})
			continue
		}
		out = append(out, c.ClassifyPage(ctx, page))
	}
	return out, nil
}

func (c *Classifier) logger() observability.Logger {
	if c.Log == nil {
		return observability.NopLogger{}
	}
	return c.Log
}
