// Package redact applies detected boxes to a document. Application is true
// removal: matched text-show fragments are deleted from the content stream,
// an opaque fill is painted over the region, and scanned pages are downgraded
// to a redacted raster so the original high-resolution scan cannot be
// recovered from the file.
package redact

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sort"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/classify"
	"github.com/wudi/redactor/observability"
	"github.com/wudi/redactor/pdfdoc"
)

// Options tunes application behavior.
type Options struct {
	// Fill is the opaque color painted over each box. Nil means black.
	Fill color.Color
	// MergeOverlaps coalesces overlapping or adjacent boxes on a page
	// before application.
	MergeOverlaps bool
	// OverlapRatio is the minimum overlap (relative to the smaller box)
	// that triggers a merge. Used only when MergeOverlaps is set.
	OverlapRatio float64
	// RasterDPI is the resolution used when a scanned page is re-rendered
	// with its boxes blacked out. Zero means 300.
	RasterDPI float64
}

func (o Options) withDefaults() Options {
	if o.Fill == nil {
		o.Fill = color.Black
	}
	if o.OverlapRatio <= 0 {
		o.OverlapRatio = 0.1
	}
	if o.RasterDPI <= 0 {
		o.RasterDPI = 300
	}
	return o
}

// Stats summarizes what Apply changed.
type Stats struct {
	Boxes           int
	PagesModified   int
	RasterizedPages []int
}

// Applier performs the removal stage.
type Applier struct {
	Opts Options
	Log  observability.Logger
}

// NewApplier returns an applier with defaults filled in.
func NewApplier(opts Options) *Applier {
	return &Applier{Opts: opts.withDefaults(), Log: observability.NopLogger{}}
}

// Apply mutates doc so that no box region retains its original content.
// kinds carries the page classifications; scanned pages whose boxes came
// from OCR additionally get their displayed content replaced by a redacted
// raster. Pages with an empty box list are left untouched. Box application
// is commutative: overlapping boxes in any order yield the same final
// content (union of deletions and fills).
func (a *Applier) Apply(ctx context.Context, doc pdfdoc.Document, boxes box.PageBoxMap, kinds map[int]classify.Kind) (Stats, error) {
	var stats Stats
	opts := a.Opts.withDefaults()

	for _, pageIdx := range boxes.Pages() {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		page, err := doc.Page(pageIdx)
		if err != nil {
			return stats, fmt.Errorf("apply: %w", err)
		}

		pageBoxes := box.ClipToPage(boxes[pageIdx], page.MediaBox())
		if len(pageBoxes) == 0 {
			continue
		}
		if opts.MergeOverlaps {
			pageBoxes = box.MergeOverlapping(pageBoxes, opts.OverlapRatio)
		}

		for _, b := range pageBoxes {
			if _, err := page.DeleteTextInRect(b.Rect); err != nil {
				return stats, fmt.Errorf("apply page %d: delete text: %w", pageIdx, err)
			}
			if err := page.DrawFillRect(b.Rect, opts.Fill); err != nil {
				return stats, fmt.Errorf("apply page %d: fill: %w", pageIdx, err)
			}
		}

		if kinds[pageIdx] == classify.KindScanned && hasOCRBox(pageBoxes) {
			if err := a.rasterizePage(ctx, page, pageBoxes, opts); err != nil {
				return stats, fmt.Errorf("apply page %d: raster redaction: %w", pageIdx, err)
			}
			stats.RasterizedPages = append(stats.RasterizedPages, pageIdx)
		}

		stats.Boxes += len(pageBoxes)
		stats.PagesModified++
		a.logger().Debug("page redacted",
			observability.Int(observability.KeyPage, pageIdx),
			observability.Int(observability.KeyBoxes, len(pageBoxes)))
	}
	sort.Ints(stats.RasterizedPages)
	return stats, nil
}

// rasterizePage re-renders the page with every box blacked out in pixel
// space and installs the result as the page's only displayed content,
// dropping the original scan image.
func (a *Applier) rasterizePage(ctx context.Context, page pdfdoc.Page, pageBoxes []box.RedactionBox, opts Options) error {
	raster, err := page.Rasterize(ctx, opts.RasterDPI)
	if err != nil {
		return err
	}
	dst := drawableCopy(raster.Image)
	for _, b := range pageBoxes {
		region := raster.Map.ToPixels(b.Rect).Intersect(dst.Bounds())
		draw.Draw(dst, region, image.NewUniform(opts.Fill), image.Point{}, draw.Src)
	}
	return page.ReplacePageImage(dst)
}

func hasOCRBox(boxes []box.RedactionBox) bool {
	for _, b := range boxes {
		if b.Source == box.SourceOCR {
			return true
		}
	}
	return false
}

func drawableCopy(img image.Image) draw.Image {
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}

func (a *Applier) logger() observability.Logger {
	if a.Log == nil {
		return observability.NopLogger{}
	}
	return a.Log
}
