// Package memdoc implements the pdfdoc contract entirely in memory. It backs
// the pipeline's tests and preview runs: pages are plain text runs plus an
// optional raster, and every mutation is observable, so detect -> redact ->
// detect round-trips can be asserted without a PDF engine.
package memdoc

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sort"

	"github.com/wudi/redactor/geo"
	"github.com/wudi/redactor/pdfdoc"
)

// Document is an in-memory pdfdoc.Document.
type Document struct {
	pages []*Page

	InfoFields    map[string]string
	XMP           bool
	JavaScript    int
	EmbeddedFiles int
	Links         int
	FormFields    int
	Thumbnails    int
}

// New returns an empty document.
func New() *Document {
	return &Document{InfoFields: make(map[string]string)}
}

// AddPage appends a page with the given media box and text runs, returning it
// for further setup.
func (d *Document) AddPage(media geo.Rect, runs ...pdfdoc.TextRun) *Page {
	p := &Page{
		index: len(d.pages),
		media: media,
		runs:  append([]pdfdoc.TextRun(nil), runs...),
	}
	d.pages = append(d.pages, p)
	return p
}

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) Page(index int) (pdfdoc.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range 0..%d", index, len(d.pages)-1)
	}
	return d.pages[index], nil
}

// PageAt is like Page but returns the concrete type for test assertions.
func (d *Document) PageAt(index int) *Page { return d.pages[index] }

func (d *Document) Inspect() (pdfdoc.Inspection, error) {
	fields := make([]string, 0, len(d.InfoFields))
	for k := range d.InfoFields {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return pdfdoc.Inspection{
		MetadataFields: fields,
		HasXMP:         d.XMP,
		JavaScript:     d.JavaScript,
		EmbeddedFiles:  d.EmbeddedFiles,
		Links:          d.Links,
		FormFields:     d.FormFields,
		Thumbnails:     d.Thumbnails,
	}, nil
}

func (d *Document) RemoveMetadata() ([]string, error) {
	fields := make([]string, 0, len(d.InfoFields))
	for k := range d.InfoFields {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	d.InfoFields = make(map[string]string)
	if d.XMP {
		fields = append(fields, "XMP")
		d.XMP = false
	}
	return fields, nil
}

func (d *Document) RemoveJavaScript() (int, error) {
	n := d.JavaScript
	d.JavaScript = 0
	return n, nil
}

func (d *Document) RemoveEmbeddedFiles() (int, error) {
	n := d.EmbeddedFiles
	d.EmbeddedFiles = 0
	return n, nil
}

func (d *Document) RemoveLinks() (int, error) {
	n := d.Links
	d.Links = 0
	return n, nil
}

func (d *Document) FlattenForms() (int, error) {
	n := d.FormFields
	d.FormFields = 0
	return n, nil
}

func (d *Document) RemoveThumbnails() (int, error) {
	n := d.Thumbnails
	d.Thumbnails = 0
	return n, nil
}

// Save writes a plain-text rendering of the document: surviving run text and
// any remaining metadata values. It stands in for the serialized PDF during
// raw-byte verification.
func (d *Document) Save(w io.Writer) error {
	for _, p := range d.pages {
		for _, run := range p.runs {
			if _, err := io.WriteString(w, run.Text+"\n"); err != nil {
				return err
			}
		}
	}
	for k, v := range d.InfoFields {
		if _, err := fmt.Fprintf(w, "%s: %s\n", k, v); err != nil {
			return err
		}
	}
	return nil
}

// Page is an in-memory pdfdoc.Page.
type Page struct {
	index int
	media geo.Rect
	runs  []pdfdoc.TextRun

	raster    image.Image
	rasterDPI float64

	// Fills records every DrawFillRect call for assertions.
	Fills []geo.Rect
	// Replaced is the image installed by ReplacePageImage, nil otherwise.
	Replaced image.Image

	// RunsErr, when set, is returned from TextRuns to simulate collaborator
	// failure.
	RunsErr error
	// RasterErr, when set, is returned from Rasterize.
	RasterErr error
}

// SetRaster installs the page's scan image at the given resolution.
func (p *Page) SetRaster(img image.Image, dpi float64) {
	p.raster = img
	p.rasterDPI = dpi
}

// Runs returns the surviving text runs for assertions.
func (p *Page) Runs() []pdfdoc.TextRun { return append([]pdfdoc.TextRun(nil), p.runs...) }

func (p *Page) Index() int         { return p.index }
func (p *Page) MediaBox() geo.Rect { return p.media }

func (p *Page) TextRuns(ctx context.Context) ([]pdfdoc.TextRun, error) {
	if p.RunsErr != nil {
		return nil, p.RunsErr
	}
	return append([]pdfdoc.TextRun(nil), p.runs...), nil
}

func (p *Page) Rasterize(ctx context.Context, dpi float64) (pdfdoc.Raster, error) {
	if p.RasterErr != nil {
		return pdfdoc.Raster{}, p.RasterErr
	}
	img := p.raster
	effDPI := p.rasterDPI
	if p.Replaced != nil {
		img = p.Replaced
		effDPI = geo.NewPixelMap(p.Replaced.Bounds().Dx(), p.media.Width(), p.media.Height()).DPI
	}
	if img == nil {
		return pdfdoc.Raster{}, pdfdoc.ErrRasterUnavailable
	}
	return pdfdoc.Raster{
		Image: img,
		Map:   geo.PixelMap{DPI: effDPI, PageHeight: p.media.Height()},
	}, nil
}

func (p *Page) DeleteTextInRect(r geo.Rect) (int, error) {
	kept := p.runs[:0:0]
	removed := 0
	for _, run := range p.runs {
		if run.Rect.Intersects(r) {
			removed++
			continue
		}
		kept = append(kept, run)
	}
	p.runs = kept
	return removed, nil
}

func (p *Page) DrawFillRect(r geo.Rect, c color.Color) error {
	p.Fills = append(p.Fills, r)
	if p.raster != nil {
		// Mirror the fill onto the raster so OCR re-runs observe it.
		pm := geo.PixelMap{DPI: p.rasterDPI, PageHeight: p.media.Height()}
		dst := toDrawable(p.raster)
		draw.Draw(dst, pm.ToPixels(r).Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
		p.raster = dst
	}
	return nil
}

func (p *Page) ReplacePageImage(img image.Image) error {
	p.Replaced = img
	p.runs = nil
	p.raster = nil
	return nil
}

func toDrawable(img image.Image) draw.Image {
	if d, ok := img.(draw.Image); ok {
		return d
	}
	dst := image.NewRGBA(img.Bounds())
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}
