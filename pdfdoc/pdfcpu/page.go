package pdfcpu

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	pdf "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/redactor/geo"
	"github.com/wudi/redactor/pdfdoc"
)

// Page is a pdfcpu-backed pdfdoc.Page. The backend uses 1-based page numbers
// internally; index stays 0-based at the contract boundary.
type Page struct {
	doc   *Document
	index int
}

func (p *Page) Index() int { return p.index }

func (p *Page) pageNr() int { return p.index + 1 }

func (p *Page) MediaBox() geo.Rect {
	_, _, inh, err := p.doc.ctx.PageDict(p.pageNr(), false)
	if err != nil || inh == nil || inh.MediaBox == nil {
		return geo.Rect{}
	}
	mb := inh.MediaBox
	return geo.NewRect(mb.LL.X, mb.LL.Y, mb.UR.X, mb.UR.Y)
}

func (p *Page) content() ([]byte, error) {
	r, err := pdf.ExtractPageContent(p.doc.ctx, p.pageNr())
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", p.index, err)
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("page %d content: %w", p.index, err)
	}
	return data, nil
}

// setContent replaces the page's content with a single new stream.
func (p *Page) setContent(data []byte) error {
	xrt := p.doc.ctx.XRefTable
	sd, err := xrt.NewStreamDictForBuf(data)
	if err != nil {
		return fmt.Errorf("page %d: new content stream: %w", p.index, err)
	}
	// The writer serializes Raw and *StreamLength; both are set by Encode.
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("page %d: encode content stream: %w", p.index, err)
	}
	indRef, err := xrt.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("page %d: register content stream: %w", p.index, err)
	}
	pageDict, _, _, err := xrt.PageDict(p.pageNr(), false)
	if err != nil {
		return fmt.Errorf("page %d: page dict: %w", p.index, err)
	}
	pageDict.Update("Contents", *indRef)
	return nil
}

func (p *Page) TextRuns(ctx context.Context) ([]pdfdoc.TextRun, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	data, err := p.content()
	if err != nil {
		return nil, err
	}
	var runs []pdfdoc.TextRun
	for _, show := range interpretText(data) {
		if strings.TrimSpace(show.text) == "" {
			continue
		}
		runs = append(runs, pdfdoc.TextRun{Text: show.text, Rect: show.rect})
	}
	return runs, nil
}

func (p *Page) DeleteTextInRect(r geo.Rect) (int, error) {
	data, err := p.content()
	if err != nil {
		return 0, err
	}
	var spans []span
	removed := 0
	for _, show := range interpretText(data) {
		if !show.rect.Intersects(r) {
			continue
		}
		spans = append(spans, show.spans...)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if err := p.setContent(blankSpans(data, spans)); err != nil {
		return 0, err
	}
	return removed, nil
}

func (p *Page) DrawFillRect(r geo.Rect, c color.Color) error {
	data, err := p.content()
	if err != nil {
		return err
	}
	cr, cg, cb, _ := c.RGBA()
	ops := fmt.Sprintf("\nq %.3f %.3f %.3f rg %.2f %.2f %.2f %.2f re f Q\n",
		float64(cr)/65535, float64(cg)/65535, float64(cb)/65535,
		r.X0, r.Y0, r.Width(), r.Height())
	return p.setContent(append(data, ops...))
}

// Rasterize returns the page's embedded scan image. pdfcpu has no renderer,
// so vector-only pages report ErrRasterUnavailable; the requested dpi is
// ignored in favor of the scan's native resolution.
func (p *Page) Rasterize(ctx context.Context, dpi float64) (pdfdoc.Raster, error) {
	select {
	case <-ctx.Done():
		return pdfdoc.Raster{}, ctx.Err()
	default:
	}
	img, err := p.scanImage()
	if err != nil {
		return pdfdoc.Raster{}, err
	}
	media := p.MediaBox()
	if media.Width() <= 0 {
		return pdfdoc.Raster{}, pdfdoc.ErrRasterUnavailable
	}
	pm := geo.NewPixelMap(img.Bounds().Dx(), media.Width(), media.Height())
	return pdfdoc.Raster{Image: img, Map: pm}, nil
}

// ReplacePageImage swaps the page's displayed content for the given image,
// dropping the previous content stream and image XObjects from the page.
func (p *Page) ReplacePageImage(img image.Image) error {
	indRef, err := p.doc.newImageObject(img)
	if err != nil {
		return fmt.Errorf("page %d: %w", p.index, err)
	}
	xrt := p.doc.ctx.XRefTable
	pageDict, _, _, err := xrt.PageDict(p.pageNr(), false)
	if err != nil {
		return fmt.Errorf("page %d: page dict: %w", p.index, err)
	}

	res := types.Dict{}
	if obj, found := pageDict.Find("Resources"); found {
		if d, err := xrt.DereferenceDict(obj); err == nil && d != nil {
			res = d
		}
	}
	res.Update("XObject", types.Dict{"RxIm0": *indRef})
	pageDict.Update("Resources", res)

	media := p.MediaBox()
	content := fmt.Sprintf("q %.2f 0 0 %.2f %.2f %.2f cm /RxIm0 Do Q",
		media.Width(), media.Height(), media.X0, media.Y0)
	return p.setContent([]byte(content))
}
