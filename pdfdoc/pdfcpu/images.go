package pdfcpu

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	pdf "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/wudi/redactor/pdfdoc"
)

// scanImage decodes the largest image XObject on the page. Scanned documents
// carry exactly one full-page image; pages without a decodable image report
// ErrRasterUnavailable.
func (p *Page) scanImage() (image.Image, error) {
	objNrs := pdf.ImageObjNrs(p.doc.ctx, p.pageNr())
	if len(objNrs) == 0 {
		return nil, pdfdoc.ErrRasterUnavailable
	}

	var best image.Image
	for _, nr := range objNrs {
		entry, ok := p.doc.ctx.Table[nr]
		if !ok || entry == nil || entry.Free {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		img := decodeImageStream(sd)
		if img == nil {
			continue
		}
		if best == nil || area(img) > area(best) {
			best = img
		}
	}
	if best == nil {
		return nil, pdfdoc.ErrRasterUnavailable
	}
	return best, nil
}

func area(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy()
}

// decodeImageStream tries the raw payload first, which handles DCTDecode
// scans directly as JPEG, then the filter-decoded content for containers the
// stdlib or x/image can parse. Raw bitmap formats (plain Flate samples,
// CCITT) are not reconstructed.
func decodeImageStream(sd types.StreamDict) image.Image {
	if len(sd.Raw) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(sd.Raw)); err == nil {
			return img
		}
	}
	if err := sd.Decode(); err == nil && len(sd.Content) > 0 {
		if img, _, err := image.Decode(bytes.NewReader(sd.Content)); err == nil {
			return img
		}
	}
	return nil
}

// newImageObject registers img as a DCTDecode image XObject and returns its
// indirect reference.
func (d *Document) newImageObject(img image.Image) (*types.IndirectRef, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}
	raw := buf.Bytes()
	length := int64(len(raw))

	b := img.Bounds()
	sd := types.StreamDict{
		Dict: types.Dict{
			"Type":             types.Name("XObject"),
			"Subtype":          types.Name("Image"),
			"Width":            types.Integer(b.Dx()),
			"Height":           types.Integer(b.Dy()),
			"ColorSpace":       types.Name("DeviceRGB"),
			"BitsPerComponent": types.Integer(8),
			"Filter":           types.Name("DCTDecode"),
			"Length":           types.Integer(length),
		},
		Raw:            raw,
		StreamLength:   &length,
		FilterPipeline: []types.PDFFilter{{Name: "DCTDecode"}},
	}
	indRef, err := d.ctx.XRefTable.IndRefForNewObject(sd)
	if err != nil {
		return nil, fmt.Errorf("register page image: %w", err)
	}
	return indRef, nil
}
