// Package pdfdoc declares the document collaborator boundary: the contract
// the redaction pipeline expects from an underlying PDF engine. Concrete
// implementations live in subpackages (pdfcpu is the production backend);
// all pipeline stages program against these interfaces so tests can supply
// in-memory fakes.
package pdfdoc

import (
	"context"
	"image"
	"image/color"
	"io"

	"github.com/wudi/redactor/geo"
)

// TextRun is a contiguous piece of extractable text with its bounding
// rectangle in PDF point space. Runs with an empty rectangle are legal when
// the engine could not recover geometry.
type TextRun struct {
	Text string
	Rect geo.Rect
}

// Raster is a decoded page image together with the mapping back to point
// space.
type Raster struct {
	Image image.Image
	Map   geo.PixelMap
}

// Page exposes read and mutation operations for a single page. Mutations are
// applied to the owning document's in-memory state and become visible in the
// next Save.
type Page interface {
	// Index returns the zero-based page index.
	Index() int
	// MediaBox returns the page boundaries in point space.
	MediaBox() geo.Rect
	// TextRuns extracts the page's text runs with bounding geometry.
	TextRuns(ctx context.Context) ([]TextRun, error)
	// Rasterize produces a raster of the page at roughly the requested
	// resolution. Engines that cannot render vector content return
	// ErrRasterUnavailable for pages without a dominant scan image.
	Rasterize(ctx context.Context, dpi float64) (Raster, error)

	// DeleteTextInRect removes from the content stream every text-show
	// fragment whose rectangle intersects r, returning the number of
	// fragments removed. This is structural removal, not an overlay.
	DeleteTextInRect(r geo.Rect) (int, error)
	// DrawFillRect paints an opaque rectangle over r.
	DrawFillRect(r geo.Rect, c color.Color) error
	// ReplacePageImage discards the page's displayed content and shows img
	// stretched over the media box instead.
	ReplacePageImage(img image.Image) error
}

// Inspection summarizes the auxiliary information channels present in a
// document. It is purely observational.
type Inspection struct {
	MetadataFields []string `json:"metadata_fields"`
	HasXMP         bool     `json:"has_xmp"`
	JavaScript     int      `json:"javascript"`
	EmbeddedFiles  int      `json:"embedded_files"`
	Links          int      `json:"links"`
	FormFields     int      `json:"form_fields"`
	Thumbnails     int      `json:"thumbnails"`
	Encrypted      bool     `json:"encrypted"`
}

// Document is an open PDF. Implementations are not safe for concurrent
// mutation; the pipeline serializes all writes.
type Document interface {
	PageCount() int
	Page(index int) (Page, error)

	// Inspect reports which auxiliary channels the document carries.
	Inspect() (Inspection, error)

	// Structural removals used by the sanitizer. Each returns how many
	// items were removed; removing from a clean document returns zero.
	RemoveMetadata() (fields []string, err error)
	RemoveJavaScript() (int, error)
	RemoveEmbeddedFiles() (int, error)
	RemoveLinks() (int, error)
	FlattenForms() (int, error)
	RemoveThumbnails() (int, error)

	// Save serializes the current state of the document.
	Save(w io.Writer) error
}

// Opener turns a byte stream into a Document. The password is used for
// encrypted input; an empty string means none was supplied.
type Opener interface {
	Open(rs io.ReadSeeker, password string) (Document, error)
}
