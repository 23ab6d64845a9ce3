// Package sanitize strips auxiliary information channels from a document:
// metadata, scripts, embedded files, links, form fields, and thumbnails. It
// is independent of visible-content redaction and runs after it.
package sanitize

import (
	"context"
	"fmt"

	"github.com/wudi/redactor/observability"
	"github.com/wudi/redactor/pdfdoc"
)

// Report counts what sanitization removed, per category. It is purely
// observational; a clean document yields all zeros.
type Report struct {
	MetadataRemoved      []string `json:"metadata_removed"`
	JavaScriptRemoved    int      `json:"javascript_removed"`
	EmbeddedFilesRemoved int      `json:"embedded_files_removed"`
	LinksRemoved         int      `json:"links_removed"`
	FormsFlattened       int      `json:"forms_flattened"`
	ThumbnailsRemoved    int      `json:"thumbnails_removed"`
}

// Empty reports whether nothing was removed.
func (r Report) Empty() bool {
	return len(r.MetadataRemoved) == 0 &&
		r.JavaScriptRemoved == 0 &&
		r.EmbeddedFilesRemoved == 0 &&
		r.LinksRemoved == 0 &&
		r.FormsFlattened == 0 &&
		r.ThumbnailsRemoved == 0
}

// Sanitizer runs the structural removals in a fixed order.
type Sanitizer struct {
	Log observability.Logger
}

// New returns a sanitizer.
func New() *Sanitizer { return &Sanitizer{Log: observability.NopLogger{}} }

// Sanitize removes every auxiliary channel from doc and reports what went.
// Sanitizing an already-clean document succeeds with an all-zero report, so
// the operation is idempotent.
func (s *Sanitizer) Sanitize(ctx context.Context, doc pdfdoc.Document) (Report, error) {
	var rep Report
	select {
	case <-ctx.Done():
		return rep, ctx.Err()
	default:
	}

	fields, err := doc.RemoveMetadata()
	if err != nil {
		return rep, fmt.Errorf("sanitize: metadata: %w", err)
	}
	rep.MetadataRemoved = fields

	if rep.JavaScriptRemoved, err = doc.RemoveJavaScript(); err != nil {
		return rep, fmt.Errorf("sanitize: javascript: %w", err)
	}
	if rep.EmbeddedFilesRemoved, err = doc.RemoveEmbeddedFiles(); err != nil {
		return rep, fmt.Errorf("sanitize: embedded files: %w", err)
	}
	if rep.LinksRemoved, err = doc.RemoveLinks(); err != nil {
		return rep, fmt.Errorf("sanitize: links: %w", err)
	}
	if rep.FormsFlattened, err = doc.FlattenForms(); err != nil {
		return rep, fmt.Errorf("sanitize: forms: %w", err)
	}
	if rep.ThumbnailsRemoved, err = doc.RemoveThumbnails(); err != nil {
		return rep, fmt.Errorf("sanitize: thumbnails: %w", err)
	}

	s.logger().Info("document sanitized",
		observability.Int("metadata", len(rep.MetadataRemoved)),
		observability.Int("javascript", rep.JavaScriptRemoved),
		observability.Int("embedded_files", rep.EmbeddedFilesRemoved),
		observability.Int("links", rep.LinksRemoved),
		observability.Int("forms", rep.FormsFlattened),
		observability.Int("thumbnails", rep.ThumbnailsRemoved))
	return rep, nil
}

// Warning categories produced by Inspect.
const (
	WarnMetadata      = "document carries metadata that may reveal provenance"
	WarnJavaScript    = "document contains JavaScript"
	WarnEmbeddedFiles = "document contains embedded files"
	WarnLinks         = "document contains external links"
	WarnForms         = "document contains interactive form fields"
)

// Inspect reports the auxiliary channels present in a document along with
// human-readable warnings, without modifying anything.
func Inspect(doc pdfdoc.Document) (pdfdoc.Inspection, []string, error) {
	insp, err := doc.Inspect()
	if err != nil {
		return pdfdoc.Inspection{}, nil, fmt.Errorf("inspect: %w", err)
	}
	var warnings []string
	if len(insp.MetadataFields) > 0 || insp.HasXMP {
		warnings = append(warnings, WarnMetadata)
	}
	if insp.JavaScript > 0 {
		warnings = append(warnings, WarnJavaScript)
	}
	if insp.EmbeddedFiles > 0 {
		warnings = append(warnings, WarnEmbeddedFiles)
	}
	if insp.Links > 0 {
		warnings = append(warnings, WarnLinks)
	}
	if insp.FormFields > 0 {
		warnings = append(warnings, WarnForms)
	}
	return insp, warnings, nil
}

func (s *Sanitizer) logger() observability.Logger {
	if s.Log == nil {
		return observability.NopLogger{}
	}
	return s.Log
}
