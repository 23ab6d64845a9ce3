package detect

import (
	"fmt"
	"regexp/syntax"
	"strings"
)

// PatternError reports a regex pattern that failed to compile. It is fatal
// and raised before any detection begins.
type PatternError struct {
	// Pattern is the pattern as supplied by the caller.
	Pattern string
	// Position is the byte offset of the offending construct in Pattern,
	// or -1 when it could not be determined.
	Position int
	Err      error
}

func (e *PatternError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("invalid pattern %q at offset %d: %v", e.Pattern, e.Position, e.Err)
	}
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

func newPatternError(pattern string, err error) *PatternError {
	pos := -1
	if serr, ok := err.(*syntax.Error); ok && serr.Expr != "" {
		pos = strings.Index(pattern, serr.Expr)
	}
	return &PatternError{Pattern: pattern, Position: pos, Err: err}
}

// PageError reports that detection failed for a single page, for example an
// OCR timeout. It is recoverable: the page is flagged incomplete and
// processing continues.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string { return fmt.Sprintf("page %d: %v", e.Page, e.Err) }
func (e *PageError) Unwrap() error { return e.Err }
