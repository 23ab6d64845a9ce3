// Package detect locates sensitive content on pages and converts every match
// into the canonical box representation. The text detector scans the vector
// text layer; the OCR detector works on page rasters. Both are variants of
// the same Detector capability and return the same box shape regardless of
// origin.
package detect

import (
	"context"
	"regexp"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/pdfdoc"
)

// Term is an exact-match search target.
type Term struct {
	Text          string
	CaseSensitive bool
}

// Pattern pairs a compiled regex with the source the caller supplied, so
// reports and residual matches can name the original pattern.
type Pattern struct {
	Source string
	Re     *regexp.Regexp
}

// Criteria is the full search specification handed to a detector.
type Criteria struct {
	Terms    []Term
	Patterns []Pattern
}

// Empty reports whether there is nothing to search for.
func (c Criteria) Empty() bool { return len(c.Terms) == 0 && len(c.Patterns) == 0 }

// Compile validates terms and patterns into Criteria. Patterns compile
// case-insensitively. An invalid pattern yields a PatternError before any
// detection begins.
func Compile(terms []string, patterns []string) (Criteria, error) {
	var c Criteria
	for _, t := range terms {
		if t == "" {
			continue
		}
		c.Terms = append(c.Terms, Term{Text: t})
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return Criteria{}, newPatternError(p, err)
		}
		c.Patterns = append(c.Patterns, Pattern{Source: p, Re: re})
	}
	return c, nil
}

// Detector finds redaction boxes on a page given criteria. Text and OCR
// detection implement the same contract; the classifier decides which of
// them run on a given page.
type Detector interface {
	Name() string
	Detect(ctx context.Context, page pdfdoc.Page, criteria Criteria) ([]box.RedactionBox, error)
}
