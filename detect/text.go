package detect

import (
	"context"
	"regexp"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/pdfdoc"
)

// TextDetector matches terms and regex patterns against the vector text
// layer. Matched character ranges are mapped back to the union of the
// covering run rectangles: one merged box per occurrence, guaranteed to
// contain every constituent run rectangle.
type TextDetector struct{}

// NewTextDetector returns a text-layer detector.
func NewTextDetector() *TextDetector { return &TextDetector{} }

func (d *TextDetector) Name() string { return "text" }

// Detect runs the full criteria against one page. A page with no matches
// yields an empty box list, not an error.
func (d *TextDetector) Detect(ctx context.Context, page pdfdoc.Page, criteria Criteria) ([]box.RedactionBox, error) {
	if criteria.Empty() {
		return nil, nil
	}
	runs, err := page.TextRuns(ctx)
	if err != nil {
		return nil, &PageError{Page: page.Index(), Err: err}
	}
	if len(runs) == 0 {
		return nil, nil
	}

	// One fold-normalized build for case-insensitive terms, one
	// case-preserving build for sensitive terms and regex patterns. Each
	// carries its own byte-to-run map because folding changes lengths.
	var folded, exact *pageText

	var boxes []box.RedactionBox
	for _, term := range criteria.Terms {
		pt := &exact
		if !term.CaseSensitive {
			pt = &folded
		}
		if *pt == nil {
			built := buildPageText(runs, !term.CaseSensitive)
			*pt = &built
		}
		needle := normalizeNeedle(term.Text, !term.CaseSensitive)
		for _, off := range indexAll((*pt).text, needle) {
			rect, ok := (*pt).rectForRange(runs, off, off+len(needle))
			if !ok {
				continue
			}
			boxes = append(boxes, box.RedactionBox{
				Page:        page.Index(),
				Rect:        rect,
				Source:      box.SourceExactTerm,
				MatchedText: term.Text,
			})
		}
	}

	if len(criteria.Patterns) > 0 {
		if exact == nil {
			built := buildPageText(runs, false)
			exact = &built
		}
		for _, pat := range criteria.Patterns {
			for _, loc := range pat.Re.FindAllStringIndex(exact.text, -1) {
				rect, ok := exact.rectForRange(runs, loc[0], loc[1])
				if !ok {
					continue
				}
				boxes = append(boxes, box.RedactionBox{
					Page:        page.Index(),
					Rect:        rect,
					Source:      box.SourceRegex,
					MatchedText: exact.text[loc[0]:loc[1]],
				})
			}
		}
	}
	return boxes, nil
}

// FindExact locates every occurrence of term on the page. Matching is
// substring over the whitespace-normalized page text, case-insensitive
// unless caseSensitive is set.
func (d *TextDetector) FindExact(ctx context.Context, page pdfdoc.Page, term string, caseSensitive bool) ([]box.RedactionBox, error) {
	return d.Detect(ctx, page, Criteria{Terms: []Term{{Text: term, CaseSensitive: caseSensitive}}})
}

// FindRegex locates every match of pattern on the page. An invalid pattern
// yields a PatternError.
func (d *TextDetector) FindRegex(ctx context.Context, page pdfdoc.Page, pattern string) ([]box.RedactionBox, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, newPatternError(pattern, err)
	}
	return d.Detect(ctx, page, Criteria{Patterns: []Pattern{{Source: pattern, Re: re}}})
}
