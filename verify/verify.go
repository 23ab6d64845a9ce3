// Package verify re-checks a redacted document for residual targets. It runs
// two independent scans: the extracted text of every page, and the raw
// serialized bytes. Verification is advisory; a clean pass does not prove the
// targets are gone, only that neither scan can still find them.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/wudi/redactor/box"
	"github.com/wudi/redactor/detect"
	"github.com/wudi/redactor/observability"
	"github.com/wudi/redactor/pdfdoc"
)

// Layers a residual was found in.
const (
	LayerText   = "text"
	LayerBinary = "binary"
)

// Residual is one surviving occurrence of a target.
type Residual struct {
	// Page is the 0-based page of a text-layer residual, -1 for binary.
	Page    int    `json:"page"`
	Target  string `json:"target"`
	Layer   string `json:"layer"`
	Snippet string `json:"snippet,omitempty"`
}

// Result is the outcome of a verification pass.
type Result struct {
	Passed    bool       `json:"passed"`
	Residuals []Residual `json:"residuals,omitempty"`
}

// Failure reports that verification found residual targets. The redacted
// output already exists when this is returned; callers decide whether to
// keep it.
type Failure struct {
	Result Result
}

func (f *Failure) Error() string {
	return fmt.Sprintf("verification failed: %d residual occurrence(s)", len(f.Result.Residuals))
}

// Verifier scans a document for targets that should have been removed.
type Verifier struct {
	Log observability.Logger
}

// New returns a verifier.
func New() *Verifier { return &Verifier{Log: observability.NopLogger{}} }

// Verify scans every page's extracted text and the document's serialized
// bytes for the given criteria. Pages whose text cannot be extracted count as
// residuals for every term, since their content cannot be ruled clean.
func (v *Verifier) Verify(ctx context.Context, doc pdfdoc.Document, criteria detect.Criteria) (Result, error) {
	res := Result{Passed: true}
	td := detect.NewTextDetector()

	for i := 0; i < doc.PageCount(); i++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}
		page, err := doc.Page(i)
		if err != nil {
			return res, fmt.Errorf("verify: page %d: %w", i, err)
		}
		boxes, err := td.Detect(ctx, page, criteria)
		if err != nil {
			v.logger().Warn("page unreadable during verification",
				observability.Int(observability.KeyPage, i), observability.Error("err", err))
			res.Residuals = append(res.Residuals, Residual{
				Page:    i,
				Target:  "*",
				Layer:   LayerText,
				Snippet: fmt.Sprintf("text extraction failed: %v", err),
			})
			continue
		}
		for _, b := range boxes {
			res.Residuals = append(res.Residuals, Residual{
				Page:    i,
				Target:  targetFor(b),
				Layer:   LayerText,
				Snippet: b.MatchedText,
			})
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return res, fmt.Errorf("verify: serialize: %w", err)
	}
	res.Residuals = append(res.Residuals, scanBytes(buf.Bytes(), criteria)...)

	res.Passed = len(res.Residuals) == 0
	if !res.Passed {
		v.logger().Warn("residual targets found",
			observability.Int(observability.KeyRemaining, len(res.Residuals)))
	}
	return res, nil
}

func targetFor(b box.RedactionBox) string {
	if b.MatchedText != "" {
		return b.MatchedText
	}
	return string(b.Source)
}

// strings(1) semantics: printable ASCII runs of minStringLen or more.
const minStringLen = 4

// scanBytes searches the printable runs of raw for the criteria, case
// insensitively for terms.
func scanBytes(raw []byte, criteria detect.Criteria) []Residual {
	var residuals []Residual
	for _, s := range printableRuns(raw) {
		lower := strings.ToLower(s)
		for _, term := range criteria.Terms {
			needle := term.Text
			hay := s
			if !term.CaseSensitive {
				needle = strings.ToLower(needle)
				hay = lower
			}
			if idx := strings.Index(hay, needle); idx >= 0 {
				residuals = append(residuals, Residual{
					Page:    -1,
					Target:  term.Text,
					Layer:   LayerBinary,
					Snippet: snippet(s, idx, len(needle)),
				})
			}
		}
		for _, pat := range criteria.Patterns {
			if loc := pat.Re.FindStringIndex(s); loc != nil {
				residuals = append(residuals, Residual{
					Page:    -1,
					Target:  pat.Source,
					Layer:   LayerBinary,
					Snippet: snippet(s, loc[0], loc[1]-loc[0]),
				})
			}
		}
	}
	return residuals
}

func printableRuns(raw []byte) []string {
	var runs []string
	start := -1
	for i, b := range raw {
		if b >= 0x20 && b < 0x7f {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minStringLen {
			runs = append(runs, string(raw[start:i]))
		}
		start = -1
	}
	if start >= 0 && len(raw)-start >= minStringLen {
		runs = append(runs, string(raw[start:]))
	}
	return runs
}

const snippetContext = 20

func snippet(s string, idx, n int) string {
	lo := idx - snippetContext
	if lo < 0 {
		lo = 0
	}
	hi := idx + n + snippetContext
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

func (v *Verifier) logger() observability.Logger {
	if v.Log == nil {
		return observability.NopLogger{}
	}
	return v.Log
}
