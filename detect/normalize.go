package detect

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/wudi/redactor/geo"
	"github.com/wudi/redactor/pdfdoc"
)

// pageText is a whitespace-normalized rendering of a page's text runs with a
// per-byte map back to the run that produced each byte. Matching happens on
// pageText; match ranges are mapped to the union of the covering runs'
// rectangles, so a returned box can never under-cover a match.
type pageText struct {
	text   string
	runIdx []int // run index per byte; -1 for synthetic separators
}

var folder = cases.Fold()

// buildPageText concatenates the runs into a single searchable string with
// runs of whitespace collapsed to a single space. When fold is true every
// rune is case-folded so matching is case-insensitive; folding may expand a
// rune into several, all of which keep the originating run index.
func buildPageText(runs []pdfdoc.TextRun, fold bool) pageText {
	var sb strings.Builder
	idx := make([]int, 0, 64)
	pendingSpace := false

	for runI, run := range runs {
		for _, r := range run.Text {
			if unicode.IsSpace(r) {
				pendingSpace = sb.Len() > 0
				continue
			}
			if pendingSpace {
				appendRune(&sb, &idx, ' ', -1)
				pendingSpace = false
			}
			if fold {
				for _, fr := range folder.String(string(r)) {
					appendRune(&sb, &idx, fr, runI)
				}
			} else {
				appendRune(&sb, &idx, r, runI)
			}
		}
		// A word split across consecutive show operators yields abutting
		// runs; only a geometric gap at the boundary counts as whitespace.
		if runI+1 < len(runs) && !runsAdjoined(run, runs[runI+1]) {
			pendingSpace = sb.Len() > 0
		}
	}
	return pageText{text: sb.String(), runIdx: idx}
}

// runsAdjoined reports whether b continues a on the same baseline with no
// visible gap between them. Runs without geometry are never adjoined.
func runsAdjoined(a, b pdfdoc.TextRun) bool {
	ar, br := a.Rect, b.Rect
	if ar.IsEmpty() || br.IsEmpty() {
		return false
	}
	if ar.Y1 <= br.Y0 || br.Y1 <= ar.Y0 {
		return false
	}
	h := math.Max(ar.Height(), br.Height())
	return br.X0-ar.X1 <= h*0.1
}

func appendRune(sb *strings.Builder, idx *[]int, r rune, runI int) {
	before := sb.Len()
	sb.WriteRune(r)
	for i := before; i < sb.Len(); i++ {
		*idx = append(*idx, runI)
	}
}

// normalizeNeedle applies the same whitespace collapsing (and optional case
// folding) to a search term so needle and haystack agree.
func normalizeNeedle(s string, fold bool) string {
	var sb strings.Builder
	pendingSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pendingSpace = sb.Len() > 0
			continue
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		if fold {
			sb.WriteString(folder.String(string(r)))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// rectForRange returns the union of the rectangles of every run contributing
// a byte in [start, end). The merged rectangle contains all constituent run
// rectangles, so it cannot under-cover the match.
func (pt pageText) rectForRange(runs []pdfdoc.TextRun, start, end int) (geo.Rect, bool) {
	var out geo.Rect
	covered := false
	for i := start; i < end && i < len(pt.runIdx); i++ {
		ri := pt.runIdx[i]
		if ri < 0 || ri >= len(runs) {
			continue
		}
		r := runs[ri].Rect
		if r.IsEmpty() {
			continue
		}
		out = out.Union(r)
		covered = true
	}
	return out, covered
}

// indexAll returns the byte offsets of every non-overlapping occurrence of
// needle in haystack.
func indexAll(haystack, needle string) []int {
	if needle == "" {
		return nil
	}
	var offsets []int
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return offsets
		}
		offsets = append(offsets, from+i)
		from += i + len(needle)
	}
}
