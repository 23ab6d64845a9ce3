package pdfcpu

import (
	"sort"
	"strconv"

	"github.com/wudi/redactor/geo"
)

// Content stream interpretation. The interpreter executes the text operators
// virtually, tracking the text and transformation matrices, and yields one
// show record per text-showing operator with its device-space bounding box
// and the byte spans of its string operands. Glyph widths are approximated
// at half an em, which over-covers narrow glyphs; the redaction fill makes
// that a safe direction to err in.

type tokKind int

const (
	tokNumber tokKind = iota
	tokString
	tokName
	tokArrayOpen
	tokArrayClose
	tokDictOpen
	tokDictClose
	tokOperator
)

type token struct {
	kind       tokKind
	start, end int
	num        float64
	str        []byte
	name       string
	op         string
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isSpace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

// tokenize splits a decoded content stream into tokens, preserving byte
// offsets so the stream can be rewritten in place.
func tokenize(data []byte) []token {
	var toks []token
	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case isSpace(b):
			i++
		case b == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case b == '(':
			start := i
			str, next := scanString(data, i)
			toks = append(toks, token{kind: tokString, start: start, end: next, str: str})
			i = next
		case b == '<' && i+1 < len(data) && data[i+1] == '<':
			toks = append(toks, token{kind: tokDictOpen, start: i, end: i + 2})
			i += 2
		case b == '<':
			start := i
			str, next := scanHexString(data, i)
			toks = append(toks, token{kind: tokString, start: start, end: next, str: str})
			i = next
		case b == '>' && i+1 < len(data) && data[i+1] == '>':
			toks = append(toks, token{kind: tokDictClose, start: i, end: i + 2})
			i += 2
		case b == '[':
			toks = append(toks, token{kind: tokArrayOpen, start: i, end: i + 1})
			i++
		case b == ']':
			toks = append(toks, token{kind: tokArrayClose, start: i, end: i + 1})
			i++
		case b == '/':
			start := i
			i++
			for i < len(data) && !isSpace(data[i]) && !isDelim(data[i]) {
				i++
			}
			toks = append(toks, token{kind: tokName, start: start, end: i, name: string(data[start+1 : i])})
		case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
			start := i
			i++
			for i < len(data) && !isSpace(data[i]) && !isDelim(data[i]) {
				i++
			}
			n, err := strconv.ParseFloat(string(data[start:i]), 64)
			if err != nil {
				// Not a number after all; treat as an operator token.
				toks = append(toks, token{kind: tokOperator, start: start, end: i, op: string(data[start:i])})
				continue
			}
			toks = append(toks, token{kind: tokNumber, start: start, end: i, num: n})
		default:
			start := i
			for i < len(data) && !isSpace(data[i]) && !isDelim(data[i]) {
				i++
			}
			if i == start {
				i++
				continue
			}
			op := string(data[start:i])
			if op == "BI" {
				// Inline image: skip everything through the EI marker.
				i = skipInlineImage(data, i)
				continue
			}
			toks = append(toks, token{kind: tokOperator, start: start, end: i, op: op})
		}
	}
	return toks
}

// scanString consumes a literal string starting at data[i] == '(' and returns
// the decoded bytes plus the index past the closing parenthesis.
func scanString(data []byte, i int) ([]byte, int) {
	var out []byte
	depth := 0
	for ; i < len(data); i++ {
		b := data[i]
		switch {
		case b == '\\' && i+1 < len(data):
			i++
			switch data[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, data[i])
			case '\n':
				// Line continuation.
			case '\r':
				if i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if data[i] >= '0' && data[i] <= '7' {
					val := int(data[i] - '0')
					for n := 0; n < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; n++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					out = append(out, byte(val))
				} else {
					out = append(out, data[i])
				}
			}
		case b == '(':
			depth++
			if depth > 1 {
				out = append(out, b)
			}
		case b == ')':
			depth--
			if depth == 0 {
				return out, i + 1
			}
			out = append(out, b)
		default:
			if depth > 0 {
				out = append(out, b)
			}
		}
	}
	return out, i
}

// scanHexString consumes <hex digits> starting at data[i] == '<'.
func scanHexString(data []byte, i int) ([]byte, int) {
	var out []byte
	i++
	var hi byte
	haveHi := false
	for ; i < len(data); i++ {
		b := data[i]
		if b == '>' {
			i++
			break
		}
		var v byte
		switch {
		case b >= '0' && b <= '9':
			v = b - '0'
		case b >= 'a' && b <= 'f':
			v = b - 'a' + 10
		case b >= 'A' && b <= 'F':
			v = b - 'A' + 10
		default:
			continue
		}
		if haveHi {
			out = append(out, hi<<4|v)
			haveHi = false
		} else {
			hi = v
			haveHi = true
		}
	}
	if haveHi {
		out = append(out, hi<<4)
	}
	return out, i
}

func skipInlineImage(data []byte, i int) int {
	for ; i+1 < len(data); i++ {
		if data[i] == 'E' && data[i+1] == 'I' &&
			(i == 0 || isSpace(data[i-1])) &&
			(i+2 >= len(data) || isSpace(data[i+2]) || isDelim(data[i+2])) {
			return i + 2
		}
	}
	return len(data)
}

// span is a half-open byte range in the content stream.
type span struct{ start, end int }

// textShow is one text-showing operator with its device-space bounds and the
// spans of the string operands that carry the glyphs.
type textShow struct {
	text  string
	rect  geo.Rect
	spans []span
}

// approximated width of one glyph, in thousandths of an em.
const glyphWidthEm = 500.0

type textState struct {
	tm, tlm  geo.Matrix
	fontSize float64
	leading  float64
}

// interpretText walks the stream and returns every text show with geometry.
func interpretText(data []byte) []textShow {
	toks := tokenize(data)

	ctm := geo.Identity()
	var ctmStack []geo.Matrix
	ts := textState{tm: geo.Identity(), tlm: geo.Identity()}

	var shows []textShow
	var operands []token

	num := func(i int) float64 {
		if i < 0 || i >= len(operands) || operands[i].kind != tokNumber {
			return 0
		}
		return operands[i].num
	}

	nextLine := func(tx, ty float64) {
		ts.tlm = geo.Translate(tx, ty).Multiply(ts.tlm)
		ts.tm = ts.tlm
	}

	record := func(width float64, text string, spans []span) {
		m := ts.tm.Multiply(ctm)
		rect := m.TransformRect(geo.NewRect(0, 0, width, ts.fontSize))
		shows = append(shows, textShow{text: text, rect: rect, spans: spans})
		// Advance the pen so consecutive shows on one line do not stack.
		ts.tm = geo.Translate(width, 0).Multiply(ts.tm)
	}

	showString := func(tok token) {
		width := float64(len(tok.str)) * glyphWidthEm / 1000.0 * ts.fontSize
		record(width, latin1(tok.str), []span{{tok.start, tok.end}})
	}

	for _, tok := range toks {
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}
		switch tok.op {
		case "q":
			ctmStack = append(ctmStack, ctm)
		case "Q":
			if n := len(ctmStack); n > 0 {
				ctm = ctmStack[n-1]
				ctmStack = ctmStack[:n-1]
			}
		case "cm":
			if len(operands) >= 6 {
				m := geo.Matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
				ctm = m.Multiply(ctm)
			}
		case "BT":
			ts.tm = geo.Identity()
			ts.tlm = geo.Identity()
		case "Tf":
			if len(operands) >= 2 {
				ts.fontSize = num(len(operands) - 1)
			}
		case "TL":
			ts.leading = num(0)
		case "Tm":
			if len(operands) >= 6 {
				ts.tlm = geo.Matrix{num(0), num(1), num(2), num(3), num(4), num(5)}
				ts.tm = ts.tlm
			}
		case "Td":
			if len(operands) >= 2 {
				nextLine(num(0), num(1))
			}
		case "TD":
			if len(operands) >= 2 {
				ts.leading = -num(1)
				nextLine(num(0), num(1))
			}
		case "T*":
			nextLine(0, -ts.leading)
		case "Tj":
			if len(operands) >= 1 && operands[len(operands)-1].kind == tokString {
				showString(operands[len(operands)-1])
			}
		case "'":
			nextLine(0, -ts.leading)
			if len(operands) >= 1 && operands[len(operands)-1].kind == tokString {
				showString(operands[len(operands)-1])
			}
		case "\"":
			nextLine(0, -ts.leading)
			if len(operands) >= 3 && operands[len(operands)-1].kind == tokString {
				showString(operands[len(operands)-1])
			}
		case "TJ":
			var width float64
			var text []byte
			var spans []span
			for _, o := range operands {
				switch o.kind {
				case tokString:
					width += float64(len(o.str)) * glyphWidthEm
					text = append(text, o.str...)
					spans = append(spans, span{o.start, o.end})
				case tokNumber:
					width -= o.num
				}
			}
			if len(spans) > 0 {
				record(width/1000.0*ts.fontSize, latin1(text), spans)
			}
		}
		operands = operands[:0]
	}
	return shows
}

// latin1 maps raw string bytes to text. Font encodings and CID fonts are not
// resolved; for standard encodings the printable ASCII range comes through
// intact, which is what term matching needs.
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

// blankSpans rewrites data with every span replaced by an empty string
// literal, removing the glyphs while keeping the operator structure and all
// positioning intact. Spans must be non-overlapping.
func blankSpans(data []byte, spans []span) []byte {
	if len(spans) == 0 {
		return data
	}
	ordered := append([]span(nil), spans...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].start < ordered[j].start })
	out := make([]byte, 0, len(data))
	pos := 0
	for _, s := range ordered {
		if s.start < pos {
			continue
		}
		out = append(out, data[pos:s.start]...)
		out = append(out, '(', ')')
		pos = s.end
	}
	out = append(out, data[pos:]...)
	return out
}
