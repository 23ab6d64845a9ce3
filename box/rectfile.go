package box

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"

	"github.com/wudi/redactor/geo"
)

// ValidationError describes a malformed entry in a rectangle file. Page is
// the 1-based page number as it appears in the file.
type ValidationError struct {
	Page   int
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rect file: page %d, rect %d: %s: %s", e.Page, e.Index, e.Field, e.Reason)
}

type rectEntry struct {
	X0 *float64 `json:"x0"`
	Y0 *float64 `json:"y0"`
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
}

// ParseRectFile decodes a manual rectangle specification: a JSON object
// mapping 1-based page-number strings to arrays of {x0,y0,x1,y1} objects in
// PDF point space. Page numbers are normalized to the zero-based indices used
// internally. pageCount bounds the accepted page numbers; malformed entries
// are rejected with a ValidationError naming the page and field.
func ParseRectFile(data []byte, pageCount int) (PageBoxMap, error) {
	var raw map[string][]rectEntry
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("rect file: %w", err)
	}

	out := make(PageBoxMap)
	// Deterministic validation order so the first error is stable.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		pageNum, err := strconv.Atoi(key)
		if err != nil {
			return nil, &ValidationError{Page: 0, Field: "page", Reason: fmt.Sprintf("page key %q is not a number", key)}
		}
		if pageNum < 1 || pageNum > pageCount {
			return nil, &ValidationError{Page: pageNum, Field: "page", Reason: fmt.Sprintf("page number out of range 1..%d", pageCount)}
		}
		for i, ent := range raw[key] {
			rect, verr := ent.validate(pageNum, i)
			if verr != nil {
				return nil, verr
			}
			out.Add(RedactionBox{
				Page:   pageNum - 1,
				Rect:   rect,
				Source: SourceManual,
			})
		}
	}
	return out, nil
}

func (e rectEntry) validate(page, index int) (geo.Rect, *ValidationError) {
	fields := []struct {
		name string
		val  *float64
	}{
		{"x0", e.X0}, {"y0", e.Y0}, {"x1", e.X1}, {"y1", e.Y1},
	}
	for _, f := range fields {
		if f.val == nil {
			return geo.Rect{}, &ValidationError{Page: page, Index: index, Field: f.name, Reason: "missing or non-numeric"}
		}
	}
	if *e.X0 >= *e.X1 {
		return geo.Rect{}, &ValidationError{Page: page, Index: index, Field: "x0", Reason: fmt.Sprintf("x0 (%g) must be less than x1 (%g)", *e.X0, *e.X1)}
	}
	if *e.Y0 >= *e.Y1 {
		return geo.Rect{}, &ValidationError{Page: page, Index: index, Field: "y0", Reason: fmt.Sprintf("y0 (%g) must be less than y1 (%g)", *e.Y0, *e.Y1)}
	}
	return geo.Rect{X0: *e.X0, Y0: *e.Y0, X1: *e.X1, Y1: *e.Y1}, nil
}

// LoadRectFile reads and parses a rectangle file from disk.
func LoadRectFile(path string, pageCount int) (PageBoxMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rect file: %w", err)
	}
	return ParseRectFile(data, pageCount)
}
