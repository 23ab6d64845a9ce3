package box

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRectFile(t *testing.T) {
	data := []byte(`{
		"1": [{"x0": 72, "y0": 540, "x1": 320, "y1": 565}],
		"3": [{"x0": 50, "y0": 200, "x1": 250, "y1": 220},
		      {"x0": 100, "y0": 700, "x1": 420, "y1": 740}]
	}`)
	m, err := ParseRectFile(data, 3)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Total() != 3 {
		t.Fatalf("total: got %d, want 3", m.Total())
	}
	// 1-based file pages become 0-based internal indices.
	if len(m[0]) != 1 || len(m[2]) != 2 {
		t.Fatalf("page normalization wrong: %v", m.Pages())
	}
	if m[0][0].Source != SourceManual {
		t.Fatalf("source: got %s", m[0][0].Source)
	}
}

func TestParseRectFileInvertedRect(t *testing.T) {
	data := []byte(`{"2": [{"x0": 600, "y0": 10, "x1": 500, "y1": 50}]}`)
	_, err := ParseRectFile(data, 5)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Page != 2 || verr.Field != "x0" {
		t.Fatalf("error should name page 2 and field x0: %+v", verr)
	}
}

func TestParseRectFilePageOutOfRange(t *testing.T) {
	data := []byte(`{"7": [{"x0": 0, "y0": 0, "x1": 10, "y1": 10}]}`)
	_, err := ParseRectFile(data, 3)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Page != 7 || verr.Field != "page" {
		t.Fatalf("error should name page 7: %+v", verr)
	}
}

func TestParseRectFileMissingField(t *testing.T) {
	data := []byte(`{"1": [{"x0": 0, "y0": 0, "x1": 10}]}`)
	_, err := ParseRectFile(data, 3)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "y1" {
		t.Fatalf("error should name y1: %+v", verr)
	}
}

func TestParseRectFileNonNumericPageKey(t *testing.T) {
	data := []byte(`{"cover": [{"x0": 0, "y0": 0, "x1": 10, "y1": 10}]}`)
	_, err := ParseRectFile(data, 3)
	if err == nil || !strings.Contains(err.Error(), "cover") {
		t.Fatalf("expected error naming bad key, got %v", err)
	}
}
