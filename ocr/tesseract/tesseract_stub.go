//go:build !ocr

// Package tesseract provides the gosseract-backed OCR engine. This is the
// stub compiled when the "ocr" build tag is not set: every call reports the
// engine as unavailable so callers can tell "no matches" apart from "OCR
// could not run". Rebuild with -tags ocr (and Tesseract installed) to enable
// recognition.
package tesseract

import (
	"context"

	"github.com/wudi/redactor/ocr"
)

// Engine is the stub OCR engine used when OCR support is not compiled in.
type Engine struct{}

// New returns the stub engine. It never fails, but Available reports false
// and Recognize returns ocr.ErrUnavailable.
func New() *Engine { return &Engine{} }

func (e *Engine) Name() string    { return "tesseract" }
func (e *Engine) Available() bool { return false }

// Recognize always fails with ocr.ErrUnavailable.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	return ocr.Result{}, ocr.ErrUnavailable
}
