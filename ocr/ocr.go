// Package ocr defines the optical character recognition collaborator
// boundary. The interfaces are small and provider-agnostic so engines can be
// backed by native libraries or remote services without leaking
// provider-specific concerns into the detectors.
package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable signals that no OCR engine can run in this build or
// environment. Callers use it to distinguish "no matches" from "recognition
// could not run".
var ErrUnavailable = errors.New("ocr engine unavailable")

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
	ImageFormatTIFF ImageFormat = "image/tiff"
)

// Region is a rectangular area in pixel coordinates with the origin in the
// upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is a single image submitted for recognition.
type Input struct {
	// ID is an optional caller-provided identifier echoed back in Result.
	ID string
	// Image is the encoded payload in the format given by Format.
	Image []byte
	// Format declares the image content type.
	Format ImageFormat
	// DPI carries the effective dots-per-inch of the image; zero means
	// unknown.
	DPI int
	// Languages is a list of language hints (e.g. "eng") used to select
	// trained data.
	Languages []string
	// Metadata passes engine-specific knobs (e.g. Tesseract variables)
	// without widening the API surface.
	Metadata map[string]string
}

// Word is a single recognized token. Confidence ranges 0-100.
type Word struct {
	Text       string
	Bounds     Region
	Confidence float64
}

// Result captures recognition output for one input image.
type Result struct {
	InputID   string
	PlainText string
	Words     []Word
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	// Available reports whether the engine can actually run recognition in
	// this build and environment.
	Available() bool
	Recognize(ctx context.Context, input Input) (Result, error)
}
