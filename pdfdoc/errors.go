package pdfdoc

import (
	"errors"
	"fmt"
)

// ErrRasterUnavailable is returned by Page.Rasterize when the backend cannot
// produce a raster for the page, for example a vector-only page on an engine
// without a renderer. Callers treat it as a missing capability, not a crash.
var ErrRasterUnavailable = errors.New("page raster unavailable")

// ErrPasswordRequired indicates the document is encrypted and no usable
// password was supplied.
var ErrPasswordRequired = errors.New("document is password protected")

// InputError wraps any failure to open or parse the input document. It is
// fatal: the pipeline aborts before writing output.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return fmt.Sprintf("input document: %v", e.Err) }
func (e *InputError) Unwrap() error { return e.Err }
