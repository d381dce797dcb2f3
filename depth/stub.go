//go:build !cgo
// +build !cgo

// Stub for non-CGO builds where ONNX Runtime is not available.
package depth

import (
	"errors"
	"image"
)

// ErrCGORequired is returned when depth estimation is attempted without
// CGO support.
var ErrCGORequired = errors.New("depth estimation requires CGO support; rebuild with CGO_ENABLED=1")

// ONNXEstimator is unavailable without CGO.
type ONNXEstimator struct{}

// NewONNXEstimator returns an error indicating CGO is required.
func NewONNXEstimator(opts Options) (*ONNXEstimator, error) {
	return nil, ErrCGORequired
}

// Close is a no-op.
func (e *ONNXEstimator) Close() error { return nil }

// EstimateDepth returns an error indicating CGO is required.
func (e *ONNXEstimator) EstimateDepth(img image.Image) (*Field, error) {
	return nil, ErrCGORequired
}
