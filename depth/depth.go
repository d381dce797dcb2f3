// Package depth estimates per-pixel scene depth for a decoded frame.
// The real estimator runs a Depth Anything V2 ONNX model; tests and
// callers without a model inject any Estimator implementation.
package depth

import (
	"image"
)

// Field is a raw single-channel depth estimate. Values are row-major,
// one per pixel, in whatever range the estimator produces.
type Field struct {
	W, H   int
	Values []float32
}

// NewField allocates a zeroed field of the given size.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, Values: make([]float32, w*h)}
}

// At returns the value at (x, y). No bounds checking.
func (f *Field) At(x, y int) float32 {
	return f.Values[y*f.W+x]
}

// Normalize rescales the field to an 8-bit grayscale image: the field
// minimum maps to 0, the maximum to 255, truncated to integer. A uniform
// field maps to all zeros.
func (f *Field) Normalize() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, f.W, f.H))
	if len(f.Values) == 0 {
		return out
	}
	min, max := f.Values[0], f.Values[0]
	for _, v := range f.Values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		return out
	}
	scale := 255.0 / (max - min)
	for y := 0; y < f.H; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+f.W]
		for x := 0; x < f.W; x++ {
			row[x] = uint8((f.Values[y*f.W+x] - min) * scale)
		}
	}
	return out
}

// Estimator turns a decoded frame into a depth field. The field's
// resolution may differ from the frame's; callers resample as needed.
type Estimator interface {
	EstimateDepth(img image.Image) (*Field, error)
}

// Func adapts a plain function to the Estimator interface.
type Func func(img image.Image) (*Field, error)

// EstimateDepth calls f.
func (f Func) EstimateDepth(img image.Image) (*Field, error) {
	return f(img)
}
