package depth

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Variant selects a Depth Anything V2 model size. Larger variants are
// slower and more accurate.
type Variant string

const (
	VariantSmall Variant = "vits"
	VariantBase  Variant = "vitb"
	VariantLarge Variant = "vitl"
)

// ParseVariant maps a user-supplied name to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vits", "small", "s":
		return VariantSmall, nil
	case "vitb", "base", "b":
		return VariantBase, nil
	case "vitl", "large", "l":
		return VariantLarge, nil
	default:
		return "", fmt.Errorf("unknown model variant %q (want vits, vitb, or vitl)", s)
	}
}

// ModelFile returns the model file name for the variant.
func (v Variant) ModelFile() string {
	return fmt.Sprintf("depth_anything_v2_%s.onnx", string(v))
}

// Options configures the ONNX depth estimator.
type Options struct {
	// Directory containing the model files.
	ModelDir string
	Variant  Variant

	// Path to the onnxruntime shared library (.dll/.so/.dylib). If empty,
	// the environment variable ONNXRUNTIME_SHARED_LIBRARY_PATH is respected.
	ORTSharedLibraryPath string

	// Input and output tensor names in the model graph.
	InputName  string
	OutputName string

	// Square input resolution the model expects.
	InputSize int

	// Per-channel normalization applied after scaling pixels to [0,1].
	NormalizeMeanRGB   [3]float32
	NormalizeStddevRGB [3]float32
}

// DefaultOptions returns the configuration matching the published
// Depth Anything V2 ONNX exports.
func DefaultOptions() Options {
	return Options{
		Variant:            VariantLarge,
		InputName:          "image",
		OutputName:         "depth",
		InputSize:          518,
		NormalizeMeanRGB:   [3]float32{0.485, 0.456, 0.406},
		NormalizeStddevRGB: [3]float32{0.229, 0.224, 0.225},
	}
}

// ModelPath returns the full path to the model file for these options.
func (o Options) ModelPath() string {
	return filepath.Join(o.ModelDir, o.Variant.ModelFile())
}
