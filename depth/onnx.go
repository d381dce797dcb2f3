//go:build cgo
// +build cgo

package depth

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	resize "github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEstimator runs a Depth Anything V2 model through ONNX Runtime.
// A single Run call is not assumed to be concurrency-safe; callers that
// share one estimator across goroutines must serialize EstimateDepth.
type ONNXEstimator struct {
	opts Options
}

// NewONNXEstimator validates the model file, initializes the ONNX Runtime
// environment, and returns an estimator. Close must be called when done.
func NewONNXEstimator(opts Options) (*ONNXEstimator, error) {
	if opts.InputSize <= 0 {
		return nil, fmt.Errorf("invalid input size %d", opts.InputSize)
	}
	if opts.InputName == "" || opts.OutputName == "" {
		return nil, errors.New("input and output names must be provided")
	}
	modelPath := opts.ModelPath()
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("depth model not readable at %s: %w", modelPath, err)
	}

	if opts.ORTSharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.ORTSharedLibraryPath)
	} else if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
		ort.SetSharedLibraryPath(p)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, err
	}
	return &ONNXEstimator{opts: opts}, nil
}

// Close tears down the ONNX Runtime environment.
func (e *ONNXEstimator) Close() error {
	return ort.DestroyEnvironment()
}

// EstimateDepth runs the model on one frame and returns the raw depth
// field at the model's native resolution.
func (e *ONNXEstimator) EstimateDepth(img image.Image) (*Field, error) {
	inputTensor, err := e.imageToTensor(img)
	if err != nil {
		return nil, err
	}
	defer inputTensor.Destroy()

	size := e.opts.InputSize
	outShape := ort.NewShape(1, int64(size), int64(size))
	outputTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, err
	}
	defer outputTensor.Destroy()

	session, err := ort.NewAdvancedSession(
		e.opts.ModelPath(),
		[]string{e.opts.InputName},
		[]string{e.opts.OutputName},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		return nil, err
	}
	defer session.Destroy()

	if err := session.Run(); err != nil {
		return nil, err
	}

	field := NewField(size, size)
	copy(field.Values, outputTensor.GetData())
	return field, nil
}

// imageToTensor resizes the frame to the model's square input and packs
// it as a normalized NCHW float32 tensor.
func (e *ONNXEstimator) imageToTensor(img image.Image) (*ort.Tensor[float32], error) {
	size := e.opts.InputSize
	dst := resize.Resize(uint(size), uint(size), img, resize.Bicubic)

	stdR := e.opts.NormalizeStddevRGB[0]
	stdG := e.opts.NormalizeStddevRGB[1]
	stdB := e.opts.NormalizeStddevRGB[2]
	if stdR == 0 {
		stdR = 1
	}
	if stdG == 0 {
		stdG = 1
	}
	if stdB == 0 {
		stdB = 1
	}

	numPixels := size * size
	data := make([]float32, 3*numPixels)
	rOff := 0
	gOff := numPixels
	bOff := 2 * numPixels
	idx := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.RGBAModel.Convert(dst.At(x, y)).(color.RGBA)
			data[rOff+idx] = (float32(c.R)/255.0 - e.opts.NormalizeMeanRGB[0]) / stdR
			data[gOff+idx] = (float32(c.G)/255.0 - e.opts.NormalizeMeanRGB[1]) / stdG
			data[bOff+idx] = (float32(c.B)/255.0 - e.opts.NormalizeMeanRGB[2]) / stdB
			idx++
		}
	}

	shape := ort.NewShape(1, 3, int64(size), int64(size))
	return ort.NewTensor(shape, data)
}
