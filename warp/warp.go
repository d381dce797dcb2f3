// Package warp synthesizes a stereo pair from one frame and its depth
// map by displacing pixels horizontally in proportion to depth.
package warp

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"runtime"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Interpolation selects how fractional sample coordinates are resolved.
type Interpolation int

const (
	Nearest Interpolation = iota
	Bilinear
	Bicubic
	Lanczos
)

// ParseInterpolation maps a user-supplied name to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest":
		return Nearest, nil
	case "bilinear", "linear":
		return Bilinear, nil
	case "bicubic", "cubic":
		return Bicubic, nil
	case "lanczos", "lanczos3":
		return Lanczos, nil
	default:
		return 0, fmt.Errorf("unknown interpolation %q (want nearest, bilinear, bicubic, or lanczos)", s)
	}
}

func (i Interpolation) String() string {
	switch i {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	case Lanczos:
		return "lanczos"
	default:
		return "unknown"
	}
}

// Options configures the warp.
type Options struct {
	// Scale is the maximum horizontal shift in pixels: a pixel at full
	// depth moves by Scale, a pixel at zero depth does not move.
	Scale int

	Interpolation Interpolation

	// Workers is the number of goroutines used for row processing.
	// Zero means GOMAXPROCS.
	Workers int
}

// Render produces the left and right eye views for one frame. The depth
// map is resampled to the frame's resolution with bilinear scaling when
// the sizes differ. Both outputs have the frame's dimensions. The left
// eye samples the source at x+displacement, the right at x-displacement,
// clamped to image bounds.
func Render(src *image.RGBA, depthGray *image.Gray, opts Options) (left, right *image.RGBA) {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	if depthGray.Bounds().Dx() != w || depthGray.Bounds().Dy() != h {
		scaled := image.NewGray(image.Rect(0, 0, w, h))
		xdraw.BiLinear.Scale(scaled, scaled.Bounds(), depthGray, depthGray.Bounds(), draw.Src, nil)
		depthGray = scaled
	}

	// displacement = depth/255 * scale, always >= 0
	disp := make([]float32, w*h)
	scale := float32(opts.Scale)
	for y := 0; y < h; y++ {
		row := depthGray.Pix[y*depthGray.Stride : y*depthGray.Stride+w]
		for x := 0; x < w; x++ {
			disp[y*w+x] = float32(row[x]) / 255.0 * scale
		}
	}

	left = image.NewRGBA(image.Rect(0, 0, w, h))
	right = image.NewRGBA(image.Rect(0, 0, w, h))

	workers := opts.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	rows := splitRows(h, workers)
	var wg sync.WaitGroup
	for _, r := range rows {
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := 0; x < w; x++ {
					d := float64(disp[y*w+x])
					sxL := clampF(float64(x)+d, 0, float64(w-1))
					sxR := clampF(float64(x)-d, 0, float64(w-1))
					sampleRow(src, y, sxL, opts.Interpolation, left.Pix[y*left.Stride+x*4:])
					sampleRow(src, y, sxR, opts.Interpolation, right.Pix[y*right.Stride+x*4:])
				}
			}
		}(r[0], r[1])
	}
	wg.Wait()
	return left, right
}

// sampleRow samples the source at (sx, y) where only sx may be
// fractional (the warp is purely horizontal). Taps outside the row are
// clamped to the edge pixels.
func sampleRow(src *image.RGBA, y int, sx float64, interp Interpolation, out []uint8) {
	x0 := int(math.Floor(sx))
	frac := sx - float64(x0)

	// Exact integer coordinate: copy the pixel for every kernel.
	if frac == 0 {
		copyPixel(src, x0, y, out)
		return
	}

	switch interp {
	case Nearest:
		copyPixel(src, int(sx+0.5), y, out)
	case Bilinear:
		var acc [4]float64
		accumulateTap(src, x0, y, 1-frac, &acc)
		accumulateTap(src, x0+1, y, frac, &acc)
		writePixel(&acc, out)
	case Bicubic:
		var acc [4]float64
		for k := -1; k <= 2; k++ {
			accumulateTap(src, x0+k, y, catmullRom(float64(k)-frac), &acc)
		}
		writePixel(&acc, out)
	case Lanczos:
		var acc [4]float64
		var sum float64
		weights := [6]float64{}
		for k := -2; k <= 3; k++ {
			wgt := lanczos3(float64(k) - frac)
			weights[k+2] = wgt
			sum += wgt
		}
		for k := -2; k <= 3; k++ {
			accumulateTap(src, x0+k, y, weights[k+2]/sum, &acc)
		}
		writePixel(&acc, out)
	}
}

func copyPixel(src *image.RGBA, x, y int, out []uint8) {
	w := src.Bounds().Dx()
	x = clampI(x, 0, w-1)
	i := y*src.Stride + x*4
	out[0] = src.Pix[i+0]
	out[1] = src.Pix[i+1]
	out[2] = src.Pix[i+2]
	out[3] = 255
}

func accumulateTap(src *image.RGBA, x, y int, wgt float64, acc *[4]float64) {
	w := src.Bounds().Dx()
	x = clampI(x, 0, w-1)
	i := y*src.Stride + x*4
	acc[0] += wgt * float64(src.Pix[i+0])
	acc[1] += wgt * float64(src.Pix[i+1])
	acc[2] += wgt * float64(src.Pix[i+2])
	acc[3] += wgt * float64(src.Pix[i+3])
}

func writePixel(acc *[4]float64, out []uint8) {
	for c := 0; c < 3; c++ {
		v := acc[c]
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		out[c] = uint8(v + 0.5)
	}
	out[3] = 255
}

// catmullRom is the Catmull-Rom cubic kernel (a = -0.5).
func catmullRom(t float64) float64 {
	t = math.Abs(t)
	if t < 1 {
		return 1.5*t*t*t - 2.5*t*t + 1
	}
	if t < 2 {
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	}
	return 0
}

// lanczos3 is the Lanczos kernel with a = 3.
func lanczos3(t float64) float64 {
	t = math.Abs(t)
	if t >= 3 {
		return 0
	}
	if t == 0 {
		return 1
	}
	pt := math.Pi * t
	return 3 * math.Sin(pt) * math.Sin(pt/3) / (pt * pt)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func splitRows(h, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > h {
		workers = h
	}
	rows := make([][2]int, 0, workers)
	step := h / workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + step
		if i == workers-1 {
			end = h
		}
		rows = append(rows, [2]int{start, end})
		start = end
	}
	return rows
}
