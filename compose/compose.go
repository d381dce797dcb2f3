// Package compose packs a stereo pair into a single deliverable frame.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"strings"
)

// Layout is the spatial arrangement used to pack the two eye images.
type Layout int

const (
	// HSBS halves each eye's width and places them side by side; the
	// packed frame keeps the single-eye width.
	HSBS Layout = iota
	// FSBS places full-resolution eyes side by side; width doubles.
	FSBS
	// HOU halves each eye's height and stacks them; height is kept.
	HOU
	// FOU stacks full-resolution eyes; height doubles.
	FOU
)

// ParseLayout maps a user-supplied name to a Layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HSBS":
		return HSBS, nil
	case "FSBS":
		return FSBS, nil
	case "HOU":
		return HOU, nil
	case "FOU":
		return FOU, nil
	default:
		return 0, fmt.Errorf("unknown layout %q (want HSBS, FSBS, HOU, or FOU)", s)
	}
}

func (l Layout) String() string {
	switch l {
	case HSBS:
		return "HSBS"
	case FSBS:
		return "FSBS"
	case HOU:
		return "HOU"
	case FOU:
		return "FOU"
	default:
		return "unknown"
	}
}

// EyeOrder selects which eye appears first (left/top) in the layout.
type EyeOrder int

const (
	LeftFirst EyeOrder = iota
	RightFirst
)

// ParseEyeOrder maps a user-supplied name to an EyeOrder.
func ParseEyeOrder(s string) (EyeOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LEFT":
		return LeftFirst, nil
	case "RIGHT":
		return RightFirst, nil
	default:
		return 0, fmt.Errorf("unknown eye order %q (want LEFT or RIGHT)", s)
	}
}

func (o EyeOrder) String() string {
	if o == RightFirst {
		return "RIGHT"
	}
	return "LEFT"
}

// Options configures compositing.
type Options struct {
	Layout Layout
	Order  EyeOrder

	// TargetWidth and TargetHeight, when both non-zero, pad each eye
	// onto a black canvas of that size before packing. Zero means no
	// resize/pad.
	TargetWidth  int
	TargetHeight int
}

// Composite packs the stereo pair into one frame per the options.
func Composite(left, right *image.RGBA, opts Options) *image.RGBA {
	if opts.TargetWidth > 0 && opts.TargetHeight > 0 {
		left = PadToCanvas(left, opts.TargetWidth, opts.TargetHeight)
		right = PadToCanvas(right, opts.TargetWidth, opts.TargetHeight)
	}

	first, second := left, right
	if opts.Order == RightFirst {
		first, second = right, left
	}

	w, h := first.Bounds().Dx(), first.Bounds().Dy()
	switch opts.Layout {
	case HSBS:
		first = scaleArea(first, w/2, h)
		second = scaleArea(second, w/2, h)
		return hstack(first, second)
	case HOU:
		first = scaleArea(first, w, h/2)
		second = scaleArea(second, w, h/2)
		return vstack(first, second)
	case FOU:
		return vstack(first, second)
	default: // FSBS
		return hstack(first, second)
	}
}

// PadToCanvas centers the image, unscaled, on an opaque black canvas.
// Offsets use floor division; any leftover odd pixel lands on the
// trailing (bottom/right) margin.
func PadToCanvas(img *image.RGBA, tw, th int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.Draw(out, out.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	top := (th - h) / 2
	left := (tw - w) / 2
	draw.Draw(out, image.Rect(left, top, left+w, top+h), img, img.Bounds().Min, draw.Src)
	return out
}

// scaleArea downscales by area averaging: each output pixel is the mean
// of its covering source box. Only used for the half-size layouts.
func scaleArea(src *image.RGBA, dw, dh int) *image.RGBA {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy0 := y * sh / dh
		sy1 := (y + 1) * sh / dh
		if sy1 <= sy0 {
			sy1 = sy0 + 1
		}
		for x := 0; x < dw; x++ {
			sx0 := x * sw / dw
			sx1 := (x + 1) * sw / dw
			if sx1 <= sx0 {
				sx1 = sx0 + 1
			}
			var sum [4]int
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					i := sy*src.Stride + sx*4
					sum[0] += int(src.Pix[i+0])
					sum[1] += int(src.Pix[i+1])
					sum[2] += int(src.Pix[i+2])
					sum[3] += int(src.Pix[i+3])
				}
			}
			n := (sy1 - sy0) * (sx1 - sx0)
			o := y*out.Stride + x*4
			out.Pix[o+0] = uint8(sum[0] / n)
			out.Pix[o+1] = uint8(sum[1] / n)
			out.Pix[o+2] = uint8(sum[2] / n)
			out.Pix[o+3] = uint8(sum[3] / n)
		}
	}
	return out
}

func hstack(a, b *image.RGBA) *image.RGBA {
	aw, h := a.Bounds().Dx(), a.Bounds().Dy()
	bw := b.Bounds().Dx()
	out := image.NewRGBA(image.Rect(0, 0, aw+bw, h))
	draw.Draw(out, image.Rect(0, 0, aw, h), a, a.Bounds().Min, draw.Src)
	draw.Draw(out, image.Rect(aw, 0, aw+bw, h), b, b.Bounds().Min, draw.Src)
	return out
}

func vstack(a, b *image.RGBA) *image.RGBA {
	w, ah := a.Bounds().Dx(), a.Bounds().Dy()
	bh := b.Bounds().Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, ah+bh))
	draw.Draw(out, image.Rect(0, 0, w, ah), a, a.Bounds().Min, draw.Src)
	draw.Draw(out, image.Rect(0, ah, w, ah+bh), b, b.Bounds().Min, draw.Src)
	return out
}

// WriteJPEG encodes the image to path at the given quality.
func WriteJPEG(path string, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		return errors.New("jpeg quality 1..100")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	return f.Close()
}
