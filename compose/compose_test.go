package compose

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

var (
	red  = color.RGBA{R: 200, A: 255}
	blue = color.RGBA{B: 200, A: 255}
)

func TestPadToCanvasOddPixelGoesTrailing(t *testing.T) {
	// 100x60 onto 101x61: floor-division centering puts the extra pixel
	// on the bottom/right margin.
	img := solidImage(100, 60, red)
	out := PadToCanvas(img, 101, 61)

	if out.Bounds().Dx() != 101 || out.Bounds().Dy() != 61 {
		t.Fatalf("canvas size = %dx%d; want 101x61", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// Image occupies rows 0..59 and columns 0..99.
	if got := out.RGBAAt(0, 0); got != red {
		t.Errorf("top-left = %v; want image pixel", got)
	}
	if got := out.RGBAAt(99, 59); got != red {
		t.Errorf("bottom-right of image area = %v; want image pixel", got)
	}
	black := color.RGBA{A: 255}
	if got := out.RGBAAt(100, 0); got != black {
		t.Errorf("right margin = %v; want black", got)
	}
	if got := out.RGBAAt(0, 60); got != black {
		t.Errorf("bottom margin = %v; want black", got)
	}
}

func TestPadToCanvasEvenMarginsCentered(t *testing.T) {
	img := solidImage(4, 2, red)
	out := PadToCanvas(img, 8, 6)
	black := color.RGBA{A: 255}

	if got := out.RGBAAt(1, 2); got != black {
		t.Errorf("left margin = %v; want black", got)
	}
	if got := out.RGBAAt(2, 2); got != red {
		t.Errorf("image origin = %v; want image pixel", got)
	}
	if got := out.RGBAAt(5, 3); got != red {
		t.Errorf("image end = %v; want image pixel", got)
	}
	if got := out.RGBAAt(6, 3); got != black {
		t.Errorf("right margin = %v; want black", got)
	}
}

func TestCompositeDimensions(t *testing.T) {
	const w, h = 64, 48
	left := solidImage(w, h, red)
	right := solidImage(w, h, blue)

	tests := []struct {
		layout Layout
		wantW  int
		wantH  int
	}{
		{HSBS, w, h},
		{FSBS, 2 * w, h},
		{HOU, w, h},
		{FOU, w, 2 * h},
	}
	for _, tt := range tests {
		out := Composite(left, right, Options{Layout: tt.layout, Order: LeftFirst})
		if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
			t.Errorf("%v: output = %dx%d; want %dx%d",
				tt.layout, out.Bounds().Dx(), out.Bounds().Dy(), tt.wantW, tt.wantH)
		}
	}
}

func TestCompositeEyeOrder(t *testing.T) {
	left := solidImage(8, 8, red)
	right := solidImage(8, 8, blue)

	out := Composite(left, right, Options{Layout: FSBS, Order: LeftFirst})
	if got := out.RGBAAt(0, 0); got != red {
		t.Errorf("LEFT order: first half = %v; want left eye", got)
	}
	if got := out.RGBAAt(8, 0); got != blue {
		t.Errorf("LEFT order: second half = %v; want right eye", got)
	}

	out = Composite(left, right, Options{Layout: FSBS, Order: RightFirst})
	if got := out.RGBAAt(0, 0); got != blue {
		t.Errorf("RIGHT order: first half = %v; want right eye", got)
	}

	out = Composite(left, right, Options{Layout: FOU, Order: RightFirst})
	if got := out.RGBAAt(0, 0); got != blue {
		t.Errorf("RIGHT order FOU: top = %v; want right eye", got)
	}
	if got := out.RGBAAt(0, 8); got != red {
		t.Errorf("RIGHT order FOU: bottom = %v; want left eye", got)
	}
}

func TestCompositeWithPadding(t *testing.T) {
	left := solidImage(4, 4, red)
	right := solidImage(4, 4, blue)
	out := Composite(left, right, Options{
		Layout: FSBS, Order: LeftFirst, TargetWidth: 6, TargetHeight: 6,
	})
	if out.Bounds().Dx() != 12 || out.Bounds().Dy() != 6 {
		t.Fatalf("padded FSBS = %dx%d; want 12x6", out.Bounds().Dx(), out.Bounds().Dy())
	}
	black := color.RGBA{A: 255}
	if got := out.RGBAAt(0, 0); got != black {
		t.Errorf("padded corner = %v; want black", got)
	}
	if got := out.RGBAAt(2, 2); got != red {
		t.Errorf("padded center = %v; want left eye", got)
	}
}

func TestScaleAreaAveragesBoxes(t *testing.T) {
	// Alternating 0/255 columns average to 127 when halved.
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			v := uint8(0)
			if x%2 == 1 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	out := scaleArea(img, 2, 2)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := out.RGBAAt(x, y).R; got != 127 {
				t.Errorf("(%d,%d) = %d; want 127", x, y, got)
			}
		}
	}
}

func TestParseLayoutAndEyeOrder(t *testing.T) {
	for _, s := range []string{"HSBS", "FSBS", "HOU", "FOU"} {
		if _, err := ParseLayout(s); err != nil {
			t.Errorf("ParseLayout(%q) error = %v", s, err)
		}
	}
	if _, err := ParseLayout("SBS"); err == nil {
		t.Error("ParseLayout(SBS) should fail")
	}
	if o, err := ParseEyeOrder("right"); err != nil || o != RightFirst {
		t.Errorf("ParseEyeOrder(right) = %v, %v", o, err)
	}
	if _, err := ParseEyeOrder("top"); err == nil {
		t.Error("ParseEyeOrder(top) should fail")
	}
}
