package depth

import (
	"image"
	"testing"
)

func TestNormalizeUniformFieldIsAllZeros(t *testing.T) {
	for _, v := range []float32{0, 1, -3.5, 1000} {
		f := NewField(4, 3)
		for i := range f.Values {
			f.Values[i] = v
		}
		gray := f.Normalize()
		for i, p := range gray.Pix {
			if p != 0 {
				t.Fatalf("uniform field (v=%v) normalized pix[%d] = %d; want 0", v, i, p)
			}
		}
	}
}

func TestNormalizeMinMaxMapping(t *testing.T) {
	f := NewField(2, 2)
	f.Values = []float32{-10, 0, 10, 30}
	gray := f.Normalize()

	if got := gray.GrayAt(0, 0).Y; got != 0 {
		t.Errorf("minimum value mapped to %d; want 0", got)
	}
	if got := gray.GrayAt(1, 1).Y; got != 255 {
		t.Errorf("maximum value mapped to %d; want 255", got)
	}
	// -10..30 spans 40; 0 sits at 10/40 = 63.75, truncated to 63.
	if got := gray.GrayAt(1, 0).Y; got != 63 {
		t.Errorf("mid value mapped to %d; want 63", got)
	}
}

func TestNormalizeEmptyField(t *testing.T) {
	f := &Field{W: 0, H: 0}
	gray := f.Normalize()
	if gray.Bounds().Dx() != 0 || gray.Bounds().Dy() != 0 {
		t.Errorf("empty field normalized to %v; want empty", gray.Bounds())
	}
}

func TestFuncAdapter(t *testing.T) {
	called := false
	est := Func(func(img image.Image) (*Field, error) {
		called = true
		b := img.Bounds()
		return NewField(b.Dx(), b.Dy()), nil
	})

	img := image.NewRGBA(image.Rect(0, 0, 5, 7))
	f, err := est.EstimateDepth(img)
	if err != nil {
		t.Fatalf("EstimateDepth returned error: %v", err)
	}
	if !called {
		t.Error("adapter did not call the wrapped function")
	}
	if f.W != 5 || f.H != 7 {
		t.Errorf("field size = %dx%d; want 5x7", f.W, f.H)
	}
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in      string
		want    Variant
		wantErr bool
	}{
		{"vits", VariantSmall, false},
		{"vitb", VariantBase, false},
		{"vitl", VariantLarge, false},
		{"Large", VariantLarge, false},
		{" small ", VariantSmall, false},
		{"huge", "", true},
	}
	for _, tt := range tests {
		got, err := ParseVariant(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVariant(%q) error = %v; wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVariant(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestVariantModelFile(t *testing.T) {
	if got := VariantBase.ModelFile(); got != "depth_anything_v2_vitb.onnx" {
		t.Errorf("ModelFile() = %q", got)
	}
}
