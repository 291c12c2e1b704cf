package isolate

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

var (
	parchment = color.NRGBA{R: 40, G: 20, B: 10, A: 255} // dark background
	gold      = color.NRGBA{R: 255, G: 215, B: 0, A: 255}
	white     = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
)

// dialogImage builds a synthetic dialog crop: dark background with a gold
// "quest name" block and a white "dialogue" block.
func dialogImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	fill(img, img.Bounds(), parchment)
	fill(img, image.Rect(40, 20, 120, 32), gold)   // quest name line
	fill(img, image.Rect(40, 50, 160, 62), white)  // dialogue line
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func TestIsolate_BinaryOutput(t *testing.T) {
	out := Isolate(dialogImage())
	for i, p := range out.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("pixel %d = %d; output must be pure binary", i, p)
		}
	}
}

func TestIsolate_TextIsBlackOnWhite(t *testing.T) {
	out := Isolate(dialogImage())

	var black, total int
	for _, p := range out.Pix {
		if p == 0 {
			black++
		}
		total++
	}
	if black == 0 {
		t.Fatal("expected black text pixels in output")
	}
	// Text covers a minority of the field; the background must dominate.
	if black*2 > total {
		t.Errorf("black pixels dominate (%d of %d); inversion looks wrong", black, total)
	}
}

func TestIsolate_CropsToContent(t *testing.T) {
	out := Isolate(dialogImage())

	// Content bbox spans x 40-160, y 20-62 → padded crop is 140×62, then
	// upscaled by the fixed factors.
	wantW := 140 * scaleX
	wantH := 62 * scaleY
	if got := out.Bounds(); got.Dx() != wantW || got.Dy() != wantH {
		t.Errorf("output %dx%d, want %dx%d", got.Dx(), got.Dy(), wantW, wantH)
	}
}

func TestIsolate_Deterministic(t *testing.T) {
	a := Isolate(dialogImage())
	b := Isolate(dialogImage())
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("two runs over identical input produced different output")
	}
}

func TestIsolate_NoiseSpeckleIgnored(t *testing.T) {
	img := dialogImage()
	// A 2×2 white speckle far outside the text must not widen the crop.
	fill(img, image.Rect(190, 90, 192, 92), white)

	clean := Isolate(dialogImage())
	speckled := Isolate(img)
	if clean.Bounds() != speckled.Bounds() {
		t.Errorf("speckle changed crop: %v vs %v", speckled.Bounds(), clean.Bounds())
	}
}

func TestIsolate_BlankRegionStaysUncropped(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 80, 40))
	fill(img, img.Bounds(), parchment)

	out := Isolate(img)
	if got := out.Bounds(); got.Dx() != 80*scaleX || got.Dy() != 40*scaleY {
		t.Errorf("blank input should upscale uncropped, got %dx%d", got.Dx(), got.Dy())
	}
	for i, p := range out.Pix {
		if p != 255 {
			t.Fatalf("pixel %d = %d; blank input must yield an all-white field", i, p)
		}
	}
}

func TestContentBounds_AreaFilter(t *testing.T) {
	mask := newBoolMask(30, 30)
	// One real blob (5×5 = 25 px) and one speckle (2×2 = 4 px).
	for y := 10; y < 15; y++ {
		for x := 10; x < 15; x++ {
			mask.set(x, y)
		}
	}
	mask.set(25, 25)
	mask.set(26, 25)
	mask.set(25, 26)
	mask.set(26, 26)

	box, ok := contentBounds(mask, minContourArea)
	if !ok {
		t.Fatal("expected a surviving component")
	}
	want := image.Rect(10, 10, 15, 15)
	if box != want {
		t.Errorf("bounds = %v, want %v (speckle must be filtered)", box, want)
	}

	if _, ok := contentBounds(newBoolMask(10, 10), 1); ok {
		t.Error("empty mask must report no content")
	}
}
