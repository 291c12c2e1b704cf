package locate

import (
	"errors"
	"image"
	"math/rand"
	"testing"
)

// noiseFrame builds a deterministic pseudo-random grayscale frame. Noise keeps
// template correlation elsewhere in the frame well below the threshold.
func noiseFrame(w, h int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	return img
}

// cropGray copies the w×h window at (x, y) out of img.
func cropGray(img *image.Gray, x, y, w, h int) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		src := img.PixOffset(x, y+row)
		copy(out.Pix[row*out.Stride:row*out.Stride+w], img.Pix[src:src+w])
	}
	return out
}

// testScene embeds four 20×20 corner patches into a noise frame so that the
// tight (unpadded) dialog box spans (60,40)-(300,200), and returns the frame
// together with a template set cut from the exact patch positions.
func testScene(t *testing.T) (*image.Gray, *TemplateSet) {
	t.Helper()
	frame := noiseFrame(400, 300, 1)

	const tpl = 20
	set := &TemplateSet{
		TopLeft:     cropGray(frame, 60, 40, tpl, tpl),
		TopRight:    cropGray(frame, 280, 40, tpl, tpl),
		BottomLeft:  cropGray(frame, 60, 180, tpl, tpl),
		BottomRight: cropGray(frame, 280, 180, tpl, tpl),
	}
	return frame, set
}

func TestLocate_FindsTightRegion(t *testing.T) {
	frame, set := testScene(t)
	loc := NewLocator(set)

	r, err := loc.Locate(frame, Padding{})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	want := Region{X: 60, Y: 40, W: 240, H: 160}
	if r != want {
		t.Errorf("region = %+v, want %+v", r, want)
	}
	if r.W < minRegionSide || r.H < minRegionSide {
		t.Errorf("region %dx%d violates the minimum size invariant", r.W, r.H)
	}
}

func TestLocate_PaddingIsPerSide(t *testing.T) {
	frame, set := testScene(t)
	loc := NewLocator(set)

	base, err := loc.Locate(frame, Padding{})
	if err != nil {
		t.Fatalf("Locate (unpadded): %v", err)
	}

	r, err := loc.Locate(frame, Padding{Right: 50})
	if err != nil {
		t.Fatalf("Locate (padded): %v", err)
	}
	if r.X != base.X || r.Y != base.Y || r.H != base.H {
		t.Errorf("padding_right must not move the other edges: %+v vs %+v", r, base)
	}
	if got := (r.X + r.W) - (base.X + base.W); got != 50 {
		t.Errorf("right edge moved by %d, want exactly 50", got)
	}
}

func TestLocate_PaddingClipsToFrame(t *testing.T) {
	frame, set := testScene(t)
	loc := NewLocator(set)

	r, err := loc.Locate(frame, Padding{Top: 999, Bottom: 999, Left: 999, Right: 999})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	want := Region{X: 0, Y: 0, W: 400, H: 300}
	if r != want {
		t.Errorf("clipped region = %+v, want full frame %+v", r, want)
	}
}

func TestLocate_MissingCornerFails(t *testing.T) {
	frame, set := testScene(t)

	// Erase the top-right patch from the frame; its template can no longer
	// match anywhere above threshold.
	for y := 40; y < 60; y++ {
		for x := 280; x < 300; x++ {
			frame.Pix[frame.PixOffset(x, y)] = 128
		}
	}

	loc := NewLocator(set)
	if _, err := loc.Locate(frame, Padding{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocate_NoTemplateSet(t *testing.T) {
	frame := noiseFrame(200, 200, 2)
	loc := NewLocator(nil)
	if loc.Ready() {
		t.Error("Ready must be false without a template set")
	}
	if _, err := loc.Locate(frame, Padding{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocate_DegenerateRegionRejected(t *testing.T) {
	frame := noiseFrame(200, 200, 3)
	const tpl = 20
	set := &TemplateSet{
		TopLeft:     cropGray(frame, 10, 10, tpl, tpl),
		TopRight:    cropGray(frame, 30, 10, tpl, tpl),
		BottomLeft:  cropGray(frame, 10, 30, tpl, tpl),
		BottomRight: cropGray(frame, 30, 30, tpl, tpl),
	}
	loc := NewLocator(set)

	// Tight box is 40×40, below the 50×50 floor.
	if _, err := loc.Locate(frame, Padding{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for 40x40 region, got %v", err)
	}
}

func TestAnnotate_DrawsInsideBounds(t *testing.T) {
	frame := noiseFrame(100, 80, 4)
	out := Annotate(frame, Region{X: 90, Y: 70, W: 40, H: 40})
	if got := out.Bounds(); got.Dx() != 100 || got.Dy() != 80 {
		t.Errorf("annotated bounds = %v", got)
	}
}
