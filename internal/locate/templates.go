// Package locate finds the quest-dialog bounding box in a captured frame by
// matching four corner template images against it.
//
// Matching is all-or-nothing: every corner template must score above the
// correlation threshold or localization fails. Earlier designs fell back to
// color/contour heuristics when a corner was missing; partial guesses produced
// unreliable crops, so the fallbacks were removed.
package locate

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Template file names inside the templates directory. The calibration UI
// writes grayscale PNG crops under exactly these names.
const (
	FileTopLeft     = "top_left.png"
	FileTopRight    = "top_right.png"
	FileBottomLeft  = "bottom_left.png"
	FileBottomRight = "bottom_right.png"
)

// TemplateSet holds the four grayscale corner templates. A set is immutable
// once loaded; calibration replaces it wholesale via [Locator.Reload].
type TemplateSet struct {
	TopLeft     *image.Gray
	TopRight    *image.Gray
	BottomLeft  *image.Gray
	BottomRight *image.Gray
}

// LoadTemplateSet loads all four corner templates from dir. If any one file
// is missing or unreadable, the whole load fails — a partial set would only
// ever produce partial matches, which the locator rejects anyway.
func LoadTemplateSet(dir string) (*TemplateSet, error) {
	load := func(name string) (*image.Gray, error) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("locate: template %q: %w", path, err)
		}
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("locate: open template %q: %w", path, err)
		}
		return ToGray(img), nil
	}

	var (
		set TemplateSet
		err error
	)
	if set.TopLeft, err = load(FileTopLeft); err != nil {
		return nil, err
	}
	if set.TopRight, err = load(FileTopRight); err != nil {
		return nil, err
	}
	if set.BottomLeft, err = load(FileBottomLeft); err != nil {
		return nil, err
	}
	if set.BottomRight, err = load(FileBottomRight); err != nil {
		return nil, err
	}
	return &set, nil
}

// ToGray converts img to an 8-bit grayscale image using the standard
// luminance weights. The result shares no memory with img.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		b := g.Bounds()
		out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			src := g.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], g.Pix[src:src+b.Dx()])
		}
		return out
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luminance.
			lum := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			out.Pix[out.PixOffset(x-b.Min.X, y-b.Min.Y)] = uint8(lum)
		}
	}
	return out
}
