// Package isolate turns a cropped dialog region into an OCR-friendly binary
// image.
//
// The game renders quest names in gold and dialogue in white/silver over a
// dark parchment background. Isolation masks those two color bands in HSV
// space, inverts the result so the text is black on a white field, crops to
// the text content, and upscales — Tesseract's accuracy degrades sharply on
// the native in-game font size, especially for accented characters.
//
// The whole pipeline is deterministic: bit-identical input produces
// bit-identical output.
package isolate

import (
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	// Gold/yellow band for quest-name text, hue in degrees.
	yellowHueMin = 30.0
	yellowHueMax = 70.0
	yellowSatMin = 70.0 / 255.0
	yellowValMin = 70.0 / 255.0

	// White/silver/light-gray band for dialogue text: bright, desaturated,
	// any hue.
	whiteValMin = 140.0 / 255.0
	whiteSatMax = 50.0 / 255.0

	// contentPad keeps character ascenders and descenders inside the crop.
	contentPad = 10

	// minContourArea drops isolated speckles below this pixel count before
	// the content bounding box is computed.
	minContourArea = 12

	// Upscale factors applied before re-thresholding, tuned against the
	// game's dialog font.
	scaleX = 4
	scaleY = 3
)

// Isolate converts the cropped dialog region into a single-channel binary
// image ready for classical OCR: black text on a white field, content-cropped
// and upscaled.
func Isolate(img image.Image) *image.Gray {
	mask := textMask(img)
	inverted := invert(mask)

	cropped := contentCrop(inverted, mask)

	w := cropped.Bounds().Dx() * scaleX
	h := cropped.Bounds().Dy() * scaleY
	scaled := imaging.Resize(cropped, w, h, imaging.Linear)

	// Linear interpolation smears the edges; threshold back to pure binary.
	return segment.Threshold(scaled, 128)
}

// textMask marks every pixel falling into the gold or white text band.
// The returned mask is index-aligned with a zero-origin copy of img.
func textMask(img image.Image) *boolMask {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := newBoolMask(w, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c, ok := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
			if !ok {
				continue
			}
			hue, sat, val := c.Hsv()
			yellow := hue >= yellowHueMin && hue <= yellowHueMax &&
				sat >= yellowSatMin && val >= yellowValMin
			white := val >= whiteValMin && sat <= whiteSatMax
			if yellow || white {
				mask.set(x, y)
			}
		}
	}
	return mask
}

// invert renders mask as a grayscale image with text pixels black (0) and
// everything else white (255).
func invert(mask *boolMask) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, mask.w, mask.h))
	for i := range out.Pix {
		if mask.bits[i] {
			out.Pix[i] = 0
		} else {
			out.Pix[i] = 255
		}
	}
	return out
}

// contentCrop crops img to the bounding box of all text contours (plus
// [contentPad]). Contours below [minContourArea] are treated as noise. When
// no contour survives the filter, img is returned uncropped — downstream OCR
// then simply sees an (almost) blank field.
func contentCrop(img *image.Gray, mask *boolMask) *image.Gray {
	box, ok := contentBounds(mask, minContourArea)
	if !ok {
		return img
	}

	box.Min.X = max(0, box.Min.X-contentPad)
	box.Min.Y = max(0, box.Min.Y-contentPad)
	box.Max.X = min(mask.w, box.Max.X+contentPad)
	box.Max.Y = min(mask.h, box.Max.Y+contentPad)

	out := image.NewGray(image.Rect(0, 0, box.Dx(), box.Dy()))
	for y := 0; y < box.Dy(); y++ {
		src := img.PixOffset(box.Min.X, box.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+box.Dx()], img.Pix[src:src+box.Dx()])
	}
	return out
}
