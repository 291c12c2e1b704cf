package locate

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync"
)

// ErrNotFound is returned by [Locator.Locate] when the dialog region cannot
// be localized: a corner template scored below the threshold, no template set
// is loaded, or the resulting box is degenerate.
var ErrNotFound = errors.New("locate: dialog region not found")

// DefaultThreshold is the minimum correlation score for a corner template to
// count as found. Raising it trades recall for precision; 0.80 holds up well
// against the game's static dialog chrome.
const DefaultThreshold = 0.80

// Regions smaller than this on either side are treated as degenerate matches.
const minRegionSide = 50

// Region is an axis-aligned rectangle in frame coordinates.
type Region struct {
	X, Y, W, H int
}

// Rect returns the region as an [image.Rectangle].
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// Padding expands a detected region independently on each side. All values
// are >= 0; the UI chrome around the dialog box is asymmetric, so the four
// sides are configured separately.
type Padding struct {
	Top, Bottom, Left, Right int
}

// Locator matches a [TemplateSet] against captured frames.
//
// Locator is safe for concurrent use; [Locator.Reload] swaps the template set
// wholesale without disturbing an in-flight Locate.
type Locator struct {
	// Threshold is the minimum per-corner correlation score. Defaults to
	// [DefaultThreshold] when constructed via [NewLocator].
	Threshold float64

	mu  sync.RWMutex
	set *TemplateSet
}

// NewLocator creates a Locator over set. A nil set is allowed and simply
// disables localization until [Locator.Reload] succeeds.
func NewLocator(set *TemplateSet) *Locator {
	return &Locator{Threshold: DefaultThreshold, set: set}
}

// Reload loads a fresh template set from dir and replaces the current one.
// On failure the previous set stays active.
func (l *Locator) Reload(dir string) error {
	set, err := LoadTemplateSet(dir)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.set = set
	l.mu.Unlock()
	slog.Info("template set reloaded", "dir", dir)
	return nil
}

// Ready reports whether a template set is loaded.
func (l *Locator) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set != nil
}

// Locate finds the dialog bounding box in frame.
//
// Each of the four corner templates is matched against the grayscale frame;
// if any corner scores below the threshold the whole localization fails with
// [ErrNotFound]. The tight box spanned by the corner matches is expanded by
// pad (clipped to the frame) and rejected if smaller than 50×50.
func (l *Locator) Locate(frame image.Image, pad Padding) (Region, error) {
	l.mu.RLock()
	set := l.set
	l.mu.RUnlock()
	if set == nil {
		return Region{}, fmt.Errorf("%w: no template set loaded", ErrNotFound)
	}

	gray := ToGray(frame)
	fw, fh := gray.Bounds().Dx(), gray.Bounds().Dy()

	corners := []struct {
		name string
		tpl  *image.Gray
	}{
		{"top_left", set.TopLeft},
		{"top_right", set.TopRight},
		{"bottom_left", set.BottomLeft},
		{"bottom_right", set.BottomRight},
	}

	found := make(map[string]matchResult, len(corners))
	for _, c := range corners {
		m := matchTemplate(gray, c.tpl)
		if m.Score < l.Threshold {
			slog.Debug("corner template below threshold",
				"corner", c.name, "score", m.Score, "threshold", l.Threshold)
			return Region{}, fmt.Errorf("%w: corner %s scored %.3f", ErrNotFound, c.name, m.Score)
		}
		found[c.name] = m
	}

	x1 := min(found["top_left"].X, found["bottom_left"].X)
	y1 := min(found["top_left"].Y, found["top_right"].Y)
	x2 := max(
		found["top_right"].X+set.TopRight.Bounds().Dx(),
		found["bottom_right"].X+set.BottomRight.Bounds().Dx(),
	)
	y2 := max(
		found["bottom_left"].Y+set.BottomLeft.Bounds().Dy(),
		found["bottom_right"].Y+set.BottomRight.Bounds().Dy(),
	)

	x1 = max(0, x1-pad.Left)
	y1 = max(0, y1-pad.Top)
	x2 = min(fw, x2+pad.Right)
	y2 = min(fh, y2+pad.Bottom)

	w, h := x2-x1, y2-y1
	if w < minRegionSide || h < minRegionSide {
		return Region{}, fmt.Errorf("%w: degenerate region %dx%d", ErrNotFound, w, h)
	}

	slog.Debug("dialog region localized", "x", x1, "y", y1, "w", w, "h", h)
	return Region{X: x1, Y: y1, W: w, H: h}, nil
}

// Annotate returns a copy of frame with the region outlined. Used for the
// debug artifact consumed by the calibration UI.
func Annotate(frame image.Image, r Region) *image.NRGBA {
	b := frame.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), frame, b.Min, draw.Src)

	green := color.NRGBA{G: 255, A: 255}
	const stroke = 3
	rect := r.Rect()
	for t := 0; t < stroke; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			setIfInside(out, x, rect.Min.Y+t, green)
			setIfInside(out, x, rect.Max.Y-1-t, green)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			setIfInside(out, rect.Min.X+t, y, green)
			setIfInside(out, rect.Max.X-1-t, y, green)
		}
	}
	return out
}

func setIfInside(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}
