// Package capture acquires raw frames from a display.
//
// The [Source] interface is the seam the pipeline depends on; [ScreenSource]
// is the production implementation backed by the operating system's screen
// capture facility. Tests inject fake sources that return synthetic frames.
package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// Source produces one frame of the configured monitor per call.
//
// Implementations must be safe for concurrent use; the pipeline itself is
// single-flight, but background calibration captures may overlap a run.
type Source interface {
	// Capture grabs the current contents of the monitor with the given
	// 1-based index. Implementations clamp out-of-range indices to the
	// primary monitor instead of failing, matching the behaviour players
	// expect when a secondary display is unplugged mid-session.
	Capture(ctx context.Context, monitor int) (image.Image, error)
}

// ScreenSource captures frames from the local displays.
type ScreenSource struct{}

var _ Source = ScreenSource{}

// NewScreenSource returns a [ScreenSource].
func NewScreenSource() ScreenSource {
	return ScreenSource{}
}

// Capture implements [Source].
func (ScreenSource) Capture(ctx context.Context, monitor int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("capture: no active displays")
	}

	// Config numbers monitors from 1; the capture API from 0.
	idx := monitor - 1
	if idx < 0 || idx >= n {
		idx = 0
	}

	img, err := screenshot.CaptureDisplay(idx)
	if err != nil {
		return nil, fmt.Errorf("capture: display %d: %w", idx, err)
	}
	return img, nil
}
