package isolate

import "image"

// boolMask is a dense 2D bitmap over a zero-origin w×h grid.
type boolMask struct {
	w, h int
	bits []bool
}

func newBoolMask(w, h int) *boolMask {
	return &boolMask{w: w, h: h, bits: make([]bool, w*h)}
}

func (m *boolMask) set(x, y int)     { m.bits[y*m.w+x] = true }
func (m *boolMask) at(x, y int) bool { return m.bits[y*m.w+x] }

// contentBounds finds connected components of set pixels in mask and returns
// the union bounding box of every component with at least minArea pixels.
// Returns ok=false when no component survives the area filter.
//
// Components use 8-connectivity and an iterative stack-based flood fill, so
// large text blobs cannot overflow the goroutine stack.
func contentBounds(mask *boolMask, minArea int) (image.Rectangle, bool) {
	visited := make([]bool, len(mask.bits))

	var (
		union image.Rectangle
		found bool
	)

	for sy := 0; sy < mask.h; sy++ {
		for sx := 0; sx < mask.w; sx++ {
			if !mask.at(sx, sy) || visited[sy*mask.w+sx] {
				continue
			}

			// Flood-fill one component, tracking its extent and size.
			area := 0
			box := image.Rect(sx, sy, sx+1, sy+1)
			stack := []image.Point{{X: sx, Y: sy}}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if p.X < 0 || p.X >= mask.w || p.Y < 0 || p.Y >= mask.h {
					continue
				}
				idx := p.Y*mask.w + p.X
				if visited[idx] || !mask.bits[idx] {
					continue
				}
				visited[idx] = true
				area++

				box.Min.X = min(box.Min.X, p.X)
				box.Min.Y = min(box.Min.Y, p.Y)
				box.Max.X = max(box.Max.X, p.X+1)
				box.Max.Y = max(box.Max.Y, p.Y+1)

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if dx == 0 && dy == 0 {
							continue
						}
						stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
					}
				}
			}

			if area < minArea {
				continue
			}
			if !found {
				union = box
				found = true
			} else {
				union = union.Union(box)
			}
		}
	}
	return union, found
}
