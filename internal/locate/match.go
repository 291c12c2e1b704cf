package locate

import (
	"image"
	"math"
)

// matchResult is the best-scoring position of a template inside a frame.
type matchResult struct {
	X, Y  int
	Score float64
}

// matchTemplate slides tpl over frame and returns the position with the
// highest zero-mean normalized cross-correlation score. Scores are in
// [-1, 1]; 1 means a pixel-perfect match up to brightness and contrast.
//
// The frame's window sums are taken from integral images so each candidate
// position costs one pass over the template, independent of frame size.
func matchTemplate(frame, tpl *image.Gray) matchResult {
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	tw, th := tpl.Bounds().Dx(), tpl.Bounds().Dy()

	best := matchResult{Score: -1}
	if tw == 0 || th == 0 || tw > fw || th > fh {
		return best
	}

	// Zero-mean template and its energy.
	n := tw * th
	var tplSum float64
	for y := 0; y < th; y++ {
		row := tpl.Pix[y*tpl.Stride : y*tpl.Stride+tw]
		for _, p := range row {
			tplSum += float64(p)
		}
	}
	tplMean := tplSum / float64(n)

	tplZero := make([]float64, n)
	var tplEnergy float64
	for y := 0; y < th; y++ {
		row := tpl.Pix[y*tpl.Stride : y*tpl.Stride+tw]
		for x, p := range row {
			v := float64(p) - tplMean
			tplZero[y*tw+x] = v
			tplEnergy += v * v
		}
	}
	if tplEnergy == 0 {
		// A flat template correlates equally with everything.
		return best
	}

	sum, sqSum := integralImages(frame)

	for y := 0; y+th <= fh; y++ {
		for x := 0; x+tw <= fw; x++ {
			winSum := windowSum(sum, fw, x, y, tw, th)
			winSq := windowSum(sqSum, fw, x, y, tw, th)
			winVar := winSq - winSum*winSum/float64(n)
			if winVar <= 0 {
				continue
			}

			// Σ f·t' equals Σ (f - f̄)·t' because Σ t' = 0.
			var dot float64
			for ty := 0; ty < th; ty++ {
				row := frame.Pix[(y+ty)*frame.Stride+x : (y+ty)*frame.Stride+x+tw]
				tRow := tplZero[ty*tw : ty*tw+tw]
				for tx, p := range row {
					dot += float64(p) * tRow[tx]
				}
			}

			score := dot / math.Sqrt(winVar*tplEnergy)
			if score > best.Score {
				best = matchResult{X: x, Y: y, Score: score}
			}
		}
	}
	return best
}

// integralImages returns the summed-area tables of frame's pixel values and
// squared pixel values. Both tables have (width+1)×(height+1) entries with a
// zero border row/column, so window sums need no bounds special-casing.
func integralImages(frame *image.Gray) (sum, sqSum []float64) {
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	sum = make([]float64, (w+1)*(h+1))
	sqSum = make([]float64, (w+1)*(h+1))

	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		src := frame.Pix[y*frame.Stride : y*frame.Stride+w]
		for x := 0; x < w; x++ {
			v := float64(src[x])
			rowSum += v
			rowSq += v * v
			idx := (y+1)*(w+1) + x + 1
			sum[idx] = sum[idx-(w+1)] + rowSum
			sqSum[idx] = sqSum[idx-(w+1)] + rowSq
		}
	}
	return sum, sqSum
}

// windowSum reads the sum of the w×h window at (x, y) from a summed-area
// table built by [integralImages] for a frame of width fw.
func windowSum(table []float64, fw, x, y, w, h int) float64 {
	stride := fw + 1
	return table[(y+h)*stride+x+w] - table[y*stride+x+w] - table[(y+h)*stride+x] + table[y*stride+x]
}
