// Package stats measures the contrast of a pixel buffer's value channel so
// callers can report what an enhancement changed.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/MeKo-Tech/histeq/internal/equalize"
)

// Contrast summarizes the V channel (max of R, G, B) of an image.
type Contrast struct {
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Entropy float64 `json:"entropy_bits"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
}

// Range is the spread between the darkest and brightest value level.
func (c Contrast) Range() int {
	return c.Max - c.Min
}

func (c Contrast) String() string {
	return fmt.Sprintf("mean=%.1f sd=%.1f entropy=%.2fbits range=%d..%d", c.Mean, c.StdDev, c.Entropy, c.Min, c.Max)
}

// Measure computes contrast statistics of buf. An empty buffer yields the
// zero value.
func Measure(buf equalize.PixelBuffer) Contrast {
	n := buf.Len()
	if n == 0 || len(buf.Pix) < n*4 {
		return Contrast{}
	}

	var hist equalize.Histogram
	for i := 0; i < n; i++ {
		o := i * 4
		_, _, v := equalize.RGBToHSV(buf.Pix[o], buf.Pix[o+1], buf.Pix[o+2])
		hist[v]++
	}
	return FromHistogram(&hist)
}

// FromHistogram computes contrast statistics from a value histogram.
func FromHistogram(h *equalize.Histogram) Contrast {
	total := h.Sum()
	if total == 0 {
		return Contrast{}
	}

	levels := make([]float64, equalize.Levels)
	weights := make([]float64, equalize.Levels)
	probs := make([]float64, equalize.Levels)
	c := Contrast{Min: -1}
	for k, count := range h {
		levels[k] = float64(k)
		weights[k] = float64(count)
		probs[k] = float64(count) / float64(total)
		if count > 0 {
			if c.Min < 0 {
				c.Min = k
			}
			c.Max = k
		}
	}

	c.Mean, c.StdDev = stat.PopMeanStdDev(levels, weights)
	// stat.Entropy is in nats
	c.Entropy = stat.Entropy(probs) / math.Ln2
	return c
}
