package equalize

// Levels is the number of 8-bit intensity levels.
const Levels = 256

// Histogram counts samples per V level.
type Histogram [Levels]int

// MappingCurve maps an input V level to an output V level.
type MappingCurve [Levels]uint8

// BuildHistogram counts the levels of values.
func BuildHistogram(values []uint8) Histogram {
	var h Histogram
	for _, v := range values {
		h[v]++
	}
	return h
}

// Sum returns the total mass of the histogram.
func (h *Histogram) Sum() int {
	total := 0
	for _, c := range h {
		total += c
	}
	return total
}

// Cumulative returns the running sum of the bins.
func (h *Histogram) Cumulative() [Levels]int {
	var cdf [Levels]int
	cum := 0
	for k, c := range h {
		cum += c
		cdf[k] = cum
	}
	return cdf
}

// GlobalCurve builds the whole-image equalization curve
// map[k] = round((cdf[k]-minCdf) / max(n-minCdf, 1) * 255), where minCdf is
// the cumulative count at the first occupied level (0 for an empty histogram).
//
// An image with a single occupied level has minCdf == n and therefore maps
// every level to 0.
func GlobalCurve(h *Histogram) MappingCurve {
	cdf := h.Cumulative()
	n := cdf[Levels-1]

	minCdf := -1
	for k := range h {
		if h[k] > 0 {
			minCdf = cdf[k]
			break
		}
	}
	if minCdf < 0 {
		minCdf = 0
	}
	denom := max(n-minCdf, 1)

	var curve MappingCurve
	for k := range curve {
		curve[k] = roundU8(float64(cdf[k]-minCdf) / float64(denom) * 255)
	}
	return curve
}

// Apply maps every value through the curve in place.
func (c *MappingCurve) Apply(values []uint8) {
	for i, v := range values {
		values[i] = c[v]
	}
}
