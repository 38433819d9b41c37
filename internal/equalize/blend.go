package equalize

// BlendValue mixes an original and a mapped V level by alpha and returns the
// fractional level (1-alpha)*orig + alpha*mapped. CLAHE blends here, before
// recombination.
func BlendValue(orig, mapped uint8, alpha float64) float64 {
	return (1-alpha)*float64(orig) + alpha*float64(mapped)
}

// BlendChannel mixes one 8-bit channel of the original and the enhanced
// pixel by alpha, rounding half away from zero. Global HE blends here, after
// recombination.
func BlendChannel(orig, enhanced uint8, alpha float64) uint8 {
	return roundU8((1-alpha)*float64(orig) + alpha*float64(enhanced))
}
