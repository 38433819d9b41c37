package equalize

import "math"

// RGBToHSV converts an 8-bit RGB triple to hue in degrees [0,360),
// saturation in [0,1] and value as the 0–255 level of the brightest channel.
//
// Hue is kept fractional so that RGB -> HSV -> RGB reproduces every channel
// within one level.
func RGBToHSV(r, g, b uint8) (h, s float64, v uint8) {
	maxv := max3(r, g, b)
	minv := min3(r, g, b)
	delta := int(maxv) - int(minv)

	if delta != 0 {
		d := float64(delta)
		switch maxv {
		case r:
			h = math.Mod(float64(int(g)-int(b))/d, 6)
		case g:
			h = float64(int(b)-int(r))/d + 2
		default:
			h = float64(int(r)-int(g))/d + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
		if h >= 360 {
			h -= 360
		}
	}

	if maxv != 0 {
		s = float64(delta) / float64(maxv)
	}
	return h, s, maxv
}

// HSVToRGB is the inverse of RGBToHSV. v is a (possibly fractional) level in
// [0,255]; each output channel is rounded half away from zero and clamped.
//
// The dominant channel is v itself, so the output value is exactly round(v).
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var rp, gp, bp float64
	switch {
	case h < 60:
		rp, gp, bp = v, x+m, m
	case h < 120:
		rp, gp, bp = x+m, v, m
	case h < 180:
		rp, gp, bp = m, v, x+m
	case h < 240:
		rp, gp, bp = m, x+m, v
	case h < 300:
		rp, gp, bp = x+m, m, v
	default:
		rp, gp, bp = v, m, x+m
	}

	return roundU8(rp), roundU8(gp), roundU8(bp)
}

// roundU8 rounds half away from zero and clamps to [0,255].
func roundU8(f float64) uint8 {
	f = math.Round(f)
	if f <= 0 || math.IsNaN(f) {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(f)
}

func max3(a, b, c uint8) uint8 {
	if a < b {
		a = b
	}
	if a < c {
		a = c
	}
	return a
}

func min3(a, b, c uint8) uint8 {
	if a > b {
		a = b
	}
	if a > c {
		a = c
	}
	return a
}
