package equalize

// hsvPlanes are the per-pixel channels of one image. Only val is rewritten.
type hsvPlanes struct {
	hue []float64
	sat []float64
	val []uint8
}

func toHSV(src PixelBuffer) hsvPlanes {
	n := src.Len()
	p := hsvPlanes{
		hue: make([]float64, n),
		sat: make([]float64, n),
		val: make([]uint8, n),
	}
	for i, o := 0, 0; i < n; i, o = i+1, o+4 {
		p.hue[i], p.sat[i], p.val[i] = RGBToHSV(src.Pix[o], src.Pix[o+1], src.Pix[o+2])
	}
	return p
}

// Enhance runs the configured equalization over src and returns a new buffer
// of the same size with alpha forced to 255. src is never modified.
//
// The config is normalized first, so out-of-range values are clamped rather
// than rejected. Only an empty or inconsistent buffer is an error.
func Enhance(src PixelBuffer, cfg Config) (PixelBuffer, error) {
	if err := src.Validate(); err != nil {
		return PixelBuffer{}, err
	}
	cfg = cfg.Normalize()

	planes := toHSV(src)
	if cfg.Mode == ModeGlobal {
		return equalizeGlobal(src, planes, cfg.Strength), nil
	}
	return equalizeCLAHE(src, planes, cfg), nil
}

func equalizeGlobal(src PixelBuffer, planes hsvPlanes, alpha float64) PixelBuffer {
	hist := BuildHistogram(planes.val)
	curve := GlobalCurve(&hist)

	dst := NewPixelBuffer(src.Width, src.Height)
	for i, o := 0, 0; i < len(planes.val); i, o = i+1, o+4 {
		r, g, b := HSVToRGB(planes.hue[i], planes.sat[i], float64(curve[planes.val[i]]))
		dst.Pix[o] = BlendChannel(src.Pix[o], r, alpha)
		dst.Pix[o+1] = BlendChannel(src.Pix[o+1], g, alpha)
		dst.Pix[o+2] = BlendChannel(src.Pix[o+2], b, alpha)
		dst.Pix[o+3] = 255
	}
	return dst
}

func equalizeCLAHE(src PixelBuffer, planes hsvPlanes, cfg Config) PixelBuffer {
	grid := BuildTileGrid(planes.val, src.Width, src.Height, cfg.TileSize)
	grid.Equalize(cfg.ClipLimit)

	dst := NewPixelBuffer(src.Width, src.Height)
	for y, p := 0, 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x, p = x+1, p+1 {
			v0 := planes.val[p]
			newV := BlendValue(v0, grid.Map(x, y, v0), cfg.Strength)
			r, g, b := HSVToRGB(planes.hue[p], planes.sat[p], newV)

			o := p * 4
			dst.Pix[o] = r
			dst.Pix[o+1] = g
			dst.Pix[o+2] = b
			dst.Pix[o+3] = 255
		}
	}
	return dst
}
