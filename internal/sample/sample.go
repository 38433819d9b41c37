// Package sample generates synthetic low-contrast images for trying out and
// benchmarking the equalizer.
package sample

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/aquilax/go-perlin"
)

// Params defines one synthetic image.
type Params struct {
	Tint     color.NRGBA
	Seed     int64
	Width    int
	Height   int
	Scale    float64 // noise feature size in pixels
	Contrast float64 // fraction of the 0..255 range the image spans
}

// WriteResult reports which samples were written or skipped.
type WriteResult struct {
	Written []string
	Skipped []string
}

var sampleTints = []color.NRGBA{
	{R: 160, G: 150, B: 140, A: 255}, // paper
	{R: 120, G: 140, B: 170, A: 255}, // overcast sky
	{R: 130, G: 150, B: 110, A: 255}, // foliage in haze
	{R: 150, G: 150, B: 150, A: 255}, // gray
}

// DefaultParams returns a square sample with a quarter of the tonal range.
func DefaultParams(size int, seed int64) Params {
	return Params{
		Width:    size,
		Height:   size,
		Seed:     seed,
		Scale:    float64(size) / 4,
		Contrast: 0.25,
		Tint:     sampleTints[0],
	}
}

// Generate renders Perlin noise plus a soft vignette, compressed into a
// narrow band of values around the tint's brightness.
func Generate(p Params) (*image.NRGBA, error) {
	if p.Width <= 0 || p.Height <= 0 {
		return nil, fmt.Errorf("sample size must be positive")
	}
	if p.Contrast < 0 || p.Contrast > 1 {
		return nil, fmt.Errorf("contrast must be within [0,1]")
	}
	scale := p.Scale
	if scale <= 0 {
		scale = float64(max(p.Width, p.Height)) / 4
	}

	// alpha 2 (persistence), beta 2 (lacunarity), 3 octaves
	noise := perlin.NewPerlin(2.0, 2.0, 3, p.Seed)

	tintMax := float64(max(p.Tint.R, p.Tint.G, p.Tint.B))
	if tintMax == 0 {
		tintMax = 1
	}
	span := p.Contrast * 255
	cx, cy := float64(p.Width-1)/2, float64(p.Height-1)/2
	maxDist := math.Hypot(cx, cy)
	if maxDist == 0 {
		maxDist = 1
	}

	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			n := (noise.Noise2D(float64(x)/scale, float64(y)/scale) + 1) / 2
			vignette := 1 - 0.3*math.Hypot(float64(x)-cx, float64(y)-cy)/maxDist
			t := clamp01(0.7*n + 0.3*vignette)

			// Target brightness, then scale the tint so its max channel hits it.
			v := tintMax - span/2 + t*span
			k := v / tintMax
			img.SetNRGBA(x, y, color.NRGBA{
				R: channel(float64(p.Tint.R) * k),
				G: channel(float64(p.Tint.G) * k),
				B: channel(float64(p.Tint.B) * k),
				A: 255,
			})
		}
	}
	return img, nil
}

// WriteSamples writes count samples named sample_NN.png into dir, cycling
// through a few tints and incrementing the seed.
func WriteSamples(dir string, size int, seed int64, count int, contrast float64, overwrite bool) (WriteResult, error) {
	result := WriteResult{}
	if count <= 0 {
		return result, fmt.Errorf("count must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("failed to create sample dir: %w", err)
	}

	for i := 0; i < count; i++ {
		path := filepath.Join(dir, fmt.Sprintf("sample_%02d.png", i+1))
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				result.Skipped = append(result.Skipped, path)
				continue
			}
		}

		p := DefaultParams(size, seed+int64(i))
		p.Contrast = contrast
		p.Tint = sampleTints[i%len(sampleTints)]

		img, err := Generate(p)
		if err != nil {
			return result, err
		}
		if err := writePNG(path, img); err != nil {
			return result, err
		}
		result.Written = append(result.Written, path)
	}
	return result, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
