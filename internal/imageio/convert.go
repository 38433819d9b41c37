package imageio

import (
	"image"
	"math"

	"github.com/disintegration/gift"
	"golang.org/x/image/draw"

	"github.com/MeKo-Tech/histeq/internal/equalize"
)

// DefaultMaxDimension bounds both sides of an image before it is enhanced.
const DefaultMaxDimension = 1600

// FitSize scales w x h down to fit within maxW x maxH, preserving the aspect
// ratio and never upscaling. Scaled sides are rounded to the nearest pixel.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 || maxW <= 0 || maxH <= 0 {
		return w, h
	}
	r := math.Min(math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h)), 1)
	fw := max(1, int(math.Round(float64(w)*r)))
	fh := max(1, int(math.Round(float64(h)*r)))
	return fw, fh
}

// Fit downsamples img so neither side exceeds maxDim. Images that already fit
// are returned unchanged; maxDim <= 0 disables the bound.
func Fit(img image.Image, maxDim int) image.Image {
	if img == nil || maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxDim, maxDim)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	g := gift.New(gift.Resize(w, h, gift.LinearResampling))
	dst := image.NewNRGBA(g.Bounds(b))
	g.Draw(dst, img)
	return dst
}

// ToBuffer copies img into a non-premultiplied RGBA pixel buffer anchored at
// the origin.
func ToBuffer(img image.Image) equalize.PixelBuffer {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != b.Dx()*4 {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	buf := equalize.NewPixelBuffer(b.Dx(), b.Dy())
	copy(buf.Pix, nrgba.Pix)
	return buf
}

// FromBuffer wraps a copy of the buffer as an image.
func FromBuffer(buf equalize.PixelBuffer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	copy(img.Pix, buf.Pix)
	return img
}
