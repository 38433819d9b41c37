package equalize

import "fmt"

// PixelBuffer holds Width*Height non-premultiplied RGBA samples, row-major,
// four bytes per pixel.
type PixelBuffer struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewPixelBuffer allocates a zeroed buffer of the given size.
func NewPixelBuffer(width, height int) PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return PixelBuffer{
		Pix:    make([]uint8, width*height*4),
		Width:  width,
		Height: height,
	}
}

// Len returns the number of pixels.
func (b PixelBuffer) Len() int {
	return b.Width * b.Height
}

// Validate reports ErrInvalidInput for empty or inconsistent buffers.
func (b PixelBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidInput, b.Width, b.Height)
	}
	if len(b.Pix) == 0 {
		return fmt.Errorf("%w: empty pixel data", ErrInvalidInput)
	}
	if want := b.Width * b.Height * 4; len(b.Pix) != want {
		return fmt.Errorf("%w: got %d samples, want %d for %dx%d", ErrInvalidInput, len(b.Pix), want, b.Width, b.Height)
	}
	return nil
}

// RGBA returns the samples of the pixel at (x, y).
func (b PixelBuffer) RGBA(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// SetRGBA sets the samples of the pixel at (x, y).
func (b PixelBuffer) SetRGBA(x, y int, r, g, bl, a uint8) {
	i := (y*b.Width + x) * 4
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
	b.Pix[i+3] = a
}

// Clone returns a deep copy.
func (b PixelBuffer) Clone() PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return PixelBuffer{Pix: pix, Width: b.Width, Height: b.Height}
}
