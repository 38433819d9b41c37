package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/histeq/internal/equalize"
)

func TestFromHistogramUniform(t *testing.T) {
	var h equalize.Histogram
	for k := range h {
		h[k] = 4
	}

	c := FromHistogram(&h)
	assert.InDelta(t, 127.5, c.Mean, 1e-9)
	assert.InDelta(t, 8.0, c.Entropy, 1e-9)
	assert.Equal(t, 0, c.Min)
	assert.Equal(t, 255, c.Max)
	assert.Equal(t, 255, c.Range())
	// population std-dev of 0..255
	assert.InDelta(t, 73.9002, c.StdDev, 1e-3)
}

func TestFromHistogramSingleLevel(t *testing.T) {
	var h equalize.Histogram
	h[42] = 10

	c := FromHistogram(&h)
	assert.InDelta(t, 42.0, c.Mean, 1e-9)
	assert.InDelta(t, 0.0, c.StdDev, 1e-9)
	assert.InDelta(t, 0.0, c.Entropy, 1e-9)
	assert.Equal(t, 0, c.Range())
}

func TestFromHistogramEmpty(t *testing.T) {
	var h equalize.Histogram
	assert.Equal(t, Contrast{}, FromHistogram(&h))
}

func TestMeasure(t *testing.T) {
	buf := equalize.NewPixelBuffer(2, 1)
	buf.SetRGBA(0, 0, 10, 200, 30, 255)
	buf.SetRGBA(1, 0, 0, 0, 100, 255)

	c := Measure(buf)
	assert.InDelta(t, 150.0, c.Mean, 1e-9)
	assert.Equal(t, 100, c.Min)
	assert.Equal(t, 200, c.Max)
	assert.InDelta(t, 1.0, c.Entropy, 1e-9)

	assert.Equal(t, Contrast{}, Measure(equalize.PixelBuffer{}))
}

func TestEqualizationRaisesMeasuredContrast(t *testing.T) {
	buf := equalize.NewPixelBuffer(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(100 + x/4)
			buf.SetRGBA(x, y, v, v, v, 255)
		}
	}

	out, err := equalize.Enhance(buf, equalize.Config{Mode: equalize.ModeGlobal, Strength: 1})
	assert.NoError(t, err)

	before, after := Measure(buf), Measure(out)
	assert.Greater(t, after.StdDev, before.StdDev)
	assert.Greater(t, after.Range(), before.Range())
}
