package sample

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/stats"
)

func TestGenerate_LowContrast(t *testing.T) {
	p := DefaultParams(96, 7)
	img, err := Generate(p)
	require.NoError(t, err)

	c := stats.Measure(imageio.ToBuffer(img))
	// 25% of the range: at most 64 levels apart, plus rounding.
	assert.LessOrEqual(t, c.Range(), 65)
	assert.Greater(t, c.Range(), 0)

	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 {
			t.Fatalf("alpha at byte %d = %d, want 255", i, img.Pix[i])
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(DefaultParams(32, 42))
	require.NoError(t, err)
	b, err := Generate(DefaultParams(32, 42))
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)

	c, err := Generate(DefaultParams(32, 43))
	require.NoError(t, err)
	assert.NotEqual(t, a.Pix, c.Pix)
}

func TestGenerate_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"zero width", Params{Width: 0, Height: 10}},
		{"negative height", Params{Width: 10, Height: -1}},
		{"contrast above one", Params{Width: 10, Height: 10, Contrast: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.p)
			assert.Error(t, err)
		})
	}
}

func TestGenerate_SinglePixel(t *testing.T) {
	img, err := Generate(DefaultParams(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, img.Bounds().Dx())
}

func TestWriteSamples(t *testing.T) {
	dir := t.TempDir()

	result, err := WriteSamples(dir, 24, 1, 3, 0.2, false)
	require.NoError(t, err)
	assert.Len(t, result.Written, 3)
	assert.Empty(t, result.Skipped)

	for _, path := range result.Written {
		img, format, err := imageio.LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "png", format)
		assert.Equal(t, 24, img.Bounds().Dx())
	}

	// Existing files are kept unless overwrite is set.
	result, err = WriteSamples(dir, 24, 1, 3, 0.2, false)
	require.NoError(t, err)
	assert.Empty(t, result.Written)
	assert.Len(t, result.Skipped, 3)

	result, err = WriteSamples(dir, 24, 1, 1, 0.2, true)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "sample_01.png")}, result.Written)
}

func TestWriteSamples_InvalidCount(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never")
	_, err := WriteSamples(dir, 16, 1, 0, 0.2, false)
	assert.Error(t, err)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}
