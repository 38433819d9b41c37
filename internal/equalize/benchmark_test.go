package equalize

import "testing"

// BenchmarkEnhanceCLAHE covers a typical bounded upload.
func BenchmarkEnhanceCLAHE(b *testing.B) {
	src := randomBuffer(1200, 900, 1)
	cfg := DefaultConfig()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Enhance(src, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEnhanceGlobal(b *testing.B) {
	src := randomBuffer(1200, 900, 1)
	cfg := Config{Mode: ModeGlobal, Strength: 1}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Enhance(src, cfg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuildTileGrid(b *testing.B) {
	src := randomBuffer(1200, 900, 1)
	values := make([]uint8, src.Len())
	for i := range values {
		values[i] = src.Pix[i*4]
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g := BuildTileGrid(values, src.Width, src.Height, DefaultTileSize)
		g.Equalize(DefaultClipLimit)
	}
}
