package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/histeq/internal/equalize"
)

func TestResolveConfig(t *testing.T) {
	defaults := engineSettings{
		mode:      "clahe",
		tileSize:  equalize.DefaultTileSize,
		clipLimit: equalize.DefaultClipLimit,
		strength:  equalize.DefaultStrength,
	}

	tests := []struct {
		name     string
		settings func(engineSettings) engineSettings
		changed  []string
		want     equalize.Config
		wantErr  bool
	}{
		{
			name:     "defaults",
			settings: func(s engineSettings) engineSettings { return s },
			want:     equalize.DefaultConfig(),
		},
		{
			name: "explicit global",
			settings: func(s engineSettings) engineSettings {
				s.mode = "global"
				s.strength = 0.5
				return s
			},
			want: equalize.Config{Mode: equalize.ModeGlobal, TileSize: 64, ClipLimit: 2.5, Strength: 0.5},
		},
		{
			name: "preset ignores unchanged flags",
			settings: func(s engineSettings) engineSettings {
				s.preset = "document"
				return s
			},
			want: equalize.Config{Mode: equalize.ModeCLAHE, TileSize: 32, ClipLimit: 3.0, Strength: 0.85},
		},
		{
			name: "changed flag overrides preset",
			settings: func(s engineSettings) engineSettings {
				s.preset = "document"
				s.strength = 0.3
				return s
			},
			changed: []string{"strength"},
			want:    equalize.Config{Mode: equalize.ModeCLAHE, TileSize: 32, ClipLimit: 3.0, Strength: 0.3},
		},
		{
			name: "values are clamped",
			settings: func(s engineSettings) engineSettings {
				s.tileSize = 1000
				s.strength = -2
				return s
			},
			want: equalize.Config{Mode: equalize.ModeCLAHE, TileSize: 256, ClipLimit: 2.5, Strength: 0},
		},
		{
			name: "unknown preset",
			settings: func(s engineSettings) engineSettings {
				s.preset = "vivid"
				return s
			},
			wantErr: true,
		},
		{
			name: "unknown mode",
			settings: func(s engineSettings) engineSettings {
				s.mode = "median"
				return s
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := func(flag string) bool {
				for _, c := range tt.changed {
					if c == flag {
						return true
					}
				}
				return false
			}

			got, err := resolveConfig(tt.settings(defaults), changed)
			if tt.wantErr {
				if err == nil {
					t.Errorf("resolveConfig() expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveConfig() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveConfig() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	touch := func(rel string) string {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		return p
	}

	a := touch("a.png")
	b := touch("nested/b.JPG")
	c := touch("nested/deeper/c.webp")
	touch("notes.txt")
	touch("nested/readme.md")

	got, err := collectInputs([]string{dir, a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c}, got)

	// Explicit files are taken as given, whatever their extension.
	txt := filepath.Join(dir, "notes.txt")
	got, err = collectInputs([]string{txt})
	require.NoError(t, err)
	assert.Equal(t, []string{txt}, got)

	_, err = collectInputs([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestCollectInputs_SkipsOutputDir(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "photo.png")
	previous := filepath.Join(dir, "output", "photo_enhanced.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(previous), 0o755))
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(previous, []byte("x"), 0o644))

	got, err := collectInputs([]string{dir}, filepath.Join(dir, "output"))
	require.NoError(t, err)
	assert.Equal(t, []string{input}, got)

	// Relative spellings of the same directory are matched too.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err = collectInputs([]string{"."}, "./output")
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.png"}, got)

	// An output directory given as the root itself is still scanned.
	got, err = collectInputs([]string{"output"}, "output")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("output", "photo_enhanced.png")}, got)
}

func TestStoreLocation(t *testing.T) {
	tests := []struct {
		format, explicit, outputDir string
		want                        string
	}{
		{"folder", "", "./output", "./output"},
		{"sqlite", "", "out", filepath.Join("out", "histeq.db")},
		{"sqlite", "/data/images.db", "out", "/data/images.db"},
		{"folder", "/srv/images", "out", "/srv/images"},
	}

	for _, tt := range tests {
		if got := storeLocation(tt.format, tt.explicit, tt.outputDir); got != tt.want {
			t.Errorf("storeLocation(%q, %q, %q) = %q, want %q", tt.format, tt.explicit, tt.outputDir, got, tt.want)
		}
	}
}

func TestPrintPresets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPresets(&buf, equalize.Presets))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(equalize.Presets)+1)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))

	var balanced, global string
	for _, l := range lines {
		if strings.HasPrefix(l, "balanced ") {
			balanced = l
		}
		if strings.HasPrefix(l, "global ") {
			global = l
		}
	}
	assert.Regexp(t, `balanced\s+clahe\s+64\s+2\.5\s+1\.00`, balanced)
	assert.Regexp(t, `global\s+global\s+-\s+-\s+1\.00`, global)
}

func TestScanPNGDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"enhanced_20240101_120000.png", "b_enhanced.png", "skip.jpg", "bad name.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	files, err := scanPNGDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b_enhanced.png"),
		filepath.Join(dir, "enhanced_20240101_120000.png"),
	}, files)
}
