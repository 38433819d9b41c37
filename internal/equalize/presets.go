package equalize

import (
	"fmt"
	"strings"
)

// Preset is a named, ready-made config.
type Preset struct {
	Name        string
	Description string
	Config      Config
}

// Presets are the quick recipes offered by the CLI and the HTTP API.
var Presets = []Preset{
	{
		Name:        "balanced",
		Description: "General purpose local contrast",
		Config:      Config{Mode: ModeCLAHE, TileSize: 64, ClipLimit: 2.5, Strength: 1},
	},
	{
		Name:        "gentle",
		Description: "Soft lift for photos that are already close",
		Config:      Config{Mode: ModeCLAHE, TileSize: 96, ClipLimit: 1.5, Strength: 0.6},
	},
	{
		Name:        "document",
		Description: "Faded scans and photographed pages",
		Config:      Config{Mode: ModeCLAHE, TileSize: 32, ClipLimit: 3.0, Strength: 0.85},
	},
	{
		Name:        "fine-detail",
		Description: "Small tiles for texture and fine structure",
		Config:      Config{Mode: ModeCLAHE, TileSize: 16, ClipLimit: 2.0, Strength: 0.75},
	},
	{
		Name:        "strong",
		Description: "Aggressive local contrast for very flat images",
		Config:      Config{Mode: ModeCLAHE, TileSize: 48, ClipLimit: 4.0, Strength: 1},
	},
	{
		Name:        "global",
		Description: "Classic whole-image histogram equalization",
		Config:      Config{Mode: ModeGlobal, TileSize: DefaultTileSize, ClipLimit: DefaultClipLimit, Strength: 1},
	},
	{
		Name:        "global-soft",
		Description: "Whole-image equalization blended half-way",
		Config:      Config{Mode: ModeGlobal, TileSize: DefaultTileSize, ClipLimit: DefaultClipLimit, Strength: 0.5},
	},
}

// LookupPreset finds a preset by name (case-insensitive).
func LookupPreset(name string) (Preset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range Presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}
