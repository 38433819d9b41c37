// Package equalize implements global histogram equalization and tile-based
// contrast-limited adaptive histogram equalization (CLAHE) over the V channel
// of an 8-bit RGBA pixel buffer.
package equalize

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidInput is returned when a pixel buffer has no pixels or its sample
// slice does not match its dimensions.
var ErrInvalidInput = errors.New("invalid input")

// Mode selects the equalization algorithm.
type Mode int

const (
	ModeCLAHE Mode = iota
	ModeGlobal
)

func (m Mode) String() string {
	switch m {
	case ModeGlobal:
		return "global"
	case ModeCLAHE:
		return "clahe"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "global" or "clahe" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global", "he":
		return ModeGlobal, nil
	case "clahe", "":
		return ModeCLAHE, nil
	default:
		return ModeCLAHE, fmt.Errorf("invalid mode %q: must be 'global' or 'clahe'", s)
	}
}

const (
	MinTileSize = 16
	MaxTileSize = 256

	DefaultTileSize  = 64
	DefaultClipLimit = 2.5
	DefaultStrength  = 1.0
)

// Config is the complete input of one enhancement besides the pixels.
type Config struct {
	Mode      Mode
	TileSize  int
	ClipLimit float64
	Strength  float64
}

// DefaultConfig returns the CLAHE settings the UI starts with.
func DefaultConfig() Config {
	return Config{
		Mode:      ModeCLAHE,
		TileSize:  DefaultTileSize,
		ClipLimit: DefaultClipLimit,
		Strength:  DefaultStrength,
	}
}

// Normalize clamps the config into its valid range. It never fails:
// TileSize is clamped to [16,256] and Strength to [0,1]. ClipLimit is kept
// as-is except NaN, which becomes 0; non-positive limits are absorbed by the
// max(1, …) guard when the per-tile limit is computed.
func (c Config) Normalize() Config {
	c.TileSize = clampInt(c.TileSize, MinTileSize, MaxTileSize)

	switch {
	case math.IsNaN(c.Strength):
		c.Strength = DefaultStrength
	case c.Strength < 0:
		c.Strength = 0
	case c.Strength > 1:
		c.Strength = 1
	}

	if math.IsNaN(c.ClipLimit) {
		c.ClipLimit = 0
	}
	if c.Mode != ModeGlobal {
		c.Mode = ModeCLAHE
	}
	return c
}

// Summary is the human-readable status line for an applied config.
func (c Config) Summary() string {
	c = c.Normalize()
	if c.Mode == ModeGlobal {
		return fmt.Sprintf("Global HE applied (strength=%.2f)", c.Strength)
	}
	return fmt.Sprintf("CLAHE applied (tile=%d, clip=%.1f, strength=%.2f)", c.TileSize, c.ClipLimit, c.Strength)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
