//go:build js && wasm
// +build js,wasm

package main

import (
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/histeq/internal/equalize"
	"github.com/MeKo-Tech/histeq/internal/stats"
)

// EnhanceRequest carries the engine settings from JS. Preset is applied
// first; any non-nil field overrides it.
type EnhanceRequest struct {
	Preset    string   `json:"preset"`
	Mode      string   `json:"mode"`
	TileSize  *int     `json:"tileSize"`
	ClipLimit *float64 `json:"clipLimit"`
	Strength  *float64 `json:"strength"`
}

func (r EnhanceRequest) config() (equalize.Config, error) {
	cfg := equalize.DefaultConfig()
	if r.Preset != "" {
		p, err := equalize.LookupPreset(r.Preset)
		if err != nil {
			return cfg, err
		}
		cfg = p.Config
	}
	if r.Mode != "" {
		mode, err := equalize.ParseMode(r.Mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if r.TileSize != nil {
		cfg.TileSize = *r.TileSize
	}
	if r.ClipLimit != nil {
		cfg.ClipLimit = *r.ClipLimit
	}
	if r.Strength != nil {
		cfg.Strength = *r.Strength
	}
	return cfg.Normalize(), nil
}

func jsError(err error) any {
	return map[string]any{"error": err.Error()}
}

// enhance is histeqEnhance(pixels Uint8Array, width, height, requestJSON).
// It returns {pixels: Uint8Array, summary, before, after} or {error}.
// The caller passes ImageData.data wrapped as a Uint8Array.
func enhance(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return jsError(fmt.Errorf("expected pixels, width, height"))
	}

	var req EnhanceRequest
	if len(args) > 3 && args[3].Type() == js.TypeString && args[3].String() != "" {
		if err := json.Unmarshal([]byte(args[3].String()), &req); err != nil {
			return jsError(fmt.Errorf("failed to parse request: %w", err))
		}
	}
	cfg, err := req.config()
	if err != nil {
		return jsError(err)
	}

	width, height := args[1].Int(), args[2].Int()
	if width <= 0 || height <= 0 {
		return jsError(fmt.Errorf("%w: %dx%d", equalize.ErrInvalidInput, width, height))
	}

	src := equalize.NewPixelBuffer(width, height)
	if n := js.CopyBytesToGo(src.Pix, args[0]); n != len(src.Pix) {
		return jsError(fmt.Errorf("%w: got %d bytes, want %d", equalize.ErrInvalidInput, n, len(src.Pix)))
	}

	out, err := equalize.Enhance(src, cfg)
	if err != nil {
		return jsError(err)
	}

	pixels := js.Global().Get("Uint8Array").New(len(out.Pix))
	js.CopyBytesToJS(pixels, out.Pix)

	return map[string]any{
		"pixels":  pixels,
		"summary": cfg.Summary(),
		"before":  stats.Measure(src).String(),
		"after":   stats.Measure(out).String(),
	}
}

// presets is histeqPresets(); it returns the preset list as JSON.
func presets(this js.Value, args []js.Value) any {
	type entry struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Mode        string  `json:"mode"`
		TileSize    int     `json:"tileSize"`
		ClipLimit   float64 `json:"clipLimit"`
		Strength    float64 `json:"strength"`
	}

	list := make([]entry, 0, len(equalize.Presets))
	for _, p := range equalize.Presets {
		list = append(list, entry{
			Name:        p.Name,
			Description: p.Description,
			Mode:        p.Config.Mode.String(),
			TileSize:    p.Config.TileSize,
			ClipLimit:   p.Config.ClipLimit,
			Strength:    p.Config.Strength,
		})
	}

	data, err := json.Marshal(list)
	if err != nil {
		return jsError(err)
	}
	return string(data)
}

func main() {
	c := make(chan struct{})

	js.Global().Set("histeqEnhance", js.FuncOf(enhance))
	js.Global().Set("histeqPresets", js.FuncOf(presets))

	fmt.Println("histeq WASM module loaded")
	<-c
}
