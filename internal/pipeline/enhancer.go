// Package pipeline runs the full enhancement of one image: decode, bound,
// equalize, measure and encode.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MeKo-Tech/histeq/internal/equalize"
	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/stats"
	"github.com/MeKo-Tech/histeq/internal/store"
)

// OutputSuffix is appended to the input base name for batch outputs.
const OutputSuffix = "_enhanced"

// Options controls a single enhancement.
type Options struct {
	Config       equalize.Config
	MaxDimension int
	Compression  png.CompressionLevel
}

// DefaultOptions returns the default CLAHE configuration with the standard
// 1600px bound.
func DefaultOptions() Options {
	return Options{
		Config:       equalize.DefaultConfig(),
		MaxDimension: imageio.DefaultMaxDimension,
		Compression:  png.DefaultCompression,
	}
}

// Result holds an enhanced image and what was measured along the way.
type Result struct {
	Image   *image.NRGBA
	PNG     []byte
	Summary string
	Before  stats.Contrast
	After   stats.Contrast
	Width   int
	Height  int
}

// EnhanceImage bounds img, runs the engine and encodes the result as PNG.
func EnhanceImage(img image.Image, opts Options) (*Result, error) {
	cfg := opts.Config.Normalize()

	src := imageio.ToBuffer(imageio.Fit(img, opts.MaxDimension))
	out, err := equalize.Enhance(src, cfg)
	if err != nil {
		return nil, err
	}

	enhanced := imageio.FromBuffer(out)
	data, err := imageio.PNGBytes(enhanced, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return &Result{
		Image:   enhanced,
		PNG:     data,
		Summary: cfg.Summary(),
		Before:  stats.Measure(src),
		After:   stats.Measure(out),
		Width:   out.Width,
		Height:  out.Height,
	}, nil
}

// Enhancer processes image files, writing results to a directory or a store.
type Enhancer struct {
	store     store.Store
	logger    *slog.Logger
	outputDir string
	opts      Options

	mu      sync.Mutex
	claimed map[string]string // output -> input written by this enhancer
}

// NewEnhancer prepares an enhancer. When st is non-nil results go to the
// store under their output name; otherwise they are written to outputDir.
func NewEnhancer(opts Options, outputDir string, st store.Store, logger *slog.Logger) (*Enhancer, error) {
	if st == nil && outputDir == "" {
		return nil, fmt.Errorf("output dir or store required")
	}
	return &Enhancer{
		opts:      opts,
		outputDir: outputDir,
		store:     st,
		logger:    logger,
		claimed:   make(map[string]string),
	}, nil
}

// OutputName derives the PNG name used for an input path. Characters that
// are not valid in a store entry name are replaced with '_'.
func OutputName(input string) string {
	base := filepath.Base(input)
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '@':
			return r
		default:
			return '_'
		}
	}, strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem[0] == '_' || stem[0] == '-' || stem[0] == '@' {
		stem = "image" + stem
	}
	return stem + OutputSuffix + ".png"
}

// UniqueOutputNames returns the output name of every input, in order. When
// several inputs map to the same name, the later ones get "_N" before the
// extension.
func UniqueOutputNames(inputs []string) []string {
	used := make(map[string]bool, len(inputs))
	names := make([]string, len(inputs))
	for i, in := range inputs {
		base := OutputName(in)
		name := base
		for n := 1; used[name]; n++ {
			name = numbered(base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func numbered(path string, n int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), n, ext)
}

// claim reserves output for input. An output taken by another input is
// renumbered when it was derived, and rejected when it was given explicitly.
func (e *Enhancer) claim(input, output string, derived bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	candidate := output
	for n := 1; ; n++ {
		owner, taken := e.claimed[candidate]
		if !taken || owner == input {
			e.claimed[candidate] = input
			return candidate, nil
		}
		if !derived {
			return "", fmt.Errorf("output %s is already used by %s", output, owner)
		}
		candidate = numbered(output, n)
	}
}

// Process enhances input and writes the PNG to output (or a derived name when
// output is empty). An existing output is left alone unless force is set.
// The returned path is a file path, or the store entry name.
func (e *Enhancer) Process(ctx context.Context, input, output string, force bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if e.store != nil {
		return e.processToStore(ctx, input, output, force)
	}

	derived := output == ""
	if derived {
		output = filepath.Join(e.outputDir, OutputName(input))
	}
	output, err := e.claim(input, output, derived)
	if err != nil {
		return "", err
	}
	if !force {
		if _, err := os.Stat(output); err == nil {
			e.log().Info("Output already exists; skipping", "input", input, "path", output)
			return output, nil
		}
	}

	res, err := e.enhanceFile(ctx, input)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	e.log().Info("Writing enhanced image", "input", input, "path", output)
	if err := os.WriteFile(output, res.PNG, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", output, err)
	}

	return output, nil
}

func (e *Enhancer) processToStore(ctx context.Context, input, output string, force bool) (string, error) {
	derived := output == ""
	name := filepath.Base(output)
	if derived {
		name = OutputName(input)
	}
	name, err := e.claim(input, name, derived)
	if err != nil {
		return "", err
	}

	if !force {
		_, err := e.store.Load(ctx, name)
		if err == nil {
			e.log().Info("Output already stored; skipping", "input", input, "name", name)
			return name, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("failed to check store: %w", err)
		}
	}

	res, err := e.enhanceFile(ctx, input)
	if err != nil {
		return "", err
	}

	if err := e.store.SaveAs(ctx, name, res.PNG); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", name, err)
	}
	e.log().Info("Stored enhanced image", "input", input, "name", name)

	return name, nil
}

func (e *Enhancer) enhanceFile(ctx context.Context, input string) (*Result, error) {
	e.log().Debug("Decoding image", "input", input)
	img, format, err := imageio.LoadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", input, err)
	}

	res, err := EnhanceImage(img, e.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to enhance %s: %w", input, err)
	}

	// The engine itself cannot be interrupted; drop the result if the batch
	// was cancelled while it ran.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.log().Info(res.Summary,
		"input", input,
		"format", format,
		"width", res.Width,
		"height", res.Height,
		"before", res.Before.String(),
		"after", res.After.String(),
	)
	return res, nil
}

func (e *Enhancer) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}
