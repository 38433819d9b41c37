package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/histeq/internal/equalize"
	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/pipeline"
	"github.com/MeKo-Tech/histeq/internal/store"
	"github.com/MeKo-Tech/histeq/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [paths...]",
	Short: "Enhance image contrast",
	Long: `Enhance the contrast of image files. Directories are searched recursively
for supported formats (png, jpeg, gif, bmp, tiff, webp). Results are written as
PNG to --output-dir, or into a SQLite archive with --format=sqlite.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEnhance,
}

func init() {
	rootCmd.AddCommand(enhanceCmd)

	// Engine flags
	enhanceCmd.Flags().String("mode", "clahe", "Equalization mode: clahe or global")
	enhanceCmd.Flags().Int("tile-size", equalize.DefaultTileSize, "CLAHE tile size in pixels (clamped to 16..256)")
	enhanceCmd.Flags().Float64("clip-limit", equalize.DefaultClipLimit, "CLAHE clip limit (typical 1.0..4.0)")
	enhanceCmd.Flags().Float64("strength", equalize.DefaultStrength, "Blend between original (0) and fully enhanced (1)")
	enhanceCmd.Flags().String("preset", "", "Named preset (see 'histeq presets'); explicit flags override it")
	enhanceCmd.Flags().Int("max-dimension", imageio.DefaultMaxDimension, "Downsample images so neither side exceeds this (0 disables)")

	// Batch flags
	enhanceCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	enhanceCmd.Flags().Bool("progress", true, "Show progress bar")
	enhanceCmd.Flags().Bool("allow-failures", false, "Exit successfully even if some images fail")
	enhanceCmd.Flags().Bool("force", false, "Overwrite outputs that already exist")

	// Output flags
	enhanceCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	enhanceCmd.Flags().String("format", store.FormatFolder, "Output format: folder or sqlite")
	enhanceCmd.Flags().String("output-file", "", "Output database path for sqlite format (e.g., enhanced.db)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"enhance.mode", "mode"},
		{"enhance.tile_size", "tile-size"},
		{"enhance.clip_limit", "clip-limit"},
		{"enhance.strength", "strength"},
		{"enhance.preset", "preset"},
		{"enhance.max_dimension", "max-dimension"},
		{"enhance.workers", "workers"},
		{"enhance.progress", "progress"},
		{"enhance.allow_failures", "allow-failures"},
		{"enhance.force", "force"},
		{"enhance.png_compression", "png-compression"},
		{"enhance.format", "format"},
		{"enhance.output_file", "output-file"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, enhanceCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runEnhance(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	outputDir := viper.GetString("output-dir")
	workers := viper.GetInt("enhance.workers")
	showProgress := viper.GetBool("enhance.progress")
	allowFailures := viper.GetBool("enhance.allow_failures")
	force := viper.GetBool("enhance.force")
	format := viper.GetString("enhance.format")
	outputFile := viper.GetString("enhance.output_file")

	cfg, err := resolveConfig(engineSettings{
		preset:    viper.GetString("enhance.preset"),
		mode:      viper.GetString("enhance.mode"),
		tileSize:  viper.GetInt("enhance.tile_size"),
		clipLimit: viper.GetFloat64("enhance.clip_limit"),
		strength:  viper.GetFloat64("enhance.strength"),
	}, func(name string) bool {
		return cmd.Flags().Changed(name) || viper.InConfig("enhance."+strings.ReplaceAll(name, "-", "_"))
	})
	if err != nil {
		return err
	}

	compression, err := imageio.ParseCompression(viper.GetString("enhance.png_compression"))
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Config:       cfg,
		MaxDimension: viper.GetInt("enhance.max_dimension"),
		Compression:  compression,
	}

	inputs, err := collectInputs(args, outputDir)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no supported images found in %v", args)
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var st store.Store
	switch format {
	case store.FormatFolder:
	case store.FormatSQLite:
		if outputFile == "" {
			return fmt.Errorf("--output-file is required when using --format=sqlite")
		}
		archive, err := store.NewSQLite(outputFile, store.Metadata{
			Name:        "histeq",
			Description: cfg.Summary(),
			Version:     "1.0",
		})
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer archive.Close()
		st = archive
	default:
		return fmt.Errorf("invalid format %q: must be 'folder' or 'sqlite'", format)
	}

	enhancer, err := pipeline.NewEnhancer(opts, outputDir, st, logger)
	if err != nil {
		return fmt.Errorf("failed to init enhancer: %w", err)
	}

	logger.Info("Starting enhancement",
		"images", len(inputs),
		"config", cfg.Summary(),
		"max_dimension", opts.MaxDimension,
		"workers", workers,
		"format", format,
		"output_dir", outputDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := make([]worker.Task, 0, len(inputs))
	for i, name := range pipeline.UniqueOutputNames(inputs) {
		output := name
		if st == nil {
			output = filepath.Join(outputDir, name)
		}
		tasks = append(tasks, worker.Task{Input: inputs[i], Output: output, Force: force})
	}

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Processor:  enhancer,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Enhancement failed", "input", r.Task.Input, "error", r.Err)
			continue
		}
		logger.Debug("Enhanced", "input", r.Task.Input, "output", r.Path, "elapsed", r.Elapsed)
	}

	logger.Info(progress.Summary())

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enhancement interrupted: %w", err)
	}
	if failedCount > 0 {
		if !allowFailures {
			return fmt.Errorf("%d images failed to enhance", failedCount)
		}
		logger.Warn("Some images failed, but continuing due to --allow-failures flag", "failed_count", failedCount)
	}
	return nil
}

// engineSettings are the raw engine flag values.
type engineSettings struct {
	preset    string
	mode      string
	tileSize  int
	clipLimit float64
	strength  float64
}

// resolveConfig starts from the preset (or the defaults) and applies every
// flag reported as explicitly set by changed.
func resolveConfig(s engineSettings, changed func(flag string) bool) (equalize.Config, error) {
	cfg := equalize.DefaultConfig()
	if s.preset != "" {
		p, err := equalize.LookupPreset(s.preset)
		if err != nil {
			return cfg, err
		}
		cfg = p.Config
	}

	override := func(flag string) bool {
		return s.preset == "" || changed(flag)
	}

	if override("mode") {
		mode, err := equalize.ParseMode(s.mode)
		if err != nil {
			return cfg, err
		}
		cfg.Mode = mode
	}
	if override("tile-size") {
		cfg.TileSize = s.tileSize
	}
	if override("clip-limit") {
		cfg.ClipLimit = s.clipLimit
	}
	if override("strength") {
		cfg.Strength = s.strength
	}

	return cfg.Normalize(), nil
}

// collectInputs expands paths into a sorted, de-duplicated list of supported
// image files. Directories are walked recursively; nested directories listed
// in skipDirs (usually the output directory) are not entered.
func collectInputs(paths []string, skipDirs ...string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		if d == "" {
			continue
		}
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = true
		}
	}

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && len(skip) > 0 {
					if abs, err := filepath.Abs(path); err == nil && skip[abs] {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if !imageio.IsSupported(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
