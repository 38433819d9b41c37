package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/MeKo-Tech/histeq/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Import a folder of enhanced PNGs into a SQLite archive",
	Long:  `Import existing enhanced PNG files from a folder into a SQLite archive.`,
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("input-dir", "", "Input directory containing PNGs (defaults to --output-dir)")
	convertCmd.Flags().StringP("output", "o", "", "Output database path (required)")
	convertCmd.Flags().String("name", "histeq", "Archive name")
	convertCmd.Flags().String("description", "Contrast-enhanced images", "Archive description")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"convert.input_dir", "input-dir"},
		{"convert.output", "output"},
		{"convert.name", "name"},
		{"convert.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, convertCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("convert.input_dir")
	if inputDir == "" {
		inputDir = viper.GetString("output-dir")
	}
	outputFile := viper.GetString("convert.output")
	name := viper.GetString("convert.name")
	description := viper.GetString("convert.description")

	if logger == nil {
		initLogging()
	}

	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	logger.Info("Importing folder into archive", "input_dir", inputDir, "output", outputFile)

	files, err := scanPNGDirectory(inputDir)
	if err != nil {
		return fmt.Errorf("failed to scan input directory: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no PNG files found in %s", inputDir)
	}
	logger.Info("Found images", "count", len(files))

	archive, err := store.NewSQLite(outputFile, store.Metadata{
		Name:        name,
		Description: description,
		Version:     "1.0",
	})
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer archive.Close()

	imported := 0
	for i, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read image", "path", path, "error", err)
			continue
		}
		if err := archive.Add(filepath.Base(path), data); err != nil {
			logger.Error("Failed to add image", "path", path, "error", err)
			continue
		}
		imported++

		if (i+1)%100 == 0 {
			logger.Info("Progress", "imported", i+1, "total", len(files))
		}
	}

	if err := archive.Flush(); err != nil {
		return fmt.Errorf("failed to flush archive: %w", err)
	}

	logger.Info("Import complete", "output", outputFile, "images", imported)
	return nil
}

// scanPNGDirectory returns the PNG files under dir whose names are valid
// archive entry names, sorted by path.
func scanPNGDirectory(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if store.ValidName(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
