package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/server"
	"github.com/MeKo-Tech/histeq/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the enhancement HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("store", store.FormatFolder, "Where saved images go: folder or sqlite")
	serveCmd.Flags().String("store-path", "", "Folder or database path (defaults to --output-dir, or histeq.db inside it for sqlite)")
	serveCmd.Flags().String("public-url", "", "Base URL for returned /output/ links (default: derived from the request)")

	serveCmd.Flags().Int("max-concurrent", runtime.NumCPU(), "Max concurrent enhancements (default: number of CPUs)")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "Time a request waits for a slot and its result")
	serveCmd.Flags().Int("max-dimension", imageio.DefaultMaxDimension, "Downsample uploads so neither side exceeds this")
	serveCmd.Flags().Int64("max-upload-mb", 32, "Maximum upload size in MiB")
	serveCmd.Flags().String("png-compression", "default", "PNG compression (default, speed, best, none)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for enhanced downloads")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.store", "store")
	mustBind("serve.store_path", "store-path")
	mustBind("serve.public_url", "public-url")
	mustBind("serve.max_concurrent", "max-concurrent")
	mustBind("serve.timeout", "timeout")
	mustBind("serve.max_dimension", "max-dimension")
	mustBind("serve.max_upload_mb", "max-upload-mb")
	mustBind("serve.png_compression", "png-compression")
	mustBind("serve.cache_control", "cache-control")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	storeFormat := viper.GetString("serve.store")
	storePath := storeLocation(storeFormat, viper.GetString("serve.store_path"), viper.GetString("output-dir"))
	maxConc := viper.GetInt("serve.max_concurrent")

	st, err := store.Open(storeFormat, storePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	svc, err := server.New(st, server.Config{
		PublicBaseURL:  viper.GetString("serve.public_url"),
		PNGCompression: viper.GetString("serve.png_compression"),
		CacheControl:   viper.GetString("serve.cache_control"),
		MaxConcurrent:  maxConc,
		Timeout:        viper.GetDuration("serve.timeout"),
		MaxDimension:   viper.GetInt("serve.max_dimension"),
		MaxUploadBytes: viper.GetInt64("serve.max_upload_mb") << 20,
	}, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: addr, Handler: svc.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("enhancement server listening",
			"addr", addr,
			"store", storeFormat,
			"store_path", storePath,
			"max_concurrent", maxConc,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// storeLocation picks the store path when none is given explicitly.
func storeLocation(format, explicit, outputDir string) string {
	if explicit != "" {
		return explicit
	}
	if format == store.FormatSQLite {
		return filepath.Join(outputDir, "histeq.db")
	}
	return outputDir
}
