// Package server exposes the enhancement engine over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/histeq/internal/equalize"
	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/store"
)

// Config configures the service.
type Config struct {
	// PublicBaseURL prefixes returned /output/ URLs. When empty the URL is
	// derived from the request (scheme from TLS or X-Forwarded-Proto, host
	// from the Host header).
	PublicBaseURL  string
	PNGCompression string
	CacheControl   string
	MaxConcurrent  int
	Timeout        time.Duration
	MaxDimension   int
	MaxUploadBytes int64
}

// Service handles enhancement, saving and retrieval of images.
type Service struct {
	store       store.Store
	logger      *slog.Logger
	sem         chan struct{}
	cfg         Config
	compression png.CompressionLevel

	active   atomic.Int32
	queued   atomic.Int32
	total    atomic.Int64
	failed   atomic.Int64
	timedOut atomic.Int64
	saved    atomic.Int64
}

// Status is the JSON body of GET /status.
type Status struct {
	Active        int   `json:"active"`
	Queued        int   `json:"queued"`
	MaxConcurrent int   `json:"max_concurrent"`
	Total         int64 `json:"total_enhanced"`
	Failed        int64 `json:"total_failed"`
	TimedOut      int64 `json:"total_timed_out"`
	Saved         int64 `json:"total_saved"`
}

// New creates a service backed by st.
func New(st store.Store, cfg Config, logger *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = imageio.DefaultMaxDimension
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}

	compression, err := imageio.ParseCompression(cfg.PNGCompression)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:       st,
		cfg:         cfg,
		compression: compression,
		logger:      logger,
		sem:         make(chan struct{}, cfg.MaxConcurrent),
	}, nil
}

// Handler returns the routed service with CORS applied.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /api/enhance", s.handleEnhance)
	mux.HandleFunc("POST /api/save", s.handleSave)
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("GET /output/{name}", s.handleOutput)
	mux.Handle("GET /status", s.StatusHandler())
	return withCORS(mux)
}

// Status returns the current counters.
func (s *Service) Status() Status {
	return Status{
		Active:        int(s.active.Load()),
		Queued:        int(s.queued.Load()),
		MaxConcurrent: s.cfg.MaxConcurrent,
		Total:         s.total.Load(),
		Failed:        s.failed.Load(),
		TimedOut:      s.timedOut.Load(),
		Saved:         s.saved.Load(),
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (s *Service) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		s.writeJSON(w, http.StatusOK, s.Status())
	})
}

type presetInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Mode        string  `json:"mode"`
	TileSize    int     `json:"tileSize,omitempty"`
	ClipLimit   float64 `json:"clipLimit,omitempty"`
	Strength    float64 `json:"strength"`
}

func (s *Service) handlePresets(w http.ResponseWriter, r *http.Request) {
	out := make([]presetInfo, 0, len(equalize.Presets))
	for _, p := range equalize.Presets {
		info := presetInfo{
			Name:        p.Name,
			Description: p.Description,
			Mode:        p.Config.Mode.String(),
			Strength:    p.Config.Strength,
		}
		if p.Config.Mode == equalize.ModeCLAHE {
			info.TileSize = p.Config.TileSize
			info.ClipLimit = p.Config.ClipLimit
		}
		out = append(out, info)
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("failed to encode response", "error", err)
	}
}

func (s *Service) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Enhance-Summary")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
