package server

import (
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/histeq/internal/equalize"
	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/pipeline"
)

// DownloadFilename is the attachment name of a downloaded result.
const DownloadFilename = "enhanced_equalized.png"

type enhanceResponse struct {
	OK      bool   `json:"ok"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
	Summary string `json:"summary,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type outcome struct {
	res *pipeline.Result
	err error
}

func (s *Service) handleEnhance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	data, params, err := readUpload(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts, err := s.parseOptions(params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, format, err := imageio.DecodeBytes(data)
	if err != nil {
		if errors.Is(err, imageio.ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, status, err := s.enhance(r, img, opts)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	s.log().Info("image enhanced",
		"format", format,
		"width", res.Width,
		"height", res.Height,
		"summary", res.Summary,
		"before", res.Before.String(),
		"after", res.After.String(),
		"ms", time.Since(start).Milliseconds(),
	)

	if isTrue(params("save")) {
		name, err := s.store.Save(r.Context(), res.PNG)
		if err != nil {
			s.log().Error("failed to save enhanced image", "error", err)
			s.writeJSON(w, http.StatusInternalServerError, enhanceResponse{Error: "Write failed"})
			return
		}
		s.saved.Add(1)
		s.writeJSON(w, http.StatusOK, enhanceResponse{
			OK:      true,
			URL:     s.publicURL(r, name),
			Summary: res.Summary,
			Width:   res.Width,
			Height:  res.Height,
		})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", DownloadFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PNG)))
	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	w.Header().Set("X-Enhance-Summary", res.Summary)
	if _, err := w.Write(res.PNG); err != nil {
		s.log().Error("failed to write response", "error", err)
	}
}

// enhance runs the engine on its own goroutine. The engine cannot be
// interrupted, so on timeout the handler stops waiting and the goroutine
// finishes in the background while still holding its semaphore slot.
func (s *Service) enhance(r *http.Request, img image.Image, opts pipeline.Options) (*pipeline.Result, int, error) {
	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	s.queued.Add(1)
	select {
	case s.sem <- struct{}{}:
		s.queued.Add(-1)
	case <-timer.C:
		s.queued.Add(-1)
		return nil, http.StatusServiceUnavailable, fmt.Errorf("server busy, try again later")
	case <-r.Context().Done():
		s.queued.Add(-1)
		return nil, http.StatusRequestTimeout, fmt.Errorf("request cancelled")
	}

	done := make(chan outcome, 1)
	s.active.Add(1)
	go func() {
		defer func() {
			s.active.Add(-1)
			<-s.sem
		}()
		res, err := pipeline.EnhanceImage(img, opts)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			s.failed.Add(1)
			s.log().Error("failed to enhance image", "error", o.err)
			if errors.Is(o.err, equalize.ErrInvalidInput) {
				return nil, http.StatusBadRequest, o.err
			}
			return nil, http.StatusInternalServerError, o.err
		}
		s.total.Add(1)
		return o.res, http.StatusOK, nil
	case <-timer.C:
		s.timedOut.Add(1)
		s.log().Warn("enhancement timed out; result will be discarded", "timeout", s.cfg.Timeout)
		return nil, http.StatusGatewayTimeout, fmt.Errorf("enhancement timed out after %s", s.cfg.Timeout)
	case <-r.Context().Done():
		return nil, http.StatusRequestTimeout, fmt.Errorf("request cancelled")
	}
}

// readUpload returns the image bytes and a parameter lookup. Multipart
// requests carry the image in the "file" field and parameters as form
// fields or query; any other body is the raw image with query parameters.
func readUpload(r *http.Request) ([]byte, func(string) string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, nil, err
		}
		if len(data) == 0 {
			return nil, nil, fmt.Errorf("empty request body")
		}
		return data, r.URL.Query().Get, nil
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("missing form file %q: %w", "file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	return data, r.FormValue, nil
}

// parseOptions builds enhancement options from request parameters. A preset
// supplies the base config; explicit parameters override it. Out-of-range
// values are clamped by the engine rather than rejected.
func (s *Service) parseOptions(get func(string) string) (pipeline.Options, error) {
	opts := pipeline.Options{
		Config:       equalize.DefaultConfig(),
		MaxDimension: s.cfg.MaxDimension,
		Compression:  s.compression,
	}

	if name := get("preset"); name != "" {
		p, err := equalize.LookupPreset(name)
		if err != nil {
			return opts, err
		}
		opts.Config = p.Config
	}

	if v := get("mode"); v != "" {
		mode, err := equalize.ParseMode(v)
		if err != nil {
			return opts, err
		}
		opts.Config.Mode = mode
	}
	if v := get("tileSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid tileSize %q", v)
		}
		opts.Config.TileSize = n
	}
	if v := get("clipLimit"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid clipLimit %q", v)
		}
		opts.Config.ClipLimit = f
	}
	if v := get("strength"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid strength %q", v)
		}
		opts.Config.Strength = f
	}

	opts.Config = opts.Config.Normalize()
	return opts, nil
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
