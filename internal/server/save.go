package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MeKo-Tech/histeq/internal/imageio"
	"github.com/MeKo-Tech/histeq/internal/store"
)

type saveRequest struct {
	ImageData string `json:"imageData"`
}

// handleSave stores a PNG sent as {"imageData": "data:image/png;base64,..."}
// and answers {"ok": true, "url": ...} or {"ok": false, "error": ...}.
func (s *Service) handleSave(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req saveRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, enhanceResponse{Error: "Payload too large"})
			return
		}
	}
	if err != nil || req.ImageData == "" {
		s.writeJSON(w, http.StatusBadRequest, enhanceResponse{Error: "No imageData provided"})
		return
	}

	data, err := imageio.DecodeDataURL(req.ImageData)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, enhanceResponse{Error: "Invalid data URL"})
		return
	}

	name, err := s.store.Save(r.Context(), data)
	if err != nil {
		s.log().Error("failed to save image", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, enhanceResponse{Error: "Write failed"})
		return
	}
	s.saved.Add(1)
	s.log().Info("image saved", "name", name, "bytes", len(data))

	s.writeJSON(w, http.StatusOK, enhanceResponse{OK: true, URL: s.publicURL(r, name)})
}

func (s *Service) handleOutput(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	data, err := s.store.Load(r.Context(), name)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log().Error("failed to load image", "name", name, "error", err)
		http.Error(w, "failed to load image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := w.Write(data); err != nil {
		s.log().Error("failed to write response", "error", err)
	}
}

// publicURL builds the absolute URL under which a stored image is served.
func (s *Service) publicURL(r *http.Request, name string) string {
	if s.cfg.PublicBaseURL != "" {
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/output/" + name
	}

	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	return scheme + "://" + host + "/output/" + name
}
