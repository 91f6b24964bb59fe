package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"media-previewer/internal/batch"
	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
	"media-previewer/internal/render"
)

// Thumbnail serves the standard thumbnail for a media file, generating and
// caching it on first request.
func (h *Handlers) Thumbnail(w http.ResponseWriter, r *http.Request) {
	full, err := h.resolveMediaPath(mux.Vars(r)["path"])
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	maxDim := h.maxDim
	if s := r.URL.Query().Get("size"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 16 || parsed > 4096 {
			writeJSONError(w, "invalid size parameter", http.StatusBadRequest)
			return
		}
		maxDim = parsed
	}

	info, err := os.Stat(full)
	if err != nil {
		writeJSONError(w, "file not found", http.StatusNotFound)
		return
	}

	// Cache key folds in size and mtime, so a re-saved file misses
	// naturally. Non-default dimensions are generated on the fly.
	var cachePath string
	if maxDim == h.maxDim && h.thumbnailDir != "" {
		rel, _ := filepath.Rel(h.mediaDir, full)
		cachePath = filepath.Join(h.thumbnailDir, batch.CacheKey(rel, info.Size(), info.ModTime()))
		if cached, err := os.ReadFile(cachePath); err == nil {
			w.Header().Set("Content-Type", render.MIME)
			w.Header().Set("X-Cache", "HIT")
			w.Write(cached)
			return
		}
	}

	thumb, err := h.engine.GenerateThumbnail(r.Context(), full, maxDim)
	if err != nil {
		logging.Debug("Thumbnail failed for %s: %v", full, err)
		writeExtractionError(w, err)
		return
	}
	if cachePath != "" {
		if err := os.WriteFile(cachePath, thumb, 0o644); err != nil {
			logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
		}
	}
	w.Header().Set("Content-Type", render.MIME)
	w.Header().Set("X-Cache", "MISS")
	w.Write(thumb)
}

// Preview serves the best available full-size preview for a media file.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	full, err := h.resolveMediaPath(mux.Vars(r)["path"])
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	data, mime, err := h.engine.ExtractPreview(r.Context(), full)
	if err != nil {
		logging.Debug("Preview failed for %s: %v", full, err)
		writeExtractionError(w, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Write(data)
}

// StrategyResponse describes how a file would be previewed.
type StrategyResponse struct {
	Format   string `json:"format,omitempty"`
	MIME     string `json:"mime,omitempty"`
	Category string `json:"category,omitempty"`
	Strategy string `json:"strategy"`
}

// Strategy reports the resolved format descriptor for a media file.
func (h *Handlers) Strategy(w http.ResponseWriter, r *http.Request) {
	full, err := h.resolveMediaPath(mux.Vars(r)["path"])
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	desc, err := h.engine.ResolveStrategy(full)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, "file not found", http.StatusNotFound)
			return
		}
		writeJSONError(w, "resolve failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if desc == nil {
		writeJSON(w, StrategyResponse{Strategy: string(formats.StrategyIcon)})
		return
	}
	writeJSON(w, StrategyResponse{
		Format:   desc.Name,
		MIME:     desc.MIME,
		Category: string(desc.Category),
		Strategy: string(desc.Strategy),
	})
}

// FormatResponse is one entry of the format listing.
type FormatResponse struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
	MIME       string   `json:"mime"`
	Category   string   `json:"category"`
	Strategy   string   `json:"strategy"`
}

// Formats lists every known format descriptor.
func (h *Handlers) Formats(w http.ResponseWriter, _ *http.Request) {
	var out []FormatResponse
	for _, d := range formats.All() {
		out = append(out, FormatResponse{
			Name:       d.Name,
			Extensions: d.Extensions,
			MIME:       d.MIME,
			Category:   string(d.Category),
			Strategy:   string(d.Strategy),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}
