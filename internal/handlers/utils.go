package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"media-previewer/internal/formats"
	"media-previewer/internal/logging"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding or write errors are logged; there is nothing to recover at
// this point in a handler.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// resolveMediaPath maps a request path parameter onto the media directory,
// rejecting traversal outside it.
func (h *Handlers) resolveMediaPath(requestPath string) (string, error) {
	cleaned := filepath.Clean("/" + requestPath)
	full := filepath.Join(h.mediaDir, cleaned)
	if full != h.mediaDir && !strings.HasPrefix(full, h.mediaDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the media directory")
	}
	return full, nil
}

// writeExtractionError maps the extraction error taxonomy onto HTTP
// status codes.
func writeExtractionError(w http.ResponseWriter, err error) {
	switch {
	case os.IsNotExist(err):
		writeJSONError(w, "file not found", http.StatusNotFound)
	case errors.Is(err, formats.ErrUnrecognized):
		writeJSONError(w, "no preview available for this format", http.StatusUnsupportedMediaType)
	case errors.Is(err, formats.ErrDecoderTimeout):
		writeJSONError(w, "external decoder timed out", http.StatusGatewayTimeout)
	case errors.Is(err, formats.ErrDecoderUnavailable):
		writeJSONError(w, "external decoder unavailable", http.StatusBadGateway)
	case errors.Is(err, formats.ErrCorrupt), errors.Is(err, formats.ErrUnsupportedEncoding):
		writeJSONError(w, "file could not be decoded", http.StatusUnprocessableEntity)
	case errors.Is(err, formats.ErrEntryNotFound):
		writeJSONError(w, "document carries no preview", http.StatusNotFound)
	default:
		writeJSONError(w, "preview extraction failed", http.StatusInternalServerError)
	}
}
