package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/hhsynth/internal/generator"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeGenError maps generator errors onto status codes. Unexpected errors
// are logged and reported without detail.
func writeGenError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, generator.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, generator.ErrFatalDataMissing):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		logger.Error("generation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "generation failed"})
	}
}
