package handler

import (
	"database/sql"
	"net/http"

	"github.com/dukerupert/hhsynth/internal/database"
)

type HealthHandler struct {
	db      *sql.DB
	service string
}

func NewHealthHandler(db *sql.DB, service string) *HealthHandler {
	return &HealthHandler{db: db, service: service}
}

// Health reports liveness. It always answers 200; database_connected tells
// whether the backing store answered a ping.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	connected := database.Healthy(r.Context(), h.db)
	status := "healthy"
	if !connected {
		status = "unhealthy"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             status,
		"service":            h.service,
		"database_connected": connected,
	})
}
