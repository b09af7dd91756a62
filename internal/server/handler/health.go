package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// SchedulerStatus reports whether the background loop is active.
type SchedulerStatus interface {
	Running() bool
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	scheduler SchedulerStatus // nil in server-only mode
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(scheduler SchedulerStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{scheduler: scheduler, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is
// alive and whether the scheduler loop is running.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	running := false
	if h.scheduler != nil {
		running = h.scheduler.Running()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"scheduler_running": running,
		"timestamp":         time.Now().UTC().Format(time.RFC3339),
	})
}
