package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"primeflip/internal/domain"
)

// SchedulerControl is the slice of the scheduler the HTTP layer may poke.
type SchedulerControl interface {
	TriggerNow() error
	Running() bool
}

// SchedulerHandler exposes manual control over the refresh loop.
type SchedulerHandler struct {
	scheduler SchedulerControl
	logger    *slog.Logger
}

// NewSchedulerHandler creates a SchedulerHandler.
func NewSchedulerHandler(scheduler SchedulerControl, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler, logger: logger}
}

// Trigger requests an immediate refresh cycle. The cycle runs in the
// background; the response only acknowledges the request.
// POST /api/scheduler/trigger
func (h *SchedulerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "scheduler.trigger")

	if h.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not running in this instance")
		return
	}
	if err := h.scheduler.TriggerNow(); err != nil {
		if errors.Is(err, domain.ErrSchedulerBusy) {
			writeError(w, http.StatusConflict, "scheduler is not running")
			return
		}
		log.Error("trigger failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to trigger refresh")
		return
	}

	log.Info("manual refresh requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}
