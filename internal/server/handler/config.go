package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// ConfigHandler exposes the effective runtime configuration to clients.
type ConfigHandler struct {
	platform        string
	strategy        string
	refreshInterval time.Duration
	feePct          float64
	logger          *slog.Logger
}

// NewConfigHandler creates a ConfigHandler.
func NewConfigHandler(platform, strategy string, refreshInterval time.Duration, feePct float64, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{
		platform:        platform,
		strategy:        strategy,
		refreshInterval: refreshInterval,
		feePct:          feePct,
		logger:          logger,
	}
}

// GetConfig returns the pricing parameters the scheduler is running with.
// GET /api/config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"platform":         h.platform,
		"strategy":         h.strategy,
		"refresh_interval": int(h.refreshInterval.Seconds()),
		"platform_fee_pct": h.feePct,
	})
}
