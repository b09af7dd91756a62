package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// OpportunityHandler serves the current arbitrage opportunity set.
type OpportunityHandler struct {
	opps   OpportunityReader
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(opps OpportunityReader, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{opps: opps, logger: logger}
}

// ListOpportunities returns opportunities from the latest completed cycle,
// filtered by the caller's thresholds.
// GET /api/opportunities?min_profit=&min_margin=&strategy=&platform=
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	minProfit := queryFloat(r, "min_profit", 0)
	minMargin := queryFloat(r, "min_margin", 0)
	strategy := r.URL.Query().Get("strategy")
	platform := r.URL.Query().Get("platform")

	opps := h.opps.Opportunities(minProfit, minMargin)

	filtered := opps[:0:0]
	for _, opp := range opps {
		if strategy != "" && opp.Strategy != strategy {
			continue
		}
		if platform != "" && opp.Platform != platform {
			continue
		}
		filtered = append(filtered, opp)
	}

	updated := ""
	if len(filtered) > 0 {
		updated = filtered[0].UpdatedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": filtered,
		"count":         len(filtered),
		"last_updated":  updated,
	})
}
