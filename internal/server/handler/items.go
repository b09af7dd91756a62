package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"primeflip/internal/domain"
)

// OpportunityReader provides the current opportunity set for enrichment
// of item detail responses.
type OpportunityReader interface {
	Opportunities(minProfit, minMargin float64) []domain.Opportunity
}

// ItemHandler serves the tracked-item catalog.
type ItemHandler struct {
	catalog domain.CatalogStore
	snaps   domain.SnapshotStore // nil when persistence is disabled
	opps    OpportunityReader
	logger  *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(catalog domain.CatalogStore, snaps domain.SnapshotStore, opps OpportunityReader, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{catalog: catalog, snaps: snaps, opps: opps, logger: logger}
}

type itemInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Parts   []string `json:"parts"`
	Kind    string   `json:"item_type"`
	IsPrime bool     `json:"is_prime"`
	Enabled bool     `json:"enabled"`
}

func toItemInfo(it domain.TrackedItem) itemInfo {
	return itemInfo{
		ID:      it.ID,
		Name:    it.Name,
		Parts:   it.Parts,
		Kind:    string(it.Kind),
		IsPrime: it.Prime,
		Enabled: it.Enabled,
	}
}

// ListItems returns all enabled tracked items.
// GET /api/items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "items.list")

	items, err := h.catalog.ListEnabled(r.Context())
	if err != nil {
		log.Error("list items failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	out := make([]itemInfo, 0, len(items))
	for _, it := range items {
		out = append(out, toItemInfo(it))
	}
	writeJSON(w, http.StatusOK, out)
}

type setSnapshotPoint struct {
	Timestamp string  `json:"timestamp"`
	SetPrice  float64 `json:"set_price"`
	Strategy  string  `json:"strategy"`
}

type itemDetail struct {
	Item               itemInfo            `json:"item"`
	CurrentOpportunity *domain.Opportunity `json:"current_opportunity"`
	Snapshots          []setSnapshotPoint  `json:"snapshots"`
}

// GetItem returns one item with its current opportunity and its recent
// set-price snapshots (oldest first, for sparklines).
// GET /api/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "items.get")
	id := pathParam(r, "id")

	item, err := h.catalog.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown item")
		return
	}
	if err != nil {
		log.Error("get item failed", slog.String("item", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load item")
		return
	}

	detail := itemDetail{Item: toItemInfo(item), Snapshots: []setSnapshotPoint{}}

	for _, opp := range h.opps.Opportunities(0, 0) {
		if opp.ItemID == id {
			o := opp
			detail.CurrentOpportunity = &o
			break
		}
	}

	if h.snaps != nil {
		snaps, err := h.snaps.ListSetSnapshots(r.Context(), id, 20)
		if err != nil {
			// Missing history degrades the response, it does not fail it.
			log.Warn("list snapshots failed", slog.String("item", id), slog.String("error", err.Error()))
		}
		// Newest-first from the store; reverse for chronological charts.
		for i := len(snaps) - 1; i >= 0; i-- {
			detail.Snapshots = append(detail.Snapshots, setSnapshotPoint{
				Timestamp: snaps[i].TS.UTC().Format(time.RFC3339),
				SetPrice:  snaps[i].SetPrice,
				Strategy:  snaps[i].Strategy,
			})
		}
	}

	writeJSON(w, http.StatusOK, detail)
}
