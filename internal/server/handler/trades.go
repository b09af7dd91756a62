package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"primeflip/internal/domain"
	"primeflip/internal/server/middleware"
)

// TradeHandler serves the authenticated trade-session API.
type TradeHandler struct {
	trades  domain.TradeSessionStore
	catalog domain.CatalogStore
	logger  *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades domain.TradeSessionStore, catalog domain.CatalogStore, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, catalog: catalog, logger: logger}
}

type tradePartResponse struct {
	ID       string    `json:"id"`
	PartName string    `json:"part_name"`
	BuyPrice float64   `json:"buy_price"`
	Seller   string    `json:"seller"`
	BoughtAt time.Time `json:"bought_at"`
}

type tradeSessionResponse struct {
	ID           string              `json:"id"`
	ItemID       string              `json:"item_id"`
	ItemName     string              `json:"item_name"`
	Kind         string              `json:"item_type"`
	Parts        []tradePartResponse `json:"parts"`
	TotalCost    float64             `json:"total_cost"`
	SetSellPrice *float64            `json:"set_sell_price"`
	Profit       *float64            `json:"profit"`
	Status       string              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	CompletedAt  *time.Time          `json:"completed_at"`
}

func toSessionResponse(s domain.TradeSession) tradeSessionResponse {
	parts := make([]tradePartResponse, 0, len(s.Parts))
	for _, p := range s.Parts {
		parts = append(parts, tradePartResponse{
			ID:       p.ID,
			PartName: p.PartName,
			BuyPrice: p.BuyPrice,
			Seller:   p.Seller,
			BoughtAt: p.BoughtAt,
		})
	}
	return tradeSessionResponse{
		ID:           s.ID,
		ItemID:       s.ItemID,
		ItemName:     s.ItemName,
		Kind:         string(s.Kind),
		Parts:        parts,
		TotalCost:    s.TotalCost,
		SetSellPrice: s.SetSellPrice,
		Profit:       s.Profit(),
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		CompletedAt:  s.CompletedAt,
	}
}

// requireUser fetches the authenticated user id from the request context.
// The auth middleware guarantees it is present on these routes; the check
// guards against miswired routing.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
	return userID, ok
}

type createSessionRequest struct {
	ItemID string `json:"item_id"`
}

// CreateSession opens a new trade session for the authenticated user.
// POST /api/trades
func (h *TradeHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "trades.create")
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ItemID = strings.TrimSpace(req.ItemID)
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	item, err := h.catalog.Get(r.Context(), req.ItemID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown item")
		return
	}
	if err != nil {
		log.Error("lookup item failed", slog.String("item", req.ItemID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create trade session")
		return
	}

	session := domain.TradeSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		ItemID:    item.ID,
		ItemName:  item.Name,
		Kind:      item.Kind,
		Status:    domain.TradeStatusInProgress,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.trades.Create(r.Context(), session); err != nil {
		log.Error("create session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to create trade session")
		return
	}

	log.Info("trade session created",
		slog.String("session", session.ID),
		slog.String("item", session.ItemID),
		slog.Int64("user", userID))
	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// ListSessions returns the user's trade sessions with summary statistics.
// GET /api/trades?status=
func (h *TradeHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "trades.list")
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.trades.ListByUser(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		log.Error("list sessions failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list trade sessions")
		return
	}

	out := make([]tradeSessionResponse, 0, len(sessions))
	completed, inProgress := 0, 0
	totalProfit := 0.0
	for _, s := range sessions {
		switch s.Status {
		case domain.TradeStatusCompleted:
			completed++
		case domain.TradeStatusInProgress:
			inProgress++
		}
		if p := s.Profit(); p != nil {
			totalProfit += *p
		}
		out = append(out, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":             out,
		"total_sessions":       len(out),
		"completed_sessions":   completed,
		"in_progress_sessions": inProgress,
		"total_profit":         totalProfit,
	})
}

// GetSession returns one of the user's trade sessions.
// GET /api/trades/{id}
func (h *TradeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "trades.get")
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	session, err := h.trades.Get(r.Context(), userID, pathParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trade session not found")
		return
	}
	if err != nil {
		log.Error("get session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load trade session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

type addPartRequest struct {
	PartName string  `json:"part_name"`
	BuyPrice float64 `json:"buy_price"`
	Seller   string  `json:"seller"`
}

// AddPart records a part purchase inside a session and bumps its total
// cost.
// POST /api/trades/{id}/parts
func (h *TradeHandler) AddPart(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "trades.add_part")
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req addPartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PartName) == "" {
		writeError(w, http.StatusBadRequest, "part_name is required")
		return
	}
	if req.BuyPrice < 0 {
		writeError(w, http.StatusBadRequest, "buy_price must not be negative")
		return
	}

	part := domain.TradePart{
		ID:        uuid.NewString(),
		SessionID: pathParam(r, "id"),
		PartName:  strings.TrimSpace(req.PartName),
		BuyPrice:  req.BuyPrice,
		Seller:    strings.TrimSpace(req.Seller),
		BoughtAt:  time.Now().UTC(),
	}
	if err := h.trades.AddPart(r.Context(), userID, part); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade session not found")
			return
		}
		log.Error("add part failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to record part")
		return
	}
	writeJSON(w, http.StatusCreated, tradePartResponse{
		ID:       part.ID,
		PartName: part.PartName,
		BuyPrice: part.BuyPrice,
		Seller:   part.Seller,
		BoughtAt: part.BoughtAt,
	})
}

type updateSessionRequest struct {
	SetSellPrice *float64 `json:"set_sell_price"`
	Status       *string  `json:"status"`
}

// UpdateSession sets the sell price and/or advances the session status.
// PATCH /api/trades/{id}
func (h *TradeHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "trades.update")
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID := pathParam(r, "id")

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SetSellPrice == nil && req.Status == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.SetSellPrice != nil {
		if *req.SetSellPrice < 0 {
			writeError(w, http.StatusBadRequest, "set_sell_price must not be negative")
			return
		}
		err := h.trades.SetSellPrice(r.Context(), userID, sessionID, *req.SetSellPrice)
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade session not found")
			return
		}
		if err != nil {
			log.Error("set sell price failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to update trade session")
			return
		}
	}

	if req.Status != nil {
		if domain.TradeSessionStatus(*req.Status) != domain.TradeStatusCompleted {
			writeError(w, http.StatusBadRequest, "only status=completed is supported")
			return
		}
		err := h.trades.Complete(r.Context(), userID, sessionID)
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade session not found")
			return
		}
		if err != nil {
			log.Error("complete session failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "failed to update trade session")
			return
		}
	}

	session, err := h.trades.Get(r.Context(), userID, sessionID)
	if err != nil {
		log.Error("reload session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load trade session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// DeleteSession removes one of the user's trade sessions.
// DELETE /api/trades/{id}
func (h *TradeHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "trades.delete")
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	err := h.trades.Delete(r.Context(), userID, pathParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trade session not found")
		return
	}
	if err != nil {
		log.Error("delete session failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to delete trade session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
