package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"primeflip/internal/domain"
)

const (
	defaultHistoryHours = 48
	maxHistoryHours     = 168
)

// HistoryHandler serves the part-price history endpoints backed by the
// snapshot time series.
type HistoryHandler struct {
	snaps  domain.SnapshotStore
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(snaps domain.SnapshotStore, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{snaps: snaps, logger: logger}
}

func historyWindow(r *http.Request) (string, time.Time) {
	platform := r.URL.Query().Get("platform")
	if platform == "" {
		platform = domain.PlatformPC
	}
	hours := queryInt(r, "hours", defaultHistoryHours)
	if hours < 1 {
		hours = 1
	}
	if hours > maxHistoryHours {
		hours = maxHistoryHours
	}
	return platform, time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
}

// PartHistory returns a per-part summary of recent price movement for one
// item.
// GET /api/prices/history/{id}?platform=&hours=
func (h *HistoryHandler) PartHistory(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "prices.history")
	id := pathParam(r, "id")
	platform, since := historyWindow(r)

	snaps, err := h.snaps.ListPartSnapshots(r.Context(), id, platform, since)
	if err != nil {
		log.Error("list part snapshots failed", slog.String("item", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	writeJSON(w, http.StatusOK, summarizeHistory(snaps))
}

// LowestPrices returns the lowest observed price per part over the window.
// GET /api/prices/lowest/{id}?platform=&hours=
func (h *HistoryHandler) LowestPrices(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "prices.lowest")
	id := pathParam(r, "id")
	platform, since := historyWindow(r)

	snaps, err := h.snaps.ListPartSnapshots(r.Context(), id, platform, since)
	if err != nil {
		log.Error("list part snapshots failed", slog.String("item", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load price history")
		return
	}

	lowest := make(map[string]float64)
	for _, s := range snaps {
		if cur, ok := lowest[s.PartName]; !ok || s.Price < cur {
			lowest[s.PartName] = s.Price
		}
	}
	writeJSON(w, http.StatusOK, lowest)
}

// summarizeHistory groups snapshots by part and computes the summary
// statistics for each. Snapshots are expected newest-first; the trend
// compares the newest quarter of samples against the oldest quarter,
// with a 5% band counted as stable.
func summarizeHistory(snaps []domain.PartSnapshot) []domain.PartHistorySummary {
	byPart := make(map[string][]domain.PartSnapshot)
	order := make([]string, 0)
	for _, s := range snaps {
		if _, ok := byPart[s.PartName]; !ok {
			order = append(order, s.PartName)
		}
		byPart[s.PartName] = append(byPart[s.PartName], s)
	}
	sort.Strings(order)

	out := make([]domain.PartHistorySummary, 0, len(order))
	for _, name := range order {
		series := byPart[name]
		sort.Slice(series, func(i, j int) bool { return series[i].TS.After(series[j].TS) })

		sum := domain.PartHistorySummary{
			PartName:     name,
			CurrentPrice: series[0].Price,
			Lowest:       series[0].Price,
			Highest:      series[0].Price,
			Trend:        domain.TrendStable,
			Samples:      len(series),
		}
		total := 0.0
		for _, s := range series {
			total += s.Price
			if s.Price < sum.Lowest {
				sum.Lowest = s.Price
			}
			if s.Price > sum.Highest {
				sum.Highest = s.Price
			}
		}
		sum.Average = total / float64(len(series))

		if q := len(series) / 4; q > 0 {
			recent, old := 0.0, 0.0
			for i := 0; i < q; i++ {
				recent += series[i].Price
				old += series[len(series)-q+i].Price
			}
			recent /= float64(q)
			old /= float64(q)
			switch {
			case recent > old*1.05:
				sum.Trend = domain.TrendUp
			case recent < old*0.95:
				sum.Trend = domain.TrendDown
			}
		}
		out = append(out, sum)
	}
	return out
}
