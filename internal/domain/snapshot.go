package domain

import "time"

// PartSnapshot is one persisted price-metric observation for a single
// part. Snapshots are append-only: written once per cycle, never updated.
type PartSnapshot struct {
	ID       int64
	ItemID   string
	PartName string
	Strategy string
	Metric   string // source label, e.g. "sell_p35"
	Price    float64
	Platform string
	TS       time.Time
}

// SetSnapshot is one persisted price observation for a full set.
type SetSnapshot struct {
	ID       int64
	ItemID   string
	Strategy string
	SetPrice float64
	Platform string
	TS       time.Time
}

// PriceTrend summarizes the direction of recent price movement.
type PriceTrend string

const (
	TrendUp     PriceTrend = "up"
	TrendDown   PriceTrend = "down"
	TrendStable PriceTrend = "stable"
)

// PartHistorySummary aggregates the recent snapshot history of one part.
type PartHistorySummary struct {
	PartName     string     `json:"part_name"`
	CurrentPrice float64    `json:"current_price"`
	Lowest       float64    `json:"lowest"`
	Highest      float64    `json:"highest"`
	Average      float64    `json:"average"`
	Trend        PriceTrend `json:"trend"`
	Samples      int        `json:"samples"`
}
