package domain

import "time"

// User is a registered account for the trade-session API.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	Disabled     bool
}

// TradeSessionStatus is the lifecycle state of a manually tracked trade.
type TradeSessionStatus string

const (
	TradeStatusInProgress TradeSessionStatus = "in_progress"
	TradeStatusCompleted  TradeSessionStatus = "completed"
	TradeStatusAbandoned  TradeSessionStatus = "abandoned"
)

// TradePart is one recorded part purchase inside a trade session.
type TradePart struct {
	ID        string // UUID
	SessionID string
	PartName  string
	BuyPrice  float64
	Seller    string
	BoughtAt  time.Time
}

// TradeSession is a user-tracked attempt to buy all parts of an item and
// sell the completed set.
type TradeSession struct {
	ID           string // UUID
	UserID       int64
	ItemID       string
	ItemName     string
	Kind         ItemKind
	Parts        []TradePart
	TotalCost    float64
	SetSellPrice *float64
	Status       TradeSessionStatus
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Profit returns the realized profit, or nil while the set is unsold.
func (s TradeSession) Profit() *float64 {
	if s.SetSellPrice == nil {
		return nil
	}
	p := *s.SetSellPrice - s.TotalCost
	return &p
}
