package domain

// OrderSide is the direction of a marketplace listing.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// PlatformPC is the primary platform. Its market is deep enough that only
// exact-platform orders are considered; every other platform pools
// liquidity through cross-play instead.
const PlatformPC = "pc"

// Seller is the marketplace identity attached to an order.
type Seller struct {
	Name      string // in-game name
	Status    string // "ingame", "online", "offline"
	Platform  string // "pc", "ps4", "xbox", "switch"
	Crossplay bool
}

// Online reports whether the seller is actively in game and therefore
// able to complete a trade.
func (s Seller) Online() bool {
	return s.Status == "ingame"
}

// Order is one marketplace listing, fetched fresh every cycle and never
// mutated.
type Order struct {
	ID       string
	Side     OrderSide
	Platinum float64
	Quantity int
	Visible  bool
	Seller   Seller
}
