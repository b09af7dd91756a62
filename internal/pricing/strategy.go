package pricing

import "primeflip/internal/domain"

// DefaultStrategy is used whenever an unknown strategy name is requested.
const DefaultStrategy = "balanced"

// StrategyParams selects which order side and metric govern each half of
// the trade: acquiring the individual parts and liquidating the set.
type StrategyParams struct {
	BuySide    domain.OrderSide
	BuyMetric  string
	SellSide   domain.OrderSide
	SellMetric string
}

// strategies maps a risk posture to its pricing parameters. Conservative
// assumes parts are bought at the going sell price and the set dumped
// straight into buy orders; aggressive assumes patient sniping of the
// cheapest listings on both legs.
var strategies = map[string]StrategyParams{
	"conservative": {
		BuySide:    domain.OrderSideSell,
		BuyMetric:  "median",
		SellSide:   domain.OrderSideBuy,
		SellMetric: "max",
	},
	"balanced": {
		BuySide:    domain.OrderSideSell,
		BuyMetric:  "p35",
		SellSide:   domain.OrderSideSell,
		SellMetric: "median",
	},
	"aggressive": {
		BuySide:    domain.OrderSideSell,
		BuyMetric:  "min",
		SellSide:   domain.OrderSideSell,
		SellMetric: "min",
	},
}

// Params returns the parameters for a named strategy, falling back to the
// balanced posture for unknown names.
func Params(strategy string) StrategyParams {
	if p, ok := strategies[strategy]; ok {
		return p
	}
	return strategies[DefaultStrategy]
}

// KnownStrategies lists the recognized strategy names.
func KnownStrategies() []string {
	return []string{"conservative", "balanced", "aggressive"}
}
