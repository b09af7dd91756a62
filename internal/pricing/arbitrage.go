package pricing

// ArbitrageResult is the profit math for one buy-parts/sell-set trade.
type ArbitrageResult struct {
	PartsCost float64
	SetPrice  float64
	Fee       float64
	Profit    float64
	Margin    float64
}

// Arbitrage computes the profit of buying every part at partPrices and
// selling the completed set at setPrice, minus a marketplace fee taken as
// a fraction of the set price. A zero parts cost returns a zero result
// rather than faulting; margin is profit relative to capital outlay.
func Arbitrage(partPrices map[string]float64, setPrice, feePct float64) ArbitrageResult {
	var partsCost float64
	for _, p := range partPrices {
		partsCost += p
	}

	if partsCost == 0 {
		return ArbitrageResult{SetPrice: setPrice}
	}

	fee := setPrice * feePct
	profit := setPrice - partsCost - fee
	return ArbitrageResult{
		PartsCost: partsCost,
		SetPrice:  setPrice,
		Fee:       fee,
		Profit:    profit,
		Margin:    profit / partsCost,
	}
}
