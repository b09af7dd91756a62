package pricing

import (
	"time"

	"primeflip/internal/domain"
)

// ComputeOpportunity derives the arbitrage result for one tracked item
// from the filtered order lists of the current cycle, keyed the same way
// the marketplace keys them (item PartKey / SetKey). Parts with no orders
// or a zero metric are skipped; the opportunity proceeds with whatever
// part coverage exists, since one illiquid part should not suppress the
// whole item. It returns nil when the set itself has no orders or prices
// to 0 — without a valid set price the trade is meaningless and nothing
// must be emitted for the item.
func ComputeOpportunity(
	item domain.TrackedItem,
	ordersByKey map[string][]domain.Order,
	strategy, platform string,
	feePct float64,
	now time.Time,
) *domain.Opportunity {
	params := Params(strategy)

	partPrices := make(map[string]float64, len(item.Parts))
	parts := make([]domain.PartPrice, 0, len(item.Parts))
	for _, part := range item.Parts {
		orders := ordersByKey[item.PartKey(part)]
		if len(orders) == 0 {
			continue
		}
		price := Metric(orders, params.BuyMetric)
		if price <= 0 {
			continue
		}
		partPrices[part] = price
		parts = append(parts, domain.PartPrice{
			Name:   part,
			Price:  price,
			Source: string(params.BuySide) + "_" + params.BuyMetric,
			Seller: CheapestSeller(orders),
		})
	}

	setOrders := ordersByKey[item.SetKey()]
	if len(setOrders) == 0 {
		return nil
	}
	setPrice := Metric(setOrders, params.SellMetric)
	if setPrice == 0 {
		return nil
	}

	arb := Arbitrage(partPrices, setPrice, feePct)

	return &domain.Opportunity{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Kind:      item.Kind,
		Platform:  platform,
		Strategy:  strategy,
		Parts:     parts,
		SetPrice:  setPrice,
		SetSource: string(params.SellSide) + "_" + params.SellMetric,
		SetSeller: CheapestSeller(setOrders),
		PartsCost: arb.PartsCost,
		Fee:       arb.Fee,
		Profit:    arb.Profit,
		Margin:    arb.Margin,
		UpdatedAt: now,
	}
}

// CheapestSeller returns the seller name of the cheapest sell order in
// the list, ties broken by list order. The placeholder "User" is returned
// when no sell orders exist, matching the marketplace's anonymous label.
func CheapestSeller(orders []domain.Order) string {
	best := ""
	bestPrice := 0.0
	found := false
	for _, o := range orders {
		if o.Side != domain.OrderSideSell {
			continue
		}
		if !found || o.Platinum < bestPrice {
			best = o.Seller.Name
			bestPrice = o.Platinum
			found = true
		}
	}
	if !found {
		return "User"
	}
	return best
}
