package scheduler

import (
	"fmt"
	"strings"

	"primeflip/internal/domain"
)

// formatAlert renders an opportunity as a human-readable notification
// body for the external channels.
func formatAlert(opp domain.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s)\n", opp.ItemName, opp.Platform, opp.Strategy)
	fmt.Fprintf(&b, "Buy parts: %.0fp", opp.PartsCost)
	for _, p := range opp.Parts {
		fmt.Fprintf(&b, "\n  %s: %.0fp from %s", p.Name, p.Price, p.Seller)
	}
	fmt.Fprintf(&b, "\nSell set: %.0fp to %s", opp.SetPrice, opp.SetSeller)
	if opp.Fee > 0 {
		fmt.Fprintf(&b, " (fee %.1fp)", opp.Fee)
	}
	fmt.Fprintf(&b, "\nProfit: %.1fp (%.0f%% margin)", opp.Profit, opp.Margin*100)
	return b.String()
}
