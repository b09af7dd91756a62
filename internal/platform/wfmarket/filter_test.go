package wfmarket

import (
	"testing"

	"primeflip/internal/domain"
)

func order(side domain.OrderSide, visible bool, status, platform string, crossplay bool) domain.Order {
	return domain.Order{
		Side:     side,
		Platinum: 10,
		Visible:  visible,
		Seller: domain.Seller{
			Name:      "seller",
			Status:    status,
			Platform:  platform,
			Crossplay: crossplay,
		},
	}
}

func TestFilterOrders(t *testing.T) {
	cases := []struct {
		name     string
		order    domain.Order
		side     domain.OrderSide
		platform string
		keep     bool
	}{
		{
			name:     "pc sell order kept on pc",
			order:    order(domain.OrderSideSell, true, "ingame", "pc", false),
			side:     domain.OrderSideSell,
			platform: "pc",
			keep:     true,
		},
		{
			name:     "wrong side dropped",
			order:    order(domain.OrderSideBuy, true, "ingame", "pc", false),
			side:     domain.OrderSideSell,
			platform: "pc",
			keep:     false,
		},
		{
			name:     "invisible dropped",
			order:    order(domain.OrderSideSell, false, "ingame", "pc", false),
			side:     domain.OrderSideSell,
			platform: "pc",
			keep:     false,
		},
		{
			name:     "offline seller dropped",
			order:    order(domain.OrderSideSell, true, "offline", "pc", false),
			side:     domain.OrderSideSell,
			platform: "pc",
			keep:     false,
		},
		{
			name:     "merely online seller dropped",
			order:    order(domain.OrderSideSell, true, "online", "pc", false),
			side:     domain.OrderSideSell,
			platform: "pc",
			keep:     false,
		},
		{
			name:     "console seller dropped on pc even with crossplay",
			order:    order(domain.OrderSideSell, true, "ingame", "ps4", true),
			side:     domain.OrderSideSell,
			platform: "pc",
			keep:     false,
		},
		{
			name:     "crossplay seller kept on console",
			order:    order(domain.OrderSideSell, true, "ingame", "xbox", true),
			side:     domain.OrderSideSell,
			platform: "ps4",
			keep:     true,
		},
		{
			name:     "non-crossplay seller dropped on console",
			order:    order(domain.OrderSideSell, true, "ingame", "xbox", false),
			side:     domain.OrderSideSell,
			platform: "ps4",
			keep:     false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterOrders([]domain.Order{tc.order}, tc.side, tc.platform)
			if kept := len(got) == 1; kept != tc.keep {
				t.Errorf("kept = %v, want %v", kept, tc.keep)
			}
		})
	}
}

func TestFilterOrdersPreservesOrder(t *testing.T) {
	orders := []domain.Order{
		{ID: "a", Side: domain.OrderSideSell, Visible: true, Seller: domain.Seller{Status: "ingame", Platform: "pc"}},
		{ID: "b", Side: domain.OrderSideBuy, Visible: true, Seller: domain.Seller{Status: "ingame", Platform: "pc"}},
		{ID: "c", Side: domain.OrderSideSell, Visible: true, Seller: domain.Seller{Status: "ingame", Platform: "pc"}},
	}
	got := FilterOrders(orders, domain.OrderSideSell, "pc")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("got %v, want orders a then c", got)
	}
}
