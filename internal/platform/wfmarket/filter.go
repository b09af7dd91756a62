package wfmarket

import "primeflip/internal/domain"

// FilterOrders reduces a raw order list to the subset usable for pricing:
// the requested side, visible, seller in game, and a platform match. On
// the primary platform (pc) only exact-platform orders qualify; on every
// other platform the seller must have cross-play enabled, since console
// markets pool liquidity across platforms.
func FilterOrders(orders []domain.Order, side domain.OrderSide, platform string) []domain.Order {
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Side != side || !o.Visible || !o.Seller.Online() {
			continue
		}
		if platform == domain.PlatformPC {
			if o.Seller.Platform != domain.PlatformPC {
				continue
			}
		} else if !o.Seller.Crossplay {
			continue
		}
		out = append(out, o)
	}
	return out
}
