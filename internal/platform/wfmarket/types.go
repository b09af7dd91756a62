package wfmarket

import "primeflip/internal/domain"

// ordersResponse is the wire shape of GET /items/{key}/orders.
type ordersResponse struct {
	Payload struct {
		Orders []wireOrder `json:"orders"`
	} `json:"payload"`
}

// wireOrder is one marketplace listing as returned by the API.
type wireOrder struct {
	ID        string  `json:"id"`
	OrderType string  `json:"order_type"`
	Platinum  float64 `json:"platinum"`
	Quantity  int     `json:"quantity"`
	Visible   bool    `json:"visible"`
	User      struct {
		IngameName string `json:"ingame_name"`
		Status     string `json:"status"`
		Platform   string `json:"platform"`
		Crossplay  bool   `json:"crossplay"`
	} `json:"user"`
}

// toDomain converts a wire order into the single concrete Order shape the
// rest of the system sees.
func (w wireOrder) toDomain() domain.Order {
	return domain.Order{
		ID:       w.ID,
		Side:     domain.OrderSide(w.OrderType),
		Platinum: w.Platinum,
		Quantity: w.Quantity,
		Visible:  w.Visible,
		Seller: domain.Seller{
			Name:      w.User.IngameName,
			Status:    w.User.Status,
			Platform:  w.User.Platform,
			Crossplay: w.User.Crossplay,
		},
	}
}

// itemsResponse is the wire shape of GET /items.
type itemsResponse struct {
	Payload struct {
		Items []struct {
			URLName  string `json:"url_name"`
			ItemName string `json:"item_name"`
		} `json:"items"`
	} `json:"payload"`
}
