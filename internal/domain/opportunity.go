package domain

import "time"

// PriceMetric is a computed price together with the statistic that
// produced it, e.g. (42.5, "sell_p35").
type PriceMetric struct {
	Value  float64 `json:"value"`
	Source string  `json:"source"`
}

// PartPrice is the per-part pricing result inside an Opportunity.
type PartPrice struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Source string  `json:"source"`
	Seller string  `json:"seller"`
}

// Opportunity is the computed buy-parts/sell-set result for one tracked
// item in one cycle. Invariants: Profit = SetPrice - PartsCost - Fee;
// Margin = Profit / PartsCost, with 0 when PartsCost is 0.
type Opportunity struct {
	ItemID    string      `json:"item_id"`
	ItemName  string      `json:"item_name"`
	Kind      ItemKind    `json:"item_type"`
	Platform  string      `json:"platform"`
	Strategy  string      `json:"strategy"`
	Parts     []PartPrice `json:"parts"`
	SetPrice  float64     `json:"set_price"`
	SetSource string      `json:"set_source"`
	SetSeller string      `json:"set_seller"`
	PartsCost float64     `json:"parts_cost"`
	Fee       float64     `json:"fee"`
	Profit    float64     `json:"profit"`
	Margin    float64     `json:"margin"`
	UpdatedAt time.Time   `json:"last_updated"`
}

// OpportunitySet is the scheduler's shared current state: every
// opportunity produced by the latest completed cycle, in catalog order.
// It is replaced wholesale each cycle so readers never observe a view
// mixing two cycles.
type OpportunitySet struct {
	Opportunities []Opportunity `json:"opportunities"`
	UpdatedAt     time.Time     `json:"timestamp"`
}

// Filtered returns the opportunities meeting both thresholds, preserving
// catalog order.
func (s *OpportunitySet) Filtered(minProfit, minMargin float64) []Opportunity {
	if s == nil {
		return nil
	}
	out := make([]Opportunity, 0, len(s.Opportunities))
	for _, opp := range s.Opportunities {
		if opp.Profit >= minProfit && opp.Margin >= minMargin {
			out = append(out, opp)
		}
	}
	return out
}
