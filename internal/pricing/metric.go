package pricing

import (
	"strconv"
	"strings"

	"primeflip/internal/domain"
)

// Metric computes the named statistic over the platinum prices of orders.
// Non-positive prices are excluded first. Supported names: "median",
// "min", "max", and "pNN" for the NN-th percentile ("p35" etc.). Empty or
// all-non-positive input, or an unknown metric name, yields 0.
func Metric(orders []domain.Order, name string) float64 {
	prices := make([]float64, 0, len(orders))
	for _, o := range orders {
		if o.Platinum > 0 {
			prices = append(prices, o.Platinum)
		}
	}
	if len(prices) == 0 {
		return 0
	}

	switch {
	case name == "median":
		return Percentile(prices, 50)
	case name == "min":
		return Percentile(prices, 0)
	case name == "max":
		return Percentile(prices, 100)
	case strings.HasPrefix(name, "p"):
		p, err := strconv.ParseFloat(name[1:], 64)
		if err != nil {
			return 0
		}
		return Percentile(prices, p)
	}
	return 0
}
