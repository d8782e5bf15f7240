package usecase

import (
	"math"

	"github.com/recipecart/backend/internal/domain"
)

// Aggregate derives the cart count and total from a selection snapshot.
// Only items with a positive quantity count; a non-finite total contributes 0.
func Aggregate(items []domain.SelectedItem) domain.CartSummary {
	var summary domain.CartSummary
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		summary.Count++
		if math.IsNaN(item.TotalPrice) || math.IsInf(item.TotalPrice, 0) {
			continue
		}
		summary.Total += item.TotalPrice
	}
	summary.Total = roundCents(summary.Total)
	return summary
}
