package domain

// SelectedItem is the current choice for one ingredient. Quantity 0 means the
// ingredient is skipped: it stays in the model but is excluded from the cart
// and from cost totals.
type SelectedItem struct {
	IngredientIndex int     `json:"ingredientIndex"`
	ASIN            string  `json:"asin"`
	Title           string  `json:"title"`
	Price           Price   `json:"price"`
	URL             string  `json:"url,omitempty"`
	Quantity        int     `json:"quantity"`
	TotalPrice      float64 `json:"totalPrice"`
	DisplayText     string  `json:"displayText"`
}

// CartQueueEntry is the projection of a SelectedItem handed to the cart
// orchestrator.
type CartQueueEntry struct {
	ASIN     string `json:"asin" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
	URL      string `json:"url,omitempty"`
}

// CartSummary is the derived count and total of the active selection.
type CartSummary struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}
