package domain

import "strconv"

// Storefront names accepted by the search backend and the tab locator.
const (
	StorefrontAmazon     = "amazon"
	StorefrontFresh      = "fresh"
	StorefrontWholeFoods = "wholefoods"
)

// Ingredient is one line of a parsed recipe. It is identified only by its
// position in the original list.
type Ingredient struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// NewIngredients assigns stable indices to raw ingredient lines.
func NewIngredients(lines []string) []Ingredient {
	ingredients := make([]Ingredient, len(lines))
	for i, line := range lines {
		ingredients[i] = Ingredient{Index: i, Text: line}
	}
	return ingredients
}

// SearchQuery is the per-ingredient request sent to the resolution service.
type SearchQuery struct {
	IngredientIndex int    `json:"id"`
	IngredientText  string `json:"ingredient"`
	Storefront      string `json:"storefront"`
}

// Price holds a unit price as delivered by the search backend, which sends
// either a currency string ("$3.50") or a bare number.
type Price struct {
	Raw string
}

// NumericPrice builds a Price from a float value.
func NumericPrice(v float64) Price {
	return Price{Raw: strconv.FormatFloat(v, 'f', -1, 64)}
}

// String returns the price as received.
func (p Price) String() string {
	return p.Raw
}

// ProductCandidate is one ranked product returned for an ingredient.
// Candidates are ordered by relevance; the first is the best match.
type ProductCandidate struct {
	ASIN                   string  `json:"asin"`
	Title                  string  `json:"title"`
	Price                  Price   `json:"price"`
	Image                  string  `json:"image,omitempty"`
	URL                    string  `json:"url,omitempty"`
	Department             string  `json:"department,omitempty"`
	Confidence             float64 `json:"confidence,omitempty"`
	QuantityRecommendation int     `json:"quantityRecommendation,omitempty"`
}

// Resolution is the list of candidates found for one ingredient.
type Resolution struct {
	IngredientIndex int                `json:"ingredientIndex"`
	Candidates      []ProductCandidate `json:"candidates"`
}

// RowStatus tracks the search progress of one ingredient row.
type RowStatus string

const (
	RowPending    RowStatus = "pending"
	RowSearching  RowStatus = "searching"
	RowResolved   RowStatus = "resolved"
	RowNoProducts RowStatus = "no_products"
	RowError      RowStatus = "error"
)
