package searchapi

import (
	"strings"

	"github.com/recipecart/backend/internal/domain"
)

type errorCarrier interface {
	errorMessage() string
}

type parseRequest struct {
	URL string `json:"url"`
}

type parseResponse struct {
	Ingredients []string `json:"ingredients"`
	Error       string   `json:"error,omitempty"`
}

func (r *parseResponse) errorMessage() string { return r.Error }

type searchRequest struct {
	Ingredient string `json:"ingredient"`
	Storefront string `json:"storefront"`
	Headless   bool   `json:"headless"`
}

type searchResponse struct {
	Options []wireOption `json:"options"`
	Query   string       `json:"query,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func (r *searchResponse) errorMessage() string { return r.Error }

type batchQuery struct {
	Ingredient string `json:"ingredient"`
	ID         int    `json:"id"`
	Storefront string `json:"storefront"`
}

type batchRequest struct {
	Queries  []batchQuery `json:"queries"`
	Headless bool         `json:"headless"`
}

type batchResult struct {
	Options []wireOption `json:"options"`
}

type batchResponse struct {
	Results []batchResult `json:"results"`
	Error   string        `json:"error,omitempty"`
}

func (r *batchResponse) errorMessage() string { return r.Error }

// wireOption is a product option as the backend serialises it
type wireOption struct {
	ASIN                        string       `json:"asin"`
	Title                       string       `json:"title"`
	Price                       domain.Price `json:"price"`
	Image                       string       `json:"image"`
	URL                         string       `json:"url"`
	Department                  string       `json:"department"`
	Confidence                  float64      `json:"confidence"`
	QuantityRecommendation      int          `json:"quantity_recommendation"`
	QuantityRecommendationCamel int          `json:"quantityRecommendation"`
}

// mapCandidates converts backend options to domain candidates, keeping the
// backend's ranking order and dropping options without an ASIN.
func mapCandidates(options []wireOption) []domain.ProductCandidate {
	candidates := make([]domain.ProductCandidate, 0, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt.ASIN) == "" {
			continue
		}
		candidates = append(candidates, mapCandidate(opt))
	}
	return candidates
}

// mapCandidate converts one backend option
func mapCandidate(opt wireOption) domain.ProductCandidate {
	quantity := opt.QuantityRecommendation
	if quantity <= 0 {
		quantity = opt.QuantityRecommendationCamel
	}
	return domain.ProductCandidate{
		ASIN:                   opt.ASIN,
		Title:                  opt.Title,
		Price:                  opt.Price,
		Image:                  opt.Image,
		URL:                    opt.URL,
		Department:             opt.Department,
		Confidence:             opt.Confidence,
		QuantityRecommendation: quantity,
	}
}
