package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchClient defines the remote product search and recipe parsing backend.
type SearchClient interface {
	// SearchBatch resolves every query in one round trip. Results are in
	// query order.
	SearchBatch(ctx context.Context, queries []SearchQuery, headless bool) ([][]ProductCandidate, error)
	Search(ctx context.Context, ingredient, storefront string, headless bool) ([]ProductCandidate, error)
}

// RecipeParser turns a recipe URL into raw ingredient lines.
type RecipeParser interface {
	ParseRecipe(ctx context.Context, url string) ([]string, error)
}

// PreferenceStore persists user preferences.
type PreferenceStore interface {
	GetHeadless(ctx context.Context) (bool, error)
	SetHeadless(ctx context.Context, headless bool) error
}
