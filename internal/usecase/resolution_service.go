package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ResolutionSink receives the outcome of batched resolution for one session.
type ResolutionSink interface {
	// MarkSearching is called before a batch is sent.
	MarkSearching(indices []int)
	// ApplyResolution is called once per ingredient of a successful batch.
	ApplyResolution(resolution domain.Resolution)
	// MarkFailed is called for every ingredient of a failed batch.
	MarkFailed(indices []int, err error)
}

// ResolutionServiceConfig holds configuration for the resolution service
type ResolutionServiceConfig struct {
	CacheTTL time.Duration
}

// ResolutionService turns ingredients into ranked candidates through the
// remote search backend.
type ResolutionService struct {
	client       domain.SearchClient
	cache        domain.CacheRepository
	batcher      *QueryBatcher
	preprocessor *IngredientPreprocessor
	cacheTTL     time.Duration
	logger       logrus.FieldLogger
}

// NewResolutionService creates a new resolution service with dependencies
func NewResolutionService(
	client domain.SearchClient,
	cache domain.CacheRepository,
	batcher *QueryBatcher,
	preprocessor *IngredientPreprocessor,
	config ResolutionServiceConfig,
	logger logrus.FieldLogger,
) *ResolutionService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if batcher == nil {
		batcher = NewQueryBatcher(QueryBatcherConfig{}, nil, logger)
	}
	if preprocessor == nil {
		preprocessor = NewIngredientPreprocessor(false, logger)
	}

	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &ResolutionService{
		client:       client,
		cache:        cache,
		batcher:      batcher,
		preprocessor: preprocessor,
		cacheTTL:     cacheTTL,
		logger:       logger.WithField("component", "resolution"),
	}
}

// ResolveAll resolves ingredients batch by batch, reporting into sink. A
// failed batch marks its own rows and does not stop the following batches.
func (s *ResolutionService) ResolveAll(
	ctx context.Context,
	ingredients []domain.Ingredient,
	storefront string,
	headless bool,
	sink ResolutionSink,
) error {
	return s.batcher.Run(ctx, ingredients, storefront, func(ctx context.Context, batch Batch) {
		indices := batch.Indices()
		sink.MarkSearching(indices)

		resolutions, err := s.ResolveBatch(ctx, batch, headless)
		if err != nil {
			s.logger.WithError(err).WithField("batch", batch.Number).Warn("Batch resolution failed")
			sink.MarkFailed(indices, err)
			return
		}
		for _, resolution := range resolutions {
			sink.ApplyResolution(resolution)
		}
	})
}

// ResolveBatch performs the remote call for one batch. The backend cannot
// report per-item failure, so any error fails the whole batch. Each returned
// resolution is mapped back to the ingredient index of the query at the same
// position; queries without a result resolve to no candidates.
func (s *ResolutionService) ResolveBatch(ctx context.Context, batch Batch, headless bool) ([]domain.Resolution, error) {
	ctx, span := tracer.Start(ctx, "resolution.batch", trace.WithAttributes(
		attribute.Int("batch.number", batch.Number),
		attribute.Int("batch.size", len(batch.Queries)),
	))
	defer span.End()

	if len(batch.Queries) == 0 {
		return nil, nil
	}

	results, err := s.client.SearchBatch(ctx, batch.Queries, headless)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(results) != len(batch.Queries) {
		s.logger.WithFields(logrus.Fields{
			"batch":   batch.Number,
			"queries": len(batch.Queries),
			"results": len(results),
		}).Warn("Result count does not match query count")
	}

	resolutions := make([]domain.Resolution, len(batch.Queries))
	for i, query := range batch.Queries {
		resolutions[i] = domain.Resolution{IngredientIndex: query.IngredientIndex}
		if i < len(results) {
			resolutions[i].Candidates = results[i]
		}
	}
	return resolutions, nil
}

// Search resolves a single ingredient, serving repeated lookups from cache.
// Flow: check cache -> search backend -> cache non-empty results -> return
func (s *ResolutionService) Search(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
	if ingredient == "" {
		return nil, domain.ErrInvalidRequest
	}
	if storefront == "" {
		storefront = domain.StorefrontAmazon
	}

	cacheKey := s.preprocessor.CacheKey(ingredient, storefront)

	// Try cache first
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil && len(cached) > 0 {
		return cached, nil
	}

	candidates, err := s.client.Search(ctx, ingredient, storefront, headless)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoProducts
	}

	if err := s.setInCache(ctx, cacheKey, candidates); err != nil {
		s.logger.WithError(err).WithField("key", cacheKey).Warn("Failed to cache search result")
	}

	return candidates, nil
}

// getFromCache retrieves a candidate list from cache
func (s *ResolutionService) getFromCache(ctx context.Context, key string) ([]domain.ProductCandidate, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if candidates, ok := value.([]domain.ProductCandidate); ok {
		return candidates, nil
	}

	// The memory cache stores JSON-normalised values; decode them back
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
	}
	var candidates []domain.ProductCandidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheMiss, err)
	}
	return candidates, nil
}

// setInCache stores a candidate list in cache
func (s *ResolutionService) setInCache(ctx context.Context, key string, candidates []domain.ProductCandidate) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, candidates, s.cacheTTL)
}
