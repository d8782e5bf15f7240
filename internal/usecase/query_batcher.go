package usecase

import (
	"context"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// Batching defaults
const (
	DefaultBatchSize  = 4
	DefaultBatchDelay = 1000 * time.Millisecond
)

// Batch is an ordered chunk of queries. Number is zero-based.
type Batch struct {
	Number  int
	Queries []domain.SearchQuery
}

// Indices returns the ingredient indices covered by the batch.
func (b Batch) Indices() []int {
	indices := make([]int, len(b.Queries))
	for i, q := range b.Queries {
		indices[i] = q.IngredientIndex
	}
	return indices
}

// PartitionQueries splits ingredients into batches of at most size queries.
// Batch i holds ingredients [i*size, min((i+1)*size, n)).
func PartitionQueries(ingredients []domain.Ingredient, storefront string, size int) []Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([]Batch, 0, (len(ingredients)+size-1)/size)
	for start := 0; start < len(ingredients); start += size {
		end := start + size
		if end > len(ingredients) {
			end = len(ingredients)
		}
		queries := make([]domain.SearchQuery, 0, end-start)
		for _, ing := range ingredients[start:end] {
			queries = append(queries, domain.SearchQuery{
				IngredientIndex: ing.Index,
				IngredientText:  ing.Text,
				Storefront:      storefront,
			})
		}
		batches = append(batches, Batch{Number: len(batches), Queries: queries})
	}
	return batches
}

// BatchFunc processes one batch. It is called strictly in order and never
// concurrently.
type BatchFunc func(ctx context.Context, batch Batch)

// QueryBatcherConfig holds configuration for the query batcher
type QueryBatcherConfig struct {
	Size  int
	Delay time.Duration
}

// QueryBatcher runs batches one at a time with a fixed pause between them so
// at most one batch is in flight against the search backend.
type QueryBatcher struct {
	size   int
	delay  time.Duration
	sleep  SleepFunc
	logger logrus.FieldLogger
}

// NewQueryBatcher creates a query batcher
func NewQueryBatcher(config QueryBatcherConfig, sleep SleepFunc, logger logrus.FieldLogger) *QueryBatcher {
	size := config.Size
	if size <= 0 {
		size = DefaultBatchSize
	}
	delay := config.Delay
	if delay < 0 {
		delay = DefaultBatchDelay
	}
	if sleep == nil {
		sleep = ContextSleep
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &QueryBatcher{
		size:   size,
		delay:  delay,
		sleep:  sleep,
		logger: logger.WithField("component", "batcher"),
	}
}

// Size returns the configured batch size
func (b *QueryBatcher) Size() int {
	return b.size
}

// Run partitions ingredients and hands each batch to fn in order. It stops
// early only when ctx is cancelled.
func (b *QueryBatcher) Run(ctx context.Context, ingredients []domain.Ingredient, storefront string, fn BatchFunc) error {
	batches := PartitionQueries(ingredients, storefront, b.size)
	b.logger.WithFields(logrus.Fields{
		"ingredients": len(ingredients),
		"batches":     len(batches),
		"storefront":  storefront,
	}).Info("Starting batched resolution")

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		fn(ctx, batch)

		if i < len(batches)-1 {
			if err := b.sleep(ctx, b.delay); err != nil {
				return err
			}
		}
	}
	return nil
}
