package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// ClientConfig holds search backend client configuration
type ClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client talks to the recipe parsing and product search backend. It never
// retries: a failed call is reported to the caller as is.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	debug       bool
	logger      logrus.FieldLogger
}

// NewClient creates a new search backend client
func NewClient(baseURL string, config ClientConfig, logger logrus.FieldLogger) *Client {
	if config.Timeout <= 0 {
		// Batch searches drive a real browser on the backend and are slow
		config.Timeout = 120 * time.Second
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, config.Burst),
		logger:      logger.WithField("component", "searchapi"),
	}
}

// SetDebug enables request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		c.logger.Debugf(format, args...)
	}
}

// ParseRecipe implements domain.RecipeParser via POST /api/parse.
func (c *Client) ParseRecipe(ctx context.Context, url string) ([]string, error) {
	if url == "" {
		return nil, domain.ErrInvalidRequest
	}

	var resp parseResponse
	if err := c.postJSON(ctx, "/api/parse", parseRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Ingredients) == 0 {
		return nil, domain.ErrNoIngredients
	}
	return resp.Ingredients, nil
}

// Search implements the single-item search via POST /api/search.
func (c *Client) Search(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
	c.debugLog("Search called with ingredient: %q storefront: %q", ingredient, storefront)

	var resp searchResponse
	err := c.postJSON(ctx, "/api/search", searchRequest{
		Ingredient: ingredient,
		Storefront: storefront,
		Headless:   headless,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return mapCandidates(resp.Options), nil
}

// SearchBatch resolves a batch via POST /api/search-batch. Results are
// returned in query order.
func (c *Client) SearchBatch(ctx context.Context, queries []domain.SearchQuery, headless bool) ([][]domain.ProductCandidate, error) {
	request := batchRequest{
		Queries:  make([]batchQuery, len(queries)),
		Headless: headless,
	}
	for i, q := range queries {
		request.Queries[i] = batchQuery{
			Ingredient: q.IngredientText,
			ID:         q.IngredientIndex,
			Storefront: q.Storefront,
		}
	}

	var resp batchResponse
	if err := c.postJSON(ctx, "/api/search-batch", request, &resp); err != nil {
		return nil, err
	}

	results := make([][]domain.ProductCandidate, len(resp.Results))
	for i, result := range resp.Results {
		results[i] = mapCandidates(result.Options)
	}
	c.logger.WithFields(logrus.Fields{
		"queries": len(queries),
		"results": len(results),
	}).Info("Batch search complete")
	return results, nil
}

// postJSON sends body to path and decodes the JSON answer into out. An
// explicit error field in the answer wins over the status code.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out errorCarrier) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RecipeCart/1.0")

	c.debugLog("POST %s %s", path, string(payload))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := readLimitedBody(resp.Body, maxResponseBytes)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", domain.ErrTransport, err)
	}
	c.debugLog("POST %s -> %d %s", path, resp.StatusCode, string(data))

	decodeErr := json.Unmarshal(data, out)
	if decodeErr == nil {
		if msg := out.errorMessage(); msg != "" {
			return fmt.Errorf("%w: %s", domain.ErrBackendSemantic, msg)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: failed to decode response: %v", domain.ErrTransport, decodeErr)
	}
	return nil
}

// readLimitedBody reads at most limit bytes from r
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}
