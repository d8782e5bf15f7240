package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/recipecart/backend/config"
	"github.com/recipecart/backend/internal/domain"
	"github.com/recipecart/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// mockSearchClient implements domain.SearchClient and domain.RecipeParser
type mockSearchClient struct {
	searchBatchFunc func(ctx context.Context, queries []domain.SearchQuery, headless bool) ([][]domain.ProductCandidate, error)
	searchFunc      func(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error)
	parseFunc       func(ctx context.Context, url string) ([]string, error)
}

func (m *mockSearchClient) SearchBatch(ctx context.Context, queries []domain.SearchQuery, headless bool) ([][]domain.ProductCandidate, error) {
	if m.searchBatchFunc != nil {
		return m.searchBatchFunc(ctx, queries, headless)
	}
	return make([][]domain.ProductCandidate, len(queries)), nil
}

func (m *mockSearchClient) Search(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, ingredient, storefront, headless)
	}
	return nil, nil
}

func (m *mockSearchClient) ParseRecipe(ctx context.Context, url string) ([]string, error) {
	if m.parseFunc != nil {
		return m.parseFunc(ctx, url)
	}
	return nil, domain.ErrNoIngredients
}

// memoryPreferences implements domain.PreferenceStore
type memoryPreferences struct {
	mu       sync.Mutex
	headless *bool
}

func (p *memoryPreferences) GetHeadless(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.headless == nil {
		return false, domain.ErrPreferenceNotFound
	}
	return *p.headless, nil
}

func (p *memoryPreferences) SetHeadless(ctx context.Context, headless bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.headless = &headless
	return nil
}

// stubBrowser is a storefront tab that loads instantly and exposes the
// standard quantity dropdown and add-to-cart button.
type stubBrowser struct {
	waiter *usecase.LoadWaiter
	gate   chan struct{}

	mu   sync.Mutex
	urls []string
}

func (b *stubBrowser) tab() domain.Tab {
	return domain.Tab{ID: "tab-1", URL: "https://www.amazon.com/", Active: true}
}

func (b *stubBrowser) ActiveTab(ctx context.Context) (*domain.Tab, error) {
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	tab := b.tab()
	return &tab, nil
}

func (b *stubBrowser) ListTabs(ctx context.Context) ([]domain.Tab, error) {
	return []domain.Tab{b.tab()}, nil
}

func (b *stubBrowser) CreateTab(ctx context.Context, url string) (*domain.Tab, error) {
	tab := b.tab()
	return &tab, nil
}

func (b *stubBrowser) Navigate(ctx context.Context, tabID, url string) (domain.Navigation, error) {
	b.mu.Lock()
	b.urls = append(b.urls, url)
	nav := domain.Navigation{TabID: tabID, ID: strconv.Itoa(len(b.urls))}
	b.mu.Unlock()

	b.waiter.PublishLoad(domain.LoadEvent{TabID: tabID, NavigationID: nav.ID, Status: domain.LoadStatusComplete})
	return nav, nil
}

func (b *stubBrowser) Probe(ctx context.Context, tabID string) (domain.DOMProbe, error) {
	return stubProbe{}, nil
}

type stubProbe struct{}

func (stubProbe) Query(ctx context.Context, selector string) (*domain.Element, error) {
	switch selector {
	case "#quantity":
		return &domain.Element{Selector: selector, Tag: "SELECT"}, nil
	case "#add-to-cart-button":
		return &domain.Element{Selector: selector, Tag: "INPUT"}, nil
	}
	return nil, nil
}

func (stubProbe) SetValue(ctx context.Context, selector, value string, events []string) error {
	return nil
}

func (stubProbe) Click(ctx context.Context, selector string) error {
	return nil
}

type testEnv struct {
	router      *gin.Engine
	client      *mockSearchClient
	browser     *stubBrowser
	sessions    *usecase.SessionService
	runs        *usecase.CartRunService
	events      *usecase.EventBus
	preferences *memoryPreferences
}

// setupTestRouter creates a test router backed by real services and stub
// collaborators
func setupTestRouter(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
	}

	env := &testEnv{
		client:      &mockSearchClient{},
		preferences: &memoryPreferences{},
	}
	env.events = usecase.NewEventBus(nil)
	preprocessor := usecase.NewIngredientPreprocessor(false, nil)
	batcher := usecase.NewQueryBatcher(usecase.QueryBatcherConfig{Size: 4}, noSleep, nil)
	resolver := usecase.NewResolutionService(env.client, nil, batcher, preprocessor, usecase.ResolutionServiceConfig{}, nil)
	env.sessions = usecase.NewSessionService(env.client, resolver, env.preferences, preprocessor, env.events, nil)
	t.Cleanup(env.sessions.Shutdown)

	waiter := usecase.NewLoadWaiter()
	env.browser = &stubBrowser{waiter: waiter}
	locator := usecase.NewTabLocator(env.browser, "amazon.com", nil)
	agent := usecase.NewPageAutomationAgent(usecase.PageAutomationAgentConfig{}, noSleep, nil)
	processor := usecase.NewCartQueueProcessor(env.browser, locator, agent, waiter, usecase.CartQueueProcessorConfig{
		SiteDomain:  "amazon.com",
		HomeURL:     "https://www.amazon.com",
		LoadTimeout: time.Second,
	}, noSleep, nil)
	env.runs = usecase.NewCartRunService(context.Background(), processor, env.events, nil)

	handler := NewHandler(env.sessions, resolver, env.runs, env.preferences, nil)
	env.router = SetupRouter(cfg, handler, NewEventStream(env.events, cfg.Server.AllowedOrigins, nil), nil)
	return env
}

func (env *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

// startResolvedSession creates a session for flour and eggs where flour
// resolves to a $3.50 product with a recommended quantity of 2 and eggs
// finds nothing.
func startResolvedSession(t *testing.T, env *testEnv) usecase.SessionView {
	t.Helper()

	env.client.searchBatchFunc = func(ctx context.Context, queries []domain.SearchQuery, headless bool) ([][]domain.ProductCandidate, error) {
		results := make([][]domain.ProductCandidate, len(queries))
		for i, q := range queries {
			if strings.Contains(q.IngredientText, "flour") {
				results[i] = []domain.ProductCandidate{
					{ASIN: "B1", Title: "Flour", Price: domain.Price{Raw: "$3.50"}, QuantityRecommendation: 2},
					{ASIN: "B2", Title: "Bread Flour", Price: domain.Price{Raw: "$4.00"}},
				}
			}
		}
		return results, nil
	}

	w := env.do(http.MethodPost, "/api/v1/sessions", gin.H{
		"ingredients": []string{"2 cups flour", "3 eggs"},
		"storefront":  "amazon",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created usecase.SessionView
	decode(t, w, &created)

	session, err := env.sessions.Get(created.ID)
	require.NoError(t, err)
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session resolution did not finish")
	}

	return session.View()
}

func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		decode(t, w, &response)
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "recipecart-backend", response["service"])
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/health", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSessionEndpoints(t *testing.T) {
	t.Run("resolves rows and seeds the selection", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		require.Len(t, view.Rows, 2)
		assert.Equal(t, domain.RowResolved, view.Rows[0].Status)
		assert.Equal(t, "flour", view.Rows[0].Label)
		assert.Equal(t, domain.RowNoProducts, view.Rows[1].Status)
		assert.True(t, view.Resolved)

		require.Len(t, view.Selection, 1)
		assert.Equal(t, "B1", view.Selection[0].ASIN)
		assert.Equal(t, 2, view.Selection[0].Quantity)
		assert.Equal(t, "$3.5 ea (Total: $7.00)", view.Selection[0].DisplayText)
		assert.Equal(t, domain.CartSummary{Count: 1, Total: 7}, view.Summary)

		w := env.do(http.MethodGet, "/api/v1/sessions/"+view.ID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodGet, "/api/v1/sessions/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 400 without url or ingredients", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/sessions", gin.H{"storefront": "amazon"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/sessions", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("parses the recipe url", func(t *testing.T) {
		env := setupTestRouter(t)
		env.client.parseFunc = func(ctx context.Context, url string) ([]string, error) {
			assert.Equal(t, "https://example.com/cake", url)
			return []string{"1 cup sugar", "  "}, nil
		}

		w := env.do(http.MethodPost, "/api/v1/sessions", gin.H{"url": "https://example.com/cake"})
		require.Equal(t, http.StatusCreated, w.Code)

		var view usecase.SessionView
		decode(t, w, &view)
		require.Len(t, view.Rows, 1)
		assert.Equal(t, "1 cup sugar", view.Rows[0].Text)
		assert.Equal(t, domain.StorefrontAmazon, view.Storefront)
	})

	t.Run("returns 422 when the backend rejects the recipe", func(t *testing.T) {
		env := setupTestRouter(t)
		env.client.parseFunc = func(ctx context.Context, url string) ([]string, error) {
			return nil, fmt.Errorf("%w: Could not find ingredients", domain.ErrBackendSemantic)
		}

		w := env.do(http.MethodPost, "/api/v1/sessions", gin.H{"url": "https://example.com/cake"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "Could not find ingredients")
	})

	t.Run("returns 502 when the backend is unreachable", func(t *testing.T) {
		env := setupTestRouter(t)
		env.client.parseFunc = func(ctx context.Context, url string) ([]string, error) {
			return nil, fmt.Errorf("%w: connection refused", domain.ErrTransport)
		}

		w := env.do(http.MethodPost, "/api/v1/sessions", gin.H{"url": "https://example.com/cake"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestSelectionEndpoints(t *testing.T) {
	t.Run("selects another candidate", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/0/selection", gin.H{"asin": "B2"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var item domain.SelectedItem
		decode(t, w, &item)
		assert.Equal(t, "B2", item.ASIN)
		assert.Equal(t, 1, item.Quantity)
		assert.Equal(t, 4.0, item.TotalPrice)
	})

	t.Run("returns 404 for an unknown candidate", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/0/selection", gin.H{"asin": "NOPE"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 400 for a non-numeric index", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/first/selection", gin.H{"asin": "B1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("clamps negative quantity to skipped", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/0/quantity", gin.H{"quantity": -3})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var item domain.SelectedItem
		decode(t, w, &item)
		assert.Equal(t, 0, item.Quantity)
		assert.Equal(t, "Skipped", item.DisplayText)

		w = env.do(http.MethodGet, "/api/v1/sessions/"+view.ID+"/summary", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var summary domain.CartSummary
		decode(t, w, &summary)
		assert.Equal(t, domain.CartSummary{Count: 0, Total: 0}, summary)
	})

	t.Run("returns 400 when quantity is missing", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/0/quantity", gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 for quantity on an unselected row", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/1/quantity", gin.H{"quantity": 2})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSubmitSession(t *testing.T) {
	t.Run("starts a run with the non-skipped items", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPost, "/api/v1/sessions/"+view.ID+"/submit", nil)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		var response map[string]string
		decode(t, w, &response)
		runID := response["runId"]
		require.NotEmpty(t, runID)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		report, err := env.runs.Wait(ctx, runID)
		require.NoError(t, err)
		require.Len(t, report.Items, 1)
		assert.True(t, report.Items[0].Success)
		assert.Equal(t, "B1", report.Items[0].ASIN)

		env.browser.mu.Lock()
		assert.Equal(t, []string{"https://www.amazon.com/dp/B1"}, env.browser.urls)
		env.browser.mu.Unlock()

		w = env.do(http.MethodGet, "/api/v1/runs/"+runID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got domain.RunReport
		decode(t, w, &got)
		assert.True(t, got.Done)
		assert.Equal(t, domain.RunIdle, got.State)
	})

	t.Run("returns 400 when every item is skipped", func(t *testing.T) {
		env := setupTestRouter(t)
		view := startResolvedSession(t, env)

		w := env.do(http.MethodPut, "/api/v1/sessions/"+view.ID+"/items/0/quantity", gin.H{"quantity": 0})
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(http.MethodPost, "/api/v1/sessions/"+view.ID+"/submit", gin.H{"storefront": "fresh"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	t.Run("returns candidates", func(t *testing.T) {
		env := setupTestRouter(t)
		env.client.searchFunc = func(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
			assert.Equal(t, "butter", ingredient)
			assert.Equal(t, domain.StorefrontAmazon, storefront)
			assert.True(t, headless)
			return []domain.ProductCandidate{{ASIN: "B9", Title: "Butter", Price: domain.Price{Raw: "$5.00"}}}, nil
		}

		w := env.do(http.MethodPost, "/api/v1/search", gin.H{"ingredient": "butter"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), `"asin":"B9"`)
	})

	t.Run("uses the saved headless preference", func(t *testing.T) {
		env := setupTestRouter(t)
		require.NoError(t, env.preferences.SetHeadless(context.Background(), false))
		env.client.searchFunc = func(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
			assert.False(t, headless)
			return []domain.ProductCandidate{{ASIN: "B9"}}, nil
		}

		w := env.do(http.MethodPost, "/api/v1/search", gin.H{"ingredient": "butter"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("returns 404 when no products found", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/search", gin.H{"ingredient": "unobtainium"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 502 for backend failure", func(t *testing.T) {
		env := setupTestRouter(t)
		env.client.searchFunc = func(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
			return nil, fmt.Errorf("%w: status 500", domain.ErrTransport)
		}

		w := env.do(http.MethodPost, "/api/v1/search", gin.H{"ingredient": "butter"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("returns 400 for missing ingredient", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/search", gin.H{"storefront": "fresh"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMessagesEndpoint(t *testing.T) {
	t.Run("answers ping", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/messages", gin.H{"action": "ping"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
	})

	t.Run("rejects unknown actions", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/messages", gin.H{"action": "checkout"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		env := setupTestRouter(t)

		w := env.do(http.MethodPost, "/api/v1/messages", gin.H{"action": "addToCart", "items": []gin.H{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("allows only one run at a time", func(t *testing.T) {
		env := setupTestRouter(t)
		env.browser.gate = make(chan struct{})

		body := gin.H{
			"action": "addToCart",
			"items":  []gin.H{{"asin": "B1", "quantity": 2}},
		}
		w := env.do(http.MethodPost, "/api/v1/messages", body)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		var response map[string]string
		decode(t, w, &response)

		w = env.do(http.MethodPost, "/api/v1/messages", body)
		assert.Equal(t, http.StatusConflict, w.Code)

		close(env.browser.gate)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		report, err := env.runs.Wait(ctx, response["runId"])
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded())
	})
}

func TestRunsEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreferencesEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodGet, "/api/v1/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"headless":true}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/v1/preferences", gin.H{"headless": false})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/preferences", nil)
	assert.JSONEq(t, `{"headless":false}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/v1/preferences", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventStream(t *testing.T) {
	env := setupTestRouter(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.events.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.events.Publish(domain.Event{Type: domain.EventRunFinished, RunID: "run-1", Status: "1/1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, domain.EventRunFinished, event.Type)
	assert.Equal(t, "run-1", event.RunID)
}

func TestEventStream_RejectsForeignOrigin(t *testing.T) {
	env := setupTestRouter(t)
	server := httptest.NewServer(env.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/events"
	header := http.Header{"Origin": []string{"http://evil.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for Chrome extension", func(t *testing.T) {
		env := setupTestRouter(t)

		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "chrome-extension://abcdefg")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, "chrome-extension://abcdefg", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight on API route", func(t *testing.T) {
		env := setupTestRouter(t)

		req, _ := http.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestAPIVersioning(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do(http.MethodPost, "/sessions", gin.H{"ingredients": []string{"salt"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrEmptyCart, http.StatusBadRequest},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrRunNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: B1", domain.ErrCandidateNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: run-1", domain.ErrRunInProgress), http.StatusConflict},
		{fmt.Errorf("%w: bad", domain.ErrBackendSemantic), http.StatusUnprocessableEntity},
		{domain.ErrNoIngredients, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: refused", domain.ErrTransport), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
