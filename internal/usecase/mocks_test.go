package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/recipecart/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

// MockSearchClient is a mock implementation of domain.SearchClient and
// domain.RecipeParser
type MockSearchClient struct {
	searchBatchFunc func(ctx context.Context, queries []domain.SearchQuery, headless bool) ([][]domain.ProductCandidate, error)
	searchFunc      func(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error)
	parseFunc       func(ctx context.Context, url string) ([]string, error)

	mu           sync.Mutex
	batchCalls   [][]domain.SearchQuery
	headlessSeen []bool
	searchCalls  int
}

func (m *MockSearchClient) SearchBatch(ctx context.Context, queries []domain.SearchQuery, headless bool) ([][]domain.ProductCandidate, error) {
	m.mu.Lock()
	m.batchCalls = append(m.batchCalls, append([]domain.SearchQuery(nil), queries...))
	m.headlessSeen = append(m.headlessSeen, headless)
	m.mu.Unlock()

	if m.searchBatchFunc != nil {
		return m.searchBatchFunc(ctx, queries, headless)
	}
	return make([][]domain.ProductCandidate, len(queries)), nil
}

func (m *MockSearchClient) Search(ctx context.Context, ingredient, storefront string, headless bool) ([]domain.ProductCandidate, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.searchFunc != nil {
		return m.searchFunc(ctx, ingredient, storefront, headless)
	}
	return nil, nil
}

func (m *MockSearchClient) ParseRecipe(ctx context.Context, url string) ([]string, error) {
	if m.parseFunc != nil {
		return m.parseFunc(ctx, url)
	}
	return nil, domain.ErrNoIngredients
}

func (m *MockSearchClient) BatchCalls() [][]domain.SearchQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]domain.SearchQuery(nil), m.batchCalls...)
}

func (m *MockSearchClient) HeadlessSeen() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.headlessSeen...)
}

func (m *MockSearchClient) SearchCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls
}

// MockPreferenceStore is a mock implementation of domain.PreferenceStore
type MockPreferenceStore struct {
	headless *bool
	getError error
}

func (m *MockPreferenceStore) GetHeadless(ctx context.Context) (bool, error) {
	if m.getError != nil {
		return false, m.getError
	}
	if m.headless == nil {
		return false, domain.ErrPreferenceNotFound
	}
	return *m.headless, nil
}

func (m *MockPreferenceStore) SetHeadless(ctx context.Context, headless bool) error {
	m.headless = &headless
	return nil
}

// MockBrowser is a mock implementation of domain.Browser. Navigate publishes
// the load-complete signal to loads before returning unless the URL is
// listed in noLoad; URLs in loadErr get a failed signal instead.
type MockBrowser struct {
	active    *domain.Tab
	tabs      []domain.Tab
	activeErr error
	listErr   error
	createErr error
	navErr    map[string]error
	noLoad    map[string]bool
	loadErr   map[string]error
	probe     domain.DOMProbe
	probeErr  error
	loads     domain.LoadSink
	gate      chan struct{}

	mu          sync.Mutex
	created     []string
	navigations []navigationCall
	navSeq      int
}

type navigationCall struct {
	TabID string
	URL   string
}

func (m *MockBrowser) ActiveTab(ctx context.Context) (*domain.Tab, error) {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	return m.active, nil
}

func (m *MockBrowser) ListTabs(ctx context.Context) ([]domain.Tab, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.tabs, nil
}

func (m *MockBrowser) CreateTab(ctx context.Context, url string) (*domain.Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, url)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &domain.Tab{ID: fmt.Sprintf("new-%d", len(m.created)), URL: url, Active: true}, nil
}

func (m *MockBrowser) Navigate(ctx context.Context, tabID, url string) (domain.Navigation, error) {
	m.mu.Lock()
	m.navigations = append(m.navigations, navigationCall{TabID: tabID, URL: url})
	m.navSeq++
	nav := domain.Navigation{TabID: tabID, ID: fmt.Sprintf("nav-%d", m.navSeq)}
	m.mu.Unlock()

	if err := m.navErr[url]; err != nil {
		return domain.Navigation{}, err
	}
	if m.loads != nil && !m.noLoad[url] {
		if err := m.loadErr[url]; err != nil {
			m.loads.PublishLoad(domain.LoadEvent{TabID: tabID, NavigationID: nav.ID, Status: domain.LoadStatusFailed, Err: err})
		} else {
			m.loads.PublishLoad(domain.LoadEvent{TabID: tabID, NavigationID: nav.ID, Status: domain.LoadStatusComplete})
		}
	}
	return nav, nil
}

func (m *MockBrowser) Probe(ctx context.Context, tabID string) (domain.DOMProbe, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.probe, nil
}

func (m *MockBrowser) Navigations() []navigationCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]navigationCall(nil), m.navigations...)
}

func (m *MockBrowser) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

// MockProbe is a mock implementation of domain.DOMProbe backed by a
// selector -> tag map.
type MockProbe struct {
	elements map[string]string
	queryErr error
	clickErr error

	mu        sync.Mutex
	setValues []setValueCall
	clicks    []string
}

type setValueCall struct {
	Selector string
	Value    string
	Events   []string
}

func (m *MockProbe) Query(ctx context.Context, selector string) (*domain.Element, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	tag, ok := m.elements[selector]
	if !ok {
		return nil, nil
	}
	return &domain.Element{Selector: selector, Tag: tag}, nil
}

func (m *MockProbe) SetValue(ctx context.Context, selector, value string, events []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setValues = append(m.setValues, setValueCall{Selector: selector, Value: value, Events: events})
	return nil
}

func (m *MockProbe) Click(ctx context.Context, selector string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, selector)
	return m.clickErr
}

// sleepRecorder is a SleepFunc that records durations instead of waiting.
type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.calls...)
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// recordingObserver implements RunObserver
type recordingObserver struct {
	mu     sync.Mutex
	states []string
	items  []domain.ItemOutcome
}

func (o *recordingObserver) OnState(state domain.RunState, asin string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if asin == "" {
		o.states = append(o.states, string(state))
		return
	}
	o.states = append(o.states, string(state)+":"+asin)
}

func (o *recordingObserver) OnItem(outcome domain.ItemOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, outcome)
}

func (o *recordingObserver) States() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.states...)
}

// recordingSink implements ResolutionSink
type recordingSink struct {
	searching   [][]int
	resolutions []domain.Resolution
	failed      []int
	failures    []error
}

func (s *recordingSink) MarkSearching(indices []int) {
	s.searching = append(s.searching, indices)
}

func (s *recordingSink) ApplyResolution(resolution domain.Resolution) {
	s.resolutions = append(s.resolutions, resolution)
}

func (s *recordingSink) MarkFailed(indices []int, err error) {
	s.failed = append(s.failed, indices...)
	s.failures = append(s.failures, err)
}

func ingredientsOf(lines ...string) []domain.Ingredient {
	return domain.NewIngredients(lines)
}
