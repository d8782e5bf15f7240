package browser

import (
	"context"
	"sync"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// LazyBrowser launches Chrome on first use so the API can serve sessions
// without a browser. A failed launch is retried on the next call.
type LazyBrowser struct {
	config Config
	sink   domain.LoadSink
	logger logrus.FieldLogger

	mu      sync.Mutex
	browser *ChromeBrowser
	closed  bool
}

// NewLazyBrowser creates a browser that starts on demand
func NewLazyBrowser(config Config, sink domain.LoadSink, logger logrus.FieldLogger) *LazyBrowser {
	return &LazyBrowser{config: config, sink: sink, logger: logger}
}

func (l *LazyBrowser) get() (*ChromeBrowser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, domain.ErrTargetMissing
	}
	if l.browser != nil {
		return l.browser, nil
	}
	b, err := NewChromeBrowser(l.config, l.sink, l.logger)
	if err != nil {
		return nil, err
	}
	l.browser = b
	return b, nil
}

func (l *LazyBrowser) ActiveTab(ctx context.Context) (*domain.Tab, error) {
	b, err := l.get()
	if err != nil {
		return nil, err
	}
	return b.ActiveTab(ctx)
}

func (l *LazyBrowser) ListTabs(ctx context.Context) ([]domain.Tab, error) {
	b, err := l.get()
	if err != nil {
		return nil, err
	}
	return b.ListTabs(ctx)
}

func (l *LazyBrowser) CreateTab(ctx context.Context, url string) (*domain.Tab, error) {
	b, err := l.get()
	if err != nil {
		return nil, err
	}
	return b.CreateTab(ctx, url)
}

func (l *LazyBrowser) Navigate(ctx context.Context, tabID, url string) (domain.Navigation, error) {
	b, err := l.get()
	if err != nil {
		return domain.Navigation{}, err
	}
	return b.Navigate(ctx, tabID, url)
}

func (l *LazyBrowser) Probe(ctx context.Context, tabID string) (domain.DOMProbe, error) {
	b, err := l.get()
	if err != nil {
		return nil, err
	}
	return b.Probe(ctx, tabID)
}

// Close shuts the browser down if it was started. Later calls fail.
func (l *LazyBrowser) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.browser != nil {
		l.browser.Close()
		l.browser = nil
	}
}
