package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// Config controls how the automation browser is launched or attached
type Config struct {
	// RemoteURL attaches to an already running Chrome (ws:// or http://)
	// instead of launching one.
	RemoteURL   string
	ExecPath    string
	UserDataDir string
	UserAgent   string
	Headless    bool
	// StartTimeout bounds the initial launch handshake
	StartTimeout time.Duration
}

type tabHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// ChromeBrowser drives a Chrome instance over the DevTools protocol and
// implements domain.Browser. Load completions are reported to the sink.
type ChromeBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	sink   domain.LoadSink
	logger logrus.FieldLogger

	mu       sync.Mutex
	tabs     map[string]*tabHandle
	activeID string

	navSeq uint64
	wg     sync.WaitGroup
}

// NewChromeBrowser launches (or attaches to) Chrome and waits until it
// answers.
func NewChromeBrowser(config Config, sink domain.LoadSink, logger logrus.FieldLogger) (*ChromeBrowser, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("component", "browser")
	if config.StartTimeout <= 0 {
		config.StartTimeout = 30 * time.Second
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if config.RemoteURL != "" {
		logger.WithField("url", config.RemoteURL).Info("Connecting to Chrome")
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
	} else {
		logger.WithField("headless", config.Headless).Info("Launching Chrome")
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), AllocatorOptions(config)...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	b := &ChromeBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		sink:          sink,
		logger:        logger,
		tabs:          make(map[string]*tabHandle),
	}

	// The first Run starts the browser and opens its initial tab
	startCtx, cancel := context.WithTimeout(browserCtx, config.StartTimeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		id := string(c.Target.TargetID)
		b.tabs[id] = &tabHandle{ctx: browserCtx, cancel: func() {}}
		b.activeID = id
	}

	return b, nil
}

// AllocatorOptions assembles the Chrome flags for a local launch
func AllocatorOptions(config Config) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.WindowSize(1366, 768),
	}

	if config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(config.ExecPath))
	}
	if config.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(config.UserDataDir))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	return opts
}

// FocusScript scores a page by how likely it is to be the one in front of
// the user: 2 when the document has focus, 1 when it is merely visible.
const FocusScript = `document.hasFocus() ? 2 : (document.visibilityState === "visible" ? 1 : 0)`

const focusCheckTimeout = 2 * time.Second

// ActiveTab returns the tab the user is looking at. Each page is asked for
// its focus state, so a tab the user switched to by hand wins over the one
// this process last navigated. Pages that do not answer are skipped; when no
// page reports focus or visibility the last tab this process used is
// returned, if it is still open.
func (b *ChromeBrowser) ActiveTab(ctx context.Context) (*domain.Tab, error) {
	tabs, err := b.ListTabs(ctx)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]int, len(tabs))
	for _, tab := range tabs {
		score, err := b.focusScore(ctx, tab.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			b.logger.WithError(err).WithField("tab", tab.ID).Debug("Focus check failed")
			continue
		}
		scores[tab.ID] = score
	}

	id := FocusedTab(tabs, scores)
	for i := range tabs {
		if tabs[i].ID == id {
			tab := tabs[i]
			tab.Active = true
			return &tab, nil
		}
	}
	return nil, nil
}

// FocusedTab picks the tab with the highest positive focus score. Ties go to
// the tab already marked active; without any positive score the marked tab
// is kept. It returns "" when there is nothing to pick.
func FocusedTab(tabs []domain.Tab, scores map[string]int) string {
	best, bestScore, bestActive := "", 0, false
	tracked := ""
	for _, tab := range tabs {
		if tab.Active {
			tracked = tab.ID
		}
		score := scores[tab.ID]
		if score <= 0 {
			continue
		}
		if score > bestScore || (score == bestScore && tab.Active && !bestActive) {
			best, bestScore, bestActive = tab.ID, score, tab.Active
		}
	}
	if best == "" {
		return tracked
	}
	return best
}

func (b *ChromeBrowser) focusScore(ctx context.Context, tabID string) (int, error) {
	tabCtx, err := b.tabContext(ctx, tabID)
	if err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithTimeout(tabCtx, focusCheckTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var score int
	if err := chromedp.Run(runCtx, chromedp.Evaluate(FocusScript, &score)); err != nil {
		return 0, err
	}
	return score, nil
}

// ListTabs returns every open page target
func (b *ChromeBrowser) ListTabs(ctx context.Context) ([]domain.Tab, error) {
	infos, err := chromedp.Targets(b.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}

	b.mu.Lock()
	activeID := b.activeID
	b.mu.Unlock()

	return PageTabs(infos, activeID), nil
}

// PageTabs converts DevTools targets to tabs, keeping only pages
func PageTabs(infos []*target.Info, activeID string) []domain.Tab {
	tabs := make([]domain.Tab, 0, len(infos))
	for _, info := range infos {
		if info == nil || info.Type != "page" {
			continue
		}
		id := string(info.TargetID)
		tabs = append(tabs, domain.Tab{
			ID:     id,
			URL:    info.URL,
			Title:  info.Title,
			Active: id == activeID,
		})
	}
	return tabs
}

// CreateTab opens a new tab on url and makes it the active one
func (b *ChromeBrowser) CreateTab(ctx context.Context, url string) (*domain.Tab, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create tab: %w", err)
	}

	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		cancel()
		return nil, errors.New("failed to create tab: no target attached")
	}
	id := string(c.Target.TargetID)

	b.mu.Lock()
	b.tabs[id] = &tabHandle{ctx: tabCtx, cancel: cancel}
	b.activeID = id
	b.mu.Unlock()

	b.logger.WithField("tab", id).Info("Created tab")
	return &domain.Tab{ID: id, URL: url, Active: true}, nil
}

// Navigate starts loading url in the tab and returns immediately. A
// "complete" load event carrying the returned navigation id is published
// once the page's load event fires, or a "failed" one with the error when the
// page cannot be loaded.
func (b *ChromeBrowser) Navigate(ctx context.Context, tabID, url string) (domain.Navigation, error) {
	tabCtx, err := b.tabContext(ctx, tabID)
	if err != nil {
		return domain.Navigation{}, err
	}

	nav := domain.Navigation{
		TabID: tabID,
		ID:    strconv.FormatUint(atomic.AddUint64(&b.navSeq, 1), 10),
	}

	b.mu.Lock()
	b.activeID = tabID
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := chromedp.Run(tabCtx, activate(tabID), chromedp.Navigate(url)); err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"tab":        tabID,
				"navigation": nav.ID,
				"url":        url,
			}).Warn("Navigation failed")
			b.publish(nav, domain.LoadStatusFailed, err)
			return
		}
		b.publish(nav, domain.LoadStatusComplete, nil)
	}()

	return nav, nil
}

func (b *ChromeBrowser) publish(nav domain.Navigation, status string, err error) {
	if b.sink == nil {
		return
	}
	b.sink.PublishLoad(domain.LoadEvent{
		TabID:        nav.TabID,
		NavigationID: nav.ID,
		Status:       status,
		Err:          err,
	})
}

// Probe returns a DOM probe bound to the tab's current document
func (b *ChromeBrowser) Probe(ctx context.Context, tabID string) (domain.DOMProbe, error) {
	tabCtx, err := b.tabContext(ctx, tabID)
	if err != nil {
		return nil, err
	}
	return &chromeProbe{ctx: tabCtx}, nil
}

// Close shuts down every tab context and the browser
func (b *ChromeBrowser) Close() {
	b.mu.Lock()
	for id, tab := range b.tabs {
		tab.cancel()
		delete(b.tabs, id)
	}
	b.mu.Unlock()

	b.browserCancel()
	b.allocCancel()
	b.wg.Wait()
}

// activate brings the tab to the front. Target activation is a browser-level
// command, so it goes through the browser executor.
func activate(tabID string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		c := chromedp.FromContext(ctx)
		if c == nil || c.Browser == nil {
			return chromedp.ErrInvalidContext
		}
		return target.ActivateTarget(target.ID(tabID)).Do(cdp.WithExecutor(ctx, c.Browser))
	})
}

func (b *ChromeBrowser) tabContext(ctx context.Context, tabID string) (context.Context, error) {
	b.mu.Lock()
	if tab, ok := b.tabs[tabID]; ok {
		b.mu.Unlock()
		return tab.ctx, nil
	}
	b.mu.Unlock()

	tabs, err := b.ListTabs(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, tab := range tabs {
		if tab.ID == tabID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: tab %s is gone", domain.ErrTargetMissing, tabID)
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(target.ID(tabID)))

	b.mu.Lock()
	defer b.mu.Unlock()
	if tab, ok := b.tabs[tabID]; ok {
		cancel()
		return tab.ctx, nil
	}
	b.tabs[tabID] = &tabHandle{ctx: tabCtx, cancel: cancel}
	return tabCtx, nil
}
