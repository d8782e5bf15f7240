package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Cart automation defaults
const (
	DefaultNewTabSettle = 3000 * time.Millisecond
	DefaultItemDelay    = 2000 * time.Millisecond
	DefaultLoadTimeout  = 30 * time.Second
)

// RunObserver is told about state changes and finished items of a run.
type RunObserver interface {
	OnState(state domain.RunState, asin string)
	OnItem(outcome domain.ItemOutcome)
}

type noopObserver struct{}

func (noopObserver) OnState(domain.RunState, string) {}
func (noopObserver) OnItem(domain.ItemOutcome)       {}

// CartQueueProcessorConfig holds configuration for the cart queue processor
type CartQueueProcessorConfig struct {
	SiteDomain   string
	HomeURL      string
	NewTabSettle time.Duration
	ItemDelay    time.Duration
	LoadTimeout  time.Duration
}

// CartQueueProcessor adds queued entries to the cart one at a time through a
// single browser tab. A failed item is logged and skipped; only a missing tab
// stops the run.
type CartQueueProcessor struct {
	browser domain.Browser
	locator *TabLocator
	agent   *PageAutomationAgent
	waiter  *LoadWaiter
	config  CartQueueProcessorConfig
	sleep   SleepFunc
	logger  logrus.FieldLogger
}

// NewCartQueueProcessor creates a cart queue processor
func NewCartQueueProcessor(
	browser domain.Browser,
	locator *TabLocator,
	agent *PageAutomationAgent,
	waiter *LoadWaiter,
	config CartQueueProcessorConfig,
	sleep SleepFunc,
	logger logrus.FieldLogger,
) *CartQueueProcessor {
	if config.SiteDomain == "" {
		config.SiteDomain = DefaultSiteDomain
	}
	if config.HomeURL == "" {
		config.HomeURL = fmt.Sprintf("https://www.%s/", config.SiteDomain)
	}
	if config.LoadTimeout == 0 {
		config.LoadTimeout = DefaultLoadTimeout
	}
	if sleep == nil {
		sleep = ContextSleep
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if locator == nil {
		locator = NewTabLocator(browser, config.SiteDomain, logger)
	}
	if agent == nil {
		agent = NewPageAutomationAgent(PageAutomationAgentConfig{QuantitySettle: DefaultQuantitySettle}, sleep, logger)
	}
	return &CartQueueProcessor{
		browser: browser,
		locator: locator,
		agent:   agent,
		waiter:  waiter,
		config:  config,
		sleep:   sleep,
		logger:  logger.WithField("component", "cart"),
	}
}

// Process runs the queue to completion and returns the per-item report.
// The run always ends in domain.RunIdle.
func (p *CartQueueProcessor) Process(
	ctx context.Context,
	runID string,
	entries []domain.CartQueueEntry,
	storefront string,
	observer RunObserver,
) domain.RunReport {
	if observer == nil {
		observer = noopObserver{}
	}
	logger := p.logger.WithFields(logrus.Fields{"run": runID, "items": len(entries)})

	report := domain.RunReport{
		RunID:      runID,
		Storefront: storefront,
		Items:      make([]domain.ItemOutcome, 0, len(entries)),
		StartedAt:  time.Now(),
	}
	finish := func() domain.RunReport {
		report.State = domain.RunIdle
		report.Done = true
		report.FinishedAt = time.Now()
		observer.OnState(domain.RunIdle, "")
		return report
	}

	report.State = domain.RunLocating
	observer.OnState(domain.RunLocating, "")

	tab, err := p.acquireTab(ctx, storefront)
	if err != nil {
		logger.WithError(err).Error("No automation tab, cart run cannot proceed")
		report.Error = err.Error()
		return finish()
	}
	report.TabID = tab.ID

	for _, entry := range entries {
		if ctx.Err() != nil {
			logger.WithError(ctx.Err()).Warn("Cart run interrupted")
			report.Error = ctx.Err().Error()
			break
		}

		outcome := p.processItem(ctx, tab.ID, entry, observer)
		report.Items = append(report.Items, outcome)
		observer.OnItem(outcome)

		if err := p.sleep(ctx, p.config.ItemDelay); err != nil {
			logger.WithError(err).Warn("Cart run interrupted")
			report.Error = err.Error()
			break
		}
	}

	logger.WithField("succeeded", report.Succeeded()).Info("Cart processing complete")
	return finish()
}

// acquireTab locates the automation tab, creating one on the site home page
// when none is open. A new tab gets a settle delay for the site's app shell.
func (p *CartQueueProcessor) acquireTab(ctx context.Context, storefront string) (*domain.Tab, error) {
	tab, err := p.locator.Locate(ctx, storefront)
	if err != nil {
		p.logger.WithError(err).Warn("Tab lookup failed, opening a new tab")
	}
	if tab != nil {
		return tab, nil
	}

	tab, err = p.browser.CreateTab(ctx, p.config.HomeURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTargetMissing, err)
	}
	if tab == nil {
		return nil, domain.ErrTargetMissing
	}
	p.logger.WithField("tab", tab.ID).Info("Opened automation tab")

	if err := p.sleep(ctx, p.config.NewTabSettle); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTargetMissing, err)
	}
	return tab, nil
}

// processItem navigates, waits for that navigation's load signal, and runs
// the page agent. Every failure is contained in the returned outcome.
func (p *CartQueueProcessor) processItem(ctx context.Context, tabID string, entry domain.CartQueueEntry, observer RunObserver) domain.ItemOutcome {
	ctx, span := tracer.Start(ctx, "cart.item", trace.WithAttributes(
		attribute.String("item.asin", entry.ASIN),
		attribute.Int("item.quantity", entry.Quantity),
	))
	defer span.End()

	outcome := domain.ItemOutcome{ASIN: entry.ASIN, Quantity: entry.Quantity}
	logger := p.logger.WithFields(logrus.Fields{"asin": entry.ASIN, "quantity": entry.Quantity})
	logger.Info("Adding item to cart")

	fail := func(err error) domain.ItemOutcome {
		logger.WithError(err).Error("Failed to add item to cart")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome.Error = err.Error()
		outcome.FinishedAt = time.Now()
		observer.OnState(domain.RunItemFailed, entry.ASIN)
		return outcome
	}

	target := entry.URL
	if target == "" {
		target = ProductURL(p.config.SiteDomain, entry.ASIN)
	}

	observer.OnState(domain.RunNavigating, entry.ASIN)
	nav, err := p.browser.Navigate(ctx, tabID, target)
	if err != nil {
		return fail(fmt.Errorf("navigate: %w", err))
	}

	observer.OnState(domain.RunAwaitLoad, entry.ASIN)
	if err := p.waiter.Wait(ctx, nav, p.config.LoadTimeout); err != nil {
		if errors.Is(err, domain.ErrNavigationFailed) {
			return fail(err)
		}
		return fail(fmt.Errorf("wait for load: %w", err))
	}

	observer.OnState(domain.RunAutomating, entry.ASIN)
	probe, err := p.browser.Probe(ctx, tabID)
	if err != nil {
		return fail(fmt.Errorf("attach to page: %w", err))
	}
	result, err := p.agent.AddToCart(ctx, probe, entry.Quantity)
	outcome.QuantitySelector = result.QuantityStrategy
	outcome.ButtonSelector = result.ButtonStrategy
	if err != nil {
		if errors.Is(err, domain.ErrAddToCartNotFound) {
			return fail(err)
		}
		return fail(fmt.Errorf("automate: %w", err))
	}

	outcome.Success = true
	outcome.FinishedAt = time.Now()
	observer.OnState(domain.RunItemSuccess, entry.ASIN)
	return outcome
}
