package main

import (
	"context"
	"fmt"
	"os"

	"github.com/recipecart/backend/config"
	"github.com/recipecart/backend/internal/domain"
	"github.com/recipecart/backend/internal/infrastructure/browser"
	"github.com/recipecart/backend/internal/infrastructure/cache"
	"github.com/recipecart/backend/internal/infrastructure/preferences"
	"github.com/recipecart/backend/internal/infrastructure/recipe"
	"github.com/recipecart/backend/internal/infrastructure/searchapi"
	"github.com/recipecart/backend/internal/usecase"
	"github.com/sirupsen/logrus"
)

// app wires the infrastructure into the use cases
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	events      *usecase.EventBus
	cache       *cache.MemoryCache
	preferences *preferences.BadgerStore
	browser     *browser.LazyBrowser

	resolver *usecase.ResolutionService
	sessions *usecase.SessionService
	runs     *usecase.CartRunService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, os.Stdout)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"version":     version,
		"environment": cfg.Server.Environment,
		"backend":     cfg.Backend.BaseURL,
		"parser":      cfg.Parser.Mode,
	}).Info("Starting RecipeCart backend")

	a := &app{cfg: cfg, logger: logger}
	a.events = usecase.NewEventBus(logger)

	// Infrastructure
	searchClient := searchapi.NewClient(cfg.Backend.BaseURL, searchapi.ClientConfig{
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
	}, logger)
	if cfg.Server.Environment == "development" {
		searchClient.SetDebug(true)
	}

	var parser domain.RecipeParser = searchClient
	if cfg.Parser.Mode == "local" {
		parser = recipe.NewParser(cfg.Backend.Timeout, cfg.Browser.UserAgent, logger)
	}

	a.cache = cache.NewMemoryCache(cache.MemoryCacheConfig{MaxEntries: cfg.Cache.MaxEntries})

	a.preferences, err = preferences.Open(cfg.Storage.Path, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	waiter := usecase.NewLoadWaiter()
	a.browser = browser.NewLazyBrowser(browser.Config{
		RemoteURL:   cfg.Browser.RemoteURL,
		ExecPath:    cfg.Browser.ExecPath,
		UserDataDir: cfg.Browser.UserDataDir,
		UserAgent:   cfg.Browser.UserAgent,
		Headless:    cfg.Browser.Headless,
	}, waiter, logger)

	// Use cases
	preprocessor := usecase.NewIngredientPreprocessor(cfg.Log.Level == "debug", logger)
	batcher := usecase.NewQueryBatcher(usecase.QueryBatcherConfig{
		Size:  cfg.Batch.Size,
		Delay: cfg.Batch.Delay,
	}, usecase.ContextSleep, logger)
	a.resolver = usecase.NewResolutionService(searchClient, a.cache, batcher, preprocessor, usecase.ResolutionServiceConfig{
		CacheTTL: cfg.Cache.TTL,
	}, logger)
	a.sessions = usecase.NewSessionService(parser, a.resolver, a.preferences, preprocessor, a.events, logger)

	locator := usecase.NewTabLocator(a.browser, cfg.Cart.SiteDomain, logger)
	agent := usecase.NewPageAutomationAgent(usecase.PageAutomationAgentConfig{
		QuantitySettle: cfg.Cart.QuantitySettle,
	}, usecase.ContextSleep, logger)
	processor := usecase.NewCartQueueProcessor(a.browser, locator, agent, waiter, usecase.CartQueueProcessorConfig{
		SiteDomain:   cfg.Cart.SiteDomain,
		HomeURL:      cfg.Cart.HomeURL,
		NewTabSettle: cfg.Cart.NewTabSettle,
		ItemDelay:    cfg.Cart.ItemDelay,
		LoadTimeout:  cfg.Cart.LoadTimeout,
	}, usecase.ContextSleep, logger)
	a.runs = usecase.NewCartRunService(ctx, processor, a.events, logger)

	return a, nil
}

// Close releases everything the app opened
func (a *app) Close() {
	if a.sessions != nil {
		a.sessions.Shutdown()
	}
	if a.browser != nil {
		a.browser.Close()
	}
	if a.cache != nil {
		a.cache.Close()
	}
	if a.preferences != nil {
		if err := a.preferences.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close preference database")
		}
	}
}
