package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// DefaultQuantitySettle is the pause after setting a quantity so dependent
// page UI can update before the add-to-cart click.
const DefaultQuantitySettle = 500 * time.Millisecond

// Strategy is a named selector tried against the page.
type Strategy struct {
	Name     string
	Selector string
}

// QuantityStrategies are tried in order to find the quantity control.
var QuantityStrategies = []Strategy{
	{Name: "quantity-dropdown-by-id", Selector: "#quantity"},
	{Name: "quantity-dropdown-by-name", Selector: `select[name="quantity"]`},
	{Name: "quantity-input-by-name", Selector: `input[name="quantity"]`},
}

// AddToCartStrategies are tried in order to find the add-to-cart control.
// Product categories and storefronts serve different markup.
var AddToCartStrategies = []Strategy{
	{Name: "add-to-cart-button", Selector: "#add-to-cart-button"},
	{Name: "fresh-add-to-cart-button", Selector: "#freshAddToCartButton"},
	{Name: "add-to-cart-submit-input", Selector: `input[name="submit.add-to-cart"]`},
	{Name: "autoid-announce", Selector: "#a-autoid-0-announce"},
	{Name: "add-to-cart-id-prefix", Selector: `input[id^="add-to-cart-button"]`},
}

// FirstMatch evaluates strategies in order and returns the first one whose
// selector matches, or nil when none does.
func FirstMatch(ctx context.Context, probe domain.DOMProbe, strategies []Strategy) (*Strategy, *domain.Element, error) {
	for i := range strategies {
		element, err := probe.Query(ctx, strategies[i].Selector)
		if err != nil {
			return nil, nil, fmt.Errorf("probe %s: %w", strategies[i].Name, err)
		}
		if element != nil {
			return &strategies[i], element, nil
		}
	}
	return nil, nil, nil
}

// AutomationResult describes which controls were used on the page.
type AutomationResult struct {
	QuantityStrategy string
	ButtonStrategy   string
}

// PageAutomationAgentConfig holds configuration for the page automation agent
type PageAutomationAgentConfig struct {
	QuantitySettle      time.Duration
	QuantityStrategies  []Strategy
	AddToCartStrategies []Strategy
}

// PageAutomationAgent sets the quantity and clicks add-to-cart on a product page.
type PageAutomationAgent struct {
	quantityStrategies  []Strategy
	addToCartStrategies []Strategy
	settle              time.Duration
	sleep               SleepFunc
	logger              logrus.FieldLogger
}

// NewPageAutomationAgent creates a page automation agent
func NewPageAutomationAgent(config PageAutomationAgentConfig, sleep SleepFunc, logger logrus.FieldLogger) *PageAutomationAgent {
	if config.QuantityStrategies == nil {
		config.QuantityStrategies = QuantityStrategies
	}
	if config.AddToCartStrategies == nil {
		config.AddToCartStrategies = AddToCartStrategies
	}
	if config.QuantitySettle < 0 {
		config.QuantitySettle = DefaultQuantitySettle
	}
	if sleep == nil {
		sleep = ContextSleep
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PageAutomationAgent{
		quantityStrategies:  config.QuantityStrategies,
		addToCartStrategies: config.AddToCartStrategies,
		settle:              config.QuantitySettle,
		sleep:               sleep,
		logger:              logger.WithField("component", "page"),
	}
}

// AddToCart applies quantity and clicks the add-to-cart control. Whenever a
// quantity control is found the page gets the settle delay before the click.
// A missing quantity control leaves the page default in place; a missing
// add-to-cart control fails with domain.ErrAddToCartNotFound.
func (a *PageAutomationAgent) AddToCart(ctx context.Context, probe domain.DOMProbe, quantity int) (AutomationResult, error) {
	var result AutomationResult

	strategy, element, err := FirstMatch(ctx, probe, a.quantityStrategies)
	if err != nil {
		return result, err
	}
	if strategy == nil {
		a.logger.Warn("Quantity selector not found, page default quantity will be used")
	} else {
		applied, err := a.setQuantity(ctx, probe, strategy.Selector, element.Tag, quantity)
		if err != nil {
			return result, fmt.Errorf("set quantity via %s: %w", strategy.Name, err)
		}
		if applied {
			result.QuantityStrategy = strategy.Name
			a.logger.WithFields(logrus.Fields{"strategy": strategy.Name, "quantity": quantity}).Debug("Set quantity")
		}
		if err := a.sleep(ctx, a.settle); err != nil {
			return result, err
		}
	}

	strategy, _, err = FirstMatch(ctx, probe, a.addToCartStrategies)
	if err != nil {
		return result, err
	}
	if strategy == nil {
		return result, domain.ErrAddToCartNotFound
	}
	if err := probe.Click(ctx, strategy.Selector); err != nil {
		return result, fmt.Errorf("click %s: %w", strategy.Name, err)
	}
	result.ButtonStrategy = strategy.Name
	a.logger.WithField("strategy", strategy.Name).Debug("Clicked add to cart")

	return result, nil
}

// setQuantity assigns the value with the notifications the control type
// expects. Controls that are neither dropdowns nor inputs are left alone.
func (a *PageAutomationAgent) setQuantity(ctx context.Context, probe domain.DOMProbe, selector, tag string, quantity int) (bool, error) {
	var events []string
	switch tag {
	case "SELECT":
		events = []string{"change"}
	case "INPUT":
		events = []string{"input", "change"}
	default:
		a.logger.WithField("tag", tag).Warn("Quantity control has unsupported type")
		return false, nil
	}
	if err := probe.SetValue(ctx, selector, strconv.Itoa(quantity), events); err != nil {
		return false, err
	}
	return true, nil
}
