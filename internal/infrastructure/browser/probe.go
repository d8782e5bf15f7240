package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/recipecart/backend/internal/domain"
)

// chromeProbe evaluates small scripts in the tab's page to inspect and drive
// form controls.
type chromeProbe struct {
	ctx context.Context
}

func (p *chromeProbe) Query(ctx context.Context, selector string) (*domain.Element, error) {
	script, err := QueryScript(selector)
	if err != nil {
		return nil, err
	}

	var tag string
	if err := p.eval(ctx, script, &tag); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if tag == "" {
		return nil, nil
	}
	return &domain.Element{Selector: selector, Tag: tag}, nil
}

func (p *chromeProbe) SetValue(ctx context.Context, selector, value string, events []string) error {
	script, err := SetValueScript(selector, value, events)
	if err != nil {
		return err
	}

	var ok bool
	if err := p.eval(ctx, script, &ok); err != nil {
		return fmt.Errorf("set value on %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("set value on %q: element not found", selector)
	}
	return nil
}

func (p *chromeProbe) Click(ctx context.Context, selector string) error {
	script, err := ClickScript(selector)
	if err != nil {
		return err
	}

	var ok bool
	if err := p.eval(ctx, script, &ok); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("click %q: element not found", selector)
	}
	return nil
}

// eval runs script in the tab, bounded by the caller's context
func (p *chromeProbe) eval(ctx context.Context, script string, out interface{}) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, chromedp.Evaluate(script, out))
}

// QueryScript returns a script yielding the upper-case tag name of the first
// element matching selector, or "" when nothing matches.
func QueryScript(selector string) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  return el ? el.tagName.toUpperCase() : "";
})()`, sel), nil
}

// SetValueScript returns a script that assigns value to the element and
// dispatches each event, bubbling, in order.
func SetValueScript(selector, value string, events []string) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	val, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if events == nil {
		events = []string{}
	}
	names, err := json.Marshal(events)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  el.value = %s;
  for (const name of %s) {
    el.dispatchEvent(new Event(name, { bubbles: true }));
  }
  return true;
})()`, sel, val, names), nil
}

// ClickScript returns a script that clicks the first matching element
func ClickScript(selector string) (string, error) {
	sel, err := json.Marshal(selector)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return false;
  el.click();
  return true;
})()`, sel), nil
}
