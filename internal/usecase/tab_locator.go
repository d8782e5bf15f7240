package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

// DefaultSiteDomain is the storefront site the cart is automated on.
const DefaultSiteDomain = "amazon.com"

// storefrontMarkers are URL substrings that identify a storefront-specific tab
var storefrontMarkers = map[string][]string{
	domain.StorefrontFresh:      {"fresh", "grocery"},
	domain.StorefrontWholeFoods: {"wholefoods"},
}

// TabLocator finds the tab to automate.
type TabLocator struct {
	browser    domain.Browser
	siteDomain string
	logger     logrus.FieldLogger
}

// NewTabLocator creates a tab locator for siteDomain
func NewTabLocator(browser domain.Browser, siteDomain string, logger logrus.FieldLogger) *TabLocator {
	if siteDomain == "" {
		siteDomain = DefaultSiteDomain
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TabLocator{
		browser:    browser,
		siteDomain: strings.ToLower(siteDomain),
		logger:     logger.WithField("component", "tabs"),
	}
}

// Locate returns the tab to automate, or nil when no site tab is open.
// Priority: the active tab if it is on the site, then a site tab carrying the
// storefront marker, then the first site tab.
func (l *TabLocator) Locate(ctx context.Context, storefront string) (*domain.Tab, error) {
	active, err := l.browser.ActiveTab(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query active tab: %w", err)
	}
	if active != nil && MatchesSite(active.URL, l.siteDomain) {
		l.logger.WithField("tab", active.ID).Debug("Using active tab")
		return active, nil
	}

	tabs, err := l.browser.ListTabs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}

	var siteTabs []domain.Tab
	for _, tab := range tabs {
		if MatchesSite(tab.URL, l.siteDomain) {
			siteTabs = append(siteTabs, tab)
		}
	}
	if len(siteTabs) == 0 {
		return nil, nil
	}

	if markers := storefrontMarkers[strings.ToLower(storefront)]; len(markers) > 0 {
		for _, tab := range siteTabs {
			if containsAny(tab.URL, markers) {
				l.logger.WithFields(logrus.Fields{"tab": tab.ID, "storefront": storefront}).Debug("Using storefront tab")
				found := tab
				return &found, nil
			}
		}
	}

	first := siteTabs[0]
	return &first, nil
}

// MatchesSite reports whether rawURL is on siteDomain or one of its subdomains.
func MatchesSite(rawURL, siteDomain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	siteDomain = strings.ToLower(siteDomain)
	return host == siteDomain || strings.HasSuffix(host, "."+siteDomain)
}

// ProductURL is the navigation target for an entry without an explicit URL.
func ProductURL(siteDomain, asin string) string {
	if siteDomain == "" {
		siteDomain = DefaultSiteDomain
	}
	return fmt.Sprintf("https://www.%s/dp/%s", siteDomain, url.PathEscape(asin))
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
