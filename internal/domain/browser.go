package domain

import "context"

// Tab describes one browser page target.
type Tab struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Title  string `json:"title,omitempty"`
	Active bool   `json:"active"`
}

// Navigation identifies one navigation started on a tab. ID changes with every
// navigation so load signals from earlier navigations can be told apart.
type Navigation struct {
	TabID string
	ID    string
}

// Load statuses that end a wait. Other statuses are ignored.
const (
	LoadStatusComplete = "complete"
	LoadStatusFailed   = "failed"
)

// LoadEvent is emitted by the browser when a navigation reaches a load state.
// Err carries the navigation error when Status is LoadStatusFailed.
type LoadEvent struct {
	TabID        string
	NavigationID string
	Status       string
	Err          error
}

// LoadSink receives load events from the browser adapter.
type LoadSink interface {
	PublishLoad(event LoadEvent)
}

// Element is the result of a successful DOM probe.
type Element struct {
	Selector string
	Tag      string // upper-case tag name, e.g. "SELECT"
}

// DOMProbe is the page-side capability used by the automation agent.
type DOMProbe interface {
	// Query returns the first element matching selector, or nil when none does.
	Query(ctx context.Context, selector string) (*Element, error)
	// SetValue assigns value to the element and dispatches the named events
	// (bubbling) in order.
	SetValue(ctx context.Context, selector, value string, events []string) error
	// Click activates the element.
	Click(ctx context.Context, selector string) error
}

// Browser is the tab-level capability the cart orchestrator drives.
type Browser interface {
	ActiveTab(ctx context.Context) (*Tab, error)
	ListTabs(ctx context.Context) ([]Tab, error)
	CreateTab(ctx context.Context, url string) (*Tab, error)
	Navigate(ctx context.Context, tabID, url string) (Navigation, error)
	Probe(ctx context.Context, tabID string) (DOMProbe, error)
}
