package domain

import "time"

// RunState is the cart orchestrator state machine.
type RunState string

const (
	RunIdle        RunState = "idle"
	RunLocating    RunState = "locating"
	RunNavigating  RunState = "navigating"
	RunAwaitLoad   RunState = "awaiting_load"
	RunAutomating  RunState = "automating"
	RunItemSuccess RunState = "item_success"
	RunItemFailed  RunState = "item_failed"
)

// ItemOutcome records what happened to one queued cart entry.
type ItemOutcome struct {
	ASIN             string    `json:"asin"`
	Quantity         int       `json:"quantity"`
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	QuantitySelector string    `json:"quantitySelector,omitempty"`
	ButtonSelector   string    `json:"buttonSelector,omitempty"`
	FinishedAt       time.Time `json:"finishedAt"`
}

// RunReport is the aggregate result of one cart run.
type RunReport struct {
	RunID      string        `json:"runId"`
	Storefront string        `json:"storefront"`
	State      RunState      `json:"state"`
	TabID      string        `json:"tabId,omitempty"`
	Items      []ItemOutcome `json:"items"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt,omitempty"`
	Done       bool          `json:"done"`
}

// Succeeded counts successful items.
func (r *RunReport) Succeeded() int {
	n := 0
	for _, item := range r.Items {
		if item.Success {
			n++
		}
	}
	return n
}

// EventType names a session or run event.
type EventType string

const (
	EventRowStatus    EventType = "row_status"
	EventSessionDone  EventType = "session_resolved"
	EventRunState     EventType = "run_state"
	EventItemFinished EventType = "item_finished"
	EventRunFinished  EventType = "run_finished"
)

// Event is published to websocket subscribers.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	RunID     string    `json:"runId,omitempty"`
	Index     *int      `json:"index,omitempty"`
	Status    string    `json:"status,omitempty"`
	ASIN      string    `json:"asin,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
