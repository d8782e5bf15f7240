package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/recipecart/backend/internal/domain"
)

type navigationKey struct {
	tabID        string
	navigationID string
}

// LoadWaiter matches page-load signals to the navigation that is waiting for
// them. A signal counts only when both the tab and the navigation id match,
// so loads from earlier navigations or other tabs are ignored. A signal that
// arrives before the wait starts is kept until that navigation is waited on.
// A failed signal ends the wait with the navigation's error.
type LoadWaiter struct {
	waiters   map[navigationKey]chan error
	completed map[navigationKey]error
	mu        sync.Mutex
}

// NewLoadWaiter creates a load waiter
func NewLoadWaiter() *LoadWaiter {
	return &LoadWaiter{
		waiters:   make(map[navigationKey]chan error),
		completed: make(map[navigationKey]error),
	}
}

// PublishLoad implements domain.LoadSink.
func (w *LoadWaiter) PublishLoad(event domain.LoadEvent) {
	if event.NavigationID == "" {
		return
	}

	var result error
	switch event.Status {
	case domain.LoadStatusComplete:
	case domain.LoadStatusFailed:
		result = navigationError(event.Err)
	default:
		return
	}
	key := navigationKey{tabID: event.TabID, navigationID: event.NavigationID}

	w.mu.Lock()
	defer w.mu.Unlock()

	if ch, ok := w.waiters[key]; ok {
		ch <- result
		delete(w.waiters, key)
		return
	}
	w.completed[key] = result
}

// Wait blocks until nav completes or fails, ctx is done, or timeout elapses.
// A non-positive timeout waits on ctx alone. A failed navigation returns an
// error wrapping domain.ErrNavigationFailed. The registration is removed on
// every exit path.
func (w *LoadWaiter) Wait(ctx context.Context, nav domain.Navigation, timeout time.Duration) error {
	key := navigationKey{tabID: nav.TabID, navigationID: nav.ID}

	w.mu.Lock()
	if result, done := w.completed[key]; done {
		w.forgetTabLocked(nav.TabID)
		w.mu.Unlock()
		return result
	}
	ch := make(chan error, 1)
	w.waiters[key] = ch
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if current, ok := w.waiters[key]; ok && current == ch {
			delete(w.waiters, key)
		}
		w.forgetTabLocked(nav.TabID)
		w.mu.Unlock()
	}()

	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case result := <-ch:
		return result
	case <-ctx.Done():
		return ctx.Err()
	case <-timeoutC:
		return fmt.Errorf("%w: tab %s navigation %s after %s", domain.ErrLoadTimeout, nav.TabID, nav.ID, timeout)
	}
}

// Pending returns the number of registered waits.
func (w *LoadWaiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiters)
}

// forgetTabLocked drops buffered signals for tabID; they belong to
// navigations nobody will wait on any more.
func (w *LoadWaiter) forgetTabLocked(tabID string) {
	for key := range w.completed {
		if key.tabID == tabID {
			delete(w.completed, key)
		}
	}
}

func navigationError(err error) error {
	if err == nil {
		return domain.ErrNavigationFailed
	}
	return fmt.Errorf("%w: %v", domain.ErrNavigationFailed, err)
}
