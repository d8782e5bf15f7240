package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

const maxRetainedRuns = 32

// CartRunService owns cart runs. At most one run holds the automation tab at
// a time; runs are observable by id and through the event bus.
type CartRunService struct {
	processor *CartQueueProcessor
	events    *EventBus
	logger    logrus.FieldLogger

	mu     sync.Mutex
	runs   map[string]*trackedRun
	order  []string
	active string

	baseCtx context.Context
}

type trackedRun struct {
	report domain.RunReport
	done   chan struct{}
}

// NewCartRunService creates a cart run service. Runs started through it are
// bound to ctx, which should live as long as the process.
func NewCartRunService(ctx context.Context, processor *CartQueueProcessor, events *EventBus, logger logrus.FieldLogger) *CartRunService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CartRunService{
		processor: processor,
		events:    events,
		logger:    logger.WithField("component", "runs"),
		runs:      make(map[string]*trackedRun),
		baseCtx:   ctx,
	}
}

// Start validates entries and launches a run in the background.
func (s *CartRunService) Start(entries []domain.CartQueueEntry, storefront string) (string, error) {
	active := filterActiveEntries(entries)
	if len(active) < len(entries) {
		s.logger.WithField("dropped", len(entries)-len(active)).Warn("Dropped cart entries without ASIN or quantity")
	}
	if len(active) == 0 {
		return "", domain.ErrEmptyCart
	}

	s.mu.Lock()
	if s.active != "" {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", domain.ErrRunInProgress, s.active)
	}
	runID := uuid.New().String()
	run := &trackedRun{
		report: domain.RunReport{
			RunID:      runID,
			Storefront: storefront,
			State:      domain.RunIdle,
			Items:      []domain.ItemOutcome{},
			StartedAt:  time.Now(),
		},
		done: make(chan struct{}),
	}
	s.runs[runID] = run
	s.order = append(s.order, runID)
	s.active = runID
	s.evictLocked()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"run": runID, "items": len(active), "storefront": storefront}).Info("Starting cart run")

	go func() {
		defer close(run.done)
		report := s.processor.Process(s.baseCtx, runID, active, storefront, &runObserver{service: s, runID: runID})

		s.mu.Lock()
		run.report = report
		s.active = ""
		s.mu.Unlock()

		s.events.Publish(domain.Event{
			Type:   domain.EventRunFinished,
			RunID:  runID,
			Status: fmt.Sprintf("%d/%d", report.Succeeded(), len(report.Items)),
			Error:  report.Error,
		})
	}()

	return runID, nil
}

// Run processes entries synchronously and returns the final report.
func (s *CartRunService) Run(ctx context.Context, entries []domain.CartQueueEntry, storefront string) (domain.RunReport, error) {
	runID, err := s.Start(entries, storefront)
	if err != nil {
		return domain.RunReport{}, err
	}
	return s.Wait(ctx, runID)
}

// Wait blocks until the run finishes.
func (s *CartRunService) Wait(ctx context.Context, runID string) (domain.RunReport, error) {
	s.mu.Lock()
	run, ok := s.runs[runID]
	s.mu.Unlock()
	if !ok {
		return domain.RunReport{}, domain.ErrRunNotFound
	}

	select {
	case <-run.done:
	case <-ctx.Done():
		return domain.RunReport{}, ctx.Err()
	}
	return s.Get(runID)
}

// Get returns a copy of the run's current report.
func (s *CartRunService) Get(runID string) (domain.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return domain.RunReport{}, domain.ErrRunNotFound
	}
	report := run.report
	report.Items = append([]domain.ItemOutcome(nil), run.report.Items...)
	return report, nil
}

// Active returns the id of the running run, if any.
func (s *CartRunService) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

func (s *CartRunService) evictLocked() {
	for len(s.order) > maxRetainedRuns {
		oldest := s.order[0]
		if oldest == s.active {
			break
		}
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
}

func filterActiveEntries(entries []domain.CartQueueEntry) []domain.CartQueueEntry {
	active := make([]domain.CartQueueEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.ASIN == "" || entry.Quantity <= 0 {
			continue
		}
		active = append(active, entry)
	}
	return active
}

// runObserver mirrors processor progress into the tracked report and the bus.
type runObserver struct {
	service *CartRunService
	runID   string
}

func (o *runObserver) OnState(state domain.RunState, asin string) {
	o.service.mu.Lock()
	if run, ok := o.service.runs[o.runID]; ok {
		run.report.State = state
	}
	o.service.mu.Unlock()

	o.service.events.Publish(domain.Event{
		Type:   domain.EventRunState,
		RunID:  o.runID,
		Status: string(state),
		ASIN:   asin,
	})
}

func (o *runObserver) OnItem(outcome domain.ItemOutcome) {
	o.service.mu.Lock()
	if run, ok := o.service.runs[o.runID]; ok {
		run.report.Items = append(run.report.Items, outcome)
	}
	o.service.mu.Unlock()

	o.service.events.Publish(domain.Event{
		Type:  domain.EventItemFinished,
		RunID: o.runID,
		ASIN:  outcome.ASIN,
		Error: outcome.Error,
	})
}
