package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
)

const maxRetainedSessions = 16

// StartSessionRequest starts a new parse-and-resolve session. Either URL or
// Ingredients must be set; Headless nil means use the saved preference.
type StartSessionRequest struct {
	URL         string
	Ingredients []string
	Storefront  string
	Headless    *bool
}

// SessionService creates sessions and resolves their ingredients in the
// background. Starting a session cancels the previous session's resolution.
type SessionService struct {
	parser       domain.RecipeParser
	resolver     *ResolutionService
	preferences  domain.PreferenceStore
	preprocessor *IngredientPreprocessor
	events       *EventBus
	logger       logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	current  *Session
}

// NewSessionService creates a session service
func NewSessionService(
	parser domain.RecipeParser,
	resolver *ResolutionService,
	preferences domain.PreferenceStore,
	preprocessor *IngredientPreprocessor,
	events *EventBus,
	logger logrus.FieldLogger,
) *SessionService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if preprocessor == nil {
		preprocessor = NewIngredientPreprocessor(false, logger)
	}
	return &SessionService{
		parser:       parser,
		resolver:     resolver,
		preferences:  preferences,
		preprocessor: preprocessor,
		events:       events,
		logger:       logger.WithField("component", "sessions"),
		sessions:     make(map[string]*Session),
	}
}

// Start parses the recipe if needed, creates a fresh session, and begins
// batched resolution in the background.
func (s *SessionService) Start(ctx context.Context, request StartSessionRequest) (*Session, error) {
	lines := request.Ingredients
	if len(lines) == 0 {
		if strings.TrimSpace(request.URL) == "" {
			return nil, fmt.Errorf("%w: url or ingredients required", domain.ErrInvalidRequest)
		}
		if s.parser == nil {
			return nil, fmt.Errorf("%w: recipe parsing is not configured", domain.ErrInvalidRequest)
		}
		parsed, err := s.parser.ParseRecipe(ctx, request.URL)
		if err != nil {
			return nil, err
		}
		lines = parsed
	}
	lines = nonEmptyLines(lines)
	if len(lines) == 0 {
		return nil, domain.ErrNoIngredients
	}

	storefront := request.Storefront
	if storefront == "" {
		storefront = domain.StorefrontAmazon
	}
	headless := s.resolveHeadless(ctx, request.Headless)

	runCtx, cancel := context.WithCancel(context.Background())
	session := newSession(uuid.New().String(), domain.NewIngredients(lines), storefront, headless, s.preprocessor, s.events)
	session.cancel = cancel

	s.mu.Lock()
	if previous := s.current; previous != nil {
		previous.cancel()
		s.logger.WithField("session", previous.ID).Debug("Superseded previous session")
	}
	s.current = session
	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	s.evictLocked()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session":     session.ID,
		"ingredients": len(lines),
		"storefront":  storefront,
	}).Info("Session started")

	go func() {
		defer close(session.done)
		defer cancel()
		err := s.resolver.ResolveAll(runCtx, session.ingredients, storefront, headless, session)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.WithError(err).WithField("session", session.ID).Warn("Resolution stopped")
		}
		s.events.Publish(domain.Event{Type: domain.EventSessionDone, SessionID: session.ID})
	}()

	return session, nil
}

// Get returns a session by id
func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Shutdown cancels the running resolution, if any.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.cancel()
	}
}

func (s *SessionService) resolveHeadless(ctx context.Context, requested *bool) bool {
	if requested != nil {
		return *requested
	}
	if s.preferences == nil {
		return true
	}
	headless, err := s.preferences.GetHeadless(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			s.logger.WithError(err).Warn("Failed to load headless preference")
		}
		return true
	}
	return headless
}

func (s *SessionService) evictLocked() {
	for len(s.order) > maxRetainedSessions {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, oldest)
	}
}

func nonEmptyLines(lines []string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

// Row is the view of one ingredient line in a session.
type Row struct {
	Index      int                       `json:"index"`
	Text       string                    `json:"text"`
	Label      string                    `json:"label"`
	Status     domain.RowStatus          `json:"status"`
	Error      string                    `json:"error,omitempty"`
	Candidates []domain.ProductCandidate `json:"candidates"`
}

// SessionView is a point-in-time copy of a session.
type SessionView struct {
	ID         string                `json:"id"`
	Storefront string                `json:"storefront"`
	Headless   bool                  `json:"headless"`
	Resolved   bool                  `json:"resolved"`
	Rows       []Row                 `json:"rows"`
	Selection  []domain.SelectedItem `json:"selection"`
	Summary    domain.CartSummary    `json:"summary"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// Session owns one ingredient list and its SelectionModel.
type Session struct {
	ID         string
	Storefront string
	Headless   bool
	CreatedAt  time.Time

	ingredients []domain.Ingredient
	model       *SelectionModel
	events      *EventBus

	mu     sync.RWMutex
	rows   []Row
	done   chan struct{}
	cancel context.CancelFunc
}

func newSession(id string, ingredients []domain.Ingredient, storefront string, headless bool, preprocessor *IngredientPreprocessor, events *EventBus) *Session {
	rows := make([]Row, len(ingredients))
	for i, ing := range ingredients {
		rows[i] = Row{
			Index:      ing.Index,
			Text:       ing.Text,
			Label:      preprocessor.Label(ing.Text),
			Status:     domain.RowPending,
			Candidates: []domain.ProductCandidate{},
		}
	}
	return &Session{
		ID:          id,
		Storefront:  storefront,
		Headless:    headless,
		CreatedAt:   time.Now(),
		ingredients: ingredients,
		model:       NewSelectionModel(),
		events:      events,
		rows:        rows,
		done:        make(chan struct{}),
		cancel:      func() {},
	}
}

// Done is closed when background resolution has finished or was cancelled.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Model returns the session's selection model.
func (s *Session) Model() *SelectionModel {
	return s.model
}

// MarkSearching implements ResolutionSink.
func (s *Session) MarkSearching(indices []int) {
	s.setStatus(indices, domain.RowSearching, "")
}

// MarkFailed implements ResolutionSink. No selection is created for failed rows.
func (s *Session) MarkFailed(indices []int, err error) {
	s.setStatus(indices, domain.RowError, err.Error())
}

// ApplyResolution implements ResolutionSink. The top candidate seeds the
// selection only if the row has none yet.
func (s *Session) ApplyResolution(resolution domain.Resolution) {
	index := resolution.IngredientIndex

	s.mu.Lock()
	if index < 0 || index >= len(s.rows) {
		s.mu.Unlock()
		return
	}
	row := &s.rows[index]
	if len(resolution.Candidates) == 0 {
		row.Status = domain.RowNoProducts
		row.Error = domain.ErrNoProducts.Error()
	} else {
		row.Status = domain.RowResolved
		row.Error = ""
		row.Candidates = append([]domain.ProductCandidate(nil), resolution.Candidates...)
	}
	status := row.Status
	s.mu.Unlock()

	if len(resolution.Candidates) > 0 {
		s.model.Seed(index, resolution.Candidates[0])
	}
	s.publishRow(index, status, "")
}

// Select makes the candidate with asin the choice for index.
func (s *Session) Select(index int, asin string) (domain.SelectedItem, error) {
	s.mu.RLock()
	if index < 0 || index >= len(s.rows) {
		s.mu.RUnlock()
		return domain.SelectedItem{}, fmt.Errorf("%w: index %d", domain.ErrIngredientNotFound, index)
	}
	var candidate *domain.ProductCandidate
	for i := range s.rows[index].Candidates {
		if s.rows[index].Candidates[i].ASIN == asin {
			c := s.rows[index].Candidates[i]
			candidate = &c
			break
		}
	}
	s.mu.RUnlock()

	if candidate == nil {
		return domain.SelectedItem{}, fmt.Errorf("%w: %s at index %d", domain.ErrCandidateNotFound, asin, index)
	}
	return s.model.Select(index, *candidate), nil
}

// SetQuantity updates the quantity of the current selection at index.
func (s *Session) SetQuantity(index, quantity int) (domain.SelectedItem, error) {
	return s.model.SetQuantity(index, quantity)
}

// Summary aggregates the current selection.
func (s *Session) Summary() domain.CartSummary {
	return s.model.Summary()
}

// CartEntries returns the queue to submit; skipped items are excluded.
func (s *Session) CartEntries() []domain.CartQueueEntry {
	return s.model.CartEntries()
}

// View returns a copy of the session state.
func (s *Session) View() SessionView {
	s.mu.RLock()
	rows := make([]Row, len(s.rows))
	for i, row := range s.rows {
		row.Candidates = append([]domain.ProductCandidate{}, row.Candidates...)
		rows[i] = row
	}
	s.mu.RUnlock()

	resolved := false
	select {
	case <-s.done:
		resolved = true
	default:
	}

	selection := s.model.Snapshot()
	return SessionView{
		ID:         s.ID,
		Storefront: s.Storefront,
		Headless:   s.Headless,
		Resolved:   resolved,
		Rows:       rows,
		Selection:  selection,
		Summary:    Aggregate(selection),
		CreatedAt:  s.CreatedAt,
	}
}

func (s *Session) setStatus(indices []int, status domain.RowStatus, message string) {
	s.mu.Lock()
	for _, index := range indices {
		if index >= 0 && index < len(s.rows) {
			s.rows[index].Status = status
			s.rows[index].Error = message
		}
	}
	s.mu.Unlock()

	for _, index := range indices {
		s.publishRow(index, status, message)
	}
}

func (s *Session) publishRow(index int, status domain.RowStatus, message string) {
	idx := index
	s.events.Publish(domain.Event{
		Type:      domain.EventRowStatus,
		SessionID: s.ID,
		Index:     &idx,
		Status:    string(status),
		Error:     message,
	})
}
