package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/recipecart/backend/internal/domain"
	"github.com/recipecart/backend/internal/usecase"
	"github.com/sirupsen/logrus"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sessions    *usecase.SessionService
	resolver    *usecase.ResolutionService
	runs        *usecase.CartRunService
	preferences domain.PreferenceStore
	logger      logrus.FieldLogger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	sessions *usecase.SessionService,
	resolver *usecase.ResolutionService,
	runs *usecase.CartRunService,
	preferences domain.PreferenceStore,
	logger logrus.FieldLogger,
) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		sessions:    sessions,
		resolver:    resolver,
		runs:        runs,
		preferences: preferences,
		logger:      logger.WithField("component", "http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "recipecart-backend",
		"version": Version,
	})
}

// Version is reported by the health endpoint; overridden at build time.
var Version = "1.0.0"

type startSessionRequest struct {
	URL         string   `json:"url"`
	Ingredients []string `json:"ingredients"`
	Storefront  string   `json:"storefront"`
	Headless    *bool    `json:"headless"`
}

// StartSession parses a recipe and starts resolving its ingredients
func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	session, err := h.sessions.Start(c.Request.Context(), usecase.StartSessionRequest{
		URL:         req.URL,
		Ingredients: req.Ingredients,
		Storefront:  req.Storefront,
		Headless:    req.Headless,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session.View())
}

// GetSession returns the current state of a session
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

type selectionRequest struct {
	ASIN string `json:"asin" binding:"required"`
}

// SelectProduct changes the chosen candidate for one ingredient
func (h *Handler) SelectProduct(c *gin.Context) {
	session, index, ok := h.sessionItem(c)
	if !ok {
		return
	}

	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	item, err := session.Select(index, req.ASIN)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

type quantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SetQuantity changes the quantity of one selected item. Negative values are
// stored as 0 (skipped).
func (h *Handler) SetQuantity(c *gin.Context) {
	session, index, ok := h.sessionItem(c)
	if !ok {
		return
	}

	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	item, err := session.SetQuantity(index, *req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetSummary returns the cart count and total for a session
func (h *Handler) GetSummary(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Summary())
}

type submitRequest struct {
	Storefront string `json:"storefront"`
}

// SubmitSession queues the session's non-skipped items for a cart run
func (h *Handler) SubmitSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req submitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
	}
	storefront := req.Storefront
	if storefront == "" {
		storefront = session.Storefront
	}

	runID, err := h.runs.Start(session.CartEntries(), storefront)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"runId": runID})
}

type searchRequest struct {
	Ingredient string `json:"ingredient" binding:"required"`
	Storefront string `json:"storefront"`
	Headless   *bool  `json:"headless"`
}

// Search resolves a single ingredient
func (h *Handler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	storefront := req.Storefront
	if storefront == "" {
		storefront = domain.StorefrontAmazon
	}

	candidates, err := h.resolver.Search(c.Request.Context(), req.Ingredient, storefront, h.headless(c.Request.Context(), req.Headless))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Ingredient,
		"options": candidates,
	})
}

type messageRequest struct {
	Action     string                  `json:"action" binding:"required"`
	Items      []domain.CartQueueEntry `json:"items"`
	Storefront string                  `json:"storefront"`
}

// HandleMessage is the control channel used by the popup: "addToCart" starts
// a cart run and "ping" checks liveness.
func (h *Handler) HandleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	switch req.Action {
	case "ping":
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	case "addToCart":
		storefront := req.Storefront
		if storefront == "" {
			storefront = domain.StorefrontAmazon
		}
		runID, err := h.runs.Start(req.Items, storefront)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "started", "runId": runID})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action: " + req.Action})
	}
}

// GetRun returns the state and per-item outcomes of a cart run
func (h *Handler) GetRun(c *gin.Context) {
	report, err := h.runs.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetPreferences returns the saved preferences
func (h *Handler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"headless": h.headless(c.Request.Context(), nil)})
}

type preferencesRequest struct {
	Headless *bool `json:"headless" binding:"required"`
}

// UpdatePreferences saves the headless preference
func (h *Handler) UpdatePreferences(c *gin.Context) {
	if h.preferences == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Preference storage is not configured"})
		return
	}

	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.preferences.SetHeadless(c.Request.Context(), *req.Headless); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"headless": *req.Headless})
}

// headless resolves the effective headless flag: request, then saved
// preference, then true.
func (h *Handler) headless(ctx context.Context, requested *bool) bool {
	if requested != nil {
		return *requested
	}
	if h.preferences == nil {
		return true
	}
	value, err := h.preferences.GetHeadless(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrPreferenceNotFound) {
			h.logger.WithError(err).Warn("Failed to load headless preference")
		}
		return true
	}
	return value
}

func (h *Handler) sessionItem(c *gin.Context) (*usecase.Session, int, bool) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return nil, 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item index"})
		return nil, 0, false
	}
	return session, index, true
}
