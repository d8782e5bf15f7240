package domain

import "errors"

var (
	// ErrTransport is returned when the search backend is unreachable or
	// answers with a non-success status.
	ErrTransport = errors.New("search backend request failed")

	// ErrBackendSemantic is returned when the backend answers with an explicit
	// error field. The wrapped message is the backend's text.
	ErrBackendSemantic = errors.New("search backend reported an error")

	// ErrNoProducts is returned when a search yields zero candidates
	ErrNoProducts = errors.New("no products found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = errors.New("session not found")

	// ErrIngredientNotFound is returned when an index has no row or no selection
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrCandidateNotFound is returned when a selection names an unknown ASIN
	ErrCandidateNotFound = errors.New("candidate not found")

	// ErrNoIngredients is returned when a recipe yields no ingredient lines
	ErrNoIngredients = errors.New("no ingredients found")

	// ErrEmptyCart is returned when a submission has no active items
	ErrEmptyCart = errors.New("no items to add")

	// ErrTargetMissing is returned when no automation tab could be located or created
	ErrTargetMissing = errors.New("automation tab unavailable")

	// ErrAddToCartNotFound is returned when no add-to-cart control matched
	ErrAddToCartNotFound = errors.New("add to cart button not found")

	// ErrNavigationFailed is returned when the browser reports that a
	// navigation could not load. The wrapped message is the browser's error.
	ErrNavigationFailed = errors.New("navigation failed")

	// ErrLoadTimeout is returned when a navigation does not complete in time
	ErrLoadTimeout = errors.New("page load timed out")

	// ErrRunInProgress is returned when a cart run already owns the automation tab
	ErrRunInProgress = errors.New("cart run already in progress")

	// ErrRunNotFound is returned for unknown run ids
	ErrRunNotFound = errors.New("run not found")

	// ErrPreferenceNotFound is returned when a preference has never been saved
	ErrPreferenceNotFound = errors.New("preference not set")
)
