package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// IngredientPreprocessor derives a short product label from raw recipe text,
// e.g. "2 (6 ounce) cans tomato paste, divided" -> "tomato paste".
type IngredientPreprocessor struct {
	enableDebugLogging bool
	logger             logrus.FieldLogger
}

// Compiled regex patterns for ingredient preprocessing
var (
	// Parenthesised notes such as "(6 ounce)" or "(optional)"
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)

	// Leading amounts: "2", "1/2", "1 1/2", "1.5", "2-3", unicode fractions
	leadingAmountPattern = regexp.MustCompile(`^\s*(?:\d+(?:[./]\d+)?|[¼½¾⅓⅔⅛⅜⅝⅞])(?:\s*(?:-|to)\s*\d+(?:[./]\d+)?)?(?:\s+\d+/\d+)?\s*[¼½¾⅓⅔⅛⅜⅝⅞]?\s*`)

	nonLabelCharsPattern = regexp.MustCompile(`[^a-z0-9\s'-]`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// measurementWords are units and containers that precede the product name
var measurementWords = map[string]bool{
	"cup": true, "cups": true, "c": true,
	"tablespoon": true, "tablespoons": true, "tbsp": true, "tbs": true, "tb": true,
	"teaspoon": true, "teaspoons": true, "tsp": true,
	"ounce": true, "ounces": true, "oz": true, "fl": true,
	"pound": true, "pounds": true, "lb": true, "lbs": true,
	"gram": true, "grams": true, "g": true, "kg": true,
	"ml": true, "l": true, "liter": true, "liters": true,
	"quart": true, "quarts": true, "pint": true, "pints": true, "gallon": true,
	"pinch": true, "dash": true, "clove": true, "cloves": true,
	"can": true, "cans": true, "jar": true, "jars": true, "package": true, "packages": true,
	"pkg": true, "box": true, "bag": true, "bunch": true, "bunches": true,
	"stick": true, "sticks": true, "slice": true, "slices": true,
	"dozen": true, "head": true, "heads": true, "sprig": true, "sprigs": true,
	"large": true, "medium": true, "small": true, "whole": true, "of": true,
}

// preparationWords describe how an ingredient is handled, not what to buy
var preparationWords = map[string]bool{
	"chopped": true, "minced": true, "diced": true, "sliced": true,
	"finely": true, "roughly": true, "coarsely": true, "thinly": true,
	"fresh": true, "freshly": true, "peeled": true, "grated": true,
	"softened": true, "melted": true, "room": true, "temperature": true,
	"beaten": true, "divided": true, "packed": true, "sifted": true,
	"cubed": true, "halved": true, "quartered": true, "rinsed": true,
	"drained": true, "optional": true, "needed": true, "taste": true,
	"to": true, "and": true, "or": true, "for": true, "serving": true,
}

// NewIngredientPreprocessor creates a new ingredient preprocessor
func NewIngredientPreprocessor(enableDebugLogging bool, logger logrus.FieldLogger) *IngredientPreprocessor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &IngredientPreprocessor{
		enableDebugLogging: enableDebugLogging,
		logger:             logger.WithField("component", "preprocess"),
	}
}

// Label returns the product portion of an ingredient line. It falls back to
// the trimmed input when stripping would leave nothing.
func (p *IngredientPreprocessor) Label(text string) string {
	original := strings.TrimSpace(text)
	if original == "" {
		return ""
	}

	// Step 1: drop everything after the first comma ("onion, finely chopped")
	cleaned := original
	if idx := strings.Index(cleaned, ","); idx > 0 {
		cleaned = cleaned[:idx]
	}

	// Step 2: drop parenthesised sizes and notes
	cleaned = parentheticalPattern.ReplaceAllString(cleaned, " ")

	// Step 3: drop the leading amount
	cleaned = leadingAmountPattern.ReplaceAllString(cleaned, "")

	// Step 4: lower-case and strip punctuation
	cleaned = nonLabelCharsPattern.ReplaceAllString(strings.ToLower(cleaned), " ")

	// Step 5: drop leading measurement words and all preparation words
	words := strings.Fields(cleaned)
	kept := make([]string, 0, len(words))
	leading := true
	for _, word := range words {
		if leading && (measurementWords[word] || isAmount(word)) {
			continue
		}
		leading = false
		if preparationWords[word] {
			continue
		}
		kept = append(kept, word)
	}

	label := multiSpacePattern.ReplaceAllString(strings.Join(kept, " "), " ")
	label = strings.TrimSpace(label)
	if label == "" {
		label = strings.ToLower(original)
	}

	if p.enableDebugLogging {
		p.logger.Debugf("Input: %q -> Label: %q", original, label)
	}

	return label
}

// CacheKey builds the single-search cache key for an ingredient.
// Format: "search:{storefront}:{label}"
func (p *IngredientPreprocessor) CacheKey(text, storefront string) string {
	return fmt.Sprintf("search:%s:%s", strings.ToLower(strings.TrimSpace(storefront)), p.Label(text))
}

func isAmount(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if (r < '0' || r > '9') && r != '/' && r != '.' && r != '-' {
			return false
		}
	}
	return true
}
