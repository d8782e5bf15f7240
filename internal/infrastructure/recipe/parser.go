package recipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/recipecart/backend/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes     = 8 << 20
)

// Parser fetches recipe pages and extracts their ingredient lines locally.
// It implements domain.RecipeParser for deployments without the parse
// endpoint.
type Parser struct {
	httpClient *http.Client
	userAgent  string
	logger     logrus.FieldLogger
}

// NewParser creates a local recipe parser
func NewParser(timeout time.Duration, userAgent string, logger logrus.FieldLogger) *Parser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Parser{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     logger.WithField("component", "recipe"),
	}
}

// ParseRecipe fetches url and returns its ingredient lines
func (p *Parser) ParseRecipe(ctx context.Context, url string) ([]string, error) {
	if url == "" {
		return nil, domain.ErrInvalidRequest
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: recipe page returned status %d", domain.ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading recipe page: %v", domain.ErrTransport, err)
	}

	ingredients, err := Extract(body)
	if err != nil {
		return nil, err
	}
	if len(ingredients) == 0 {
		return nil, domain.ErrNoIngredients
	}

	p.logger.WithFields(logrus.Fields{
		"url":         url,
		"ingredients": len(ingredients),
	}).Info("Parsed recipe")
	return ingredients, nil
}

// Extract pulls ingredient lines out of a recipe page. Structured data is
// preferred; HTML lists are the fallback.
func Extract(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipe page: %w", err)
	}

	if ingredients := extractJSONLD(doc); len(ingredients) > 0 {
		return ingredients, nil
	}
	return extractHTML(doc), nil
}

func extractJSONLD(doc *goquery.Document) []string {
	var ingredients []string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if !gjson.Valid(raw) {
			return true
		}
		ingredients = recipeIngredients(gjson.Parse(raw))
		return len(ingredients) == 0
	})
	return ingredients
}

// recipeIngredients walks a JSON-LD document (object, array, or @graph
// container) and returns the first Recipe's ingredient list.
func recipeIngredients(node gjson.Result) []string {
	if node.IsArray() {
		for _, item := range node.Array() {
			if found := recipeIngredients(item); len(found) > 0 {
				return found
			}
		}
		return nil
	}
	if !node.IsObject() {
		return nil
	}

	if isRecipe(node.Get("@type")) {
		var lines []string
		for _, item := range node.Get("recipeIngredient").Array() {
			if text := normalizeSpace(item.String()); text != "" {
				lines = append(lines, text)
			}
		}
		if len(lines) > 0 {
			return lines
		}
	}

	if graph := node.Get("@graph"); graph.Exists() {
		return recipeIngredients(graph)
	}
	return nil
}

func isRecipe(kind gjson.Result) bool {
	if kind.IsArray() {
		for _, k := range kind.Array() {
			if k.String() == "Recipe" {
				return true
			}
		}
		return false
	}
	return kind.String() == "Recipe"
}

func extractHTML(doc *goquery.Document) []string {
	var ingredients []string

	doc.Find("ul, ol").EachWithBreak(func(_ int, list *goquery.Selection) bool {
		if !mentionsIngredient(list) {
			return true
		}
		ingredients = listItems(list)
		return len(ingredients) == 0
	})
	if len(ingredients) > 0 {
		return ingredients
	}

	doc.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if !mentionsIngredient(div) {
			return true
		}
		ingredients = listItems(div)
		return len(ingredients) == 0
	})
	return ingredients
}

func mentionsIngredient(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	return strings.Contains(strings.ToLower(class), "ingredient") ||
		strings.Contains(strings.ToLower(id), "ingredient")
}

func listItems(s *goquery.Selection) []string {
	var lines []string
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := itemText(li); text != "" {
			lines = append(lines, text)
		}
	})
	return lines
}

// itemText joins the text nodes of an element with single spaces so that
// adjacent inline elements do not merge words.
func itemText(s *goquery.Selection) string {
	var parts []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			parts = append(parts, c.Text())
			return
		}
		parts = append(parts, itemText(c))
	})
	return normalizeSpace(strings.Join(parts, " "))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
