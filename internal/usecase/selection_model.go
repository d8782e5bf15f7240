package usecase

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/recipecart/backend/internal/domain"
)

// skippedDisplayText is shown for an ingredient whose quantity is 0.
const skippedDisplayText = "Skipped"

// SelectionModel maps ingredient index to the chosen candidate and quantity.
// It is the single source of truth for cart contents within one session.
// Every mutation is visible to the next Snapshot call.
type SelectionModel struct {
	items map[int]domain.SelectedItem
	mutex sync.RWMutex
}

// NewSelectionModel creates an empty selection model
func NewSelectionModel() *SelectionModel {
	return &SelectionModel{
		items: make(map[int]domain.SelectedItem),
	}
}

// Seed inserts the default entry for index only if none exists yet, so late or
// repeated batch results never overwrite an earlier choice. Reports whether
// an entry was inserted.
func (m *SelectionModel) Seed(index int, candidate domain.ProductCandidate) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.items[index]; exists {
		return false
	}
	m.items[index] = newSelectedItem(index, candidate, recommendedQuantity(candidate))
	return true
}

// Select replaces the entry for index with an explicitly chosen candidate.
func (m *SelectionModel) Select(index int, candidate domain.ProductCandidate) domain.SelectedItem {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	item := newSelectedItem(index, candidate, recommendedQuantity(candidate))
	m.items[index] = item
	return item
}

// SetQuantity updates the quantity for index, clamping negatives to 0.
func (m *SelectionModel) SetQuantity(index, quantity int) (domain.SelectedItem, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	item, exists := m.items[index]
	if !exists {
		return domain.SelectedItem{}, fmt.Errorf("%w: no selection at index %d", domain.ErrIngredientNotFound, index)
	}
	if quantity < 0 {
		quantity = 0
	}
	item.Quantity = quantity
	priceItem(&item)
	m.items[index] = item
	return item, nil
}

// Get returns the entry for index.
func (m *SelectionModel) Get(index int) (domain.SelectedItem, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	item, exists := m.items[index]
	return item, exists
}

// Snapshot returns all entries ordered by ingredient index, skipped ones included.
func (m *SelectionModel) Snapshot() []domain.SelectedItem {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	items := make([]domain.SelectedItem, 0, len(m.items))
	for _, item := range m.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].IngredientIndex < items[j].IngredientIndex
	})
	return items
}

// Summary aggregates the current snapshot.
func (m *SelectionModel) Summary() domain.CartSummary {
	return Aggregate(m.Snapshot())
}

// CartEntries projects the active selection into the cart queue. Entries with
// quantity 0 are never included.
func (m *SelectionModel) CartEntries() []domain.CartQueueEntry {
	return ToCartEntries(m.Snapshot())
}

// Len returns the number of entries, skipped ones included.
func (m *SelectionModel) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.items)
}

// ToCartEntries filters items down to the ones with a positive quantity.
func ToCartEntries(items []domain.SelectedItem) []domain.CartQueueEntry {
	entries := make([]domain.CartQueueEntry, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		entries = append(entries, domain.CartQueueEntry{
			ASIN:     item.ASIN,
			Quantity: item.Quantity,
			URL:      item.URL,
		})
	}
	return entries
}

func recommendedQuantity(candidate domain.ProductCandidate) int {
	if candidate.QuantityRecommendation > 0 {
		return candidate.QuantityRecommendation
	}
	return 1
}

func newSelectedItem(index int, candidate domain.ProductCandidate, quantity int) domain.SelectedItem {
	item := domain.SelectedItem{
		IngredientIndex: index,
		ASIN:            candidate.ASIN,
		Title:           candidate.Title,
		Price:           candidate.Price,
		URL:             candidate.URL,
		Quantity:        quantity,
	}
	priceItem(&item)
	return item
}

// priceItem recomputes TotalPrice and DisplayText from Price and Quantity.
// A non-numeric unit price yields a total of 0 and shows the raw string.
func priceItem(item *domain.SelectedItem) {
	if item.Quantity == 0 {
		item.TotalPrice = 0
		item.DisplayText = skippedDisplayText
		return
	}

	unit, ok := item.Price.Unit()
	if !ok {
		item.TotalPrice = 0
		item.DisplayText = item.Price.String()
		return
	}

	total := roundCents(unit * float64(item.Quantity))
	item.TotalPrice = total
	item.DisplayText = fmt.Sprintf("$%s ea (Total: $%.2f)", strconv.FormatFloat(unit, 'f', -1, 64), total)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
