// Package cart holds the line items a customer intends to buy during a
// browsing session.
package cart

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned when a quantity below one reaches the store.
// Callers remove items explicitly with RemoveItem.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// PriceScale is the number of decimal places prices are stored with.
const PriceScale = 2

// RoundPrice rounds d to PriceScale places, half away from zero.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}

// LineItem is one product entry in the cart. UnitPrice is already
// discount-adjusted.
type LineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is UnitPrice × Quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Store keeps at most one line item per product id, in insertion order.
// Totals are always derived from the items.
type Store struct {
	mu    sync.RWMutex
	items []LineItem
}

func NewStore() *Store {
	return &Store{}
}

// Restore builds a store from previously saved line items. Entries with a
// duplicate id are merged and quantities below one are dropped.
func Restore(items []LineItem) *Store {
	s := NewStore()
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		if i := s.indexOf(it.ID); i >= 0 {
			s.items[i].Quantity += it.Quantity
			continue
		}
		s.items = append(s.items, it)
	}
	return s
}

// AddItem inserts the item with quantity 1, or bumps the quantity of the
// existing line item with the same id.
func (s *Store) AddItem(item LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.ID); i >= 0 {
		s.items[i].Quantity++
		return
	}
	item.Quantity = 1
	s.items = append(s.items, item)
}

// UpdateQuantity sets the quantity of the line item with the given id.
// Unknown ids are ignored.
func (s *Store) UpdateQuantity(id string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.items[i].Quantity = quantity
	}
	return nil
}

func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// Subtract takes the given quantities off the matching line items and
// drops lines that reach zero. Lines that are absent or were added later
// keep their remaining quantity.
func (s *Store) Subtract(items []LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		i := s.indexOf(it.ID)
		if i < 0 {
			continue
		}
		s.items[i].Quantity -= it.Quantity
		if s.items[i].Quantity < 1 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
	}
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Items returns a copy of the line items.
func (s *Store) Items() []LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// TotalItems is the sum of all quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, it := range s.items {
		total += it.Quantity
	}
	return total
}

// TotalPrice is the sum of every line item's subtotal.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Total(s.items)
}

// Total sums the subtotals of items.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (s *Store) indexOf(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
