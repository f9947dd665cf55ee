// Package docform hosts the editable state of one commercial-document form
// and keeps its derived totals consistent. It is the reactive shell around
// the pure engine in internal/totals: raw inputs change through mutators,
// every mutator reruns the engine synchronously, and derived fields have no
// mutators at all, so a derived write can never re-trigger the computation
// chain.
package docform

import "github.com/noah-isme/backend-billing/internal/totals"

// Observer receives the fresh summary after each completed recompute pass.
// It runs outside the recompute path; mutating the session from inside an
// observer is not supported.
type Observer func(totals.Summary)

// Session owns the raw inputs and derived outputs for a single document
// being edited. It is not safe for concurrent use; one form, one goroutine.
type Session struct {
	items        []totals.LineItem
	taxRate      totals.Numeric
	discountRate totals.Numeric
	summary      totals.Summary
	observer     Observer
	batching     bool
}

// NewSession returns a session seeded with one blank line item, the state of
// a freshly opened "new document" form.
func NewSession() *Session {
	s := &Session{items: []totals.LineItem{{}}}
	s.recompute()
	return s
}

// Load replaces the whole editable state with a persisted document's raw
// fields, as when opening an existing document for editing, and recomputes.
func (s *Session) Load(items []totals.LineItem, taxRate, discountRate totals.Numeric) {
	s.items = append([]totals.LineItem(nil), items...)
	s.taxRate = taxRate
	s.discountRate = discountRate
	s.recompute()
}

// SetObserver registers the derived-field write-back hook. The observer is
// invoked immediately with the current summary so the host starts in sync.
func (s *Session) SetObserver(fn Observer) {
	s.observer = fn
	if fn != nil {
		fn(s.summary)
	}
}

// AddItem appends a blank line item.
func (s *Session) AddItem() {
	s.items = append(s.items, totals.LineItem{})
	s.recompute()
}

// RemoveItem deletes the item at index. Out-of-range indexes are ignored.
func (s *Session) RemoveItem(index int) {
	if index < 0 || index >= len(s.items) {
		return
	}
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.recompute()
}

// SetProduct updates the product reference of the item at index.
func (s *Session) SetProduct(index int, productID, productName string) {
	if index < 0 || index >= len(s.items) {
		return
	}
	s.items[index].ProductID = productID
	s.items[index].ProductName = productName
	s.recompute()
}

// SetQuantity updates the quantity of the item at index and recomputes.
func (s *Session) SetQuantity(index int, quantity totals.Numeric) {
	if index < 0 || index >= len(s.items) {
		return
	}
	s.items[index].Quantity = quantity
	s.recompute()
}

// SetUnitPrice updates the unit price of the item at index and recomputes.
func (s *Session) SetUnitPrice(index int, unitPrice totals.Numeric) {
	if index < 0 || index >= len(s.items) {
		return
	}
	s.items[index].UnitPrice = unitPrice
	s.recompute()
}

// SetTaxRate updates the document tax percentage and recomputes.
func (s *Session) SetTaxRate(rate totals.Numeric) {
	s.taxRate = rate
	s.recompute()
}

// SetDiscountRate updates the document discount percentage and recomputes.
func (s *Session) SetDiscountRate(rate totals.Numeric) {
	s.discountRate = rate
	s.recompute()
}

// Batch applies several raw-input edits as one logical update with a single
// recompute at the end. This is how a host delivers simultaneous changes
// (say, a quantity and the tax rate) without an intermediate cycle.
func (s *Session) Batch(fn func(*Session)) {
	if fn == nil {
		return
	}
	s.batching = true
	fn(s)
	s.batching = false
	s.recompute()
}

// Items returns a copy of the current line items with their derived totals.
func (s *Session) Items() []totals.LineItem {
	return append([]totals.LineItem(nil), s.items...)
}

// TaxRate returns the current tax percentage input.
func (s *Session) TaxRate() totals.Numeric { return s.taxRate }

// DiscountRate returns the current discount percentage input.
func (s *Session) DiscountRate() totals.Numeric { return s.discountRate }

// Summary returns the aggregates from the last completed recompute pass.
func (s *Session) Summary() totals.Summary { return s.summary }

// Snapshot captures the full raw-plus-derived state for submission.
type Snapshot struct {
	Items        []totals.LineItem `json:"items"`
	TaxRate      float64           `json:"taxRate"`
	DiscountRate float64           `json:"discountRate"`
	totals.Summary
}

// Snapshot returns the current document state for handing to a submitter.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Items:        s.Items(),
		TaxRate:      s.taxRate.Float(),
		DiscountRate: s.discountRate.Float(),
		Summary:      s.summary,
	}
}

func (s *Session) recompute() {
	if s.batching {
		return
	}
	s.summary = totals.Recompute(s.items, s.taxRate, s.discountRate)
	if s.observer != nil {
		s.observer(s.summary)
	}
}
