// Package form binds user-entered quantities to the promotion engine. A Form keeps
// one quantity per catalog row and recomputes the breakdown on every change, pushing
// the result to attached listeners.
//
// A Form is not safe for concurrent use.
package form

import (
	"errors"
	"fmt"

	"github.com/noah-isme/backend-promo/internal/catalog"
	"github.com/noah-isme/backend-promo/internal/pricing"
)

// ErrUnknownProduct is returned when a quantity targets a product outside the form.
var ErrUnknownProduct = errors.New("unknown product")

// Listener receives every recomputed breakdown.
type Listener func(pricing.Breakdown)

// Row is a catalog product together with its current quantity.
type Row struct {
	Product  catalog.Product
	Quantity int
}

// Form holds the quantity state of a single shopping session.
type Form struct {
	engine    pricing.Engine
	rows      []Row
	index     map[string]int
	listeners []*listenerSlot
	last      pricing.Breakdown
}

type listenerSlot struct {
	fn Listener
}

// New builds a form with every catalog product at quantity 0.
func New(engine pricing.Engine, c *catalog.Catalog) *Form {
	products := c.List()
	f := &Form{
		engine: engine,
		rows:   make([]Row, len(products)),
		index:  make(map[string]int, len(products)),
	}
	for i, p := range products {
		f.rows[i] = Row{Product: p}
		f.index[p.ID] = i
	}
	f.last = f.compute()
	return f
}

// Attach registers l and immediately calls it with the current breakdown. The
// returned function detaches it; calling it more than once is a no-op.
func (f *Form) Attach(l Listener) (detach func()) {
	slot := &listenerSlot{fn: l}
	f.listeners = append(f.listeners, slot)
	l(f.last)
	return func() {
		for i, s := range f.listeners {
			if s == slot {
				f.listeners = append(f.listeners[:i], f.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetQuantity parses raw the way a quantity input does and recomputes.
func (f *Form) SetQuantity(productID, raw string) error {
	idx, ok := f.index[productID]
	if !ok {
		return fmt.Errorf("set quantity %q: %w", productID, ErrUnknownProduct)
	}
	f.rows[idx].Quantity = pricing.ParseQuantity(raw)
	f.Recalculate()
	return nil
}

// Reset sets every quantity back to 0 and recomputes.
func (f *Form) Reset() {
	for i := range f.rows {
		f.rows[i].Quantity = 0
	}
	f.Recalculate()
}

// Recalculate recomputes the breakdown and notifies listeners.
func (f *Form) Recalculate() pricing.Breakdown {
	f.last = f.compute()
	for _, s := range append([]*listenerSlot(nil), f.listeners...) {
		s.fn(f.last)
	}
	return f.last
}

// Breakdown returns the most recently computed breakdown.
func (f *Form) Breakdown() pricing.Breakdown {
	return f.last
}

// Rows returns a snapshot of the current rows.
func (f *Form) Rows() []Row {
	out := make([]Row, len(f.rows))
	copy(out, f.rows)
	return out
}

func (f *Form) compute() pricing.Breakdown {
	items := make([]pricing.LineItem, 0, len(f.rows))
	for _, r := range f.rows {
		items = append(items, r.Product.LineItem(r.Quantity))
	}
	return f.engine.Compute(items)
}
