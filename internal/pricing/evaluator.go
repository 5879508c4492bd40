package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sewcraft/machines-backend/internal/catalog"
)

// Result is the outcome of evaluating one product against the clock.
// Changed marks a pricing mutation that must be persisted; CapturedOriginal
// marks the first-evaluation snapshot of the pre-schedule price, which is a
// persistable side effect but never a transition. Notify is true only when
// a transition actually happened, so duplicate ticks stay silent.
type Result struct {
	Price            decimal.Decimal
	IsOnSale         bool
	ClearSchedule    bool
	CapturedOriginal bool
	Changed          bool
	Notify           bool
	Transition       string // catalog.Event* value, empty when none
}

// Dirty reports whether the product row needs a write.
func (r Result) Dirty() bool { return r.Changed || r.CapturedOriginal }

// Evaluate decides the correct price state for a product at the given
// instant. Pure: it never mutates the product and never touches I/O. Both
// window bounds are inclusive. Products without the full schedule triple
// are left untouched.
//
// Before start    -> pre-schedule price, not on sale   (PRICE_REVERTED)
// Inside window   -> scheduled price, on sale          (PRICE_CHANGED)
// After end       -> pre-schedule price restored, not on sale,
//                    schedule fields cleared           (SCHEDULE_ENDED)
func Evaluate(p *catalog.Product, now time.Time) Result {
	r := Result{Price: p.Price, IsOnSale: p.IsOnSale}
	if !p.HasSchedule() {
		return r
	}

	base := p.OriginalPriceBeforeSchedule
	if base == nil {
		v := p.Price
		base = &v
		r.CapturedOriginal = true
	}

	start, end := *p.PriceStartDate, *p.PriceEndDate
	switch {
	case now.Before(start):
		r.Price = *base
		r.IsOnSale = false
		if !r.Price.Equal(p.Price) || r.IsOnSale != p.IsOnSale {
			r.Changed = true
			r.Notify = true
			r.Transition = catalog.EventPriceReverted
		}

	case !now.After(end): // start <= now <= end
		r.Price = *p.ScheduledPrice
		r.IsOnSale = true
		if !r.Price.Equal(p.Price) || r.IsOnSale != p.IsOnSale {
			r.Changed = true
			r.Notify = true
			r.Transition = catalog.EventPriceChanged
		}

	default: // now > end: restore and clear, always a mutation
		r.Price = *base
		r.IsOnSale = false
		r.ClearSchedule = true
		r.Changed = true
		r.Notify = true
		r.Transition = catalog.EventScheduleEnded
	}
	return r
}

// Apply writes the result back onto the product. Capture happens before the
// clear so a schedule that ends on its very first evaluation still restores
// the right price.
func (r Result) Apply(p *catalog.Product) {
	if r.CapturedOriginal && p.OriginalPriceBeforeSchedule == nil {
		v := p.Price
		p.OriginalPriceBeforeSchedule = &v
	}
	p.Price = r.Price
	p.IsOnSale = r.IsOnSale
	if r.ClearSchedule {
		p.ScheduledPrice = nil
		p.PriceStartDate = nil
		p.PriceEndDate = nil
		p.OriginalPriceBeforeSchedule = nil
	}
}
