package pricing

import (
	"context"
	"errors"
	"log"

	"github.com/sewcraft/machines-backend/internal/catalog"
)

type CartStore interface {
	FindByProductID(ctx context.Context, productID int64) ([]catalog.CartItem, error)
	SavePriceSnapshot(ctx context.Context, it *catalog.CartItem) error
}

// Synchronizer pushes a product's authoritative price into every cart line
// that snapshot-copied it. Lines already in sync are skipped, so calling it
// repeatedly (sweep tick, cart open, checkout) is cheap and quiet.
type Synchronizer struct {
	Products ProductStore
	Carts    CartStore
	Notify   Notifier
}

// SyncForProduct returns how many lines were rewritten. Each line persists
// independently; one failed line never blocks the rest.
func (s *Synchronizer) SyncForProduct(ctx context.Context, productID int64) (int, error) {
	p, err := s.Products.FindByID(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	items, err := s.Carts.FindByProductID(ctx, productID)
	if err != nil {
		return 0, err
	}

	// The struck-through price shown next to the snapshot falls back to the
	// live price when the product has none.
	orig := p.Price
	if p.OriginalPrice != nil {
		orig = *p.OriginalPrice
	}

	count := 0
	for i := range items {
		it := &items[i]
		if it.Price.Equal(p.Price) && it.OriginalPrice != nil && it.OriginalPrice.Equal(orig) {
			continue
		}
		it.Price = p.Price
		o := orig
		it.OriginalPrice = &o
		if err := s.Carts.SavePriceSnapshot(ctx, it); err != nil {
			log.Printf("pricing: sync cart item %d (product %d): %v", it.ID, productID, err)
			continue
		}
		count++
		if s.Notify != nil && it.UserID != 0 {
			s.Notify.SendToUser(ctx, it.UserID, catalog.PriceUpdateMessage{
				ProductID:     p.ID,
				NewPrice:      p.Price,
				OriginalPrice: orig,
				Message:       "Cart price updated",
				Type:          catalog.EventPriceChanged,
			})
		}
	}
	return count, nil
}
