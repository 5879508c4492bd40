package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/sewcraft/machines-backend/internal/catalog"
	"github.com/sewcraft/machines-backend/internal/clock"
	"github.com/sewcraft/machines-backend/internal/redisx"
)

type ProductStore interface {
	FindScheduled(ctx context.Context) ([]catalog.Product, error)
	FindByID(ctx context.Context, id int64) (*catalog.Product, error)
	SavePriceFields(ctx context.Context, p *catalog.Product) error
}

type CartSyncer interface {
	SyncForProduct(ctx context.Context, productID int64) (int, error)
}

// Notifier is the fan-out port. Implementations are best-effort and must
// never fail the caller; notification is an optimization, not a
// correctness mechanism.
type Notifier interface {
	Broadcast(ctx context.Context, msg catalog.PriceUpdateMessage)
	SendToUser(ctx context.Context, userID int64, msg catalog.PriceUpdateMessage)
}

// Engine runs the evaluator against the store and owns the idempotency
// guarantees: persist only on mutation, notify only on transition. The same
// engine instance serves both the periodic sweep and every lazy read path.
type Engine struct {
	Products ProductStore
	Carts    CartSyncer
	Notify   Notifier
	Clock    clock.Clock

	// Optional response cache to invalidate when a price moves.
	Cache *redis.Client

	locks sync.Map // product id -> *sync.Mutex
}

func (e *Engine) lock(id int64) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// EvaluateAndApply re-checks one product against the clock, persisting and
// fanning out only when something actually changed. Mutates p in place so
// callers see the evaluated state. Errors after a successful price write
// are logged, not returned: the write is the source of truth and downstream
// drift self-corrects on the next tick or read.
func (e *Engine) EvaluateAndApply(ctx context.Context, p *catalog.Product) error {
	mu := e.lock(p.ID)
	mu.Lock()
	defer mu.Unlock()

	r := Evaluate(p, e.Clock.Now())
	if !r.Dirty() {
		return nil
	}
	r.Apply(p)

	if err := e.Products.SavePriceFields(ctx, p); err != nil {
		return fmt.Errorf("save product %d: %w", p.ID, err)
	}
	e.invalidateCache(ctx, p.ID)

	if !r.Notify {
		return nil
	}

	msg := buildMessage(p, r)
	if e.Notify != nil {
		e.Notify.Broadcast(ctx, msg)
	}
	if e.Carts != nil {
		if n, err := e.Carts.SyncForProduct(ctx, p.ID); err != nil {
			log.Printf("pricing: cart sync for product %d: %v", p.ID, err)
		} else if n > 0 {
			log.Printf("pricing: synced %d cart line(s) for product %d", n, p.ID)
		}
	}
	return nil
}

// SweepAll re-evaluates every product carrying a schedule. One bad row
// never aborts the pass.
func (e *Engine) SweepAll(ctx context.Context) error {
	products, err := e.Products.FindScheduled(ctx)
	if err != nil {
		return fmt.Errorf("load scheduled products: %w", err)
	}
	for i := range products {
		if err := e.EvaluateAndApply(ctx, &products[i]); err != nil {
			log.Printf("pricing: sweep product %d: %v", products[i].ID, err)
		}
	}
	return nil
}

// SyncCartPricesForProduct is the entry point cart collaborators call after
// a schedule-boundary event or on cart open: evaluate first, then push the
// authoritative price into every referencing cart line.
func (e *Engine) SyncCartPricesForProduct(ctx context.Context, productID int64) (int, error) {
	p, err := e.Products.FindByID(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := e.EvaluateAndApply(ctx, p); err != nil {
		log.Printf("pricing: evaluate product %d before cart sync: %v", productID, err)
	}
	if e.Carts == nil {
		return 0, nil
	}
	return e.Carts.SyncForProduct(ctx, productID)
}

func (e *Engine) invalidateCache(ctx context.Context, productID int64) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Del(ctx, fmt.Sprintf(redisx.KeyProduct, productID)).Err(); err != nil {
		log.Printf("pricing: invalidate product %d cache: %v", productID, err)
	}
}

func buildMessage(p *catalog.Product, r Result) catalog.PriceUpdateMessage {
	msg := catalog.PriceUpdateMessage{
		ProductID:     p.ID,
		NewPrice:      r.Price,
		OriginalPrice: r.Price,
		Type:          r.Transition,
	}
	switch r.Transition {
	case catalog.EventPriceChanged:
		if p.OriginalPriceBeforeSchedule != nil {
			msg.OriginalPrice = *p.OriginalPriceBeforeSchedule
		}
		msg.Message = "Price updated: Scheduled discount applied"
	case catalog.EventPriceReverted:
		msg.Message = "Price reverted: Schedule not started yet"
	case catalog.EventScheduleEnded:
		msg.Message = "Price reverted: Schedule ended"
	}
	return msg
}
