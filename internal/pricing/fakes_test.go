package pricing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sewcraft/machines-backend/internal/catalog"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fakeProducts struct {
	mu                 sync.Mutex
	byID               map[int64]*catalog.Product
	failSave           map[int64]error
	failFindScheduled  error
	saves              []int64
	findScheduledCalls int
}

func newFakeProducts(ps ...*catalog.Product) *fakeProducts {
	f := &fakeProducts{byID: map[int64]*catalog.Product{}, failSave: map[int64]error{}}
	for _, p := range ps {
		cp := *p
		f.byID[p.ID] = &cp
	}
	return f
}

func (f *fakeProducts) FindScheduled(ctx context.Context) ([]catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findScheduledCalls++
	if f.failFindScheduled != nil {
		return nil, f.failFindScheduled
	}
	var out []catalog.Product
	for _, p := range f.byID {
		if p.HasSchedule() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProducts) FindByID(ctx context.Context, id int64) (*catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) SavePriceFields(ctx context.Context, p *catalog.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSave[p.ID]; err != nil {
		return err
	}
	cp := *p
	f.byID[p.ID] = &cp
	f.saves = append(f.saves, p.ID)
	return nil
}

func (f *fakeProducts) get(id int64) *catalog.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeProducts) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeNotifier struct {
	mu         sync.Mutex
	broadcasts []catalog.PriceUpdateMessage
	userMsgs   map[int64][]catalog.PriceUpdateMessage
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{userMsgs: map[int64][]catalog.PriceUpdateMessage{}}
}

func (f *fakeNotifier) Broadcast(ctx context.Context, msg catalog.PriceUpdateMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, msg)
}

func (f *fakeNotifier) SendToUser(ctx context.Context, userID int64, msg catalog.PriceUpdateMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userMsgs[userID] = append(f.userMsgs[userID], msg)
}

type fakeSyncer struct {
	mu    sync.Mutex
	calls []int64
	n     int
	err   error
}

func (f *fakeSyncer) SyncForProduct(ctx context.Context, productID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, productID)
	return f.n, f.err
}

type fakeCarts struct {
	mu       sync.Mutex
	items    []catalog.CartItem
	failSave map[int64]error
	saved    []catalog.CartItem
}

func (f *fakeCarts) FindByProductID(ctx context.Context, productID int64) ([]catalog.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.CartItem
	for _, it := range f.items {
		if it.ProductID == productID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeCarts) SavePriceSnapshot(ctx context.Context, it *catalog.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failSave[it.ID]; err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].ID == it.ID {
			f.items[i] = *it
		}
	}
	f.saved = append(f.saved, *it)
	return nil
}
