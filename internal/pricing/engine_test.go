package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sewcraft/machines-backend/internal/catalog"
	"github.com/sewcraft/machines-backend/internal/clock"
)

func newEngine(products *fakeProducts, syncer CartSyncer, notifier Notifier, now string) *Engine {
	return &Engine{
		Products: products,
		Carts:    syncer,
		Notify:   notifier,
		Clock:    clock.NewFake(tm(now)),
	}
}

func TestEngine_AppliesTransitionOnce(t *testing.T) {
	store := newFakeProducts(scheduledProduct())
	notifier := newFakeNotifier()
	syncer := &fakeSyncer{n: 2}
	e := newEngine(store, syncer, notifier, "2025-01-03T12:00:00")

	p, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, e.EvaluateAndApply(context.Background(), p))

	assert.True(t, p.Price.Equal(d("800")))
	assert.True(t, p.IsOnSale)
	assert.Equal(t, 1, store.saveCount())
	require.Len(t, notifier.broadcasts, 1)
	msg := notifier.broadcasts[0]
	assert.Equal(t, catalog.EventPriceChanged, msg.Type)
	assert.True(t, msg.NewPrice.Equal(d("800")))
	assert.True(t, msg.OriginalPrice.Equal(d("1000")))
	assert.Equal(t, []int64{1}, syncer.calls)

	// Same tick again: converged state, no further side effects.
	p2, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, e.EvaluateAndApply(context.Background(), p2))
	assert.Equal(t, 1, store.saveCount())
	assert.Len(t, notifier.broadcasts, 1)
	assert.Len(t, syncer.calls, 1)
}

func TestEngine_ScheduleEndClearsAndBroadcasts(t *testing.T) {
	p := scheduledProduct()
	p.Price = d("800")
	p.IsOnSale = true
	store := newFakeProducts(p)
	notifier := newFakeNotifier()
	syncer := &fakeSyncer{}
	e := newEngine(store, syncer, notifier, "2025-01-08T00:01:00")

	require.NoError(t, e.SweepAll(context.Background()))

	got := store.get(1)
	require.NotNil(t, got)
	assert.True(t, got.Price.Equal(d("1000")))
	assert.False(t, got.IsOnSale)
	assert.Nil(t, got.ScheduledPrice)
	require.Len(t, notifier.broadcasts, 1)
	assert.Equal(t, catalog.EventScheduleEnded, notifier.broadcasts[0].Type)
	assert.Equal(t, []int64{1}, syncer.calls)
}

func TestEngine_CaptureOnlyPersistsWithoutNotify(t *testing.T) {
	p := scheduledProduct()
	p.OriginalPriceBeforeSchedule = nil
	p.Price = d("800")
	p.IsOnSale = true
	store := newFakeProducts(p)
	notifier := newFakeNotifier()
	syncer := &fakeSyncer{}
	e := newEngine(store, syncer, notifier, "2025-01-03T12:00:00")

	got, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.NoError(t, e.EvaluateAndApply(context.Background(), got))

	assert.Equal(t, 1, store.saveCount())
	require.NotNil(t, store.get(1).OriginalPriceBeforeSchedule)
	assert.Empty(t, notifier.broadcasts)
	assert.Empty(t, syncer.calls)
}

func TestEngine_SweepIsolatesPerProductFailures(t *testing.T) {
	a, b, c := scheduledProduct(), scheduledProduct(), scheduledProduct()
	a.ID, b.ID, c.ID = 1, 2, 3
	store := newFakeProducts(a, b, c)
	store.failSave[2] = errors.New("disk on fire")
	notifier := newFakeNotifier()
	e := newEngine(store, &fakeSyncer{}, notifier, "2025-01-03T12:00:00")

	require.NoError(t, e.SweepAll(context.Background()))

	assert.True(t, store.get(1).Price.Equal(d("800")))
	assert.True(t, store.get(3).Price.Equal(d("800")))
	// B keeps its old price, and no notification went out for it.
	assert.True(t, store.get(2).Price.Equal(d("1000")))
	assert.Len(t, notifier.broadcasts, 2)
}

func TestEngine_SweepLoadFailure(t *testing.T) {
	store := newFakeProducts()
	store.failFindScheduled = errors.New("connection refused")
	e := newEngine(store, &fakeSyncer{}, newFakeNotifier(), "2025-01-03T12:00:00")

	err := e.SweepAll(context.Background())
	require.Error(t, err)
}

func TestEngine_CartSyncFailureIsNonFatal(t *testing.T) {
	store := newFakeProducts(scheduledProduct())
	syncer := &fakeSyncer{err: errors.New("cart store down")}
	e := newEngine(store, syncer, newFakeNotifier(), "2025-01-03T12:00:00")

	p, err := store.FindByID(context.Background(), 1)
	require.NoError(t, err)
	// The price write is the source of truth; downstream failures are logged.
	require.NoError(t, e.EvaluateAndApply(context.Background(), p))
	assert.Equal(t, 1, store.saveCount())
}

func TestEngine_SyncCartPricesForUnknownProduct(t *testing.T) {
	e := newEngine(newFakeProducts(), &fakeSyncer{}, newFakeNotifier(), "2025-01-03T12:00:00")

	n, err := e.SyncCartPricesForProduct(context.Background(), 99)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngine_SyncCartPricesEvaluatesFirst(t *testing.T) {
	store := newFakeProducts(scheduledProduct())
	syncer := &fakeSyncer{n: 3}
	e := newEngine(store, syncer, newFakeNotifier(), "2025-01-03T12:00:00")

	n, err := e.SyncCartPricesForProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	// Evaluation persisted the scheduled price before the sync ran.
	assert.True(t, store.get(1).Price.Equal(d("800")))
	// EvaluateAndApply already synced on the transition; the explicit call
	// is the second one.
	assert.Equal(t, []int64{1, 1}, syncer.calls)
}
