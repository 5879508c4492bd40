package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sewcraft/machines-backend/internal/catalog"
)

func tm(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tp(s string) *time.Time {
	t := tm(s)
	return &t
}

// scheduledProduct is the §8-style fixture: 1000 regular, 800 promotional,
// window 2025-01-01T00:00 .. 2025-01-07T23:59.
func scheduledProduct() *catalog.Product {
	return &catalog.Product{
		ID:                          1,
		Title:                       "Overlock 734",
		Price:                       d("1000"),
		ScheduledPrice:              dp("800"),
		PriceStartDate:              tp("2025-01-01T00:00:00"),
		PriceEndDate:                tp("2025-01-07T23:59:00"),
		OriginalPriceBeforeSchedule: dp("1000"),
	}
}

func TestEvaluate_NoScheduleIsNoop(t *testing.T) {
	p := &catalog.Product{ID: 1, Price: d("1000"), IsOnSale: true}
	r := Evaluate(p, tm("2025-01-03T12:00:00"))

	assert.False(t, r.Dirty())
	assert.False(t, r.Notify)
	assert.Empty(t, r.Transition)
	assert.True(t, r.Price.Equal(d("1000")))
	assert.True(t, r.IsOnSale)
}

func TestEvaluate_PartialScheduleTreatedAsNoSchedule(t *testing.T) {
	p := &catalog.Product{ID: 1, Price: d("1000"), ScheduledPrice: dp("800")}
	r := Evaluate(p, tm("2025-01-03T12:00:00"))

	assert.False(t, r.Dirty())
	assert.False(t, r.Notify)
}

func TestEvaluate_BeforeStartRevertsPrice(t *testing.T) {
	p := scheduledProduct()
	p.Price = d("800") // drifted onto the promotional price early
	p.IsOnSale = true

	r := Evaluate(p, tm("2024-12-31T23:59:59"))

	require.True(t, r.Changed)
	assert.True(t, r.Notify)
	assert.Equal(t, catalog.EventPriceReverted, r.Transition)
	assert.True(t, r.Price.Equal(d("1000")))
	assert.False(t, r.IsOnSale)
	assert.False(t, r.ClearSchedule)
}

func TestEvaluate_WindowBoundariesInclusive(t *testing.T) {
	for _, now := range []string{"2025-01-01T00:00:00", "2025-01-07T23:59:00"} {
		p := scheduledProduct()
		r := Evaluate(p, tm(now))

		require.True(t, r.Changed, "at %s", now)
		assert.Equal(t, catalog.EventPriceChanged, r.Transition)
		assert.True(t, r.Price.Equal(d("800")))
		assert.True(t, r.IsOnSale)
		assert.False(t, r.ClearSchedule)
	}
}

func TestEvaluate_OneSecondBeforeStart(t *testing.T) {
	p := scheduledProduct()
	r := Evaluate(p, tm("2024-12-31T23:59:59"))

	// Price already correct, badge already off: nothing to do.
	assert.False(t, r.Dirty())
	assert.False(t, r.Notify)
	assert.True(t, r.Price.Equal(d("1000")))
	assert.False(t, r.IsOnSale)
}

func TestEvaluate_InsideWindowScenario(t *testing.T) {
	p := scheduledProduct()
	r := Evaluate(p, tm("2025-01-03T12:00:00"))

	require.True(t, r.Changed)
	assert.Equal(t, catalog.EventPriceChanged, r.Transition)
	assert.True(t, r.Price.Equal(d("800")))
	assert.True(t, r.IsOnSale)

	r.Apply(p)
	assert.True(t, p.Price.Equal(d("800")))
	assert.True(t, p.IsOnSale)
	require.NotNil(t, p.ScheduledPrice)
}

func TestEvaluate_AfterEndRestoresAndClears(t *testing.T) {
	p := scheduledProduct()
	p.Price = d("800")
	p.IsOnSale = true

	r := Evaluate(p, tm("2025-01-08T00:01:00"))

	require.True(t, r.Changed)
	assert.True(t, r.Notify)
	assert.Equal(t, catalog.EventScheduleEnded, r.Transition)
	assert.True(t, r.Price.Equal(d("1000")))
	assert.False(t, r.IsOnSale)
	assert.True(t, r.ClearSchedule)

	r.Apply(p)
	assert.True(t, p.Price.Equal(d("1000")))
	assert.False(t, p.IsOnSale)
	assert.Nil(t, p.ScheduledPrice)
	assert.Nil(t, p.PriceStartDate)
	assert.Nil(t, p.PriceEndDate)
	assert.Nil(t, p.OriginalPriceBeforeSchedule)
}

func TestEvaluate_FirstCaptureHappensInEveryPhase(t *testing.T) {
	cases := []struct {
		name string
		now  string
	}{
		{"before start", "2024-12-30T00:00:00"},
		{"inside window", "2025-01-03T12:00:00"},
		{"after end", "2025-01-08T00:01:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := scheduledProduct()
			p.OriginalPriceBeforeSchedule = nil

			r := Evaluate(p, tm(tc.now))
			assert.True(t, r.CapturedOriginal)
			assert.True(t, r.Dirty())

			r.Apply(p)
			if !r.ClearSchedule {
				require.NotNil(t, p.OriginalPriceBeforeSchedule)
				assert.True(t, p.OriginalPriceBeforeSchedule.Equal(d("1000")))
			}
		})
	}
}

func TestEvaluate_FirstCaptureAloneDoesNotNotify(t *testing.T) {
	// Already at the scheduled price and on sale, only the capture missing.
	p := scheduledProduct()
	p.OriginalPriceBeforeSchedule = nil
	p.Price = d("800")
	p.IsOnSale = true

	r := Evaluate(p, tm("2025-01-03T12:00:00"))

	assert.True(t, r.CapturedOriginal)
	assert.False(t, r.Changed)
	assert.False(t, r.Notify)
	assert.True(t, r.Dirty()) // still needs a persist

	// The capture snapshots the price as it was on entry.
	r.Apply(p)
	require.NotNil(t, p.OriginalPriceBeforeSchedule)
	assert.True(t, p.OriginalPriceBeforeSchedule.Equal(d("800")))
}

func TestEvaluate_Idempotent(t *testing.T) {
	cases := []struct {
		name string
		now  string
	}{
		{"before start", "2024-12-30T00:00:00"},
		{"inside window", "2025-01-03T12:00:00"},
		{"after end", "2025-01-08T00:01:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := scheduledProduct()
			now := tm(tc.now)

			first := Evaluate(p, now)
			first.Apply(p)

			second := Evaluate(p, now)
			assert.False(t, second.Dirty(), "second evaluation must not mutate")
			assert.False(t, second.Notify, "second evaluation must not notify")
			assert.True(t, second.Price.Equal(p.Price))
			assert.Equal(t, p.IsOnSale, second.IsOnSale)
		})
	}
}
