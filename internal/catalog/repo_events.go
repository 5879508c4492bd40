package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PriceEventRepo records every automatic price transition so operators can
// audit what the scheduler did and when.
type PriceEventRepo struct{ DB *pgxpool.Pool }

type PriceEvent struct {
	ID            int64
	EventID       string
	ProductID     int64
	Type          string
	NewPrice      decimal.Decimal
	OriginalPrice decimal.Decimal
	Message       string
	Producer      string
	OccurredAt    time.Time
}

func (r *PriceEventRepo) Insert(ctx context.Context, ev *PriceEvent) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO price_events(event_id, product_id, type, new_price, original_price, message, producer, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.ProductID, ev.Type, ev.NewPrice, ev.OriginalPrice, ev.Message, ev.Producer, ev.OccurredAt,
	)
	return err
}

func (r *PriceEventRepo) ListForProduct(ctx context.Context, productID int64, limit int) ([]PriceEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, event_id, product_id, type, new_price, original_price, message, producer, occurred_at
		FROM price_events WHERE product_id=$1 ORDER BY occurred_at DESC LIMIT $2`,
		productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceEvent
	for rows.Next() {
		var ev PriceEvent
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.ProductID, &ev.Type, &ev.NewPrice,
			&ev.OriginalPrice, &ev.Message, &ev.Producer, &ev.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
