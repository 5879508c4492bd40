package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type ProductRepo struct{ DB *pgxpool.Pool }

const productCols = `id, title, description, brand_name, brand_slug, price, original_price,
	image_url, is_active, in_stock, stock_quantity, is_on_sale, is_new,
	scheduled_price, price_start_date, price_end_date, original_price_before_schedule,
	created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.BrandName, &p.BrandSlug, &p.Price, &p.OriginalPrice,
		&p.ImageURL, &p.IsActive, &p.InStock, &p.StockQuantity, &p.IsOnSale, &p.IsNew,
		&p.ScheduledPrice, &p.PriceStartDate, &p.PriceEndDate, &p.OriginalPriceBeforeSchedule,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id int64) (*Product, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id)
	return scanProduct(row)
}

func (r *ProductRepo) ListActive(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE is_active ORDER BY title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// FindScheduled returns every product carrying the full schedule triple.
// This is the at-risk set the periodic sweep re-evaluates.
func (r *ProductRepo) FindScheduled(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE scheduled_price IS NOT NULL
		  AND price_start_date IS NOT NULL
		  AND price_end_date IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// SavePriceFields persists only the columns the evaluator may mutate.
// Last-write-wins on purpose; overlapping evaluations converge because the
// evaluation itself is idempotent.
func (r *ProductRepo) SavePriceFields(ctx context.Context, p *Product) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE products SET
			price=$2, is_on_sale=$3,
			scheduled_price=$4, price_start_date=$5, price_end_date=$6,
			original_price_before_schedule=$7,
			updated_at=now()
		WHERE id=$1`,
		p.ID, p.Price, p.IsOnSale,
		p.ScheduledPrice, p.PriceStartDate, p.PriceEndDate,
		p.OriginalPriceBeforeSchedule,
	)
	return err
}

// AttachSchedule sets the promotional window on a product, capturing the
// pre-schedule price the first time a window attaches.
func (r *ProductRepo) AttachSchedule(ctx context.Context, id int64, scheduled decimal.Decimal, start, end time.Time) (*Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price decimal.Decimal
	var before *decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT price, original_price_before_schedule FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&price, &before)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if before == nil {
		before = &price
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET
			scheduled_price=$2, price_start_date=$3, price_end_date=$4,
			original_price_before_schedule=$5,
			updated_at=now()
		WHERE id=$1`,
		id, scheduled, start, end, before,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// ClearSchedule removes the window by admin request. If the promotional
// price is currently applied it is rolled back to the captured original.
// The on-sale badge is left alone here; the admin controls it manually.
func (r *ProductRepo) ClearSchedule(ctx context.Context, id int64) (*Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price decimal.Decimal
	var scheduled, before *decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT price, scheduled_price, original_price_before_schedule
		FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&price, &scheduled, &before)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if before != nil && scheduled != nil && price.Equal(*scheduled) {
		price = *before
	}

	_, err = tx.Exec(ctx, `
		UPDATE products SET
			price=$2,
			scheduled_price=NULL, price_start_date=NULL, price_end_date=NULL,
			original_price_before_schedule=NULL,
			updated_at=now()
		WHERE id=$1`,
		id, price,
	)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}
