package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const MaxQuantity = 50

var ErrQuantityLimit = fmt.Errorf("quantity exceeds limit of %d", MaxQuantity)

type CartRepo struct{ DB *pgxpool.Pool }

const cartItemCols = `ci.id, ci.cart_id, c.user_id, ci.product_id, ci.quantity,
	ci.price, ci.original_price, ci.product_name, ci.product_image, ci.brand_name`

func scanCartItem(row pgx.Row) (*CartItem, error) {
	var it CartItem
	err := row.Scan(
		&it.ID, &it.CartID, &it.UserID, &it.ProductID, &it.Quantity,
		&it.Price, &it.OriginalPrice, &it.ProductName, &it.ProductImage, &it.BrandName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// FindByProductID returns every cart line in the system referencing the
// product, across all users.
func (r *CartRepo) FindByProductID(ctx context.Context, productID int64) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+cartItemCols+`
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE ci.product_id=$1`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCartItems(rows)
}

func (r *CartRepo) ItemsForUser(ctx context.Context, userID int64) ([]CartItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+cartItemCols+`
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id=$1 ORDER BY ci.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCartItems(rows)
}

func collectCartItems(rows pgx.Rows) ([]CartItem, error) {
	var out []CartItem
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// SavePriceSnapshot rewrites only the denormalized price copy on one line.
func (r *CartRepo) SavePriceSnapshot(ctx context.Context, it *CartItem) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE cart_items SET price=$2, original_price=$3 WHERE id=$1`,
		it.ID, it.Price, it.OriginalPrice)
	return err
}

func (r *CartRepo) getOrCreateCart(ctx context.Context, tx pgx.Tx, userID int64) (int64, error) {
	var cartID int64
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `INSERT INTO carts(user_id) VALUES ($1) RETURNING id`, userID).Scan(&cartID)
	}
	return cartID, err
}

// AddItem adds the product to the user's cart (creating the cart on first
// use) with a snapshot of the already-evaluated price. Re-adding the same
// product bumps the quantity and refreshes the snapshot.
func (r *CartRepo) AddItem(ctx context.Context, userID int64, p *Product, quantity int) (*CartItem, error) {
	if quantity <= 0 {
		return nil, errors.New("invalid quantity")
	}
	if quantity > MaxQuantity {
		return nil, ErrQuantityLimit
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cartID, err := r.getOrCreateCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var itemID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO cart_items(cart_id, product_id, quantity, price, original_price,
			product_name, product_image, brand_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (cart_id, product_id) DO UPDATE SET
			quantity = LEAST(cart_items.quantity + EXCLUDED.quantity, $9),
			price = EXCLUDED.price,
			original_price = EXCLUDED.original_price
		RETURNING id`,
		cartID, p.ID, quantity, p.Price, p.OriginalPrice,
		p.Title, p.ImageURL, p.BrandName, MaxQuantity,
	).Scan(&itemID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	row := r.DB.QueryRow(ctx, `
		SELECT `+cartItemCols+`
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id=$1`, itemID)
	return scanCartItem(row)
}

func (r *CartRepo) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items ci USING carts c
		WHERE ci.id=$1 AND ci.cart_id = c.id AND c.user_id=$2`, itemID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
