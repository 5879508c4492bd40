package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FavoriteRepo struct{ DB *pgxpool.Pool }

func (r *FavoriteRepo) Add(ctx context.Context, userID, productID int64) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO favorites(user_id, product_id)
		VALUES ($1,$2)
		ON CONFLICT (user_id, product_id) DO NOTHING`, userID, productID)
	return err
}

func (r *FavoriteRepo) Remove(ctx context.Context, userID, productID int64) error {
	_, err := r.DB.Exec(ctx,
		`DELETE FROM favorites WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (r *FavoriteRepo) ListForUser(ctx context.Context, userID int64) ([]Favorite, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, product_id, created_at
		FROM favorites WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.ProductID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
