package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// execer is the slice of pgx both the pool and a transaction satisfy.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (r *Repo) SelectedItems(ctx context.Context, buyerID int64) ([]Item, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT product_id, qty FROM cart_items
		 WHERE buyer_id=$1 AND selected ORDER BY created_at`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Qty); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// RemoveItems clears the given lines from a buyer's cart. It runs on
// whatever executor the caller holds, so checkout can clear the cart
// inside its own transaction.
func (r *Repo) RemoveItems(ctx context.Context, db execer, buyerID int64, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	args := []any{buyerID}
	params := ""
	for i, id := range productIDs {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	_, err := db.Exec(ctx,
		`DELETE FROM cart_items WHERE buyer_id=$1 AND product_id IN (`+params+`)`, args...)
	return err
}

// AddItem upserts so reordering an item already in the cart bumps quantity.
func (r *Repo) AddItem(ctx context.Context, buyerID int64, productID int64, qty int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO cart_items(buyer_id, product_id, qty, selected)
		VALUES ($1,$2,$3,TRUE)
		ON CONFLICT (buyer_id, product_id)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty, selected = TRUE`,
		buyerID, productID, qty)
	return err
}
