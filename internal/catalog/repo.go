package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, sku, title, category_id, price, stock, is_combo, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SKU, &p.Title, &p.CategoryID, &p.Price, &p.Stock,
		&p.IsCombo, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) GetProducts(ctx context.Context, ids []int64) (map[int64]Product, error) {
	if len(ids) == 0 {
		return map[int64]Product{}, nil
	}
	args := make([]any, 0, len(ids))
	params := ""
	for i, id := range ids {
		if i > 0 {
			params += ","
		}
		params += fmt.Sprintf("$%d", i+1)
		args = append(args, id)
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+productCols+` FROM products WHERE id IN (`+params+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) ComboComponents(ctx context.Context, comboID int64) ([]ComboComponent, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT product_id, qty FROM combo_items WHERE combo_id=$1 ORDER BY product_id`, comboID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ComboComponent
	for rows.Next() {
		var c ComboComponent
		if err := rows.Scan(&c.ProductID, &c.QtyPerUnit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+productCols+` FROM products WHERE active ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
