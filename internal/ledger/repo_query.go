package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Filter struct {
	Type          Type
	ReferenceType string
	ReferenceID   string
	ProductID     int64
	Limit         int
	Offset        int
}

func (r *Repo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var h Header
	err := r.DB.QueryRow(ctx, `
		SELECT id, type, reference_type, reference_id, note, created_at
		FROM stock_ledger WHERE id=$1`, id).
		Scan(&h.ID, &h.Type, &h.ReferenceType, &h.ReferenceID, &h.Note, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, change, qty FROM stock_ledger_lines
		WHERE ledger_id=$1 ORDER BY id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()

	out := Transaction{Header: h}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Change, &l.Qty); err != nil {
			return Transaction{}, err
		}
		out.Lines = append(out.Lines, l)
	}
	return out, rows.Err()
}

func (r *Repo) ListTransactions(ctx context.Context, f Filter) ([]Transaction, error) {
	q := `SELECT DISTINCT h.id, h.type, h.reference_type, h.reference_id, h.note, h.created_at
	      FROM stock_ledger h`
	args := []any{}
	where := ""
	and := func(cond string, v any) {
		args = append(args, v)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}

	if f.ProductID != 0 {
		q += ` JOIN stock_ledger_lines l ON l.ledger_id = h.id`
		and("l.product_id = $%d", f.ProductID)
	}
	if f.Type != "" {
		and("h.type = $%d", f.Type)
	}
	if f.ReferenceType != "" {
		and("h.reference_type = $%d", f.ReferenceType)
	}
	if f.ReferenceID != "" {
		and("h.reference_id = $%d", f.ReferenceID)
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	q += where + fmt.Sprintf(" ORDER BY h.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var h Header
		if err := rows.Scan(&h.ID, &h.Type, &h.ReferenceType, &h.ReferenceID, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, Transaction{Header: h})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		full, err := r.GetTransaction(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = full.Lines
	}
	return out, nil
}
