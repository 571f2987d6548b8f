package voucher

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const voucherCols = `id, code, kind, target, value, max_discount, min_order_amount,
	usage_limit, per_buyer_limit, used_count, valid_from, valid_to, active,
	created_at, updated_at`

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.Code, &v.Kind, &v.Target, &v.Value, &v.MaxDiscount,
		&v.MinOrderAmount, &v.UsageLimit, &v.PerBuyerLimit, &v.UsedCount,
		&v.ValidFrom, &v.ValidTo, &v.Active, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *Repo) GetByCode(ctx context.Context, code string) (Voucher, error) {
	v, err := scanVoucher(r.DB.QueryRow(ctx,
		`SELECT `+voucherCols+` FROM vouchers WHERE code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrNotFound
	}
	return v, err
}

func (r *Repo) GetByID(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.DB.QueryRow(ctx,
		`SELECT `+voucherCols+` FROM vouchers WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Voucher{}, ErrNotFound
	}
	return v, err
}

func (r *Repo) Create(ctx context.Context, v Voucher) (Voucher, error) {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO vouchers(code, kind, target, value, max_discount, min_order_amount,
			usage_limit, per_buyer_limit, valid_from, valid_to, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id, used_count, created_at, updated_at`,
		v.Code, v.Kind, v.Target, v.Value, v.MaxDiscount, v.MinOrderAmount,
		v.UsageLimit, v.PerBuyerLimit, v.ValidFrom, v.ValidTo, v.Active).
		Scan(&v.ID, &v.UsedCount, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Voucher{}, ErrCodeExists
		}
		return Voucher{}, err
	}
	return v, nil
}

// Update rewrites the definition fields. used_count is owned by the
// settlement path and never touched here.
func (r *Repo) Update(ctx context.Context, v Voucher) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE vouchers SET kind=$2, target=$3, value=$4, max_discount=$5,
			min_order_amount=$6, usage_limit=$7, per_buyer_limit=$8,
			valid_from=$9, valid_to=$10, active=$11, updated_at=now()
		WHERE id=$1`,
		v.ID, v.Kind, v.Target, v.Value, v.MaxDiscount, v.MinOrderAmount,
		v.UsageLimit, v.PerBuyerLimit, v.ValidFrom, v.ValidTo, v.Active)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate is the delete operation: vouchers referenced by orders are
// never removed, only disabled.
func (r *Repo) Deactivate(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx,
		`UPDATE vouchers SET active=FALSE, updated_at=now() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context) ([]Voucher, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+voucherCols+` FROM vouchers ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) CountBuyerUses(ctx context.Context, voucherID, buyerID int64) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM voucher_usages WHERE voucher_id=$1 AND buyer_id=$2`,
		voucherID, buyerID).Scan(&n)
	return n, err
}

// IncrementUsage bumps used_count, conditioned so it can never pass the
// limit. Returns false (no error) when the limit was already reached:
// settlement logs and continues rather than failing a confirmed payment.
func (r *Repo) IncrementUsage(ctx context.Context, tx pgx.Tx, voucherID int64) (bool, error) {
	ct, err := tx.Exec(ctx, `
		UPDATE vouchers SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND used_count < usage_limit`, voucherID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// RecordUsage inserts the redemption row. Idempotent per (voucher, order)
// so settlement retries cannot double-record.
func (r *Repo) RecordUsage(ctx context.Context, tx pgx.Tx, voucherID, buyerID, orderID, discount int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO voucher_usages(voucher_id, buyer_id, order_id, discount)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (voucher_id, order_id) DO NOTHING`,
		voucherID, buyerID, orderID, discount)
	return err
}
