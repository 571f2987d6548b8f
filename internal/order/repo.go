package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/cart"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ledger"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

type Repo struct {
	DB         *pgxpool.Pool
	Ledger     *ledger.Repo
	Carts      *cart.Repo
	Vouchers   *voucher.Repo
	Payments   *payment.Repo
	CodePrefix string
}

const orderCols = `id, buyer_id, order_code, payment_status, fulfillment_status,
	order_status, payment_method, fulfillment_method, subtotal, discount,
	shipping_fee, vat, total, total_pay, voucher_id, transaction_id,
	receiver_name, receiver_phone, receiver_address, cancel_reason,
	created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.Code, &o.PaymentStatus, &o.FulfillmentStatus,
		&o.OrderStatus, &o.PaymentMethod, &o.FulfillmentMethod, &o.Subtotal, &o.Discount,
		&o.ShippingFee, &o.VAT, &o.Total, &o.TotalPay, &o.VoucherID, &o.TransactionID,
		&o.ReceiverName, &o.ReceiverPhone, &o.ReceiverAddress, &o.CancelReason,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// CreateOrder is the checkout unit of work: order row, transfer code,
// line-item snapshots, the outbound ledger posting and the cart cleanup
// all commit together or not at all. The ledger posting is the only stock
// deduction; there is no separate direct decrement.
func (r *Repo) CreateOrder(ctx context.Context, o Order, items []Item) (Order, []Item, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(buyer_id, payment_status, fulfillment_status, order_status,
			payment_method, fulfillment_method, subtotal, discount, shipping_fee, vat,
			total, total_pay, voucher_id, receiver_name, receiver_phone, receiver_address)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id, created_at, updated_at`,
		o.BuyerID, o.PaymentStatus, o.FulfillmentStatus, o.OrderStatus,
		o.PaymentMethod, o.FulfillmentMethod, o.Subtotal, o.Discount, o.ShippingFee, o.VAT,
		o.Total, o.TotalPay, o.VoucherID, o.ReceiverName, o.ReceiverPhone, o.ReceiverAddress).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, nil, err
	}

	o.Code = TransferCode(r.CodePrefix, o.ID)
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET order_code=$2 WHERE id=$1`, o.ID, o.Code); err != nil {
		return Order{}, nil, err
	}

	productIDs := make([]int64, 0, len(items))
	for i := range items {
		items[i].OrderID = o.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, product_title, category_id,
				qty, unit_price, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING id`,
			o.ID, items[i].ProductID, items[i].ProductTitle, items[i].CategoryID,
			items[i].Qty, items[i].UnitPrice, items[i].LineTotal).Scan(&items[i].ID)
		if err != nil {
			return Order{}, nil, err
		}
		for _, c := range items[i].Components {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_item_components(order_item_id, product_id, qty_per_unit)
				VALUES ($1,$2,$3)`, items[i].ID, c.ProductID, c.QtyPerUnit); err != nil {
				return Order{}, nil, err
			}
		}
		productIDs = append(productIDs, items[i].ProductID)
	}

	if _, err := r.Ledger.OutboundFromOrder(ctx, tx, o.ID, "checkout "+o.Code); err != nil {
		return Order{}, nil, err
	}

	if err := r.Carts.RemoveItems(ctx, tx, o.BuyerID, productIDs); err != nil {
		return Order{}, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repo) GetByCode(ctx context.Context, code string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE order_code=$1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repo) GetItems(ctx context.Context, orderID int64) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, product_title, category_id, qty, unit_price, line_total
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductTitle,
			&it.CategoryID, &it.Qty, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		crows, err := r.DB.Query(ctx, `
			SELECT product_id, qty_per_unit FROM order_item_components
			WHERE order_item_id=$1 ORDER BY product_id`, out[i].ID)
		if err != nil {
			return nil, err
		}
		for crows.Next() {
			var c Component
			if err := crows.Scan(&c.ProductID, &c.QtyPerUnit); err != nil {
				crows.Close()
				return nil, err
			}
			out[i].Components = append(out[i].Components, c)
		}
		if err := crows.Err(); err != nil {
			crows.Close()
			return nil, err
		}
		crows.Close()
	}
	return out, nil
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE buyer_id=$1 ORDER BY id DESC`, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) lockOrder(ctx context.Context, tx pgx.Tx, id int64) (Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// CancelOrder flips the order to cancelled and posts the compensating
// inbound ledger transaction in the same unit of work, restoring every
// deducted quantity. The guard is re-checked under the row lock so a
// racing settlement cannot slip through.
func (r *Repo) CancelOrder(ctx context.Context, orderID int64, reason string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !o.CanCancel() {
		return Order{}, ErrNotCancellable
	}

	err = tx.QueryRow(ctx, `
		UPDATE orders SET order_status=$2, cancel_reason=$3, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		orderID, StatusCancelled, reason).Scan(&o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.OrderStatus = StatusCancelled
	o.CancelReason = reason

	if _, err := r.Ledger.ReturnFromOrder(ctx, tx, orderID, "cancel "+o.Code); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// UpdateStatus applies an admin status update under the row lock.
func (r *Repo) UpdateStatus(ctx context.Context, orderID int64, upd StatusUpdate) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, err
	}

	pay, ful, ord, err := ApplyStatusUpdate(o, upd)
	if err != nil {
		return Order{}, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE orders SET payment_status=$2, fulfillment_status=$3, order_status=$4,
			updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		orderID, pay, ful, ord).Scan(&o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.PaymentStatus, o.FulfillmentStatus, o.OrderStatus = pay, ful, ord

	// A cancel through the admin path also restores stock.
	if upd.Order != nil && ord == StatusCancelled {
		if _, err := r.Ledger.ReturnFromOrder(ctx, tx, orderID, "cancel "+o.Code); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}
