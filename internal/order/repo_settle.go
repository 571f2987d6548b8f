package order

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
)

// SettleByMatch looks for a bank transaction matching the order's transfer
// code and exact total, and settles the order in one unit of work: order
// marked paid and linked, transaction verified, voucher usage committed.
// This is the only place a voucher's used_count changes. Returns
// (order, nil, nil) when nothing matched yet: a benign outcome for
// pollers, not an error. Re-settling a paid order is a no-op success.
func (r *Repo) SettleByMatch(ctx context.Context, orderID int64, notBefore time.Time) (Order, *payment.Transaction, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	if o.PaymentStatus == PaymentPaid {
		return o, nil, nil
	}
	if o.OrderStatus == StatusCancelled {
		return Order{}, nil, ErrOrderCancelled
	}

	bankTx, found, err := r.Payments.FindMatchTx(ctx, tx, o.Code, o.Total, notBefore)
	if err != nil {
		return Order{}, nil, err
	}
	if !found {
		return o, nil, nil
	}

	if err := r.settle(ctx, tx, &o, bankTx); err != nil {
		return Order{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, nil, err
	}
	return o, &bankTx, nil
}

// SettleWithTransaction is the manual-confirmation path: an operator names
// the transaction explicitly and the same amount/memo/account checks run
// before the identical settlement unit of work.
func (r *Repo) SettleWithTransaction(ctx context.Context, orderID, transactionID int64, bankAccount string) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := r.lockOrder(ctx, tx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.PaymentStatus == PaymentPaid {
		return o, nil
	}
	if o.OrderStatus == StatusCancelled {
		return Order{}, ErrOrderCancelled
	}

	bankTx, err := r.Payments.GetTx(ctx, tx, transactionID)
	if err != nil {
		return Order{}, err
	}
	switch {
	case bankTx.Verified:
		return Order{}, ErrAlreadyVerified
	case bankTx.Amount != o.Total:
		return Order{}, ErrAmountMismatch
	case !payment.MemoReferences(bankTx.Memo, o.Code):
		return Order{}, ErrMemoMismatch
	case bankAccount != "" && bankTx.CreditAccount != bankAccount:
		return Order{}, ErrAccountMismatch
	}

	if err := r.settle(ctx, tx, &o, bankTx); err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) settle(ctx context.Context, tx pgx.Tx, o *Order, bankTx payment.Transaction) error {
	err := tx.QueryRow(ctx, `
		UPDATE orders SET payment_status=$2, transaction_id=$3, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		o.ID, PaymentPaid, bankTx.ID).Scan(&o.UpdatedAt)
	if err != nil {
		return err
	}
	o.PaymentStatus = PaymentPaid
	o.TransactionID = &bankTx.ID

	if err := r.Payments.MarkVerifiedTx(ctx, tx, bankTx.ID); err != nil {
		return err
	}

	if o.VoucherID != nil {
		bumped, err := r.Vouchers.IncrementUsage(ctx, tx, *o.VoucherID)
		if err != nil {
			return err
		}
		_ = bumped // limit already reached: the discount was honored at checkout, keep going
		if err := r.Vouchers.RecordUsage(ctx, tx, *o.VoucherID, o.BuyerID, o.ID, o.Discount); err != nil {
			return err
		}
	}
	return nil
}
