package voucher

import (
	"context"
	"errors"
	"time"
)

// Store is what the engine needs from persistence; satisfied by *Repo and
// by fakes in tests.
type Store interface {
	GetByCode(ctx context.Context, code string) (Voucher, error)
	CountBuyerUses(ctx context.Context, voucherID, buyerID int64) (int, error)
}

type Engine struct {
	Store Store
	Now   func() time.Time
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store, Now: time.Now}
}

// Validate prices a voucher code against an order context. Never mutates
// state: usage is committed later, at payment confirmation, so an
// abandoned order cannot consume voucher inventory.
func (e *Engine) Validate(ctx context.Context, code string, orderTotal, shippingFee, buyerID int64) (Result, error) {
	v, err := e.Store.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return invalid("voucher not found"), nil
	}
	if err != nil {
		return Result{}, err
	}

	priorUses := -1
	if buyerID > 0 && v.PerBuyerLimit > 0 {
		priorUses, err = e.Store.CountBuyerUses(ctx, v.ID, buyerID)
		if err != nil {
			return Result{}, err
		}
	}

	return Evaluate(v, orderTotal, shippingFee, e.Now(), priorUses), nil
}
