package voucher

import (
	"errors"
	"time"
)

type Kind string

const (
	KindFixed   Kind = "FIXED"
	KindPercent Kind = "PERCENT"
)

type Target string

const (
	TargetOrder    Target = "ORDER"
	TargetShipping Target = "SHIPPING"
)

var (
	ErrNotFound   = errors.New("voucher not found")
	ErrCodeExists = errors.New("voucher code already exists")
)

type Voucher struct {
	ID             int64     `json:"id"`
	Code           string    `json:"code"`
	Kind           Kind      `json:"kind"`
	Target         Target    `json:"target"`
	Value          int64     `json:"value"`
	MaxDiscount    int64     `json:"max_discount,omitempty"`
	MinOrderAmount int64     `json:"min_order_amount"`
	UsageLimit     int       `json:"usage_limit"`
	PerBuyerLimit  int       `json:"per_buyer_limit,omitempty"`
	UsedCount      int       `json:"used_count"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidTo        time.Time `json:"valid_to"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Usage struct {
	ID        int64     `json:"id"`
	VoucherID int64     `json:"voucher_id"`
	BuyerID   int64     `json:"buyer_id"`
	OrderID   int64     `json:"order_id"`
	Discount  int64     `json:"discount"`
	UsedAt    time.Time `json:"used_at"`
}

// Result of a validation. Rule failures come back as Valid=false with a
// human-readable Message, never as an error: the checkout UI shows the
// reason to the buyer.
type Result struct {
	Valid     bool   `json:"valid"`
	VoucherID int64  `json:"voucher_id,omitempty"`
	Discount  int64  `json:"discount_value"`
	AppliesTo Target `json:"applies_to,omitempty"`
	Message   string `json:"message,omitempty"`
}

func invalid(msg string) Result { return Result{Message: msg} }

// Evaluate runs the rule chain against an already-loaded voucher,
// short-circuiting on the first failure. priorBuyerUses is the buyer's
// redemption count for this voucher, or -1 when no buyer is known.
// Pure: no clock, no store.
func Evaluate(v Voucher, orderTotal, shippingFee int64, now time.Time, priorBuyerUses int) Result {
	if !v.Active {
		return invalid("voucher is not active")
	}
	if now.Before(v.ValidFrom) || now.After(v.ValidTo) {
		return invalid("voucher is outside its validity window")
	}
	if v.UsedCount >= v.UsageLimit {
		return invalid("voucher usage limit reached")
	}
	if v.PerBuyerLimit > 0 && priorBuyerUses >= 0 && priorBuyerUses >= v.PerBuyerLimit {
		return invalid("voucher already used the maximum number of times")
	}

	var base int64
	switch v.Target {
	case TargetOrder:
		if orderTotal < v.MinOrderAmount {
			return invalid("order total below voucher minimum")
		}
		base = orderTotal
	case TargetShipping:
		if v.MinOrderAmount > 0 && orderTotal < v.MinOrderAmount {
			return invalid("order total below voucher minimum")
		}
		base = shippingFee
	default:
		return invalid("unknown voucher target")
	}

	discount := v.Value
	if v.Kind == KindPercent {
		discount = base * v.Value / 100
		if v.MaxDiscount > 0 && discount > v.MaxDiscount {
			discount = v.MaxDiscount
		}
	}
	if discount > base {
		discount = base
	}
	if discount <= 0 {
		return invalid("voucher does not apply to this order")
	}

	return Result{Valid: true, VoucherID: v.ID, Discount: discount, AppliesTo: v.Target}
}
