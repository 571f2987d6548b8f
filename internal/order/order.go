package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrNotOwner          = errors.New("order does not belong to buyer")
	ErrCartEmpty         = errors.New("no selected cart items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVoucherInvalid    = errors.New("voucher invalid")
	ErrNotCancellable    = errors.New("order cannot be cancelled")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotPrepaid        = errors.New("order is not a bank-transfer order")
	ErrAmountMismatch    = errors.New("transaction amount does not match order total")
	ErrMemoMismatch      = errors.New("transaction memo does not reference order")
	ErrAccountMismatch   = errors.New("transaction credited to unexpected account")
	ErrAlreadyVerified   = errors.New("transaction already matched to an order")
)

type Order struct {
	ID                int64             `json:"id"`
	BuyerID           int64             `json:"buyer_id"`
	Code              string            `json:"order_code"`
	PaymentStatus     PaymentStatus     `json:"payment_status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status"`
	OrderStatus       OrderStatus       `json:"order_status"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	FulfillmentMethod FulfillmentMethod `json:"fulfillment_method"`
	Subtotal          int64             `json:"subtotal"`
	Discount          int64             `json:"discount"`
	ShippingFee       int64             `json:"shipping_fee"`
	VAT               int64             `json:"vat"`
	Total             int64             `json:"total"`
	TotalPay          int64             `json:"total_pay"`
	VoucherID         *int64            `json:"voucher_id,omitempty"`
	TransactionID     *int64            `json:"transaction_id,omitempty"`
	ReceiverName      string            `json:"receiver_name,omitempty"`
	ReceiverPhone     string            `json:"receiver_phone,omitempty"`
	ReceiverAddress   string            `json:"receiver_address,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Item is the immutable price/quantity snapshot of one order line,
// captured at checkout. Later catalog changes never touch it.
type Item struct {
	ID           int64       `json:"id"`
	OrderID      int64       `json:"order_id"`
	ProductID    int64       `json:"product_id"`
	ProductTitle string      `json:"product_title"`
	CategoryID   int64       `json:"category_id"`
	Qty          int         `json:"qty"`
	UnitPrice    int64       `json:"unit_price"`
	LineTotal    int64       `json:"line_total"`
	Components   []Component `json:"components,omitempty"`
}

// Component is one frozen constituent of a combo line: which product and
// how many per combo unit, as the combo was defined at checkout time.
type Component struct {
	ProductID  int64 `json:"product_id"`
	QtyPerUnit int   `json:"qty_per_unit"`
}

// TransferCode builds the reference a buyer must put in the bank memo.
func TransferCode(prefix string, orderID int64) string {
	return fmt.Sprintf("%s%d", prefix, orderID)
}
