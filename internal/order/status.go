package order

// The order lifecycle runs on three independent axes. Each axis is its own
// small state machine; the only cross-axis rules are the cancel guard and
// the delivered-requires-paid hardening below.

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type FulfillmentStatus string

const (
	FulfillmentPickup    FulfillmentStatus = "pickup"
	FulfillmentShipping  FulfillmentStatus = "shipping"
	FulfillmentDelivered FulfillmentStatus = "delivered"
	FulfillmentReturned  FulfillmentStatus = "returned"
)

type OrderStatus string

const (
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
	StatusClosed    OrderStatus = "closed"
)

type PaymentMethod string

const (
	MethodPrepaid PaymentMethod = "PREPAID"
	MethodCOD     PaymentMethod = "COD"
)

type FulfillmentMethod string

const (
	FulfillByPickup   FulfillmentMethod = "PICKUP"
	FulfillByShipping FulfillmentMethod = "SHIPPING"
)

var validNextPayment = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending:  {PaymentPaid: true, PaymentFailed: true},
	PaymentPaid:     {PaymentRefunded: true},
	PaymentFailed:   {PaymentPending: true},
	PaymentRefunded: {},
}

var validNextFulfillment = map[FulfillmentStatus]map[FulfillmentStatus]bool{
	FulfillmentPickup:    {FulfillmentDelivered: true},
	FulfillmentShipping:  {FulfillmentDelivered: true, FulfillmentReturned: true},
	FulfillmentDelivered: {FulfillmentReturned: true},
	FulfillmentReturned:  {},
}

var validNextOrder = map[OrderStatus]map[OrderStatus]bool{
	StatusConfirmed: {StatusCancelled: true, StatusClosed: true},
	StatusCancelled: {},
	StatusClosed:    {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return validNextPayment[from][to]
}

func CanTransitionFulfillment(from, to FulfillmentStatus) bool {
	return validNextFulfillment[from][to]
}

func CanTransitionOrder(from, to OrderStatus) bool {
	return validNextOrder[from][to]
}

// SeedFulfillment maps the chosen fulfillment method onto the initial
// fulfillment status.
func SeedFulfillment(m FulfillmentMethod) FulfillmentStatus {
	if m == FulfillByPickup {
		return FulfillmentPickup
	}
	return FulfillmentShipping
}

// CanCancel is the one cancel rule: only a confirmed, still-unpaid order
// can be cancelled through the buyer path.
func (o Order) CanCancel() bool {
	return o.OrderStatus == StatusConfirmed && o.PaymentStatus == PaymentPending
}

// StatusUpdate applies any subset of the three axes. Nil fields are left
// untouched.
type StatusUpdate struct {
	Payment     *PaymentStatus     `json:"payment,omitempty"`
	Fulfillment *FulfillmentStatus `json:"fulfillment,omitempty"`
	Order       *OrderStatus       `json:"order,omitempty"`
}

// ApplyStatusUpdate validates each requested axis transition against the
// current order and returns the resulting statuses. Beyond the per-axis
// tables it enforces two cross-axis invariants: the cancel guard, and that
// a prepaid order cannot be marked delivered while unpaid.
func ApplyStatusUpdate(o Order, upd StatusUpdate) (PaymentStatus, FulfillmentStatus, OrderStatus, error) {
	pay, ful, ord := o.PaymentStatus, o.FulfillmentStatus, o.OrderStatus

	if upd.Payment != nil {
		if !CanTransitionPayment(pay, *upd.Payment) {
			return "", "", "", ErrInvalidTransition
		}
		pay = *upd.Payment
	}
	if upd.Fulfillment != nil {
		if !CanTransitionFulfillment(ful, *upd.Fulfillment) {
			return "", "", "", ErrInvalidTransition
		}
		ful = *upd.Fulfillment
	}
	if upd.Order != nil {
		if !CanTransitionOrder(ord, *upd.Order) {
			return "", "", "", ErrInvalidTransition
		}
		if *upd.Order == StatusCancelled && !o.CanCancel() {
			return "", "", "", ErrNotCancellable
		}
		ord = *upd.Order
	}

	if ful == FulfillmentDelivered && pay != PaymentPaid && o.PaymentMethod != MethodCOD {
		return "", "", "", ErrInvalidTransition
	}

	return pay, ful, ord, nil
}
