package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestAxisTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentPaid))
	assert.True(t, CanTransitionPayment(PaymentPending, PaymentFailed))
	assert.True(t, CanTransitionPayment(PaymentPaid, PaymentRefunded))
	assert.False(t, CanTransitionPayment(PaymentPaid, PaymentPending))
	assert.False(t, CanTransitionPayment(PaymentRefunded, PaymentPaid))

	assert.True(t, CanTransitionFulfillment(FulfillmentShipping, FulfillmentDelivered))
	assert.True(t, CanTransitionFulfillment(FulfillmentShipping, FulfillmentReturned))
	assert.True(t, CanTransitionFulfillment(FulfillmentPickup, FulfillmentDelivered))
	assert.False(t, CanTransitionFulfillment(FulfillmentDelivered, FulfillmentShipping))

	assert.True(t, CanTransitionOrder(StatusConfirmed, StatusCancelled))
	assert.True(t, CanTransitionOrder(StatusConfirmed, StatusClosed))
	assert.False(t, CanTransitionOrder(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransitionOrder(StatusClosed, StatusCancelled))
}

func TestCanCancel(t *testing.T) {
	o := Order{OrderStatus: StatusConfirmed, PaymentStatus: PaymentPending}
	assert.True(t, o.CanCancel())

	o.PaymentStatus = PaymentPaid
	assert.False(t, o.CanCancel(), "a paid order is not cancellable through this path")

	o.PaymentStatus = PaymentPending
	o.OrderStatus = StatusCancelled
	assert.False(t, o.CanCancel())
}

func TestApplyStatusUpdate(t *testing.T) {
	base := Order{
		OrderStatus:       StatusConfirmed,
		PaymentStatus:     PaymentPending,
		FulfillmentStatus: FulfillmentShipping,
		PaymentMethod:     MethodPrepaid,
	}

	t.Run("independent axes", func(t *testing.T) {
		pay, ful, ord, err := ApplyStatusUpdate(base, StatusUpdate{Payment: ptr(PaymentPaid)})
		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, pay)
		assert.Equal(t, base.FulfillmentStatus, ful)
		assert.Equal(t, base.OrderStatus, ord)
	})

	t.Run("illegal axis move", func(t *testing.T) {
		_, _, _, err := ApplyStatusUpdate(base, StatusUpdate{Payment: ptr(PaymentRefunded)})
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("cancel guard", func(t *testing.T) {
		paid := base
		paid.PaymentStatus = PaymentPaid
		_, _, _, err := ApplyStatusUpdate(paid, StatusUpdate{Order: ptr(StatusCancelled)})
		require.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("delivered requires paid for prepaid", func(t *testing.T) {
		_, _, _, err := ApplyStatusUpdate(base, StatusUpdate{Fulfillment: ptr(FulfillmentDelivered)})
		require.ErrorIs(t, err, ErrInvalidTransition)

		// Same move in one update with the payment flip is fine.
		pay, ful, _, err := ApplyStatusUpdate(base, StatusUpdate{
			Payment:     ptr(PaymentPaid),
			Fulfillment: ptr(FulfillmentDelivered),
		})
		require.NoError(t, err)
		assert.Equal(t, PaymentPaid, pay)
		assert.Equal(t, FulfillmentDelivered, ful)
	})

	t.Run("COD delivers while pending", func(t *testing.T) {
		cod := base
		cod.PaymentMethod = MethodCOD
		_, ful, _, err := ApplyStatusUpdate(cod, StatusUpdate{Fulfillment: ptr(FulfillmentDelivered)})
		require.NoError(t, err)
		assert.Equal(t, FulfillmentDelivered, ful)
	})
}

func TestSeedFulfillment(t *testing.T) {
	assert.Equal(t, FulfillmentPickup, SeedFulfillment(FulfillByPickup))
	assert.Equal(t, FulfillmentShipping, SeedFulfillment(FulfillByShipping))
}

func TestTransferCode(t *testing.T) {
	assert.Equal(t, "QMORD42", TransferCode("QMORD", 42))
}
