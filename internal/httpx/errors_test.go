package httpx

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ledger"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{order.ErrNotFound, http.StatusNotFound, "NotFound"},
		{order.ErrNotOwner, http.StatusForbidden, "Unauthorized"},
		{ledger.ErrDuplicateOutbound, http.StatusConflict, "Conflict"},
		{voucher.ErrCodeExists, http.StatusConflict, "Conflict"},
		{ledger.ErrInsufficientInventory, http.StatusConflict, "InsufficientResource"},
		{order.ErrNotCancellable, http.StatusUnprocessableEntity, "InvalidState"},
		{ledger.ErrInvalidChangeType, http.StatusUnprocessableEntity, "InvalidState"},
		{order.ErrVoucherInvalid, http.StatusUnprocessableEntity, "ValidationFailed"},
		{order.ErrAmountMismatch, http.StatusUnprocessableEntity, "ValidationFailed"},
		{fmt.Errorf("wrapped: %w", order.ErrInsufficientStock), http.StatusConflict, "InsufficientResource"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "Internal"},
	}
	for _, c := range cases {
		status, code := classify(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.code, code, c.err.Error())
	}
}
