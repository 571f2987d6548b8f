package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/catalog"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ledger"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "ValidationFailed", Error: msg})
}

// writeErr maps package sentinels onto the discriminated error codes the
// clients switch on. Anything unmapped is an internal fault.
func writeErr(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorBody{Code: code, Error: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, voucher.ErrNotFound),
		errors.Is(err, payment.ErrTransactionNotFound),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrProductNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, order.ErrNotOwner):
		return http.StatusForbidden, "Unauthorized"
	case errors.Is(err, ledger.ErrDuplicateOutbound),
		errors.Is(err, voucher.ErrCodeExists):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, ledger.ErrInsufficientInventory):
		return http.StatusConflict, "InsufficientResource"
	case errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, order.ErrOrderCancelled),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNotPrepaid),
		errors.Is(err, order.ErrAlreadyVerified),
		errors.Is(err, ledger.ErrInvalidTransactionType),
		errors.Is(err, ledger.ErrInvalidChangeType):
		return http.StatusUnprocessableEntity, "InvalidState"
	case errors.Is(err, order.ErrVoucherInvalid),
		errors.Is(err, order.ErrAmountMismatch),
		errors.Is(err, order.ErrMemoMismatch),
		errors.Is(err, order.ErrAccountMismatch),
		errors.Is(err, order.ErrCartEmpty),
		errors.Is(err, ledger.ErrEmptyLines),
		errors.Is(err, ledger.ErrInvalidQty):
		return http.StatusUnprocessableEntity, "ValidationFailed"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

// buyerID reads the authenticated buyer, which the edge gateway stamps on
// the request after verifying the session.
func buyerID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-Buyer-Id"), 10, 64)
	return id, err == nil && id > 0
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryInt(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
