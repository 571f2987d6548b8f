package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
)

type OrdersHandler struct {
	Svc *order.Service
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/validate-payment", h.validatePayment)
	r.Post("/orders/{id}/reorder", h.reorder)
	r.Patch("/admin/orders/{id}/status", h.updateStatus)
	r.Post("/admin/orders/{id}/confirm-payment", h.confirmPayment)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	products, err := h.Svc.Catalog.ListProducts(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	var req order.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.PaymentMethod == "" || req.FulfillmentMethod == "" {
		badRequest(w, "payment_method and fulfillment_method are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Checkout(ctx, buyer, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Svc.ListOrders(ctx, buyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, items, err := h.Svc.GetOrder(ctx, buyer, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o, "items": items})
}

type cancelReq struct {
	Reason string `json:"reason"`
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var req cancelReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.Cancel(ctx, buyer, id, req.Reason)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) validatePayment(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	check, err := h.Svc.ValidatePayment(ctx, buyer, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (h *OrdersHandler) reorder(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Reorder(ctx, buyer, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var upd order.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if upd.Payment == nil && upd.Fulfillment == nil && upd.Order == nil {
		badRequest(w, "no status change requested")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.UpdateStatus(ctx, id, upd)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type confirmPaymentReq struct {
	TransactionID int64 `json:"transaction_id"`
}

func (h *OrdersHandler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var req confirmPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID <= 0 {
		badRequest(w, "transaction_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.ConfirmPayment(ctx, id, req.TransactionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
