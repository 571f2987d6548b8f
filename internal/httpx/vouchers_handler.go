package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

type VouchersHandler struct {
	Repo   *voucher.Repo
	Engine *voucher.Engine
}

func (h *VouchersHandler) Register(r *chi.Mux) {
	r.Post("/vouchers/validate", h.validate)
	r.Post("/admin/vouchers", h.create)
	r.Get("/admin/vouchers", h.list)
	r.Get("/admin/vouchers/{id}", h.get)
	r.Put("/admin/vouchers/{id}", h.update)
	r.Delete("/admin/vouchers/{id}", h.deactivate)
}

type validateVoucherReq struct {
	Code        string `json:"code"`
	OrderTotal  int64  `json:"order_total"`
	ShippingFee int64  `json:"shipping_fee"`
}

// validate is the dry-run surface: it prices the discount without touching
// usage counters. The same engine runs inside checkout.
func (h *VouchersHandler) validate(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Error: "missing buyer"})
		return
	}
	var req validateVoucherReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		badRequest(w, "code is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Engine.Validate(ctx, req.Code, req.OrderTotal, req.ShippingFee, buyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *VouchersHandler) create(w http.ResponseWriter, r *http.Request) {
	var v voucher.Voucher
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if v.Code == "" || v.Value <= 0 {
		badRequest(w, "code and a positive value are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	created, err := h.Repo.Create(ctx, v)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *VouchersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	vs, err := h.Repo.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (h *VouchersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid voucher id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *VouchersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid voucher id")
		return
	}
	var v voucher.Voucher
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		badRequest(w, "invalid json")
		return
	}
	v.ID = id

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Update(ctx, v); err != nil {
		writeErr(w, err)
		return
	}
	updated, err := h.Repo.GetByID(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *VouchersHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid voucher id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Deactivate(ctx, id); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
