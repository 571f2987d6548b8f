package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
)

type PaymentsHandler struct {
	Repo *payment.Repo
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Get("/admin/transactions", h.list)
	r.Get("/admin/transactions/{id}", h.get)
}

// list doubles as memo search: ?memo=QMORD42 narrows to transactions whose
// memo contains the fragment, ?verified=true|false filters on state.
func (h *PaymentsHandler) list(w http.ResponseWriter, r *http.Request) {
	f := payment.ListFilter{
		Memo:   r.URL.Query().Get("memo"),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	if v := r.URL.Query().Get("verified"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(w, "verified must be true or false")
			return
		}
		f.Verified = &b
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ts, err := h.Repo.List(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *PaymentsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid transaction id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.Repo.Get(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
