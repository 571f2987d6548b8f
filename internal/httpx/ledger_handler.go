package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/events"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/kafka"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/ledger"
)

// Publisher is the slice of the event producer the ledger surface needs.
type Publisher interface {
	Publish(topic string, key []byte, env events.Envelope)
}

type LedgerHandler struct {
	Repo    *ledger.Repo
	Events  Publisher
	Service string
}

func (h *LedgerHandler) Register(r *chi.Mux) {
	r.Post("/admin/ledger", h.create)
	r.Post("/admin/ledger/outbound-from-order", h.outboundFromOrder)
	r.Get("/admin/ledger", h.list)
	r.Get("/admin/ledger/{id}", h.get)
}

type createLedgerReq struct {
	Type          ledger.Type   `json:"type"`
	ReferenceType string        `json:"reference_type,omitempty"`
	ReferenceID   string        `json:"reference_id,omitempty"`
	Note          string        `json:"note,omitempty"`
	Lines         []ledger.Line `json:"lines"`
}

func (h *LedgerHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createLedgerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	t, err := h.Repo.CreateTransaction(ctx, req.Type, req.ReferenceType, req.ReferenceID, req.Note, req.Lines)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.publishPosted(t)
	writeJSON(w, http.StatusCreated, t)
}

type outboundFromOrderReq struct {
	OrderID int64  `json:"order_id"`
	Note    string `json:"note,omitempty"`
}

func (h *LedgerHandler) outboundFromOrder(w http.ResponseWriter, r *http.Request) {
	var req outboundFromOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID <= 0 {
		badRequest(w, "order_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Checkout already posts the outbound for every order it commits, so
	// this surfaces DuplicateOutbound in the normal case. It exists for
	// orders imported from outside the checkout flow.
	t, err := h.Repo.CreateOutboundFromOrder(ctx, req.OrderID, req.Note)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.publishPosted(t)
	writeJSON(w, http.StatusCreated, t)
}

func (h *LedgerHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ledger.Filter{
		Type:          ledger.Type(q.Get("type")),
		ReferenceType: q.Get("reference_type"),
		ReferenceID:   q.Get("reference_id"),
		Limit:         queryInt(r, "limit"),
		Offset:        queryInt(r, "offset"),
	}
	if pid, err := strconv.ParseInt(q.Get("product_id"), 10, 64); err == nil {
		f.ProductID = pid
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ts, err := h.Repo.ListTransactions(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *LedgerHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid ledger id")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	t, err := h.Repo.GetTransaction(ctx, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *LedgerHandler) publishPosted(t ledger.Transaction) {
	if h.Events == nil {
		return
	}
	lines := make([]events.StockLine, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, events.StockLine{ProductID: l.ProductID, Change: string(l.Change), Qty: l.Qty})
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventStockPosted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		CorrelationID: strconv.FormatInt(t.ID, 10),
		Payload: kafka.MustMarshal(events.StockPostedPayload{
			LedgerID:      t.ID,
			Type:          string(t.Type),
			ReferenceType: t.ReferenceType,
			ReferenceID:   t.ReferenceID,
			Lines:         lines,
		}),
	}
	h.Events.Publish(events.TopicStockPosted, events.PartitionKey(t.ID), env)
}
