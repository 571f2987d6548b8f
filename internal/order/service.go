package order

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/cart"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/catalog"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/config"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/events"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/kafka"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/redisx"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/voucher"
)

// Store is the persistence the orchestrator needs; *Repo satisfies it,
// fakes do in tests.
type Store interface {
	CreateOrder(ctx context.Context, o Order, items []Item) (Order, []Item, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	GetByCode(ctx context.Context, code string) (Order, error)
	GetItems(ctx context.Context, orderID int64) ([]Item, error)
	ListByBuyer(ctx context.Context, buyerID int64) ([]Order, error)
	CancelOrder(ctx context.Context, orderID int64, reason string) (Order, error)
	UpdateStatus(ctx context.Context, orderID int64, upd StatusUpdate) (Order, error)
	SettleByMatch(ctx context.Context, orderID int64, notBefore time.Time) (Order, *payment.Transaction, error)
	SettleWithTransaction(ctx context.Context, orderID, transactionID int64, bankAccount string) (Order, error)
}

type VoucherValidator interface {
	Validate(ctx context.Context, code string, orderTotal, shippingFee, buyerID int64) (voucher.Result, error)
}

// Publisher hands a lifecycle event to the outbound topic. Publishing is
// post-commit and fire-and-forget; the database is the source of truth.
type Publisher interface {
	Publish(topic string, key []byte, env events.Envelope)
}

type Service struct {
	Store    Store
	Cart     cart.Cart
	Catalog  catalog.Catalog
	Vouchers VoucherValidator
	Events   Publisher
	Redis    *redis.Client
	Cfg      config.Snapshot
	Name     string
	Log      *zap.Logger
	Now      func() time.Time
}

type CheckoutRequest struct {
	RequestID         string            `json:"request_id,omitempty"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	FulfillmentMethod FulfillmentMethod `json:"fulfillment_method"`
	VoucherCode       string            `json:"voucher_code,omitempty"`
	ShippingFee       *int64            `json:"shipping_fee,omitempty"`
	ReceiverName      string            `json:"receiver_name"`
	ReceiverPhone     string            `json:"receiver_phone"`
	ReceiverAddress   string            `json:"receiver_address"`
}

type CheckoutResult struct {
	Order      Order  `json:"order"`
	Items      []Item `json:"items"`
	PaymentURL string `json:"payment_url,omitempty"`
	Idempotent bool   `json:"idempotent,omitempty"`
}

// Checkout converts the buyer's selected cart into an order: snapshot the
// lines, price the voucher, persist order+items+outbound ledger posting in
// one unit of work, then clear the cart. Any failure leaves nothing
// persisted.
func (s *Service) Checkout(ctx context.Context, buyerID int64, req CheckoutRequest) (CheckoutResult, error) {
	if prev, ok := s.idempotentHit(ctx, buyerID, req.RequestID); ok {
		return prev, nil
	}

	selected, err := s.Cart.SelectedItems(ctx, buyerID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if len(selected) == 0 {
		return CheckoutResult{}, ErrCartEmpty
	}

	ids := make([]int64, 0, len(selected))
	for _, it := range selected {
		ids = append(ids, it.ProductID)
	}
	products, err := s.Catalog.GetProducts(ctx, ids)
	if err != nil {
		return CheckoutResult{}, err
	}
	comps := map[int64][]catalog.ComboComponent{}
	for _, p := range products {
		if p.IsCombo {
			cc, err := s.Catalog.ComboComponents(ctx, p.ID)
			if err != nil {
				return CheckoutResult{}, err
			}
			comps[p.ID] = cc
		}
	}

	items, err := snapshotItems(selected, products, comps)
	if err != nil {
		return CheckoutResult{}, err
	}

	shippingFee := s.shippingFee(req)

	var vres *voucher.Result
	if req.VoucherCode != "" {
		res, err := s.Vouchers.Validate(ctx, req.VoucherCode, subtotalOf(items), shippingFee, buyerID)
		if err != nil {
			return CheckoutResult{}, err
		}
		if !res.Valid {
			return CheckoutResult{}, fmt.Errorf("%w: %s", ErrVoucherInvalid, res.Message)
		}
		vres = &res
	}

	subtotal, discount, vat, total := priceOrder(items, vres, shippingFee, s.Cfg.VATPercent)

	o := Order{
		BuyerID:           buyerID,
		PaymentStatus:     PaymentPending,
		FulfillmentStatus: SeedFulfillment(req.FulfillmentMethod),
		OrderStatus:       StatusConfirmed,
		PaymentMethod:     req.PaymentMethod,
		FulfillmentMethod: req.FulfillmentMethod,
		Subtotal:          subtotal,
		Discount:          discount,
		ShippingFee:       shippingFee,
		VAT:               vat,
		Total:             total,
		TotalPay:          total,
		ReceiverName:      req.ReceiverName,
		ReceiverPhone:     req.ReceiverPhone,
		ReceiverAddress:   req.ReceiverAddress,
	}
	if vres != nil {
		o.VoucherID = &vres.VoucherID
	}

	o, items, err = s.Store.CreateOrder(ctx, o, items)
	if err != nil {
		return CheckoutResult{}, err
	}

	s.rememberIdempotency(ctx, buyerID, req.RequestID, o.ID)
	s.cacheStatus(ctx, o)
	s.publishCreated(o, items)

	res := CheckoutResult{Order: o, Items: items}
	if o.PaymentMethod == MethodPrepaid {
		res.PaymentURL = s.paymentURL(o)
	}
	return res, nil
}

func (s *Service) shippingFee(req CheckoutRequest) int64 {
	if req.ShippingFee != nil && *req.ShippingFee >= 0 {
		return *req.ShippingFee
	}
	if req.FulfillmentMethod == FulfillByPickup {
		return 0
	}
	return s.Cfg.FlatShippingFee
}

// paymentURL renders the transfer instruction the buyer scans: the shop
// account, the exact amount and the transfer-reference memo.
func (s *Service) paymentURL(o Order) string {
	return fmt.Sprintf("https://img.vietqr.io/image/VCB-%s-compact2.png?amount=%d&addInfo=%s",
		s.Cfg.BankAccountNumber, o.Total, o.Code)
}

// PaymentCheck is the outcome of a payment-validation poll.
type PaymentCheck struct {
	Confirmed   bool                 `json:"confirmed"`
	Order       Order                `json:"order"`
	Transaction *payment.Transaction `json:"transaction,omitempty"`
	Message     string               `json:"message,omitempty"`
}

// ValidatePayment checks whether a matching bank transfer has arrived for
// the buyer's prepaid order and, if so, settles it. "Not confirmed yet" is
// a normal outcome; callers poll.
func (s *Service) ValidatePayment(ctx context.Context, buyerID, orderID int64) (PaymentCheck, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return PaymentCheck{}, err
	}
	if o.BuyerID != buyerID {
		return PaymentCheck{}, ErrNotOwner
	}
	if o.PaymentMethod != MethodPrepaid {
		return PaymentCheck{}, ErrNotPrepaid
	}
	if o.OrderStatus == StatusCancelled {
		return PaymentCheck{}, ErrOrderCancelled
	}
	if o.PaymentStatus == PaymentPaid {
		return PaymentCheck{Confirmed: true, Order: o}, nil
	}

	notBefore := o.CreatedAt.Add(-s.Cfg.MatchBackWindow)
	o, bankTx, err := s.Store.SettleByMatch(ctx, orderID, notBefore)
	if err != nil {
		return PaymentCheck{}, err
	}
	if o.PaymentStatus != PaymentPaid {
		return PaymentCheck{Order: o, Message: "payment not confirmed yet"}, nil
	}

	s.cacheStatus(ctx, o)
	s.publishPaid(o)
	return PaymentCheck{Confirmed: true, Order: o, Transaction: bankTx}, nil
}

// SettleByCode is the ingest worker's entry: it maps a memo order code to
// an order and runs the same settlement. Unknown or non-pending codes are
// quietly skipped.
func (s *Service) SettleByCode(ctx context.Context, code string) error {
	o, err := s.Store.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if o.PaymentMethod != MethodPrepaid || o.PaymentStatus != PaymentPending ||
		o.OrderStatus == StatusCancelled {
		return nil
	}

	notBefore := o.CreatedAt.Add(-s.Cfg.MatchBackWindow)
	o, _, err = s.Store.SettleByMatch(ctx, o.ID, notBefore)
	if err != nil {
		return err
	}
	if o.PaymentStatus == PaymentPaid {
		s.cacheStatus(ctx, o)
		s.publishPaid(o)
		if s.Log != nil {
			s.Log.Info("order settled from ingested transaction",
				zap.Int64("order_id", o.ID), zap.String("order_code", o.Code))
		}
	}
	return nil
}

// ConfirmPayment is the operator's manual path.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, transactionID int64) (Order, error) {
	o, err := s.Store.SettleWithTransaction(ctx, orderID, transactionID, s.Cfg.BankAccountNumber)
	if err != nil {
		return Order{}, err
	}
	s.cacheStatus(ctx, o)
	s.publishPaid(o)
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, buyerID, orderID int64, reason string) (Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.BuyerID != buyerID {
		return Order{}, ErrNotOwner
	}

	o, err = s.Store.CancelOrder(ctx, orderID, reason)
	if err != nil {
		return Order{}, err
	}

	s.cacheStatus(ctx, o)
	s.publish(events.TopicOrderCancelled, events.EventOrderCancelled, o.ID,
		events.OrderCancelledPayload{OrderID: o.ID, Reason: reason})
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, orderID int64, upd StatusUpdate) (Order, error) {
	o, err := s.Store.UpdateStatus(ctx, orderID, upd)
	if err != nil {
		return Order{}, err
	}
	s.cacheStatus(ctx, o)
	if upd.Order != nil && o.OrderStatus == StatusCancelled {
		s.publish(events.TopicOrderCancelled, events.EventOrderCancelled, o.ID,
			events.OrderCancelledPayload{OrderID: o.ID, Reason: o.CancelReason})
	}
	return o, nil
}

// SkippedItem reports one original line that could not go back in the cart.
type SkippedItem struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

type ReorderResult struct {
	Added   []cart.Item   `json:"added"`
	Skipped []SkippedItem `json:"skipped,omitempty"`
}

// Reorder puts the still-purchasable lines of a past order back into the
// buyer's cart, reporting the rest instead of failing the whole call.
func (s *Service) Reorder(ctx context.Context, buyerID, orderID int64) (ReorderResult, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return ReorderResult{}, err
	}
	if o.BuyerID != buyerID {
		return ReorderResult{}, ErrNotOwner
	}

	items, err := s.Store.GetItems(ctx, orderID)
	if err != nil {
		return ReorderResult{}, err
	}

	var res ReorderResult
	for _, it := range items {
		p, err := s.Catalog.GetProduct(ctx, it.ProductID)
		switch {
		case err != nil || !p.Active:
			res.Skipped = append(res.Skipped, SkippedItem{ProductID: it.ProductID, Reason: "product no longer available"})
			continue
		case p.Stock == 0:
			res.Skipped = append(res.Skipped, SkippedItem{ProductID: it.ProductID, Reason: "out of stock"})
			continue
		}
		qty := it.Qty
		if p.Stock < qty {
			qty = p.Stock
		}
		if err := s.Cart.AddItem(ctx, buyerID, it.ProductID, qty); err != nil {
			return ReorderResult{}, err
		}
		res.Added = append(res.Added, cart.Item{ProductID: it.ProductID, Qty: qty})
	}
	return res, nil
}

func (s *Service) GetOrder(ctx context.Context, buyerID, orderID int64) (Order, []Item, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	if o.BuyerID != buyerID {
		return Order{}, nil, ErrNotOwner
	}
	items, err := s.Store.GetItems(ctx, orderID)
	if err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

func (s *Service) ListOrders(ctx context.Context, buyerID int64) ([]Order, error) {
	return s.Store.ListByBuyer(ctx, buyerID)
}

func (s *Service) idempotentHit(ctx context.Context, buyerID int64, requestID string) (CheckoutResult, bool) {
	if s.Redis == nil || requestID == "" {
		return CheckoutResult{}, false
	}
	key := fmt.Sprintf(redisx.KeyIdemCheckout, buyerID, requestID)
	v, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		return CheckoutResult{}, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return CheckoutResult{}, false
	}
	o, err := s.Store.GetOrder(ctx, id)
	if err != nil {
		return CheckoutResult{}, false
	}
	items, err := s.Store.GetItems(ctx, id)
	if err != nil {
		return CheckoutResult{}, false
	}
	res := CheckoutResult{Order: o, Items: items, Idempotent: true}
	if o.PaymentMethod == MethodPrepaid {
		res.PaymentURL = s.paymentURL(o)
	}
	return res, true
}

func (s *Service) rememberIdempotency(ctx context.Context, buyerID int64, requestID string, orderID int64) {
	if s.Redis == nil || requestID == "" {
		return
	}
	key := fmt.Sprintf(redisx.KeyIdemCheckout, buyerID, requestID)
	_ = s.Redis.Set(ctx, key, strconv.FormatInt(orderID, 10), redisx.TTLIdempotency).Err()
}

func (s *Service) cacheStatus(ctx context.Context, o Order) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	body := kafka.MustMarshal(map[string]any{
		"payment_status":     o.PaymentStatus,
		"fulfillment_status": o.FulfillmentStatus,
		"order_status":       o.OrderStatus,
	})
	_ = s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (s *Service) publishCreated(o Order, items []Item) {
	lines := make([]events.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, events.OrderLine{ProductID: it.ProductID, Qty: it.Qty, UnitPrice: it.UnitPrice})
	}
	s.publish(events.TopicOrderCreated, events.EventOrderCreated, o.ID, events.OrderCreatedPayload{
		OrderID:   o.ID,
		OrderCode: o.Code,
		BuyerID:   o.BuyerID,
		Lines:     lines,
		Subtotal:  o.Subtotal,
		Discount:  o.Discount,
		Total:     o.Total,
	})
}

func (s *Service) publishPaid(o Order) {
	var txID int64
	if o.TransactionID != nil {
		txID = *o.TransactionID
	}
	s.publish(events.TopicOrderPaid, events.EventOrderPaid, o.ID,
		events.OrderPaidPayload{OrderID: o.ID, TransactionID: txID, Amount: o.Total})
}

func (s *Service) publish(topic, eventType string, orderID int64, payload any) {
	if s.Events == nil {
		return
	}
	env := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.Name,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafka.MustMarshal(payload),
	}
	s.Events.Publish(topic, events.PartitionKey(orderID), env)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
