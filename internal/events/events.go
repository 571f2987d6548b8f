package events

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicOrderCancelled = "order.cancelled"
	TopicStockPosted    = "stock.posted"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderPaid      = "OrderPaid"
	EventOrderCancelled = "OrderCancelled"
	EventStockPosted    = "StockPosted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id or ledger id
	Payload       json.RawMessage `json:"payload"`
}

type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
	UnitPrice int64 `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID   int64       `json:"order_id"`
	OrderCode string      `json:"order_code"`
	BuyerID   int64       `json:"buyer_id"`
	Lines     []OrderLine `json:"lines"`
	Subtotal  int64       `json:"subtotal"`
	Discount  int64       `json:"discount"`
	Total     int64       `json:"total"`
}

type OrderPaidPayload struct {
	OrderID       int64 `json:"order_id"`
	TransactionID int64 `json:"transaction_id"`
	Amount        int64 `json:"amount"`
}

type OrderCancelledPayload struct {
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

type StockLine struct {
	ProductID int64  `json:"product_id"`
	Change    string `json:"change"`
	Qty       int    `json:"qty"`
}

type StockPostedPayload struct {
	LedgerID      int64       `json:"ledger_id"`
	Type          string      `json:"type"`
	ReferenceType string      `json:"reference_type,omitempty"`
	ReferenceID   string      `json:"reference_id,omitempty"`
	Lines         []StockLine `json:"lines"`
}

// Partition key = order id so all events of one order stay ordered.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
