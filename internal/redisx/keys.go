package redisx

import "time"

const (
	// Idempotency for checkout: idem:checkout:{buyer_id}:{request_id} -> order_id
	KeyIdemCheckout = "idem:checkout:%d:%s"

	// Cache of an order's three status axes: order_status:{order_id}
	KeyOrderStatus = "order_status:%d"

	// Mail messages already run through the parser: mail:seen:{message_id}.
	// Fast path only; the fingerprint unique index is the real dedup.
	KeyMailSeen = "mail:seen:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLMailSeen    = 72 * time.Hour
)
