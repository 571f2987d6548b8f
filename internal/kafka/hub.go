package kafka

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/events"
)

// Hub fans envelopes out to one producer per topic. It satisfies the
// Publisher interfaces of the order service and the ledger surface.
type Hub struct {
	producers map[string]*Producer
	log       *zap.Logger
}

func NewHub(brokers []string, topics []string, buf int, log *zap.Logger) *Hub {
	h := &Hub{producers: make(map[string]*Producer, len(topics)), log: log}
	for _, t := range topics {
		h.producers[t] = NewProducer(brokers, t, buf, log)
	}
	return h
}

func (h *Hub) Start(ctx context.Context) {
	for _, p := range h.producers {
		p.Start(ctx)
	}
}

func (h *Hub) Publish(topic string, key []byte, env events.Envelope) {
	p, ok := h.producers[topic]
	if !ok {
		h.log.Warn("publish to unknown topic dropped", zap.String("topic", topic))
		return
	}
	p.Publish(key, MustMarshal(env),
		kafka.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

func (h *Hub) Close() {
	for _, p := range h.producers {
		p.Close()
	}
}

func (h *Hub) WaitClosed() {
	for _, p := range h.producers {
		p.WaitClosed()
	}
}
