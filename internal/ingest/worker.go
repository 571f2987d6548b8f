package ingest

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/redisx"
)

// TxStore persists parsed transactions; *payment.Repo satisfies it.
type TxStore interface {
	InsertIfNew(ctx context.Context, t payment.Transaction) (payment.Transaction, bool, error)
}

// Settler tries to match a stored transaction to a pending order by its
// transfer code; *order.Service satisfies it.
type Settler interface {
	SettleByCode(ctx context.Context, code string) error
}

// Worker polls the mail gateway for bank notifications, stores each parsed
// transfer exactly once and auto-settles any pending order whose transfer
// code appears in the memo.
type Worker struct {
	Mailbox  Mailbox
	Store    TxStore
	Settler  Settler
	Redis    *redis.Client
	Log      *zap.Logger
	Sender   string
	Batch    int
	Interval time.Duration
	Loc      *time.Location

	codeRe *regexp.Regexp
}

func NewWorker(mb Mailbox, store TxStore, settler Settler, rdb *redis.Client, log *zap.Logger,
	sender string, batch int, interval time.Duration, codePrefix string, loc *time.Location) *Worker {
	return &Worker{
		Mailbox:  mb,
		Store:    store,
		Settler:  settler,
		Redis:    rdb,
		Log:      log,
		Sender:   sender,
		Batch:    batch,
		Interval: interval,
		Loc:      loc,
		codeRe:   payment.OrderCodePattern(codePrefix),
	}
}

// Run polls until the context is cancelled. One failed cycle is logged and
// the next tick retries; the mailbox keeps unacknowledged messages.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.Log.Info("ingest worker stopped")
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	msgs, err := w.Mailbox.Unread(ctx, w.Sender, w.Batch)
	if err != nil {
		w.Log.Warn("mailbox poll failed", zap.Error(err))
		return
	}
	for _, m := range msgs {
		if w.seen(ctx, m.ID) {
			continue
		}
		if err := w.handle(ctx, m); err != nil {
			w.Log.Warn("notification not processed", zap.String("mail_id", m.ID), zap.Error(err))
			continue
		}
		w.remember(ctx, m.ID)
	}
}

func (w *Worker) handle(ctx context.Context, m Message) error {
	n, err := payment.ParseNotification(m.Body, w.Loc)
	if errors.Is(err, payment.ErrUnparsableBody) {
		// Not a transfer notification. Acknowledge so it never comes back.
		w.Log.Debug("skipping unparsable mail", zap.String("mail_id", m.ID))
		return w.Mailbox.MarkRead(ctx, m.ID)
	}
	if err != nil {
		return err
	}

	code := w.codeRe.FindString(n.Memo)
	if code == "" {
		// A transfer with no order code is none of ours. Drop it.
		w.Log.Debug("discarding transfer without order code",
			zap.String("mail_id", m.ID), zap.Error(payment.ErrNoOrderCode))
		return w.Mailbox.MarkRead(ctx, m.ID)
	}

	t, inserted, err := w.Store.InsertIfNew(ctx, payment.FromNotification(n))
	if err != nil {
		return fmt.Errorf("store transaction: %w", err)
	}
	if err := w.Mailbox.MarkRead(ctx, m.ID); err != nil {
		return err
	}
	if !inserted {
		w.Log.Debug("duplicate notification", zap.String("fingerprint", t.Fingerprint))
		return nil
	}
	w.Log.Info("bank transaction stored",
		zap.Int64("transaction_id", t.ID),
		zap.Int64("amount", t.Amount),
		zap.String("memo", t.Memo))

	if err := w.Settler.SettleByCode(ctx, code); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			w.Log.Debug("memo references unknown order", zap.String("order_code", code))
			return nil
		}
		return fmt.Errorf("settle %s: %w", code, err)
	}
	return nil
}

func (w *Worker) seen(ctx context.Context, mailID string) bool {
	if w.Redis == nil {
		return false
	}
	ok, _ := redisx.Exists(ctx, w.Redis, fmt.Sprintf(redisx.KeyMailSeen, mailID))
	return ok
}

func (w *Worker) remember(ctx context.Context, mailID string) {
	if w.Redis == nil {
		return
	}
	_ = w.Redis.Set(ctx, fmt.Sprintf(redisx.KeyMailSeen, mailID), "1", redisx.TTLMailSeen).Err()
}
