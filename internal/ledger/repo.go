package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// CreateTransaction journals one inventory event and applies every line to
// the product stock counters in a single transaction. Nothing is applied
// if any line fails.
func (r *Repo) CreateTransaction(ctx context.Context, t Type, refType, refID, note string, lines []Line) (Transaction, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := r.Post(ctx, tx, t, refType, refID, note, lines)
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return out, nil
}

// Post writes the header+lines inside an existing transaction, so callers
// (checkout, cancel) can make the posting part of their own unit of work.
// This is the only code path that mutates products.stock.
func (r *Repo) Post(ctx context.Context, tx pgx.Tx, t Type, refType, refID, note string, lines []Line) (Transaction, error) {
	return post(ctx, txPoster{tx}, t, refType, refID, note, lines)
}

// poster is the statement set one posting issues inside its unit of work.
// txPoster backs it with pgx in production; tests drive the decision paths
// with an in-memory fake.
type poster interface {
	outboundExists(ctx context.Context, refType, refID string) (bool, error)
	insertHeader(ctx context.Context, h *Header) error
	adjustStock(ctx context.Context, l Line) (bool, error)
	productExists(ctx context.Context, productID int64) (bool, error)
	insertLine(ctx context.Context, ledgerID int64, l *Line) error
}

func post(ctx context.Context, p poster, t Type, refType, refID, note string, lines []Line) (Transaction, error) {
	if err := ValidateLines(t, lines); err != nil {
		return Transaction{}, err
	}

	// Idempotency guard for outbound postings. The partial unique index
	// closes the check-then-insert race; this check exists for the
	// friendlier error on the common path.
	if t == TypeOut && refType != "" {
		exists, err := p.outboundExists(ctx, refType, refID)
		if err != nil {
			return Transaction{}, err
		}
		if exists {
			return Transaction{}, ErrDuplicateOutbound
		}
	}

	h := Header{Type: t, ReferenceType: refType, ReferenceID: refID, Note: note}
	if err := p.insertHeader(ctx, &h); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, ErrDuplicateOutbound
		}
		return Transaction{}, err
	}

	for i := range lines {
		if err := applyLine(ctx, p, lines[i]); err != nil {
			return Transaction{}, err
		}
		if err := p.insertLine(ctx, h.ID, &lines[i]); err != nil {
			return Transaction{}, err
		}
	}

	return Transaction{Header: h, Lines: lines}, nil
}

// applyLine moves the on-hand counter. adjustStock reporting false means
// either a missing product or not enough stock; the existence check tells
// the two apart for the error.
func applyLine(ctx context.Context, p poster, l Line) error {
	applied, err := p.adjustStock(ctx, l)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	exists, err := p.productExists(ctx, l.ProductID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: product %d", ErrProductNotFound, l.ProductID)
	}
	return fmt.Errorf("%w: product %d", ErrInsufficientInventory, l.ProductID)
}

type txPoster struct{ tx pgx.Tx }

func (p txPoster) outboundExists(ctx context.Context, refType, refID string) (bool, error) {
	var exists bool
	err := p.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM stock_ledger
			WHERE type='OUT' AND reference_type=$1 AND reference_id=$2
		)`, refType, refID).Scan(&exists)
	return exists, err
}

func (p txPoster) insertHeader(ctx context.Context, h *Header) error {
	return p.tx.QueryRow(ctx, `
		INSERT INTO stock_ledger(type, reference_type, reference_id, note)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		h.Type, h.ReferenceType, h.ReferenceID, h.Note).Scan(&h.ID, &h.CreatedAt)
}

// adjustStock reports whether the counter moved. The MINUS update is
// conditional on current stock so a concurrent decrement can never drive
// it negative.
func (p txPoster) adjustStock(ctx context.Context, l Line) (bool, error) {
	var ct pgconn.CommandTag
	var err error
	switch l.Change {
	case ChangePlus:
		ct, err = p.tx.Exec(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now()
			WHERE id = $1`, l.ProductID, l.Qty)
	case ChangeMinus:
		ct, err = p.tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND stock >= $2`, l.ProductID, l.Qty)
	}
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (p txPoster) productExists(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := p.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists)
	return exists, err
}

func (p txPoster) insertLine(ctx context.Context, ledgerID int64, l *Line) error {
	return p.tx.QueryRow(ctx, `
		INSERT INTO stock_ledger_lines(ledger_id, product_id, change, qty)
		VALUES ($1,$2,$3,$4)
		RETURNING id`,
		ledgerID, l.ProductID, l.Change, l.Qty).Scan(&l.ID)
}

// OutboundFromOrder expands an order's line items into outbound ledger
// lines and posts them under reference ("ORDER", orderID). Combo lines are
// expanded from the frozen component snapshot captured at checkout, never
// from the live combo definition.
func (r *Repo) OutboundFromOrder(ctx context.Context, tx pgx.Tx, orderID int64, note string) (Transaction, error) {
	lines, err := expandOrderLines(ctx, tx, orderID)
	if err != nil {
		return Transaction{}, err
	}
	return r.Post(ctx, tx, TypeOut, RefOrder, strconv.FormatInt(orderID, 10), note, lines)
}

// ReturnFromOrder reverses an order's outbound posting when the order is
// cancelled: the same expanded lines, inbound, under ("ORDER_CANCEL", id).
func (r *Repo) ReturnFromOrder(ctx context.Context, tx pgx.Tx, orderID int64, note string) (Transaction, error) {
	lines, err := expandOrderLines(ctx, tx, orderID)
	if err != nil {
		return Transaction{}, err
	}
	for i := range lines {
		lines[i].Change = ChangePlus
	}
	return r.Post(ctx, tx, TypeIn, RefOrderCancel, strconv.FormatInt(orderID, 10), note, lines)
}

// CreateOutboundFromOrder is the standalone operation: its own unit of
// work around OutboundFromOrder.
func (r *Repo) CreateOutboundFromOrder(ctx context.Context, orderID int64, note string) (Transaction, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out, err := r.OutboundFromOrder(ctx, tx, orderID, note)
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return out, nil
}

func expandOrderLines(ctx context.Context, tx pgx.Tx, orderID int64) ([]Line, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, qty FROM order_items
		WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type item struct {
		id        int64
		productID int64
		qty       int
	}
	var items []item
	for rows.Next() {
		var it item
		if err := rows.Scan(&it.id, &it.productID, &it.qty); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// deltas accumulates per-product deductions so two lines touching the
	// same product collapse into one ledger line.
	deltas := map[int64]int{}
	var order []int64
	add := func(productID int64, qty int) {
		if _, ok := deltas[productID]; !ok {
			order = append(order, productID)
		}
		deltas[productID] += qty
	}

	for _, it := range items {
		comps, err := itemComponents(ctx, tx, it.id)
		if err != nil {
			return nil, err
		}
		if len(comps) == 0 {
			add(it.productID, it.qty)
			continue
		}
		for _, c := range comps {
			add(c.productID, c.qtyPerUnit*it.qty)
		}
	}

	lines := make([]Line, 0, len(order))
	for _, pid := range order {
		lines = append(lines, Line{ProductID: pid, Change: ChangeMinus, Qty: deltas[pid]})
	}
	return lines, nil
}

type component struct {
	productID  int64
	qtyPerUnit int
}

func itemComponents(ctx context.Context, tx pgx.Tx, orderItemID int64) ([]component, error) {
	rows, err := tx.Query(ctx, `
		SELECT product_id, qty_per_unit FROM order_item_components
		WHERE order_item_id=$1 ORDER BY product_id`, orderItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []component
	for rows.Next() {
		var c component
		if err := rows.Scan(&c.productID, &c.qtyPerUnit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
