package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoster mirrors what the real statements do against Postgres: a stock
// counter per product, the partial unique constraint on outbound
// references, and insert bookkeeping. Rollback is the caller discarding
// the fake.
type fakePoster struct {
	stock     map[int64]int
	outPosted map[[2]string]bool
	headerErr error

	nextID  int64
	headers []Header
	lines   int
}

func newFakePoster(stock map[int64]int) *fakePoster {
	return &fakePoster{stock: stock, outPosted: map[[2]string]bool{}}
}

func (f *fakePoster) outboundExists(_ context.Context, refType, refID string) (bool, error) {
	return f.outPosted[[2]string{refType, refID}], nil
}

func (f *fakePoster) insertHeader(_ context.Context, h *Header) error {
	if f.headerErr != nil {
		return f.headerErr
	}
	if h.Type == TypeOut && h.ReferenceType != "" {
		key := [2]string{h.ReferenceType, h.ReferenceID}
		if f.outPosted[key] {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_stock_ledger_out_ref"}
		}
		f.outPosted[key] = true
	}
	f.nextID++
	h.ID = f.nextID
	h.CreatedAt = time.Now()
	f.headers = append(f.headers, *h)
	return nil
}

func (f *fakePoster) adjustStock(_ context.Context, l Line) (bool, error) {
	cur, ok := f.stock[l.ProductID]
	if !ok {
		return false, nil
	}
	if l.Change == ChangePlus {
		f.stock[l.ProductID] = cur + l.Qty
		return true, nil
	}
	if cur < l.Qty {
		return false, nil
	}
	f.stock[l.ProductID] = cur - l.Qty
	return true, nil
}

func (f *fakePoster) productExists(_ context.Context, productID int64) (bool, error) {
	_, ok := f.stock[productID]
	return ok, nil
}

func (f *fakePoster) insertLine(_ context.Context, _ int64, l *Line) error {
	f.nextID++
	l.ID = f.nextID
	f.lines++
	return nil
}

func TestPostOutboundDeductsOnce(t *testing.T) {
	p := newFakePoster(map[int64]int{1: 10})

	out, err := post(context.Background(), p, TypeOut, RefOrder, "42", "checkout QMORD42",
		[]Line{{ProductID: 1, Change: ChangeMinus, Qty: 3}})
	require.NoError(t, err)
	assert.Equal(t, 7, p.stock[1])
	require.Len(t, out.Lines, 1)
	assert.NotZero(t, out.Lines[0].ID)

	// Retrying the same order reference is rejected before any stock moves.
	_, err = post(context.Background(), p, TypeOut, RefOrder, "42", "checkout QMORD42",
		[]Line{{ProductID: 1, Change: ChangeMinus, Qty: 3}})
	require.ErrorIs(t, err, ErrDuplicateOutbound)
	assert.Equal(t, 7, p.stock[1], "stock deducted exactly once")
	assert.Len(t, p.headers, 1)
}

func TestPostDuplicateKeyMapsToDuplicateOutbound(t *testing.T) {
	// A concurrent posting can slip between the existence check and the
	// insert; the unique index surfaces as 23505 and gets the same error.
	p := newFakePoster(map[int64]int{1: 10})
	p.headerErr = &pgconn.PgError{Code: "23505", ConstraintName: "uq_stock_ledger_out_ref"}

	_, err := post(context.Background(), p, TypeOut, RefOrder, "42", "checkout QMORD42",
		[]Line{{ProductID: 1, Change: ChangeMinus, Qty: 3}})
	require.ErrorIs(t, err, ErrDuplicateOutbound)
	assert.Equal(t, 10, p.stock[1])
}

func TestPostInsufficientLineAbortsPosting(t *testing.T) {
	p := newFakePoster(map[int64]int{1: 10, 2: 1})

	_, err := post(context.Background(), p, TypeOut, RefOrder, "43", "checkout QMORD43",
		[]Line{
			{ProductID: 1, Change: ChangeMinus, Qty: 2},
			{ProductID: 2, Change: ChangeMinus, Qty: 5},
		})
	require.ErrorIs(t, err, ErrInsufficientInventory)
	assert.Contains(t, err.Error(), "product 2")
	assert.Equal(t, 1, p.lines, "remaining lines not applied after the failure")
}

func TestPostUnknownProduct(t *testing.T) {
	p := newFakePoster(map[int64]int{1: 10})

	_, err := post(context.Background(), p, TypeOut, RefOrder, "44", "",
		[]Line{{ProductID: 99, Change: ChangeMinus, Qty: 1}})
	require.ErrorIs(t, err, ErrProductNotFound)
	assert.Contains(t, err.Error(), "product 99")
}

func TestPostValidatesBeforeWriting(t *testing.T) {
	p := newFakePoster(map[int64]int{1: 10})

	_, err := post(context.Background(), p, TypeOut, RefOrder, "45", "",
		[]Line{{ProductID: 1, Change: ChangePlus, Qty: 1}})
	require.ErrorIs(t, err, ErrInvalidChangeType)
	assert.Empty(t, p.headers)
	assert.Equal(t, 10, p.stock[1])
}

func TestPostInboundRestocks(t *testing.T) {
	p := newFakePoster(map[int64]int{1: 7})

	_, err := post(context.Background(), p, TypeIn, RefOrderCancel, "42", "cancel QMORD42",
		[]Line{{ProductID: 1, Change: ChangePlus, Qty: 3}})
	require.NoError(t, err)
	assert.Equal(t, 10, p.stock[1])
}
