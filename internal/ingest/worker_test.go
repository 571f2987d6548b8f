package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/payment"
)

const notificationBody = `<html><body><table>
<tr><td>Tài khoản</td><td>0451000285790</td></tr>
<tr><td>Số tiền</td><td>+225,000 VND</td></tr>
<tr><td>Thời gian</td><td>15-06-2025 12:34:56</td></tr>
<tr><td>Nội dung</td><td>MBVCB.7381920.thanh toan QMORD42.CT tu 9704229201234 LE VAN PHUC toi 0451000285790</td></tr>
</table></body></html>`

type fakeMailbox struct {
	msgs []Message
	read []string
}

func (f *fakeMailbox) Unread(context.Context, string, int) ([]Message, error) {
	return f.msgs, nil
}

func (f *fakeMailbox) MarkRead(_ context.Context, id string) error {
	f.read = append(f.read, id)
	return nil
}

type fakeTxStore struct {
	byFingerprint map[string]payment.Transaction
	nextID        int64
}

func (f *fakeTxStore) InsertIfNew(_ context.Context, t payment.Transaction) (payment.Transaction, bool, error) {
	if f.byFingerprint == nil {
		f.byFingerprint = map[string]payment.Transaction{}
	}
	if prev, ok := f.byFingerprint[t.Fingerprint]; ok {
		return prev, false, nil
	}
	f.nextID++
	t.ID = f.nextID
	f.byFingerprint[t.Fingerprint] = t
	return t, true, nil
}

type fakeSettler struct {
	codes []string
	err   error
}

func (f *fakeSettler) SettleByCode(_ context.Context, code string) error {
	f.codes = append(f.codes, code)
	return f.err
}

func newTestWorker(mb *fakeMailbox, store *fakeTxStore, settler *fakeSettler) *Worker {
	return NewWorker(mb, store, settler, nil, zap.NewNop(),
		"no-reply@vietcombank.com.vn", 20, time.Minute, "QMORD", time.UTC)
}

func TestPollStoresAndSettles(t *testing.T) {
	mb := &fakeMailbox{msgs: []Message{{ID: "m1", Body: notificationBody}}}
	store := &fakeTxStore{}
	settler := &fakeSettler{}

	w := newTestWorker(mb, store, settler)
	w.poll(context.Background())

	require.Len(t, store.byFingerprint, 1)
	for _, tx := range store.byFingerprint {
		assert.Equal(t, int64(225000), tx.Amount)
		assert.Contains(t, tx.Memo, "QMORD42")
	}
	assert.Equal(t, []string{"QMORD42"}, settler.codes)
	assert.Equal(t, []string{"m1"}, mb.read)
}

func TestPollDeduplicatesByFingerprint(t *testing.T) {
	mb := &fakeMailbox{msgs: []Message{
		{ID: "m1", Body: notificationBody},
		{ID: "m2", Body: notificationBody},
	}}
	store := &fakeTxStore{}
	settler := &fakeSettler{}

	w := newTestWorker(mb, store, settler)
	w.poll(context.Background())

	assert.Len(t, store.byFingerprint, 1)
	assert.Equal(t, []string{"QMORD42"}, settler.codes, "only the first copy triggers settlement")
	assert.Equal(t, []string{"m1", "m2"}, mb.read, "both copies acknowledged")
}

func TestPollAcknowledgesGarbage(t *testing.T) {
	mb := &fakeMailbox{msgs: []Message{{ID: "spam", Body: "<p>50% off everything this weekend!</p>"}}}
	store := &fakeTxStore{}
	settler := &fakeSettler{}

	w := newTestWorker(mb, store, settler)
	w.poll(context.Background())

	assert.Empty(t, store.byFingerprint)
	assert.Empty(t, settler.codes)
	assert.Equal(t, []string{"spam"}, mb.read)
}

func TestPollUnknownOrderCodeIsQuiet(t *testing.T) {
	mb := &fakeMailbox{msgs: []Message{{ID: "m1", Body: notificationBody}}}
	store := &fakeTxStore{}
	settler := &fakeSettler{err: order.ErrNotFound}

	w := newTestWorker(mb, store, settler)
	w.poll(context.Background())

	// The transaction is kept even when no order claims it yet; a later
	// validate-payment poll can still match it.
	assert.Len(t, store.byFingerprint, 1)
	assert.Equal(t, []string{"m1"}, mb.read)
}

func TestPollDiscardsMemoWithoutCode(t *testing.T) {
	body := `<p>Tài khoản 0451000285790</p><p>+100,000 VND</p>
<p>15-06-2025 09:00:00</p><p>Nội dung MBVCB.1.tien an trua.CT tu 9704220000001 NGUYEN A toi 0451000285790</p>`
	mb := &fakeMailbox{msgs: []Message{{ID: "m1", Body: body}}}
	store := &fakeTxStore{}
	settler := &fakeSettler{}

	w := newTestWorker(mb, store, settler)
	w.poll(context.Background())

	// A valid transfer that cites no order code never reaches the store.
	assert.Empty(t, store.byFingerprint)
	assert.Empty(t, settler.codes)
	assert.Equal(t, []string{"m1"}, mb.read)
}
