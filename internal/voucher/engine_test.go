package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func save10() Voucher {
	return Voucher{
		ID:             7,
		Code:           "SAVE10",
		Kind:           KindPercent,
		Target:         TargetOrder,
		Value:          10,
		MaxDiscount:    20000,
		MinOrderAmount: 100000,
		UsageLimit:     100,
		ValidFrom:      testNow.Add(-24 * time.Hour),
		ValidTo:        testNow.Add(24 * time.Hour),
		Active:         true,
	}
}

func TestEvaluatePercentCap(t *testing.T) {
	res := Evaluate(save10(), 300000, 0, testNow, -1)
	require.True(t, res.Valid)
	// 10% of 300000 is 30000, capped at 20000.
	assert.Equal(t, int64(20000), res.Discount)
	assert.Equal(t, TargetOrder, res.AppliesTo)
}

func TestEvaluateBelowMinimum(t *testing.T) {
	res := Evaluate(save10(), 50000, 0, testNow, -1)
	assert.False(t, res.Valid)
	assert.Zero(t, res.Discount)
}

func TestEvaluateRuleChain(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Voucher)
		prior  int
		valid  bool
	}{
		{"inactive", func(v *Voucher) { v.Active = false }, -1, false},
		{"before window", func(v *Voucher) { v.ValidFrom = testNow.Add(time.Hour) }, -1, false},
		{"after window", func(v *Voucher) { v.ValidTo = testNow.Add(-time.Hour) }, -1, false},
		{"limit reached", func(v *Voucher) { v.UsedCount = v.UsageLimit }, -1, false},
		{"buyer limit reached", func(v *Voucher) { v.PerBuyerLimit = 1 }, 1, false},
		{"buyer under limit", func(v *Voucher) { v.PerBuyerLimit = 2 }, 1, true},
		{"no buyer known skips buyer limit", func(v *Voucher) { v.PerBuyerLimit = 1 }, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := save10()
			tt.mutate(&v)
			res := Evaluate(v, 300000, 0, testNow, tt.prior)
			assert.Equal(t, tt.valid, res.Valid, res.Message)
		})
	}
}

func TestEvaluateFixedNeverExceedsBase(t *testing.T) {
	v := save10()
	v.Kind = KindFixed
	v.Value = 500000
	res := Evaluate(v, 300000, 0, testNow, -1)
	require.True(t, res.Valid)
	assert.Equal(t, int64(300000), res.Discount)
}

func TestEvaluateShippingTarget(t *testing.T) {
	v := save10()
	v.Target = TargetShipping
	v.Kind = KindFixed
	v.Value = 15000
	v.MinOrderAmount = 0

	res := Evaluate(v, 50000, 25000, testNow, -1)
	require.True(t, res.Valid)
	assert.Equal(t, int64(15000), res.Discount)
	assert.Equal(t, TargetShipping, res.AppliesTo)

	// Discount measured against the fee, never above it.
	v.Value = 90000
	res = Evaluate(v, 50000, 25000, testNow, -1)
	require.True(t, res.Valid)
	assert.Equal(t, int64(25000), res.Discount)

	// min order amount enforced for shipping vouchers only when set.
	v.MinOrderAmount = 100000
	res = Evaluate(v, 50000, 25000, testNow, -1)
	assert.False(t, res.Valid)
}

func TestEvaluateZeroDiscountInvalid(t *testing.T) {
	v := save10()
	v.Target = TargetShipping
	v.Kind = KindPercent
	v.Value = 10
	v.MinOrderAmount = 0
	res := Evaluate(v, 300000, 0, testNow, -1)
	assert.False(t, res.Valid)
}

type fakeStore struct {
	byCode map[string]Voucher
	uses   map[[2]int64]int
}

func (f *fakeStore) GetByCode(_ context.Context, code string) (Voucher, error) {
	v, ok := f.byCode[code]
	if !ok {
		return Voucher{}, ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) CountBuyerUses(_ context.Context, voucherID, buyerID int64) (int, error) {
	return f.uses[[2]int64{voucherID, buyerID}], nil
}

func TestEngineValidate(t *testing.T) {
	store := &fakeStore{
		byCode: map[string]Voucher{"SAVE10": save10()},
		uses:   map[[2]int64]int{},
	}
	eng := &Engine{Store: store, Now: func() time.Time { return testNow }}

	res, err := eng.Validate(context.Background(), "SAVE10", 300000, 25000, 42)
	require.NoError(t, err)
	require.True(t, res.Valid)
	assert.Equal(t, int64(20000), res.Discount)
	assert.Equal(t, int64(7), res.VoucherID)

	// Unknown code is a rule failure, not an error.
	res, err = eng.Validate(context.Background(), "NOPE", 300000, 25000, 42)
	require.NoError(t, err)
	assert.False(t, res.Valid)
}
