package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		lines   []Line
		wantErr error
	}{
		{
			name:  "inbound plus ok",
			typ:   TypeIn,
			lines: []Line{{ProductID: 1, Change: ChangePlus, Qty: 5}},
		},
		{
			name:    "inbound minus rejected",
			typ:     TypeIn,
			lines:   []Line{{ProductID: 1, Change: ChangeMinus, Qty: 5}},
			wantErr: ErrInvalidChangeType,
		},
		{
			name:  "outbound minus ok",
			typ:   TypeOut,
			lines: []Line{{ProductID: 1, Change: ChangeMinus, Qty: 2}},
		},
		{
			name:    "outbound plus rejected",
			typ:     TypeOut,
			lines:   []Line{{ProductID: 1, Change: ChangePlus, Qty: 2}},
			wantErr: ErrInvalidChangeType,
		},
		{
			name:    "damaged plus rejected",
			typ:     TypeDamaged,
			lines:   []Line{{ProductID: 1, Change: ChangePlus, Qty: 1}},
			wantErr: ErrInvalidChangeType,
		},
		{
			name: "stocktake either direction",
			typ:  TypeStocktake,
			lines: []Line{
				{ProductID: 1, Change: ChangePlus, Qty: 3},
				{ProductID: 2, Change: ChangeMinus, Qty: 1},
			},
		},
		{
			name:    "unknown type",
			typ:     Type("TRANSFER"),
			lines:   []Line{{ProductID: 1, Change: ChangePlus, Qty: 1}},
			wantErr: ErrInvalidTransactionType,
		},
		{
			name:    "no lines",
			typ:     TypeIn,
			wantErr: ErrEmptyLines,
		},
		{
			name:    "zero qty",
			typ:     TypeIn,
			lines:   []Line{{ProductID: 1, Change: ChangePlus, Qty: 0}},
			wantErr: ErrInvalidQty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLines(tt.typ, tt.lines)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
