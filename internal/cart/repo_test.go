package cart

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execRecorder struct {
	sql  string
	args []any
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql = sql
	e.args = args
	return pgconn.CommandTag{}, nil
}

func TestRemoveItemsScopedToBuyer(t *testing.T) {
	rec := &execRecorder{}
	r := &Repo{}

	err := r.RemoveItems(context.Background(), rec, 9, []int64{1, 2})
	require.NoError(t, err)

	assert.Contains(t, rec.sql, "DELETE FROM cart_items")
	assert.Contains(t, rec.sql, "buyer_id=$1")
	assert.Contains(t, rec.sql, "IN ($2,$3)")
	assert.Equal(t, []any{int64(9), int64(1), int64(2)}, rec.args)
}

func TestRemoveItemsNoopWithoutIDs(t *testing.T) {
	rec := &execRecorder{}
	r := &Repo{}

	err := r.RemoveItems(context.Background(), rec, 9, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.sql, "no statement issued for an empty id list")
}
