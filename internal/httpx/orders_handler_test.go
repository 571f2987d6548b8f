package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/catalog"
	"github.com/PhucLe1725/QM-Bookstore-sub000/internal/order"
)

type fakeCatalog struct{ products []catalog.Product }

func (f *fakeCatalog) GetProduct(context.Context, int64) (catalog.Product, error) {
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (f *fakeCatalog) GetProducts(context.Context, []int64) (map[int64]catalog.Product, error) {
	return map[int64]catalog.Product{}, nil
}

func (f *fakeCatalog) ComboComponents(context.Context, int64) ([]catalog.ComboComponent, error) {
	return nil, nil
}

func (f *fakeCatalog) ListProducts(context.Context) ([]catalog.Product, error) {
	return f.products, nil
}

func TestListProductsRoute(t *testing.T) {
	svc := &order.Service{Catalog: &fakeCatalog{products: []catalog.Product{
		{ID: 1, SKU: "BK-001", Title: "Clean Architecture", Price: 200000, Stock: 10, Active: true},
		{ID: 2, SKU: "BK-002", Title: "Domain-Driven Design", Price: 120000, Stock: 4, Active: true},
	}}}

	r := NewRouter()
	(&OrdersHandler{Svc: svc}).Register(r)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "BK-001", got[0].SKU)
}

func TestListOrdersRequiresBuyer(t *testing.T) {
	r := NewRouter()
	(&OrdersHandler{Svc: &order.Service{}}).Register(r)

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
